// Package analytics builds the time-series and breakdowns behind the analytics screen.
package analytics

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/models"
)

// Supported ranges in days.
var supportedRanges = map[int]struct{}{7: {}, 30: {}, 90: {}}

// DailyPoint is one calendar day of activity.
type DailyPoint struct {
	Date    string `json:"date"` // YYYY-MM-DD, UTC.
	Signups int    `json:"signups"`
	Posts   int    `json:"posts"`
}

// UniversityCount is the number of users at one university.
type UniversityCount struct {
	University string `json:"university"`
	Users      int64  `json:"users"`
}

// Engagement summarizes post interactions within the range.
type Engagement struct {
	Posts           int     `json:"posts"`
	Likes           int     `json:"likes"`
	Comments        int     `json:"comments"`
	ActiveAuthors   int     `json:"activeAuthors"`
	LikesPerPost    float64 `json:"likesPerPost"`
	CommentsPerPost float64 `json:"commentsPerPost"`
}

// Overview is the analytics screen payload.
type Overview struct {
	Days         int               `json:"days"`
	From         time.Time         `json:"from"`
	To           time.Time         `json:"to"`
	Daily        []DailyPoint      `json:"daily"`
	Universities []UniversityCount `json:"universities"`
	Engagement   Engagement        `json:"engagement"`
}

// Service computes analytics.
type Service struct {
	client *baas.Client
	now    func() time.Time
}

// NewService returns a Service.
func NewService(client *baas.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// Overview returns activity for the last days calendar days, today included.
func (s *Service) Overview(ctx context.Context, days int) (Overview, error) {
	const op = "analytics.Overview"
	if _, ok := supportedRanges[days]; !ok {
		return Overview{}, apperr.New(apperr.KindInvalid, op, "range must be 7, 30 or 90 days")
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(days - 1))

	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	conn := s.client.DB.WithContext(callCtx)

	var users []models.AppUser
	if errFind := conn.Select("id", "created_at").Where("created_at >= ?", from).Find(&users).Error; errFind != nil {
		return Overview{}, apperr.Wrap(apperr.KindRead, op, "load signups failed", errFind)
	}
	var posts []models.Post
	if errFind := conn.Select("id", "author_id", "likes", "comments", "created_at").Where("created_at >= ?", from).Find(&posts).Error; errFind != nil {
		return Overview{}, apperr.Wrap(apperr.KindRead, op, "load posts failed", errFind)
	}
	var universities []UniversityCount
	if errGroup := conn.Model(&models.AppUser{}).
		Select("university, COUNT(*) AS users").
		Group("university").
		Scan(&universities).Error; errGroup != nil {
		return Overview{}, apperr.Wrap(apperr.KindRead, op, "count universities failed", errGroup)
	}

	return Overview{
		Days:         days,
		From:         from,
		To:           now,
		Daily:        dailySeries(from, days, users, posts),
		Universities: sortUniversities(universities),
		Engagement:   engagement(posts),
	}, nil
}

func dailySeries(from time.Time, days int, users []models.AppUser, posts []models.Post) []DailyPoint {
	series := make([]DailyPoint, days)
	for i := range series {
		series[i].Date = from.AddDate(0, 0, i).Format(time.DateOnly)
	}
	bucket := func(t time.Time) int {
		idx := int(t.UTC().Sub(from) / (24 * time.Hour))
		if idx < 0 || idx >= days {
			return -1
		}
		return idx
	}
	for _, u := range users {
		if idx := bucket(u.CreatedAt); idx >= 0 {
			series[idx].Signups++
		}
	}
	for _, p := range posts {
		if idx := bucket(p.CreatedAt); idx >= 0 {
			series[idx].Posts++
		}
	}
	return series
}

func sortUniversities(in []UniversityCount) []UniversityCount {
	out := make([]UniversityCount, 0, len(in))
	for _, u := range in {
		u.University = strings.TrimSpace(u.University)
		if u.University == "" {
			u.University = "unknown"
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].University < out[j].University
	})
	return out
}

func engagement(posts []models.Post) Engagement {
	e := Engagement{Posts: len(posts)}
	authors := make(map[string]struct{})
	for _, p := range posts {
		e.Likes += p.Likes
		e.Comments += p.Comments
		authors[p.AuthorID] = struct{}{}
	}
	e.ActiveAuthors = len(authors)
	if e.Posts > 0 {
		e.LikesPerPost = round2(float64(e.Likes) / float64(e.Posts))
		e.CommentsPerPost = round2(float64(e.Comments) / float64(e.Posts))
	}
	return e
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
