// Package content moderates posts and lists community groups.
package content

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/models"
)

// Date filters.
const (
	DateAll   = "all"
	DateToday = "today"
	DateWeek  = "week"
	DateMonth = "month"
)

// Moderation actions.
const (
	ActionApprove = "approve"
	ActionRemove  = "remove"
	ActionFlag    = "flag"
	ActionRestore = "restore"
)

// PostFilter holds the active post filters.
type PostFilter struct {
	Search        string // Matches content, author or university.
	DateFilter    string // all, today, week or month.
	ContentFilter string // all or a post status.
	University    string
}

// Predicate returns the AND of the active filters evaluated at now.
func (f PostFilter) Predicate(now time.Time) listing.Predicate[models.Post] {
	var preds []listing.Predicate[models.Post]
	if search := strings.TrimSpace(f.Search); search != "" {
		preds = append(preds, func(p models.Post) bool {
			return listing.ContainsFold(search, p.Content, p.AuthorName, p.University)
		})
	}
	if pred := datePredicate(f.DateFilter, now); pred != nil {
		preds = append(preds, pred)
	}
	if status := strings.TrimSpace(f.ContentFilter); status != "" && status != "all" {
		preds = append(preds, func(p models.Post) bool { return p.Status == status })
	}
	if university := strings.TrimSpace(f.University); university != "" && university != "all" {
		preds = append(preds, func(p models.Post) bool { return strings.EqualFold(p.University, university) })
	}
	return listing.All(preds...)
}

// datePredicate matches posts from the current UTC day, or the last 7 or 30 days.
func datePredicate(filter string, now time.Time) listing.Predicate[models.Post] {
	now = now.UTC()
	var from time.Time
	switch strings.TrimSpace(filter) {
	case DateToday:
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case DateWeek:
		from = now.AddDate(0, 0, -7)
	case DateMonth:
		from = now.AddDate(0, 0, -30)
	default:
		return nil
	}
	return func(p models.Post) bool {
		created := p.CreatedAt.UTC()
		return !created.Before(from) && !created.After(now)
	}
}

// GroupFilter holds the active group filters.
type GroupFilter struct {
	Search     string
	University string
	Category   string
}

// Predicate returns the AND of the active filters.
func (f GroupFilter) Predicate() listing.Predicate[models.Group] {
	var preds []listing.Predicate[models.Group]
	if search := strings.TrimSpace(f.Search); search != "" {
		preds = append(preds, func(g models.Group) bool { return listing.ContainsFold(search, g.Name, g.Description) })
	}
	if university := strings.TrimSpace(f.University); university != "" && university != "all" {
		preds = append(preds, func(g models.Group) bool { return strings.EqualFold(g.University, university) })
	}
	if category := strings.TrimSpace(f.Category); category != "" && category != "all" {
		preds = append(preds, func(g models.Group) bool { return strings.EqualFold(g.Category, category) })
	}
	return listing.All(preds...)
}

// Service moderates posts and lists groups.
type Service struct {
	client *baas.Client
	now    func() time.Time
}

// NewService returns a Service backed by the document store.
func NewService(client *baas.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// ListPosts loads every post, newest first, and returns the filtered page.
func (s *Service) ListPosts(ctx context.Context, f PostFilter, page listing.PageParams) (listing.Page[models.Post], error) {
	const op = "content.ListPosts"
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	var all []models.Post
	if errFind := s.client.DB.WithContext(callCtx).Order("created_at DESC").Find(&all).Error; errFind != nil {
		return listing.Page[models.Post]{}, apperr.Wrap(apperr.KindRead, op, "load posts failed", errFind)
	}
	return listing.Paginate(listing.Filter(all, f.Predicate(s.now())), page.Page, page.PageSize), nil
}

// ListGroups loads every group, largest first, and returns the filtered page.
func (s *Service) ListGroups(ctx context.Context, f GroupFilter, page listing.PageParams) (listing.Page[models.Group], error) {
	const op = "content.ListGroups"
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	var all []models.Group
	if errFind := s.client.DB.WithContext(callCtx).Order("member_count DESC").Order("created_at DESC").Find(&all).Error; errFind != nil {
		return listing.Page[models.Group]{}, apperr.Wrap(apperr.KindRead, op, "load groups failed", errFind)
	}
	return listing.Paginate(listing.Filter(all, f.Predicate()), page.Page, page.PageSize), nil
}

// ModeratePost applies action to a post and records the moderator.
func (s *Service) ModeratePost(ctx context.Context, id, action, actorUID string) (listing.ActionResult, error) {
	const op = "content.ModeratePost"
	id = strings.TrimSpace(id)
	if id == "" {
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "post id is required")
	}
	action = strings.ToLower(strings.TrimSpace(action))

	updates := map[string]any{"moderated_by": actorUID, "updated_at": s.now().UTC()}
	switch action {
	case ActionApprove:
		updates["status"] = models.PostStatusApproved
		updates["report_count"] = 0
	case ActionRemove:
		updates["status"] = models.PostStatusRemoved
	case ActionFlag:
		updates["status"] = models.PostStatusFlagged
	case ActionRestore:
		updates["status"] = models.PostStatusApproved
	default:
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "unknown action "+action)
	}

	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	res := s.client.DB.WithContext(callCtx).Model(&models.Post{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, action+" post failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return listing.ActionResult{}, apperr.New(apperr.KindNotFound, op, "post not found")
	}

	metrics.RecordAction("content", action, true)
	log.WithFields(log.Fields{"post_id": id, "action": action, "actor": actorUID}).Info("post moderated")
	return listing.Persisted(action, id, "status "+updates["status"].(string)), nil
}
