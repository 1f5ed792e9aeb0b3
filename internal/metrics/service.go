// Package metrics computes the dashboard snapshot and exposes Prometheus instrumentation.
package metrics

import (
	"context"
	"math"
	"time"

	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/config"
	"github.com/unidate/unidate-admin/internal/models"
	"gorm.io/gorm"
)

const defaultQueryTimeout = 10 * time.Second

// Snapshot is a point-in-time aggregate of platform activity.
type Snapshot struct {
	TotalUsers     int64     `json:"totalUsers"`
	ActiveUsers    int64     `json:"activeUsers"` // Active within the active window (24h by default).
	NewUsers       int64     `json:"newUsers"`    // Joined within the new-user window (7d by default).
	TotalPosts     int64     `json:"totalPosts"`
	TotalGroups    int64     `json:"totalGroups"`
	PendingReports int64     `json:"pendingReports"`
	EngagementRate float64   `json:"engagementRate"` // Posts per user, two decimals.
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Service counts platform entities with server-side aggregate queries.
type Service struct {
	db           *gorm.DB
	activeWindow time.Duration
	newWindow    time.Duration
	timeout      time.Duration
	now          func() time.Time
}

// NewService builds a Service from cfg.
func NewService(db *gorm.DB, cfg config.MetricsConfig) *Service {
	s := &Service{
		db:           db,
		activeWindow: cfg.ActiveWindow,
		newWindow:    cfg.NewUserWindow,
		timeout:      defaultQueryTimeout,
		now:          time.Now,
	}
	if s.activeWindow <= 0 {
		s.activeWindow = 24 * time.Hour
	}
	if s.newWindow <= 0 {
		s.newWindow = 7 * 24 * time.Hour
	}
	return s
}

// GetMetrics computes a fresh snapshot. Any failed count fails the whole snapshot.
func (s *Service) GetMetrics(ctx context.Context) (Snapshot, error) {
	const op = "metrics.GetMetrics"
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	conn := s.db.WithContext(ctx)
	var snap Snapshot

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&snap.TotalUsers, conn.Model(&models.AppUser{})},
		{&snap.ActiveUsers, conn.Model(&models.AppUser{}).Where("last_active_at >= ?", now.Add(-s.activeWindow))},
		{&snap.NewUsers, conn.Model(&models.AppUser{}).Where("created_at >= ?", now.Add(-s.newWindow))},
		{&snap.TotalPosts, conn.Model(&models.Post{})},
		{&snap.TotalGroups, conn.Model(&models.Group{})},
		{&snap.PendingReports, conn.Model(&models.Report{}).Where("status = ?", models.ReportStatusPending)},
	}
	for _, c := range counts {
		if errCount := c.query.Count(c.dst).Error; errCount != nil {
			return Snapshot{}, apperr.Wrap(apperr.KindRead, op, "count platform entities failed", errCount)
		}
	}

	snap.EngagementRate = EngagementRate(snap.TotalPosts, snap.TotalUsers)
	snap.LastUpdated = now
	return snap, nil
}

// EngagementRate returns posts per user rounded to two decimals, or 0 with no users.
func EngagementRate(posts, users int64) float64 {
	if users <= 0 {
		return 0
	}
	return math.Round(float64(posts)/float64(users)*100) / 100
}
