// Package notifications manages the admin notification center.
package notifications

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/models"
	"gorm.io/gorm"
)

// Notification types.
const (
	TypeInfo         = "info"
	TypeSuccess      = "success"
	TypeWarning      = "warning"
	TypeError        = "error"
	TypeAnnouncement = "announcement"
)

// Read-state filters.
const (
	StatusRead   = "read"
	StatusUnread = "unread"
)

var validTypes = map[string]struct{}{
	TypeInfo: {}, TypeSuccess: {}, TypeWarning: {}, TypeError: {}, TypeAnnouncement: {},
}

// Filter holds the active notification filters.
type Filter struct {
	Search   string
	Type     string
	Status   string // all, read or unread.
	Audience string
}

// Predicate returns the AND of the active filters.
func (f Filter) Predicate() listing.Predicate[models.Notification] {
	var preds []listing.Predicate[models.Notification]
	if search := strings.TrimSpace(f.Search); search != "" {
		preds = append(preds, func(n models.Notification) bool { return listing.ContainsFold(search, n.Title, n.Message) })
	}
	if typ := strings.TrimSpace(f.Type); typ != "" && typ != "all" {
		preds = append(preds, func(n models.Notification) bool { return n.Type == typ })
	}
	switch strings.TrimSpace(f.Status) {
	case StatusRead:
		preds = append(preds, func(n models.Notification) bool { return n.Read })
	case StatusUnread:
		preds = append(preds, func(n models.Notification) bool { return !n.Read })
	}
	if audience := strings.TrimSpace(f.Audience); audience != "" && audience != "all" {
		preds = append(preds, func(n models.Notification) bool { return n.Audience == audience })
	}
	return listing.All(preds...)
}

// Draft is a notification to send.
type Draft struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Audience   string `json:"audience"`
	University string `json:"university"`
}

// Service manages notifications.
type Service struct {
	client *baas.Client
	now    func() time.Time
}

// NewService returns a Service.
func NewService(client *baas.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// List returns the filtered page, newest first.
func (s *Service) List(ctx context.Context, f Filter, page listing.PageParams) (listing.Page[models.Notification], error) {
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var all []models.Notification
	if errFind := s.client.DB.WithContext(callCtx).Order("created_at DESC").Find(&all).Error; errFind != nil {
		return listing.Page[models.Notification]{}, apperr.Wrap(apperr.KindRead, "notifications.List", "load notifications failed", errFind)
	}
	return listing.Paginate(listing.Filter(all, f.Predicate()), page.Page, page.PageSize), nil
}

// UnreadCount returns the number of unread notifications.
func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var count int64
	if errCount := s.client.DB.WithContext(callCtx).Model(&models.Notification{}).Where("read = ?", false).Count(&count).Error; errCount != nil {
		return 0, apperr.Wrap(apperr.KindRead, "notifications.UnreadCount", "count notifications failed", errCount)
	}
	return count, nil
}

// Send stores the notification. No push channel is configured, so it is kept undelivered.
func (s *Service) Send(ctx context.Context, d Draft, actorUID string) (models.Notification, listing.ActionResult, error) {
	const op = "notifications.Send"
	n, err := d.normalize()
	if err != nil {
		return models.Notification{}, listing.ActionResult{}, err
	}
	n.ID = uuid.NewString()
	n.CreatedBy = actorUID
	n.CreatedAt = s.now().UTC()

	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	if errCreate := s.client.DB.WithContext(callCtx).Create(&n).Error; errCreate != nil {
		return models.Notification{}, listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, "save notification failed", errCreate)
	}

	metrics.RecordAction("notifications", "send", true)
	log.WithFields(log.Fields{"notification_id": n.ID, "audience": n.Audience, "actor": actorUID}).Info("notification stored")
	return n, listing.Persisted("send", n.ID, "stored; no delivery channel configured"), nil
}

func (d Draft) normalize() (models.Notification, error) {
	const op = "notifications.Send"
	n := models.Notification{
		Title:      strings.TrimSpace(d.Title),
		Message:    strings.TrimSpace(d.Message),
		Type:       strings.ToLower(strings.TrimSpace(d.Type)),
		Audience:   strings.ToLower(strings.TrimSpace(d.Audience)),
		University: strings.TrimSpace(d.University),
	}
	if n.Title == "" || n.Message == "" {
		return n, apperr.New(apperr.KindInvalid, op, "title and message are required")
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	if _, ok := validTypes[n.Type]; !ok {
		return n, apperr.New(apperr.KindInvalid, op, "unknown notification type "+n.Type)
	}
	switch n.Audience {
	case "":
		n.Audience = models.AudienceAll
	case models.AudienceAll, models.AudienceAdmins:
		n.University = ""
	case models.AudienceUniversity:
		if n.University == "" {
			return n, apperr.New(apperr.KindInvalid, op, "university is required for university audience")
		}
	default:
		return n, apperr.New(apperr.KindInvalid, op, "unknown audience "+n.Audience)
	}
	return n, nil
}

// MarkRead marks one notification read. Marking an already read notification succeeds.
func (s *Service) MarkRead(ctx context.Context, id string) (listing.ActionResult, error) {
	const op = "notifications.MarkRead"
	id = strings.TrimSpace(id)
	if id == "" {
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "notification id is required")
	}
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	var n models.Notification
	if errFind := s.client.DB.WithContext(callCtx).Select("id", "read").Where("id = ?", id).Take(&n).Error; errFind != nil {
		return listing.ActionResult{}, notFoundOr(op, errFind)
	}
	if n.Read {
		return listing.Persisted("read", id, "already read"), nil
	}
	if errUpdate := s.client.DB.WithContext(callCtx).Model(&models.Notification{}).Where("id = ?", id).
		Updates(map[string]any{"read": true, "read_at": s.now().UTC()}).Error; errUpdate != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, "mark read failed", errUpdate)
	}
	metrics.RecordAction("notifications", "read", true)
	return listing.Persisted("read", id, ""), nil
}

// MarkAllRead marks every unread notification read.
func (s *Service) MarkAllRead(ctx context.Context) (listing.ActionResult, error) {
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	res := s.client.DB.WithContext(callCtx).Model(&models.Notification{}).Where("read = ?", false).
		Updates(map[string]any{"read": true, "read_at": s.now().UTC()})
	if res.Error != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, "notifications.MarkAllRead", "mark all read failed", res.Error)
	}
	metrics.RecordAction("notifications", "read_all", true)
	log.Infof("notifications marked read: %d", res.RowsAffected)
	return listing.Persisted("read_all", "", pluralize(res.RowsAffected, "notification")), nil
}

// Delete removes a notification.
func (s *Service) Delete(ctx context.Context, id string) (listing.ActionResult, error) {
	const op = "notifications.Delete"
	id = strings.TrimSpace(id)
	if id == "" {
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "notification id is required")
	}
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	res := s.client.DB.WithContext(callCtx).Where("id = ?", id).Delete(&models.Notification{})
	if res.Error != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, "delete notification failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return listing.ActionResult{}, apperr.New(apperr.KindNotFound, op, "notification not found")
	}
	metrics.RecordAction("notifications", "delete", true)
	return listing.Persisted("delete", id, ""), nil
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, op, "notification not found")
	}
	return apperr.Wrap(apperr.KindRead, op, "load notification failed", err)
}

func pluralize(n int64, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.FormatInt(n, 10) + " " + noun + "s"
}
