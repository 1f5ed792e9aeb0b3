// Package users manages end-user profiles from the admin console.
package users

import (
	"context"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/models"
)

// Actions accepted by Apply.
const (
	ActionBan      = "ban"
	ActionSuspend  = "suspend"
	ActionActivate = "activate"
	ActionVerify   = "verify"
	ActionDelete   = "delete"
)

const defaultSuspensionDays = 7

// Sort orders.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortName    = "name"
	SortReports = "reports"
)

// Filter holds the active list filters. Zero fields are inactive.
type Filter struct {
	Search     string // Matches name, email or university.
	Status     string
	University string
	Verified   *bool
	Joined     listing.DateRange
	Sort       string
}

// ActionRequest is a moderation action on one user.
type ActionRequest struct {
	Action   string
	Days     int // Suspension length, defaults to seven days.
	ActorUID string
}

// Service lists and moderates end users.
type Service struct {
	client *baas.Client
	now    func() time.Time
}

// NewService returns a Service backed by the document store.
func NewService(client *baas.Client) *Service {
	return &Service{client: client, now: time.Now}
}

// Predicate returns the AND-combined predicate for f.
func (f Filter) Predicate() listing.Predicate[models.AppUser] {
	var preds []listing.Predicate[models.AppUser]
	if search := strings.TrimSpace(f.Search); search != "" {
		preds = append(preds, func(u models.AppUser) bool {
			return listing.ContainsFold(search, u.Name, u.Email, u.University)
		})
	}
	if status := strings.TrimSpace(f.Status); status != "" && status != "all" {
		preds = append(preds, func(u models.AppUser) bool { return u.Status == status })
	}
	if university := strings.TrimSpace(f.University); university != "" && university != "all" {
		preds = append(preds, func(u models.AppUser) bool { return strings.EqualFold(u.University, university) })
	}
	if f.Verified != nil {
		want := *f.Verified
		preds = append(preds, func(u models.AppUser) bool { return u.Verified == want })
	}
	if !f.Joined.From.IsZero() || !f.Joined.To.IsZero() {
		joined := f.Joined
		preds = append(preds, func(u models.AppUser) bool { return joined.Contains(u.CreatedAt) })
	}
	return listing.All(preds...)
}

// List loads every user, applies f and returns the requested page.
func (s *Service) List(ctx context.Context, f Filter, page listing.PageParams) (listing.Page[models.AppUser], error) {
	const op = "users.List"
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()

	var all []models.AppUser
	if errFind := s.client.DB.WithContext(callCtx).Order("created_at DESC").Find(&all).Error; errFind != nil {
		return listing.Page[models.AppUser]{}, apperr.Wrap(apperr.KindRead, op, "load users failed", errFind)
	}
	filtered := listing.Filter(all, f.Predicate())
	sortUsers(filtered, f.Sort)
	return listing.Paginate(filtered, page.Page, page.PageSize), nil
}

func sortUsers(items []models.AppUser, order string) {
	switch order {
	case SortOldest:
		sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	case SortName:
		sort.SliceStable(items, func(i, j int) bool { return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name) })
	case SortReports:
		sort.SliceStable(items, func(i, j int) bool { return items[i].ReportCount > items[j].ReportCount })
	}
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id string) (*models.AppUser, error) {
	const op = "users.Get"
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var user models.AppUser
	res := s.client.DB.WithContext(callCtx).Where("id = ?", strings.TrimSpace(id)).Limit(1).Find(&user)
	if res.Error != nil {
		return nil, apperr.Wrap(apperr.KindRead, op, "load user failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, op, "user not found")
	}
	return &user, nil
}

// Apply performs a moderation action and writes it to the document store.
func (s *Service) Apply(ctx context.Context, id string, req ActionRequest) (listing.ActionResult, error) {
	const op = "users.Apply"
	id = strings.TrimSpace(id)
	if id == "" {
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "user id is required")
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	now := s.now().UTC()

	var updates map[string]any
	detail := ""
	switch action {
	case ActionBan:
		updates = map[string]any{"status": models.UserStatusBanned, "suspended_until": nil}
	case ActionSuspend:
		days := req.Days
		if days <= 0 {
			days = defaultSuspensionDays
		}
		until := now.AddDate(0, 0, days)
		updates = map[string]any{"status": models.UserStatusSuspended, "suspended_until": until}
		detail = "suspended until " + until.Format(time.RFC3339)
	case ActionActivate:
		updates = map[string]any{"status": models.UserStatusActive, "suspended_until": nil}
	case ActionVerify:
		updates = map[string]any{"verified": true}
	case ActionDelete:
		return s.delete(ctx, op, id, req.ActorUID)
	default:
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "unknown action "+action)
	}

	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	updates["updated_at"] = now
	res := s.client.DB.WithContext(callCtx).Model(&models.AppUser{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, action+" user failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return listing.ActionResult{}, apperr.New(apperr.KindNotFound, op, "user not found")
	}
	metrics.RecordAction("users", action, true)
	log.WithFields(log.Fields{"user_id": id, "action": action, "actor": req.ActorUID}).Info("user moderated")
	return listing.Persisted(action, id, detail), nil
}

func (s *Service) delete(ctx context.Context, op, id, actorUID string) (listing.ActionResult, error) {
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	res := s.client.DB.WithContext(callCtx).Where("id = ?", id).Delete(&models.AppUser{})
	if res.Error != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, "delete user failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return listing.ActionResult{}, apperr.New(apperr.KindNotFound, op, "user not found")
	}
	metrics.RecordAction("users", ActionDelete, true)
	log.WithFields(log.Fields{"user_id": id, "actor": actorUID}).Info("user deleted")
	return listing.Persisted(ActionDelete, id, "profile deleted"), nil
}

// Universities returns the distinct universities of all users, sorted.
func (s *Service) Universities(ctx context.Context) ([]string, error) {
	const op = "users.Universities"
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var out []string
	if errPluck := s.client.DB.WithContext(callCtx).Model(&models.AppUser{}).
		Distinct("university").Order("university").Pluck("university", &out).Error; errPluck != nil {
		return nil, apperr.Wrap(apperr.KindRead, op, "load universities failed", errPluck)
	}
	return out, nil
}
