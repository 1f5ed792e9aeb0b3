// Package reports handles user complaints: listing, resolution workflow and CSV export.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/baas"
	"github.com/unidate/unidate-admin/internal/baas/blob"
	"github.com/unidate/unidate-admin/internal/config"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/models"
)

// Workflow actions.
const (
	ActionResolve  = "resolve"
	ActionDismiss  = "dismiss"
	ActionEscalate = "escalate"
)

const exportTimeout = 2 * time.Minute

// Filter holds the active report filters.
type Filter struct {
	Search   string            `json:"search,omitempty"` // Matches reason, description or target id.
	Status   string            `json:"status,omitempty"`
	Type     string            `json:"type,omitempty"`
	Priority string            `json:"priority,omitempty"`
	Created  listing.DateRange `json:"-"`
}

// Predicate returns the AND of the active filters.
func (f Filter) Predicate() listing.Predicate[models.Report] {
	var preds []listing.Predicate[models.Report]
	if search := strings.TrimSpace(f.Search); search != "" {
		preds = append(preds, func(r models.Report) bool {
			return listing.ContainsFold(search, r.Reason, r.Description, r.TargetID)
		})
	}
	if status := strings.TrimSpace(f.Status); status != "" && status != "all" {
		preds = append(preds, func(r models.Report) bool { return r.Status == status })
	}
	if typ := strings.TrimSpace(f.Type); typ != "" && typ != "all" {
		preds = append(preds, func(r models.Report) bool { return r.Type == typ })
	}
	if priority := strings.TrimSpace(f.Priority); priority != "" && priority != "all" {
		preds = append(preds, func(r models.Report) bool { return r.Priority == priority })
	}
	if !f.Created.From.IsZero() || !f.Created.To.IsZero() {
		created := f.Created
		preds = append(preds, func(r models.Report) bool { return created.Contains(r.CreatedAt) })
	}
	return listing.All(preds...)
}

// ActionRequest is a workflow action on one report.
type ActionRequest struct {
	Action     string
	Resolution string // Note stored with resolve and dismiss.
	ActorUID   string
}

// Service manages reports.
type Service struct {
	client *baas.Client
	tasks  *exportTaskStore
	now    func() time.Time

	exports sync.WaitGroup
}

// NewService returns a Service. Export tasks are kept per cfg.
func NewService(client *baas.Client, cfg config.ReportsConfig) *Service {
	return &Service{
		client: client,
		tasks:  newExportTaskStore(cfg.ExportTaskTTL, cfg.ExportMaxTasks),
		now:    time.Now,
	}
}

func (s *Service) loadFiltered(ctx context.Context, op string, f Filter) ([]models.Report, error) {
	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	var all []models.Report
	if errFind := s.client.DB.WithContext(callCtx).Order("created_at DESC").Find(&all).Error; errFind != nil {
		return nil, apperr.Wrap(apperr.KindRead, op, "load reports failed", errFind)
	}
	return listing.Filter(all, f.Predicate()), nil
}

// List returns the filtered page of reports, newest first.
func (s *Service) List(ctx context.Context, f Filter, page listing.PageParams) (listing.Page[models.Report], error) {
	filtered, err := s.loadFiltered(ctx, "reports.List", f)
	if err != nil {
		return listing.Page[models.Report]{}, err
	}
	return listing.Paginate(filtered, page.Page, page.PageSize), nil
}

// Apply runs a workflow action. Resolved and dismissed reports are closed and cannot be reopened.
func (s *Service) Apply(ctx context.Context, id string, req ActionRequest) (listing.ActionResult, error) {
	const op = "reports.Apply"
	id = strings.TrimSpace(id)
	if id == "" {
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "report id is required")
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	now := s.now().UTC()

	updates := map[string]any{"updated_at": now}
	switch action {
	case ActionResolve:
		updates["status"] = models.ReportStatusResolved
		updates["resolved_by"] = req.ActorUID
		updates["resolution"] = strings.TrimSpace(req.Resolution)
		updates["resolved_at"] = now
	case ActionDismiss:
		updates["status"] = models.ReportStatusDismissed
		updates["resolved_by"] = req.ActorUID
		updates["resolution"] = strings.TrimSpace(req.Resolution)
		updates["resolved_at"] = now
	case ActionEscalate:
		updates["status"] = models.ReportStatusEscalated
		updates["priority"] = "high"
	default:
		return listing.ActionResult{}, apperr.New(apperr.KindInvalid, op, "unknown action "+action)
	}

	callCtx, cancel := s.client.WithTimeout(ctx)
	defer cancel()
	res := s.client.DB.WithContext(callCtx).Model(&models.Report{}).
		Where("id = ? AND status IN ?", id, []string{models.ReportStatusPending, models.ReportStatusEscalated}).
		Updates(updates)
	if res.Error != nil {
		return listing.ActionResult{}, apperr.Wrap(apperr.KindWrite, op, action+" report failed", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if errCount := s.client.DB.WithContext(callCtx).Model(&models.Report{}).Where("id = ?", id).Count(&count).Error; errCount != nil {
			return listing.ActionResult{}, apperr.Wrap(apperr.KindRead, op, "load report failed", errCount)
		}
		if count == 0 {
			return listing.ActionResult{}, apperr.New(apperr.KindNotFound, op, "report not found")
		}
		return listing.ActionResult{}, apperr.New(apperr.KindConflict, op, "report is already closed")
	}

	metrics.RecordAction("reports", action, true)
	log.WithFields(log.Fields{"report_id": id, "action": action, "actor": req.ActorUID}).Info("report updated")
	return listing.Persisted(action, id, "status "+updates["status"].(string)), nil
}

// StartExport begins a CSV export of the filtered reports and returns its task.
func (s *Service) StartExport(ctx context.Context, f Filter, actorUID string) (ExportTask, error) {
	const op = "reports.StartExport"
	store, errBlobs := s.client.RequireBlobs(op)
	if errBlobs != nil {
		return ExportTask{}, errBlobs
	}
	task := s.tasks.Create(actorUID, f)

	s.exports.Add(1)
	go func() {
		defer s.exports.Done()
		exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
		defer cancel()
		rows, key, err := s.runExport(exportCtx, store, task.TaskID, f)
		errMsg := ""
		if err != nil {
			errMsg = apperr.Message(err)
			log.WithError(err).WithField("task_id", task.TaskID).Warn("reports export failed")
		}
		s.tasks.Finish(task.TaskID, rows, key, errMsg)
		metrics.RecordAction("reports", "export", err == nil)
	}()
	return task, nil
}

func (s *Service) runExport(ctx context.Context, store blob.Store, taskID string, f Filter) (int, string, error) {
	const op = "reports.Export"
	rows, err := s.loadFiltered(ctx, op, f)
	if err != nil {
		return 0, "", err
	}
	var buf bytes.Buffer
	if errWrite := WriteCSV(&buf, rows); errWrite != nil {
		return 0, "", apperr.Wrap(apperr.KindInternal, op, "encode csv failed", errWrite)
	}
	key := "exports/reports/" + taskID + ".csv"
	if errPut := store.Put(ctx, key, &buf, int64(buf.Len()), "text/csv"); errPut != nil {
		return 0, "", apperr.Wrap(apperr.KindWrite, op, "store export failed", errPut)
	}
	return len(rows), key, nil
}

// WriteCSV writes reports with a header row.
func WriteCSV(w io.Writer, rows []models.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "type", "target_id", "reporter_id", "reason", "status", "priority", "resolved_by", "resolution", "created_at", "resolved_at"}); err != nil {
		return err
	}
	for _, r := range rows {
		resolvedAt := ""
		if r.ResolvedAt != nil {
			resolvedAt = r.ResolvedAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			r.ID, r.Type, r.TargetID, r.ReporterID, r.Reason, r.Status, r.Priority,
			r.ResolvedBy, r.Resolution, r.CreatedAt.UTC().Format(time.RFC3339), resolvedAt,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportStatus returns an export task.
func (s *Service) ExportStatus(taskID string) (ExportTask, error) {
	task, ok := s.tasks.Get(strings.TrimSpace(taskID))
	if !ok {
		return ExportTask{}, apperr.New(apperr.KindNotFound, "reports.ExportStatus", "export task not found")
	}
	return task, nil
}

// OpenExport opens the CSV of a finished export.
func (s *Service) OpenExport(ctx context.Context, taskID string) (io.ReadCloser, ExportTask, error) {
	const op = "reports.OpenExport"
	task, err := s.ExportStatus(taskID)
	if err != nil {
		return nil, ExportTask{}, err
	}
	if task.Status != ExportStatusSuccess {
		return nil, task, apperr.New(apperr.KindConflict, op, "export is "+task.Status)
	}
	store, errBlobs := s.client.RequireBlobs(op)
	if errBlobs != nil {
		return nil, task, errBlobs
	}
	rc, errGet := store.Get(ctx, task.BlobKey)
	if errGet != nil {
		if errors.Is(errGet, blob.ErrNotFound) {
			return nil, task, apperr.New(apperr.KindNotFound, op, "export file expired")
		}
		return nil, task, apperr.Wrap(apperr.KindRead, op, "open export failed", errGet)
	}
	return rc, task, nil
}

// PruneExports drops expired tasks and deletes their files. It returns the number of files removed.
func (s *Service) PruneExports(ctx context.Context) (int, error) {
	keys := s.tasks.CleanupExpired()
	if len(keys) == 0 {
		return 0, nil
	}
	if !s.client.BlobsReady() {
		s.tasks.requeue(keys)
		return 0, nil
	}
	removed := 0
	var firstErr error
	var failed []string
	for _, key := range keys {
		if errDelete := s.client.Blobs.Delete(ctx, key); errDelete != nil {
			if firstErr == nil {
				firstErr = errDelete
			}
			failed = append(failed, key)
			continue
		}
		removed++
	}
	s.tasks.requeue(failed)
	if removed > 0 {
		log.Infof("reports export cleanup: removed %d files", removed)
	}
	return removed, firstErr
}

// Wait blocks until running exports finish.
func (s *Service) Wait() { s.exports.Wait() }
