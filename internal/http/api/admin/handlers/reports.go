package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/listing"
	"github.com/unidate/unidate-admin/internal/services/reports"
)

// ReportHandler serves the report queue and its CSV exports.
type ReportHandler struct {
	reports *reports.Service
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc *reports.Service) *ReportHandler {
	return &ReportHandler{reports: svc}
}

func reportFilter(c *gin.Context) reports.Filter {
	return reports.Filter{
		Search:   c.Query("q"),
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Priority: c.Query("priority"),
		Created:  listing.ParseDateRange(c.Query("from"), c.Query("to")),
	}
}

// List returns one page of reports.
func (h *ReportHandler) List(c *gin.Context) {
	page, errList := h.reports.List(c.Request.Context(), reportFilter(c), pageParams(c))
	if errList != nil {
		respondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, pageResponse("reports", page))
}

type reportActionRequest struct {
	Resolution string `json:"resolution"`
}

// Action resolves, dismisses or escalates a report.
func (h *ReportHandler) Action(c *gin.Context) {
	var body reportActionRequest
	if !bindOptionalJSON(c, &body) {
		return
	}
	result, errApply := h.reports.Apply(c.Request.Context(), c.Param("id"), reports.ActionRequest{
		Action:     c.Param("action"),
		Resolution: body.Resolution,
		ActorUID:   actorUID(c),
	})
	if errApply != nil {
		respondError(c, errApply)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// StartExport queues a CSV export of the reports matching the current filters.
func (h *ReportHandler) StartExport(c *gin.Context) {
	task, errStart := h.reports.StartExport(c.Request.Context(), reportFilter(c), actorUID(c))
	if errStart != nil {
		respondError(c, errStart)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task": task})
}

// ExportStatus returns the state of one export task.
func (h *ReportHandler) ExportStatus(c *gin.Context) {
	task, errStatus := h.reports.ExportStatus(c.Param("task_id"))
	if errStatus != nil {
		respondError(c, errStatus)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// DownloadExport streams a finished export.
func (h *ReportHandler) DownloadExport(c *gin.Context) {
	rc, task, errOpen := h.reports.OpenExport(c.Request.Context(), c.Param("task_id"))
	if errOpen != nil {
		respondError(c, errOpen)
		return
	}
	defer func() {
		if errClose := rc.Close(); errClose != nil {
			log.WithError(errClose).Warn("close report export")
		}
	}()
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", task.TaskID+".csv"))
	c.Status(http.StatusOK)
	if _, errCopy := io.Copy(c.Writer, rc); errCopy != nil {
		log.WithError(errCopy).WithField("task_id", task.TaskID).Warn("stream report export")
	}
}
