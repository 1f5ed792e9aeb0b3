package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/metrics"
	"github.com/unidate/unidate-admin/internal/services/analytics"
)

// DashboardHandler serves the metrics snapshot and analytics screens.
type DashboardHandler struct {
	refresher *metrics.Refresher // Cached snapshot source.
	analytics *analytics.Service // Time series and breakdowns.
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(refresher *metrics.Refresher, analyticsSvc *analytics.Service) *DashboardHandler {
	return &DashboardHandler{refresher: refresher, analytics: analyticsSvc}
}

// Metrics returns the latest snapshot, computing one when none is cached.
func (h *DashboardHandler) Metrics(c *gin.Context) {
	snap, errLatest := h.refresher.Latest(c.Request.Context())
	if errLatest != nil {
		respondError(c, errLatest)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": snap})
}

// RefreshMetrics recomputes the snapshot immediately.
func (h *DashboardHandler) RefreshMetrics(c *gin.Context) {
	snap, errRefresh := h.refresher.Refresh(c.Request.Context())
	if errRefresh != nil {
		respondError(c, errRefresh)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": snap})
}

// AnalyticsOverview returns activity for range=7d|30d|90d (default 30d).
func (h *DashboardHandler) AnalyticsOverview(c *gin.Context) {
	raw := strings.TrimSuffix(strings.TrimSpace(c.DefaultQuery("range", "30d")), "d")
	days, errParse := strconv.Atoi(raw)
	if errParse != nil {
		respondError(c, apperr.New(apperr.KindInvalid, "handlers.AnalyticsOverview", "range must be 7d, 30d or 90d"))
		return
	}
	overview, errOverview := h.analytics.Overview(c.Request.Context(), days)
	if errOverview != nil {
		respondError(c, errOverview)
		return
	}
	c.JSON(http.StatusOK, overview)
}
