package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unidate/unidate-admin/internal/apperr"
	"github.com/unidate/unidate-admin/internal/jobs"
)

// JobHandler lists maintenance jobs and runs them on demand.
type JobHandler struct {
	scheduler *jobs.Scheduler
}

// NewJobHandler constructs a JobHandler.
func NewJobHandler(scheduler *jobs.Scheduler) *JobHandler {
	return &JobHandler{scheduler: scheduler}
}

// List returns the registered jobs with their last and next runs.
func (h *JobHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.scheduler.List()})
}

// Run runs a job now and returns once it finishes. Failures are logged by the scheduler.
func (h *JobHandler) Run(c *gin.Context) {
	name := c.Param("name")
	if errTrigger := h.scheduler.Trigger(c.Request.Context(), name); errTrigger != nil {
		if errors.Is(errTrigger, jobs.ErrBusy) {
			respondError(c, apperr.Wrap(apperr.KindConflict, "handlers.RunJob", "job is already running", errTrigger))
			return
		}
		respondError(c, apperr.Wrap(apperr.KindNotFound, "handlers.RunJob", "job not found", errTrigger))
		return
	}
	log.WithFields(log.Fields{"job": name, "actor": actorUID(c)}).Info("job triggered")
	c.JSON(http.StatusOK, gin.H{"job": name, "triggered": true})
}
