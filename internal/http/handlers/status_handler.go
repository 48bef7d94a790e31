// Job status HTTP handler.
//
// Exposes GET /status/{job_id}: the polling counterpart to the asynchronous
// webhook. Terminal records (done/failed) carry the full result; running
// records only the lifecycle state.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/headstart/go-poi-backend/internal/services"
)

// JobStatus returns the durable record for one pipeline run.
func (h *Handlers) JobStatus(c *gin.Context) {
	ctx := c.Request.Context()
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "job id must be a UUID")
		return
	}

	job, err := h.pipeline.Status(ctx, jobID)
	if err != nil {
		switch err {
		case services.ErrJobNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "job not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, job)
}
