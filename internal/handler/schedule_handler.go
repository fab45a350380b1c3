package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/attendance-core/internal/models"
	"github.com/classpulse/attendance-core/internal/service"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
	"github.com/classpulse/attendance-core/pkg/response"
)

type scheduleService interface {
	Reconcile(ctx context.Context, subject string, from, to, now time.Time) ([]models.ScheduleEntry, bool, error)
}

// ScheduleHandler serves the reconciled schedule view.
type ScheduleHandler struct {
	service scheduleService
	metrics *service.MetricsService
	now     func() time.Time
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc scheduleService, metrics *service.MetricsService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, metrics: metrics, now: time.Now}
}

// GetSchedule godoc
// @Summary Reconciled schedule for a student or class over a date range
// @Tags Schedule
// @Produce json
// @Param subject query string true "Student, class, or teacher ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	subject := c.Query("subject")
	if subject == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subject is required"))
		return
	}
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
		return
	}
	if to.Before(from) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must not precede from"))
		return
	}

	// A single reading of the clock keeps every entry in the range
	// classified against the same instant.
	now := h.now()
	entries, cacheHit, err := h.service.Reconcile(c.Request.Context(), subject, from, to, now)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveReconcile(len(entries))
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{
		"cache_hit": cacheHit,
		"as_of":     now,
	})
}
