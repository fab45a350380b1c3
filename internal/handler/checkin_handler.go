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

type checkInService interface {
	Validate(ctx context.Context, req service.ValidateRequest) (*service.CheckInResult, error)
	Override(ctx context.Context, req service.OverrideRequest, now time.Time) (*models.AttendanceRecord, error)
}

// CheckInHandler exposes the validation and override endpoints.
type CheckInHandler struct {
	service checkInService
	metrics *service.MetricsService
	now     func() time.Time
}

// NewCheckInHandler constructs the handler.
func NewCheckInHandler(svc checkInService, metrics *service.MetricsService) *CheckInHandler {
	return &CheckInHandler{service: svc, metrics: metrics, now: time.Now}
}

type checkInBody struct {
	TokenID   string     `json:"token_id"`
	StudentID string     `json:"student_id"`
	Timestamp *time.Time `json:"timestamp"`
}

// CheckIn godoc
// @Summary Validate a presented check-in token
// @Tags CheckIn
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /checkin [post]
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	var body checkInBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	ts := h.now()
	if body.Timestamp != nil {
		ts = *body.Timestamp
	}
	result, err := h.service.Validate(c.Request.Context(), service.ValidateRequest{
		TokenID:   body.TokenID,
		StudentID: body.StudentID,
		Timestamp: ts,
	})
	if err != nil {
		h.metrics.ObserveCheckInRejection(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}
	h.metrics.ObserveCheckIn(string(result.Status))
	response.JSON(c, http.StatusOK, result, nil)
}

// Override godoc
// @Summary Administrative correction of a stored attendance record
// @Tags CheckIn
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /attendance/override [post]
func (h *CheckInHandler) Override(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok || claims.Role != models.RoleAdmin {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	var req service.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	record, err := h.service.Override(c.Request.Context(), req, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
