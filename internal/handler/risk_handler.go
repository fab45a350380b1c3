package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/attendance-core/internal/models"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
	"github.com/classpulse/attendance-core/pkg/response"
)

type riskService interface {
	ClassifyTrailing(ctx context.Context, studentID string) (*models.RiskProfile, error)
}

type alertService interface {
	RosterByTier(ctx context.Context, scope string) (*models.RiskRoster, error)
}

// RiskHandler serves per-student risk profiles and the tiered roster.
type RiskHandler struct {
	risk   riskService
	alerts alertService
}

// NewRiskHandler constructs the handler.
func NewRiskHandler(risk riskService, alerts alertService) *RiskHandler {
	return &RiskHandler{risk: risk, alerts: alerts}
}

// GetStudentRisk godoc
// @Summary Risk profile for a single student over the trailing window
// @Tags Risk
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/risk [get]
func (h *RiskHandler) GetStudentRisk(c *gin.Context) {
	profile, err := h.risk.ClassifyTrailing(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// GetRiskRoster godoc
// @Summary Students of a class or mentor grouped by risk tier
// @Tags Risk
// @Produce json
// @Param scope query string true "Class or mentor ID"
// @Success 200 {object} response.Envelope
// @Router /risk-roster [get]
func (h *RiskHandler) GetRiskRoster(c *gin.Context) {
	scope := c.Query("scope")
	if scope == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "scope is required"))
		return
	}
	roster, err := h.alerts.RosterByTier(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
