package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classpulse/attendance-core/internal/models"
	"github.com/classpulse/attendance-core/internal/service"
	appErrors "github.com/classpulse/attendance-core/pkg/errors"
	"github.com/classpulse/attendance-core/pkg/response"
)

type sessionService interface {
	IssueToken(ctx context.Context, req service.IssueTokenRequest) (*models.CheckInToken, error)
	RevokeToken(ctx context.Context, tokenID string) error
	CreateSession(ctx context.Context, req service.CreateSessionRequest) (*models.Session, error)
	CloseSession(ctx context.Context, slotID, date string) error
}

// SessionHandler exposes session and token management endpoints.
type SessionHandler struct {
	service sessionService
	metrics *service.MetricsService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionService, metrics *service.MetricsService) *SessionHandler {
	return &SessionHandler{service: svc, metrics: metrics}
}

type issueTokenBody struct {
	ValidityMinutes int `json:"validity_minutes"`
}

// IssueToken godoc
// @Summary Issue a check-in token for a slot occurrence
// @Tags Sessions
// @Accept json
// @Produce json
// @Param slotId path string true "Slot ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 201 {object} response.Envelope
// @Router /sessions/{slotId}/{date}/token [post]
func (h *SessionHandler) IssueToken(c *gin.Context) {
	var body issueTokenBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
			return
		}
	}
	token, err := h.service.IssueToken(c.Request.Context(), service.IssueTokenRequest{
		SlotID:          c.Param("slotId"),
		Date:            c.Param("date"),
		ValidityMinutes: body.ValidityMinutes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.ObserveTokenIssued()
	response.Created(c, gin.H{"token_id": token.ID, "expires_at": token.ExpiresAt})
}

// CloseSession godoc
// @Summary Close the session for a slot occurrence
// @Tags Sessions
// @Produce json
// @Param slotId path string true "Slot ID"
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 204
// @Router /sessions/{slotId}/{date}/close [post]
func (h *SessionHandler) CloseSession(c *gin.Context) {
	if err := h.service.CloseSession(c.Request.Context(), c.Param("slotId"), c.Param("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateSession godoc
// @Summary Register a manual or free-period session
// @Tags Sessions
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	session, err := h.service.CreateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, session, nil)
}

// RevokeToken godoc
// @Summary Revoke a check-in token immediately
// @Tags Sessions
// @Produce json
// @Param tokenId path string true "Token ID"
// @Success 204
// @Router /tokens/{tokenId} [delete]
func (h *SessionHandler) RevokeToken(c *gin.Context) {
	if err := h.service.RevokeToken(c.Request.Context(), c.Param("tokenId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
