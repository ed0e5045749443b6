// Package http provides HTTP handlers for the mail delivery queue API.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/mailroom/internal/httputil"
	"github.com/allisson/mailroom/internal/mailer/http/dto"
	"github.com/allisson/mailroom/internal/mailer/usecase"
	customValidation "github.com/allisson/mailroom/internal/validation"
)

// MessageHandler handles HTTP requests for queue message operations.
type MessageHandler struct {
	queueUseCase usecase.UseCase
	logger       *slog.Logger
}

// NewMessageHandler creates a new message handler with required dependencies.
func NewMessageHandler(queueUseCase usecase.UseCase, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		queueUseCase: queueUseCase,
		logger:       logger,
	}
}

// EnqueueHandler accepts a new message for asynchronous delivery.
// POST /v1/messages
// Returns 201 Created with the persisted message. Delivery never happens
// inside this request.
func (h *MessageHandler) EnqueueHandler(c *gin.Context) {
	var req dto.EnqueueMessageRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	msg, err := h.queueUseCase.Enqueue(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapMessageToResponse(msg))
}

// GetHandler returns one queued message with its current delivery state.
// GET /v1/messages/:id
func (h *MessageHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid message id: %w", err), h.logger)
		return
	}

	msg, err := h.queueUseCase.GetMessage(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapMessageToResponse(msg))
}

// ListAttemptsHandler returns the audit trail for one message, oldest first.
// GET /v1/messages/:id/attempts
func (h *MessageHandler) ListAttemptsHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid message id: %w", err), h.logger)
		return
	}

	attempts, err := h.queueUseCase.ListAttempts(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAttemptsToListResponse(attempts))
}

// DetachCorrelationHandler clears the correlation reference from all messages
// linked to a business entity, preserving the messages and their audit trail.
// DELETE /v1/correlations/:id
func (h *MessageHandler) DetachCorrelationHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid correlation id: %w", err), h.logger)
		return
	}

	detached, err := h.queueUseCase.DetachCorrelation(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DetachCorrelationResponse{Detached: detached})
}
