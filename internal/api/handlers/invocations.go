package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"echo-gateway/internal/protocol"
	"echo-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// EventHandler handles one transport event envelope.
type EventHandler interface {
	Handle(ctx context.Context, env *protocol.Envelope) error
}

// InvocationsHandler exposes the router as a stateless HTTP endpoint that
// edges forward their CONNECT/MESSAGE/DISCONNECT events to.
type InvocationsHandler struct {
	handler EventHandler
	logger  *slog.Logger
}

func NewInvocationsHandler(handler EventHandler, logger *slog.Logger) *InvocationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvocationsHandler{handler: handler, logger: logger}
}

// Invoke godoc
// @Summary Handle a websocket event
// @Description Runs one CONNECT, MESSAGE or DISCONNECT event through the protocol router
// @Tags invocations
// @Accept json
// @Produce json
// @Param request body protocol.Envelope true "Event envelope"
// @Success 200 {object} map[string]interface{} "Handled"
// @Failure 400 {object} response.ErrorBody "Malformed event"
// @Failure 500 {object} response.ErrorBody "Handling failed"
// @Router /api/v1/invocations [post]
func (h *InvocationsHandler) Invoke(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(response.ErrCodeParamInvalid).WithDetails(err.Error()))
		return
	}

	env, err := protocol.DecodeEnvelope(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(response.ErrCodeMalformedEvent).WithDetails(err.Error()))
		return
	}

	if err := h.handler.Handle(c.Request.Context(), env); err != nil {
		h.logger.Error("Failed to handle invocation",
			"eventType", env.RequestContext.EventType,
			"connectionID", env.RequestContext.ConnectionID,
			"error", err)
		if errors.Is(err, protocol.ErrMalformedMessage) {
			c.JSON(http.StatusBadRequest, response.NewError(response.ErrCodeMalformedEvent).WithDetails(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, response.NewError(response.ErrCodeInternal).WithDetails(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"statusCode": http.StatusOK})
}
