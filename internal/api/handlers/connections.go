package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"echo-gateway/internal/transport"
	"echo-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxPostSize caps a single management API delivery.
const MaxPostSize = 128 * 1024

// ConnectionManager delivers to and closes live connections.
type ConnectionManager interface {
	Post(ctx context.Context, connectionID string, data []byte) error
	Disconnect(ctx context.Context, connectionID string) error
}

// ConnectionsHandler serves the management API that HTTP transports use
// to reach sockets held by this edge.
type ConnectionsHandler struct {
	manager ConnectionManager
	logger  *slog.Logger
}

func NewConnectionsHandler(manager ConnectionManager, logger *slog.Logger) *ConnectionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionsHandler{manager: manager, logger: logger}
}

// PostToConnection godoc
// @Summary Deliver to a connection
// @Description Sends the raw request body as one websocket frame
// @Tags connections
// @Accept json
// @Param id path string true "Connection id"
// @Success 204 "Delivered"
// @Failure 410 {object} response.ErrorBody "Connection gone"
// @Failure 413 {object} response.ErrorBody "Payload too large"
// @Router /@connections/{id} [post]
func (h *ConnectionsHandler) PostToConnection(c *gin.Context) {
	connectionID := c.Param("id")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxPostSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(response.ErrCodeParamInvalid).WithDetails(err.Error()))
		return
	}
	if len(body) > MaxPostSize {
		h.writeDeliveryError(c, connectionID, transport.ErrPayloadTooLarge)
		return
	}

	if err := h.manager.Post(c.Request.Context(), connectionID, body); err != nil {
		h.writeDeliveryError(c, connectionID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteConnection godoc
// @Summary Close a connection
// @Tags connections
// @Param id path string true "Connection id"
// @Success 204 "Closed"
// @Failure 410 {object} response.ErrorBody "Connection gone"
// @Router /@connections/{id} [delete]
func (h *ConnectionsHandler) DeleteConnection(c *gin.Context) {
	connectionID := c.Param("id")
	if err := h.manager.Disconnect(c.Request.Context(), connectionID); err != nil {
		h.writeDeliveryError(c, connectionID, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConnectionsHandler) writeDeliveryError(c *gin.Context, connectionID string, err error) {
	switch {
	case transport.IsGone(err):
		c.JSON(http.StatusGone, response.NewError(response.ErrCodeConnectionGone))
	case errors.Is(err, transport.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, response.NewError(response.ErrCodeParamInvalid).WithDetails(err.Error()))
	case errors.Is(err, transport.ErrLimitExceeded):
		c.JSON(http.StatusTooManyRequests, response.NewError(response.ErrCodeRateLimited))
	case errors.Is(err, transport.ErrForbidden):
		c.JSON(http.StatusForbidden, response.NewError(response.ErrCodeForbidden))
	default:
		h.logger.Error("Management API delivery failed", "connectionID", connectionID, "error", err)
		c.JSON(http.StatusInternalServerError, response.NewError(response.ErrCodeInternal))
	}
}
