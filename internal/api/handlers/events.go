package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"echo-gateway/internal/broadcast"
	"echo-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// Publisher publishes a server-side event to channels.
type Publisher interface {
	Broadcast(ctx context.Context, channels []string, event string, payload map[string]any) error
}

// PublishRequest is a server-side event. SocketID, when set, names the
// connection that must not receive it.
type PublishRequest struct {
	Channels []string       `json:"channels" binding:"required,min=1,dive,required"`
	Event    string         `json:"event" binding:"required"`
	Data     map[string]any `json:"data"`
	SocketID string         `json:"socket_id"`
}

type EventsHandler struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewEventsHandler(publisher Publisher, logger *slog.Logger) *EventsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsHandler{publisher: publisher, logger: logger}
}

// Publish godoc
// @Summary Publish an event
// @Description Broadcasts an event to every subscriber of the given channels
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PublishRequest true "Event to publish"
// @Success 202 {object} map[string]interface{} "Event accepted"
// @Failure 400 {object} response.ErrorBody "Invalid request"
// @Failure 401 {object} response.ErrorBody "Unauthorized"
// @Failure 502 {object} response.ErrorBody "Delivery failed for some recipients"
// @Router /api/v1/events [post]
func (h *EventsHandler) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(response.ErrCodeParamInvalid).WithDetails(err.Error()))
		return
	}

	payload := req.Data
	if payload == nil {
		payload = map[string]any{}
	}
	if _, ok := payload[broadcast.SocketKey]; !ok && req.SocketID != "" {
		payload[broadcast.SocketKey] = req.SocketID
	}

	if err := h.publisher.Broadcast(c.Request.Context(), req.Channels, req.Event, payload); err != nil {
		h.logger.Error("Failed to publish event", "event", req.Event, "channels", req.Channels, "error", err)
		c.JSON(http.StatusBadGateway, response.NewError(response.ErrCodeDeliveryFailed).WithDetails(err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"event": req.Event, "channels": req.Channels})
}
