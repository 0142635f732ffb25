package handlers

import (
	"log/slog"
	"net/http"

	"echo-gateway/internal/api/middleware"
	"echo-gateway/internal/protocol"
	"echo-gateway/internal/signature"
	"echo-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthRequest is the admission request sent by a client before it
// subscribes to a private or presence channel.
type AuthRequest struct {
	ChannelName string `form:"channel_name" json:"channel_name" binding:"required"`
	SocketID    string `form:"socket_id" json:"socket_id" binding:"required"`
}

// AuthResponse carries the signature the client presents on subscribe.
type AuthResponse struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

type AuthHandler struct {
	signer *signature.Signer
	logger *slog.Logger
}

func NewAuthHandler(signer *signature.Signer, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{signer: signer, logger: logger}
}

// Authenticate godoc
// @Summary Sign a channel admission
// @Description Returns the signature a socket presents when subscribing to a private or presence channel
// @Tags broadcasting
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param request body AuthRequest true "Channel and socket"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} response.ErrorBody "Missing channel_name or socket_id"
// @Failure 403 {object} response.ErrorBody "Guarded channel without an authenticated user"
// @Failure 429 {object} response.ErrorBody "Rate limit exceeded"
// @Router /broadcasting/auth [post]
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.NewError(response.ErrCodeParamInvalid).WithDetails(err.Error()))
		return
	}

	channelType := protocol.TypeOf(req.ChannelName)
	userID, authenticated := c.Get(middleware.UserIDKey)
	if channelType.RequiresAuth() && !authenticated {
		h.logger.Warn("Denied admission to guarded channel", "channel", req.ChannelName, "socketID", req.SocketID)
		c.JSON(http.StatusForbidden, response.NewError(response.ErrCodeForbidden))
		return
	}

	if channelType != protocol.ChannelPresence {
		c.JSON(http.StatusOK, AuthResponse{Auth: h.signer.Sign(req.SocketID, req.ChannelName, "")})
		return
	}

	userInfo, _ := c.Get(middleware.UserInfoKey)
	channelData, err := protocol.EncodePresenceUser(userID, userInfo)
	if err != nil {
		h.logger.Error("Failed to encode presence data", "channel", req.ChannelName, "error", err)
		c.JSON(http.StatusInternalServerError, response.NewError(response.ErrCodeInternal))
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Auth:        h.signer.Sign(req.SocketID, req.ChannelName, channelData),
		ChannelData: channelData,
	})
}
