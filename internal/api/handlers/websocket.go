package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SocketServer upgrades a request into a live connection.
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

type WSHandler struct {
	server SocketServer
}

func NewWSHandler(server SocketServer) *WSHandler {
	return &WSHandler{server: server}
}

// HandleWebSocket godoc
// @Summary WebSocket connection
// @Description Opens a socket speaking the channel protocol (whoami, ping, subscribe, unsubscribe, client-* events)
// @Tags websocket
// @Success 101 "Switching Protocols - WebSocket connection established"
// @Router /app [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.server.ServeWS(c.Writer, c.Request)
}
