package handler

import (
	"gated_chat_server/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// WsHandler WebSocket 入口，认证在升级前由 Hub 完成
type WsHandler struct {
	hub *chat.Hub
}

func NewWsHandler(hub *chat.Hub) *WsHandler {
	return &WsHandler{hub: hub}
}

// Connect GET /wss?token=xxx
func (h *WsHandler) Connect(c *gin.Context) {
	h.hub.ServeConn(c.Writer, c.Request)
}
