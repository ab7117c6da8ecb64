package handler

import (
	"gated_chat_server/internal/dto/respond"
	"gated_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// PresenceHandler 在线状态查询
type PresenceHandler struct {
	svc service.PresenceService
}

func NewPresenceHandler(svc service.PresenceService) *PresenceHandler {
	return &PresenceHandler{svc: svc}
}

// Online GET /presence/online
func (h *PresenceHandler) Online(c *gin.Context) {
	ids, err := h.svc.OnlineIDs(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	HandleSuccess(c, respond.FollowListRespond{ProfileIds: ids})
}
