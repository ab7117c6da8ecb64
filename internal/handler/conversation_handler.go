// Package handler 提供 HTTP 请求处理器
package handler

import (
	"gated_chat_server/internal/dto/request"
	"gated_chat_server/internal/dto/respond"
	"gated_chat_server/internal/model"
	"gated_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 会话相关接口
type ConversationHandler struct {
	svc service.ConversationService
}

func NewConversationHandler(svc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// CreatePrivate 创建私聊
// POST /conversation/private
// 请求体: request.CreatePrivateConversationRequest
// 响应: respond.ConversationRespond
func (h *ConversationHandler) CreatePrivate(c *gin.Context) {
	var req request.CreatePrivateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	conv, err := h.svc.CreatePrivate(c.Request.Context(), currentProfile(c), req.ProfileId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}

// CreateGroup 创建群聊
// POST /conversation/group
func (h *ConversationHandler) CreateGroup(c *gin.Context) {
	var req request.CreateGroupConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	conv, err := h.svc.CreateGroup(c.Request.Context(), currentProfile(c), req.MemberIds)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}

// Get 查询会话
// GET /conversation/get?conversation_id=xxx
func (h *ConversationHandler) Get(c *gin.Context) {
	var req request.GetConversationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	conv, err := h.svc.Get(c.Request.Context(), currentProfile(c), req.ConversationId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewConversationRespond(conv))
}

// UpdateSettings 更新个人会话设置
// POST /conversation/settings
func (h *ConversationHandler) UpdateSettings(c *gin.Context) {
	var req request.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	settings, err := h.svc.UpdateSettings(c.Request.Context(), currentProfile(c), req.ConversationId, model.SettingsPatch{
		IsMuted:   req.IsMuted,
		IsBlocked: req.IsBlocked,
		IsTrashed: req.IsTrashed,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewSettingsRespond(settings))
}
