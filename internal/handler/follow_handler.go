package handler

import (
	"gated_chat_server/internal/dto/request"
	"gated_chat_server/internal/dto/respond"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// FollowHandler 本地关注图接口
type FollowHandler struct {
	svc service.FollowService
}

func NewFollowHandler(svc service.FollowService) *FollowHandler {
	return &FollowHandler{svc: svc}
}

// Follow POST /follow/add
func (h *FollowHandler) Follow(c *gin.Context) {
	var req request.ProfileTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	f, err := h.svc.Follow(c.Request.Context(), currentProfile(c), req.ProfileId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewFollowRespond(f))
}

// Accept 通过 profile_id 对自己的关注请求
// POST /follow/accept
func (h *FollowHandler) Accept(c *gin.Context) {
	var req request.ProfileTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	f, err := h.svc.AcceptFollow(c.Request.Context(), currentProfile(c), req.ProfileId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewFollowRespond(f))
}

// Status GET /follow/status?profile_id=xxx
func (h *FollowHandler) Status(c *gin.Context) {
	var req request.ProfileQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	st, err := h.svc.Status(c.Request.Context(), currentProfile(c), req.ProfileId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.FollowStatusRespond{P1FollowsP2: st.P1FollowsP2, P2FollowsP1: st.P2FollowsP1})
}

// List GET /follow/list?profile_id=xxx&type=followers
func (h *FollowHandler) List(c *gin.Context) {
	var req request.FollowListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	listType := identity.ListAll
	if req.Type != "" {
		listType = identity.ListType(req.Type)
	}
	ids, err := h.svc.List(c.Request.Context(), req.ProfileId, listType)
	if err != nil {
		HandleError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	HandleSuccess(c, respond.FollowListRespond{ProfileIds: ids})
}
