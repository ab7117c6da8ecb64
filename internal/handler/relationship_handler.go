package handler

import (
	"context"

	"gated_chat_server/internal/dto/request"
	"gated_chat_server/internal/dto/respond"
	"gated_chat_server/internal/model"
	"gated_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// RelationshipHandler 双方关系状态机接口
type RelationshipHandler struct {
	svc service.RelationshipService
}

func NewRelationshipHandler(svc service.RelationshipService) *RelationshipHandler {
	return &RelationshipHandler{svc: svc}
}

type transitionFunc func(ctx context.Context, actorId, otherId string) (*model.Relationship, error)

// transition 绑定目标 profile 后执行一次状态迁移
func (h *RelationshipHandler) transition(c *gin.Context, fn transitionFunc) {
	var req request.ProfileTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	rel, err := fn(c.Request.Context(), currentProfile(c), req.ProfileId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewRelationshipRespond(rel))
}

// Request POST /relationship/request
func (h *RelationshipHandler) Request(c *gin.Context) { h.transition(c, h.svc.Request) }

// Accept POST /relationship/accept
func (h *RelationshipHandler) Accept(c *gin.Context) { h.transition(c, h.svc.Accept) }

// Block POST /relationship/block
func (h *RelationshipHandler) Block(c *gin.Context) { h.transition(c, h.svc.Block) }

// Delete POST /relationship/delete
func (h *RelationshipHandler) Delete(c *gin.Context) { h.transition(c, h.svc.Delete) }

// Get 查询与某人的关系
// GET /relationship/get?profile_id=xxx
func (h *RelationshipHandler) Get(c *gin.Context) {
	var req request.ProfileQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	rel, err := h.svc.Between(c.Request.Context(), currentProfile(c), req.ProfileId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, respond.NewRelationshipRespond(rel))
}
