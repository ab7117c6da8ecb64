package request

// ProfileTargetRequest 以另一个 profile 为目标的操作：关系请求、通过、拉黑、删除，关注
// 使用位置:
//   - internal/handler/relationship_handler.go
//   - internal/handler/follow_handler.go
type ProfileTargetRequest struct {
	ProfileId string `json:"profile_id" binding:"required,max=24"`
}

// ProfileQueryRequest query 参数版本
type ProfileQueryRequest struct {
	ProfileId string `form:"profile_id" binding:"required,max=24"`
}

// FollowListRequest 关注列表
type FollowListRequest struct {
	ProfileId string `form:"profile_id" binding:"required,max=24"`
	Type      string `form:"type" binding:"omitempty,oneof=followers following all"`
}
