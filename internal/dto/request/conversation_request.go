package request

// CreatePrivateConversationRequest 创建私聊
// 使用位置:
//   - internal/handler/conversation_handler.go: CreatePrivate
type CreatePrivateConversationRequest struct {
	ProfileId string `json:"profile_id" binding:"required,max=24"`
}

// CreateGroupConversationRequest 创建群聊，成员不含自己也可以
type CreateGroupConversationRequest struct {
	MemberIds []string `json:"member_ids" binding:"required,min=1,dive,required,max=24"`
}

// GetConversationRequest 查询会话
type GetConversationRequest struct {
	ConversationId string `form:"conversation_id" binding:"required"`
}

// UpdateSettingsRequest 更新个人会话设置，未传的开关保持不变
type UpdateSettingsRequest struct {
	ConversationId string `json:"conversation_id" binding:"required"`
	IsMuted        *bool  `json:"is_muted"`
	IsBlocked      *bool  `json:"is_blocked"`
	IsTrashed      *bool  `json:"is_trashed"`
}
