package request

import "gated_chat_server/pkg/util/snowflake"

// SendMessageRequest 发送消息
// 使用位置:
//   - internal/handler/message_handler.go: Send
type SendMessageRequest struct {
	ConversationId string `json:"conversation_id" binding:"required"`
	Content        string `json:"content" binding:"required_without=AttachmentUrl,max=4096"`
	AttachmentUrl  string `json:"attachment_url" binding:"omitempty,url,max=255"`
	ParentId       *int64 `json:"parent_id,string"`
}

// ForwardMessageRequest 转发消息
type ForwardMessageRequest struct {
	MessageId       int64    `json:"message_id,string" binding:"required"`
	ConversationIds []string `json:"conversation_ids" binding:"required,min=1,max=50,dive,required"`
}

// SeenMessageRequest 批量已读，id 为字符串
type SeenMessageRequest struct {
	MessageIds snowflake.IDs `json:"message_ids" binding:"required,min=1,max=500"`
}

// GetMessageRequest 查询消息
type GetMessageRequest struct {
	MessageId int64 `form:"message_id" binding:"required"`
}
