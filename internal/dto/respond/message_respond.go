package respond

import (
	"time"

	"gated_chat_server/internal/model"
)

// MessageRespond 消息
// 使用位置:
//   - internal/handler/message_handler.go: Send / Get / Forward
//   - internal/service/chat/delivery_worker.go: chat_message 推送
type MessageRespond struct {
	Id              int64  `json:"id,string"`
	ConversationId  string `json:"conversation_id"`
	SenderId        string `json:"sender_id"`
	ParentId        *int64 `json:"parent_id,string,omitempty"`
	ForwardedFromId *int64 `json:"forwarded_from_id,string,omitempty"`
	IsForwarded     bool   `json:"is_forwarded"`
	Content         string `json:"content"`
	AttachmentUrl   string `json:"attachment_url,omitempty"`
	IsRead          bool   `json:"is_read"`
	CreatedAt       string `json:"created_at"`
}

func NewMessageRespond(m *model.Message) MessageRespond {
	return MessageRespond{
		Id:              m.Uuid,
		ConversationId:  m.ConversationId,
		SenderId:        m.SenderId,
		ParentId:        m.ParentId,
		ForwardedFromId: m.ForwardedFromId,
		IsForwarded:     m.IsForwarded,
		Content:         m.Content,
		AttachmentUrl:   m.AttachmentUrl,
		IsRead:          m.IsRead,
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
}

// ForwardRespond 转发结果
type ForwardRespond struct {
	Created []MessageRespond  `json:"created"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed"`
}
