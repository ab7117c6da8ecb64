package respond

import (
	"time"

	"gated_chat_server/internal/model"
)

// ConversationRespond 会话
// 使用位置:
//   - internal/handler/conversation_handler.go
type ConversationRespond struct {
	ConversationId string   `json:"conversation_id"`
	RoomType       string   `json:"room_type"`
	Approved       bool     `json:"approved"`
	MessageLimit   int      `json:"message_limit"`
	Profiles       []string `json:"profiles"`
	CreatedAt      string   `json:"created_at"`
}

func NewConversationRespond(c *model.Conversation) ConversationRespond {
	return ConversationRespond{
		ConversationId: c.Uuid,
		RoomType:       string(c.RoomType),
		Approved:       c.Approved,
		MessageLimit:   c.MessageLimit,
		Profiles:       c.Profiles,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}

// SettingsRespond 会话个人设置
type SettingsRespond struct {
	ConversationId string     `json:"conversation_id"`
	IsMuted        bool       `json:"is_muted"`
	IsBlocked      bool       `json:"is_blocked"`
	IsTrashed      bool       `json:"is_trashed"`
	LastMutedAt    *time.Time `json:"last_muted_at"`
	LastBlockedAt  *time.Time `json:"last_blocked_at"`
	LastTrashedAt  *time.Time `json:"last_trashed_at"`
}

func NewSettingsRespond(s *model.ConversationSettings) SettingsRespond {
	return SettingsRespond{
		ConversationId: s.ConversationId,
		IsMuted:        s.IsMuted,
		IsBlocked:      s.IsBlocked,
		IsTrashed:      s.IsTrashed,
		LastMutedAt:    s.LastMutedAt,
		LastBlockedAt:  s.LastBlockedAt,
		LastTrashedAt:  s.LastTrashedAt,
	}
}
