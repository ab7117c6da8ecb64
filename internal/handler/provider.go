package handler

import (
	"gated_chat_server/internal/service"
	"gated_chat_server/internal/service/chat"
)

// Handlers 聚合所有 Handler，供路由注册使用
type Handlers struct {
	Relationship *RelationshipHandler
	Conversation *ConversationHandler
	Message      *MessageHandler
	Follow       *FollowHandler
	Presence     *PresenceHandler
	Ws           *WsHandler
}

// NewHandlers 创建所有 Handler
func NewHandlers(svc *service.Services, hub *chat.Hub) *Handlers {
	return &Handlers{
		Relationship: NewRelationshipHandler(svc.Relationship),
		Conversation: NewConversationHandler(svc.Conversation),
		Message:      NewMessageHandler(svc.Message, hub),
		Follow:       NewFollowHandler(svc.Follow),
		Presence:     NewPresenceHandler(svc.Presence),
		Ws:           NewWsHandler(hub),
	}
}
