package chat

import (
	"encoding/json"

	"gated_chat_server/internal/dto/respond"
	"gated_chat_server/pkg/util/snowflake"
)

// 事件类型
const (
	EventChatMessage   = "chat_message"
	EventTyping        = "typing"
	EventReceiveTyping = "receive_typing"
	EventSeen          = "seen"
	EventOnlineUsers   = "online_users"
	EventError         = "error"
)

// Envelope 所有 websocket 帧的外层结构
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TypingPayload 客户端发送的正在输入事件
type TypingPayload struct {
	ReceiverId string          `json:"receiver_id"`
	Message    json.RawMessage `json:"message,omitempty"`
}

// ReceiveTypingPayload 转给对方时带上发送者
type ReceiveTypingPayload struct {
	SenderId string          `json:"sender_id"`
	Message  json.RawMessage `json:"message,omitempty"`
}

// SeenPayload 客户端上报已读，id 与 chat_message 中的 id 一样是字符串
type SeenPayload struct {
	MessageIds snowflake.IDs `json:"message_ids"`
}

// SeenReceiptPayload 发给原发送者的已读回执
type SeenReceiptPayload struct {
	ReaderId   string        `json:"reader_id"`
	MessageIds snowflake.IDs `json:"message_ids"`
}

// OnlineUsersPayload 在线列表广播
type OnlineUsersPayload struct {
	ProfileIds []string `json:"profile_ids"`
}

// ChatMessagePayload 投递的消息
type ChatMessagePayload = respond.MessageRespond

// ErrorPayload 处理客户端事件失败时回给当前连接
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// encode 组装信封
func encode(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}
