package model

import (
	"gorm.io/gorm"
)

// Message 消息
// 通过会话访问校验后才会落库，创建后除 IsRead 外不可变
type Message struct {
	gorm.Model
	Uuid           int64  `gorm:"column:uuid;uniqueIndex;type:bigint;not null;comment:消息雪花ID"`
	ConversationId string `gorm:"column:conversation_id;index:idx_message_conversation_sender;type:char(24);not null;comment:会话id"`
	SenderId       string `gorm:"column:sender_id;index:idx_message_conversation_sender;type:char(24);not null;comment:发送者"`
	ParentId       *int64 `gorm:"column:parent_id;type:bigint;comment:回复的消息"`
	// ForwardedFromId 转发链的根消息，转发一条转发消息时仍指向最初的消息
	ForwardedFromId *int64 `gorm:"column:forwarded_from_id;index;type:bigint;comment:转发来源根消息"`
	IsForwarded     bool   `gorm:"column:is_forwarded;not null;default:false"`
	Content         string `gorm:"column:content;type:TEXT;comment:消息内容"`
	// AttachmentUrl 附件只存引用，不存二进制
	AttachmentUrl string `gorm:"column:attachment_url;type:varchar(255);comment:附件url"`
	IsRead        bool   `gorm:"column:is_read;not null;default:false;comment:是否已读"`
}

func (Message) TableName() string {
	return "message"
}

// RootId 转发链根消息 id，用于通知去重
func (m *Message) RootId() int64 {
	if m.ForwardedFromId != nil {
		return *m.ForwardedFromId
	}
	return m.Uuid
}

// MessageDelivery 已通知接收者台账
// (root_message_id, recipient_id) 唯一，保证同一条消息对同一接收者只产生一次投递任务
type MessageDelivery struct {
	ID            uint   `gorm:"primarykey"`
	RootMessageId int64  `gorm:"column:root_message_id;uniqueIndex:idx_delivery_recipient;type:bigint;not null"`
	RecipientId   string `gorm:"column:recipient_id;uniqueIndex:idx_delivery_recipient;type:char(24);not null"`
	MessageId     int64  `gorm:"column:message_id;type:bigint;not null;comment:实际推送的消息（转发时为副本）"`
	CreatedAt     int64  `gorm:"column:created_at;autoCreateTime:milli"`
}

func (MessageDelivery) TableName() string {
	return "message_delivery"
}

// DeliveryJob 投递任务，只存在于队列中
type DeliveryJob struct {
	MessageId          int64  `json:"message_id"`
	RecipientProfileId string `json:"recipient_profile_id"`
}
