package model

import (
	"sort"
	"strings"

	"gorm.io/gorm"
)

// RoomType 会话类型
type RoomType string

const (
	RoomPrivate RoomType = "private"
	RoomGroup   RoomType = "group"
)

// Conversation 会话
// 私聊会话创建时必须恰好两人，之后的成员变化不再校验
type Conversation struct {
	gorm.Model
	Uuid     string   `gorm:"column:uuid;uniqueIndex;type:char(24);not null;comment:会话id"`
	RoomType RoomType `gorm:"column:room_type;type:varchar(10);not null;comment:private/group"`
	// PairKey 私聊会话的双方组合键，保证同一对用户只有一个私聊会话；群聊为空
	PairKey      *string `gorm:"column:pair_key;uniqueIndex;type:varchar(64);comment:私聊双方组合键"`
	Approved     bool    `gorm:"column:approved;not null;default:false;comment:是否已通过"`
	MessageLimit int     `gorm:"column:message_limit;not null;default:0;comment:破冰消息计数"`
	CreatorId    string  `gorm:"column:creator_id;type:char(24);comment:创建者"`

	// Profiles 成员 id，由 repository 从 conversation_member 填充
	Profiles []string `gorm:"-"`
}

func (Conversation) TableName() string {
	return "conversation"
}

// IsPrivate 是否私聊
func (c *Conversation) IsPrivate() bool {
	return c.RoomType == RoomPrivate
}

// HasMember 判断 profile 是否在会话中
func (c *Conversation) HasMember(profileId string) bool {
	for _, id := range c.Profiles {
		if id == profileId {
			return true
		}
	}
	return false
}

// Others 除 profileId 以外的成员
func (c *Conversation) Others(profileId string) []string {
	others := make([]string, 0, len(c.Profiles))
	for _, id := range c.Profiles {
		if id != profileId {
			others = append(others, id)
		}
	}
	return others
}

// ConversationMember 会话成员
type ConversationMember struct {
	gorm.Model
	ConversationId string `gorm:"column:conversation_id;uniqueIndex:idx_conversation_member;type:char(24);not null"`
	ProfileId      string `gorm:"column:profile_id;uniqueIndex:idx_conversation_member;index;type:char(24);not null"`
}

func (ConversationMember) TableName() string {
	return "conversation_member"
}

// PairKey 生成与顺序无关的双方组合键
func PairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}
