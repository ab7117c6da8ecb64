package model

import (
	"gorm.io/gorm"
)

// RelationshipStatus 双方关系状态
type RelationshipStatus string

const (
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipAccepted RelationshipStatus = "accepted"
	RelationshipBlocked  RelationshipStatus = "blocked"
	RelationshipHidden   RelationshipStatus = "hidden"
	RelationshipDeleted  RelationshipStatus = "deleted"
)

// Valid 是否为已知状态
func (s RelationshipStatus) Valid() bool {
	switch s {
	case RelationshipPending, RelationshipAccepted, RelationshipBlocked, RelationshipHidden, RelationshipDeleted:
		return true
	}
	return false
}

// Relationship 两个 profile 之间的会话许可记录
// (A,B) 与 (B,A) 视为同一关系，PairKey 唯一保证每对用户只有一条记录
type Relationship struct {
	gorm.Model
	Uuid       string             `gorm:"column:uuid;uniqueIndex;type:char(24);not null"`
	SenderId   string             `gorm:"column:sender_id;index;type:char(24);not null;comment:发起方"`
	ReceiverId string             `gorm:"column:receiver_id;index;type:char(24);not null;comment:接收方"`
	PairKey    string             `gorm:"column:pair_key;uniqueIndex;type:varchar(64);not null"`
	Status     RelationshipStatus `gorm:"column:status;type:varchar(10);not null;comment:pending/accepted/blocked/hidden/deleted"`
}

func (Relationship) TableName() string {
	return "relationship"
}

// Involves 判断 profile 是否为关系一方
func (r *Relationship) Involves(profileId string) bool {
	return r.SenderId == profileId || r.ReceiverId == profileId
}
