package model

import (
	"gorm.io/gorm"
)

// FollowStatus 关注状态
type FollowStatus string

const (
	FollowRequested FollowStatus = "requested" // 关注私密账号，等待对方通过
	FollowAccepted  FollowStatus = "accepted"
)

// Follow 有向关注边，每个有序对唯一
// 每次创建或通过关注时重新计算双向的 IsMutual
type Follow struct {
	gorm.Model
	FollowerId  string       `gorm:"column:follower_id;uniqueIndex:idx_follow_pair;type:char(24);not null"`
	FollowingId string       `gorm:"column:following_id;uniqueIndex:idx_follow_pair;index;type:char(24);not null"`
	Status      FollowStatus `gorm:"column:status;type:varchar(10);not null"`
	IsMutual    bool         `gorm:"column:is_mutual;not null;default:false"`
}

func (Follow) TableName() string {
	return "follow"
}
