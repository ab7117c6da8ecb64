package model

import (
	"time"

	"gorm.io/gorm"
)

// ConversationSettings 每个成员对会话的个人设置
// 开关从 false 变为 true 时记录时间，从 true 变为 false 时清空
type ConversationSettings struct {
	gorm.Model
	ProfileId      string     `gorm:"column:profile_id;uniqueIndex:idx_settings_owner;type:char(24);not null"`
	ConversationId string     `gorm:"column:conversation_id;uniqueIndex:idx_settings_owner;type:char(24);not null"`
	IsMuted        bool       `gorm:"column:is_muted;not null;default:false"`
	IsBlocked      bool       `gorm:"column:is_blocked;not null;default:false"`
	IsTrashed      bool       `gorm:"column:is_trashed;not null;default:false"`
	LastMutedAt    *time.Time `gorm:"column:last_muted_at"`
	LastBlockedAt  *time.Time `gorm:"column:last_blocked_at"`
	LastTrashedAt  *time.Time `gorm:"column:last_trashed_at"`
}

func (ConversationSettings) TableName() string {
	return "conversation_settings"
}

// SettingsPatch 设置更新，nil 表示不修改
type SettingsPatch struct {
	IsMuted   *bool
	IsBlocked *bool
	IsTrashed *bool
}

// Apply 按开关迁移规则合并 patch
func (s *ConversationSettings) Apply(p SettingsPatch, now time.Time) {
	toggle(&s.IsMuted, &s.LastMutedAt, p.IsMuted, now)
	toggle(&s.IsBlocked, &s.LastBlockedAt, p.IsBlocked, now)
	toggle(&s.IsTrashed, &s.LastTrashedAt, p.IsTrashed, now)
}

func toggle(flag *bool, at **time.Time, next *bool, now time.Time) {
	if next == nil || *next == *flag {
		return
	}
	*flag = *next
	if *next {
		t := now
		*at = &t
		return
	}
	*at = nil
}
