// Package model 定义数据库实体模型
package model

import (
	"time"

	"gorm.io/gorm"
)

// Profile 身份镜像，只维护会话侧需要的字段
// 身份本身由外部服务管理，本服务只读写在线状态
type Profile struct {
	gorm.Model
	Uuid      string     `gorm:"column:uuid;uniqueIndex;type:char(24);not null;comment:profile id"`
	Nickname  string     `gorm:"column:nickname;type:varchar(32);comment:昵称"`
	IsPrivate bool       `gorm:"column:is_private;not null;default:false;comment:是否私密账号"`
	IsOnline  bool       `gorm:"column:is_online;not null;default:false;comment:是否在线"`
	LastSeen  *time.Time `gorm:"column:last_seen;comment:最后在线时间，在线时为空"`
}

func (Profile) TableName() string {
	return "profile"
}
