// Package mysql 负责建立 MySQL 连接、自动迁移表结构、初始化 Repository 层
package mysql

import (
	"fmt"

	"gated_chat_server/internal/config"
	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"

	mysqldriver "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Models 需要迁移的全部表
var Models = []interface{}{
	&model.Profile{},
	&model.Conversation{},
	&model.ConversationMember{},
	&model.ConversationSettings{},
	&model.Message{},
	&model.MessageDelivery{},
	&model.Relationship{},
	&model.Follow{},
}

// Open 建立连接并执行 AutoMigrate
// AutoMigrate 只新增表和字段，不会删除已有字段或数据
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysqldriver.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.AutoMigrate(Models...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}

// Init 按配置打开数据库并返回 Repository 聚合
func Init(cfg config.MysqlConfig) (*repository.Repositories, *gorm.DB, error) {
	db, err := Open(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRepositories(db), db, nil
}
