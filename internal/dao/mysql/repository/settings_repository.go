package repository

import (
	"context"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository 创建会话设置 Repository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Find(ctx context.Context, profileId, conversationId string) (*model.ConversationSettings, error) {
	var settings model.ConversationSettings
	err := r.db.WithContext(ctx).Where("profile_id = ? AND conversation_id = ?", profileId, conversationId).First(&settings).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询会话设置 profile=%s conversation=%s", profileId, conversationId)
	}
	return &settings, nil
}

// EnsureDefaults INSERT ... ON DUPLICATE KEY 忽略已有行
func (r *settingsRepository) EnsureDefaults(ctx context.Context, conversationId string, profileIds []string) error {
	if len(profileIds) == 0 {
		return nil
	}
	rows := make([]model.ConversationSettings, 0, len(profileIds))
	for _, id := range profileIds {
		rows = append(rows, model.ConversationSettings{ProfileId: id, ConversationId: conversationId})
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	return wrapDBErrorf(err, "初始化会话设置 conversation=%s", conversationId)
}

func (r *settingsRepository) Save(ctx context.Context, settings *model.ConversationSettings) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}, {Name: "conversation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_muted", "is_blocked", "is_trashed",
			"last_muted_at", "last_blocked_at", "last_trashed_at", "updated_at",
		}),
	}).Create(settings).Error
	return wrapDBErrorf(err, "保存会话设置 profile=%s conversation=%s", settings.ProfileId, settings.ConversationId)
}
