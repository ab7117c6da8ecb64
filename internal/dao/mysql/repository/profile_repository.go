package repository

import (
	"context"
	"time"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建 Profile Repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByUuid(ctx context.Context, uuid string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&profile).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询 profile uuid=%s", uuid)
	}
	return &profile, nil
}

func (r *profileRepository) FindByUuids(ctx context.Context, uuids []string) ([]model.Profile, error) {
	var profiles []model.Profile
	if len(uuids) == 0 {
		return profiles, nil
	}
	if err := r.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&profiles).Error; err != nil {
		return nil, wrapDBError(err, "批量查询 profile")
	}
	return profiles, nil
}

// Upsert 以 uuid 为冲突键，只同步身份侧字段，不覆盖在线状态
func (r *profileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "is_private", "updated_at"}),
	}).Create(profile).Error
	return wrapDBErrorf(err, "同步 profile uuid=%s", profile.Uuid)
}

func (r *profileRepository) UpdatePresence(ctx context.Context, uuid string, online bool, lastSeen *time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Profile{}).Where("uuid = ?", uuid).
		Updates(map[string]interface{}{"is_online": online, "last_seen": lastSeen}).Error
	return wrapDBErrorf(err, "更新在线状态 uuid=%s", uuid)
}
