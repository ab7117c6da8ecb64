package repository

import (
	"context"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
)

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository 创建关注 Repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Find(ctx context.Context, followerId, followingId string) (*model.Follow, error) {
	var follow model.Follow
	err := r.db.WithContext(ctx).Where("follower_id = ? AND following_id = ?", followerId, followingId).First(&follow).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询关注 %s->%s", followerId, followingId)
	}
	return &follow, nil
}

func (r *followRepository) Create(ctx context.Context, follow *model.Follow) error {
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		return wrapDBErrorf(err, "创建关注 %s->%s", follow.FollowerId, follow.FollowingId)
	}
	return nil
}

func (r *followRepository) UpdateStatus(ctx context.Context, followerId, followingId string, status model.FollowStatus) error {
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerId, followingId).
		Update("status", status).Error
	return wrapDBErrorf(err, "更新关注状态 %s->%s", followerId, followingId)
}

func (r *followRepository) SetMutual(ctx context.Context, followerId, followingId string, mutual bool) error {
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerId, followingId).
		Update("is_mutual", mutual).Error
	return wrapDBErrorf(err, "更新互关 %s->%s", followerId, followingId)
}

func (r *followRepository) ListByProfile(ctx context.Context, profileId string) ([]model.Follow, error) {
	var follows []model.Follow
	err := r.db.WithContext(ctx).Where("follower_id = ? OR following_id = ?", profileId, profileId).
		Order("id").Find(&follows).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询关注列表 %s", profileId)
	}
	return follows, nil
}
