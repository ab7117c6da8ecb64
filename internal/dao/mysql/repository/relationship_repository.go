package repository

import (
	"context"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
)

type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository 创建关系 Repository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

// FindBetween 以组合键查找，天然覆盖两个方向
func (r *relationshipRepository) FindBetween(ctx context.Context, a, b string) (*model.Relationship, error) {
	var relationship model.Relationship
	if err := r.db.WithContext(ctx).Where("pair_key = ?", model.PairKey(a, b)).First(&relationship).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询关系 %s/%s", a, b)
	}
	return &relationship, nil
}

func (r *relationshipRepository) Create(ctx context.Context, relationship *model.Relationship) error {
	relationship.PairKey = model.PairKey(relationship.SenderId, relationship.ReceiverId)
	if err := r.db.WithContext(ctx).Create(relationship).Error; err != nil {
		return wrapDBErrorf(err, "创建关系 %s", relationship.PairKey)
	}
	return nil
}

func (r *relationshipRepository) CompareAndSetStatus(ctx context.Context, uuid string, from, to model.RelationshipStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Relationship{}).
		Where("uuid = ? AND status = ?", uuid, from).
		Update("status", to)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "更新关系状态 uuid=%s %s->%s", uuid, from, to)
	}
	return res.RowsAffected == 1, nil
}

func (r *relationshipRepository) CompareAndReopen(ctx context.Context, uuid string, from model.RelationshipStatus, senderId, receiverId string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Relationship{}).
		Where("uuid = ? AND status = ?", uuid, from).
		Updates(map[string]interface{}{
			"status":      model.RelationshipPending,
			"sender_id":   senderId,
			"receiver_id": receiverId,
		})
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "恢复关系 uuid=%s %s->pending", uuid, from)
	}
	return res.RowsAffected == 1, nil
}
