package repository

import (
	"context"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository 创建通知台账 Repository
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) NotifiedRecipients(ctx context.Context, rootMessageId int64) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.MessageDelivery{}).
		Where("root_message_id = ?", rootMessageId).Pluck("recipient_id", &ids).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "查询已通知接收者 root=%d", rootMessageId)
	}
	return ids, nil
}

// Claim 依赖 (root_message_id, recipient_id) 唯一索引，冲突时不插入
func (r *deliveryRepository) Claim(ctx context.Context, delivery *model.MessageDelivery) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(delivery)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "登记通知 root=%d recipient=%s", delivery.RootMessageId, delivery.RecipientId)
	}
	return res.RowsAffected == 1, nil
}

func (r *deliveryRepository) Release(ctx context.Context, rootMessageId int64, recipientId string) error {
	err := r.db.WithContext(ctx).
		Where("root_message_id = ? AND recipient_id = ?", rootMessageId, recipientId).
		Delete(&model.MessageDelivery{}).Error
	if err != nil {
		return wrapDBErrorf(err, "撤销通知 root=%d recipient=%s", rootMessageId, recipientId)
	}
	return nil
}
