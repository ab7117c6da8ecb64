package repository

import (
	"context"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return wrapDBErrorf(err, "创建消息 uuid=%d", message.Uuid)
	}
	return nil
}

func (r *messageRepository) FindByUuid(ctx context.Context, uuid int64) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 uuid=%d", uuid)
	}
	return &message, nil
}

func (r *messageRepository) FindByUuids(ctx context.Context, uuids []int64) ([]model.Message, error) {
	var messages []model.Message
	if len(uuids) == 0 {
		return messages, nil
	}
	if err := r.db.WithContext(ctx).Where("uuid IN ?", uuids).Order("id").Find(&messages).Error; err != nil {
		return nil, wrapDBError(err, "批量查询消息")
	}
	return messages, nil
}

func (r *messageRepository) ExistsBySender(ctx context.Context, conversationId, senderId string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id = ?", conversationId, senderId).
		Limit(1).Count(&count).Error
	if err != nil {
		return false, wrapDBErrorf(err, "查询发送记录 conversation=%s sender=%s", conversationId, senderId)
	}
	return count > 0, nil
}

// MarkRead 只更新未读的行，重复调用是幂等的
func (r *messageRepository) MarkRead(ctx context.Context, uuids []int64) (int64, error) {
	if len(uuids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("uuid IN ? AND is_read = ?", uuids, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "批量标记已读")
	}
	return res.RowsAffected, nil
}
