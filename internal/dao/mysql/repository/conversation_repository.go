package repository

import (
	"context"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话 Repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) FindByUuid(ctx context.Context, uuid string) (*model.Conversation, error) {
	return r.find(r.db.WithContext(ctx), uuid)
}

// FindByUuidForUpdate SELECT ... FOR UPDATE，同一会话的并发发送在事务内串行
func (r *conversationRepository) FindByUuidForUpdate(ctx context.Context, uuid string) (*model.Conversation, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), uuid)
}

func (r *conversationRepository) find(db *gorm.DB, uuid string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := db.Where("uuid = ?", uuid).First(&conversation).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 uuid=%s", uuid)
	}
	if err := r.fillMembers(db, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) fillMembers(db *gorm.DB, conversation *model.Conversation) error {
	var ids []string
	// 成员查询不需要锁
	err := db.Session(&gorm.Session{NewDB: true}).Model(&model.ConversationMember{}).
		Where("conversation_id = ?", conversation.Uuid).Order("id").Pluck("profile_id", &ids).Error
	if err != nil {
		return wrapDBErrorf(err, "查询会话成员 uuid=%s", conversation.Uuid)
	}
	conversation.Profiles = ids
	return nil
}

func (r *conversationRepository) FindPrivateByPair(ctx context.Context, a, b string) (*model.Conversation, error) {
	var conversation model.Conversation
	db := r.db.WithContext(ctx)
	if err := db.Where("pair_key = ?", model.PairKey(a, b)).First(&conversation).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询私聊会话 %s/%s", a, b)
	}
	if err := r.fillMembers(db, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepository) Create(ctx context.Context, conversation *model.Conversation, members []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return wrapDBErrorf(err, "创建会话 uuid=%s", conversation.Uuid)
		}
		rows := make([]model.ConversationMember, 0, len(members))
		for _, id := range members {
			rows = append(rows, model.ConversationMember{ConversationId: conversation.Uuid, ProfileId: id})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return wrapDBErrorf(err, "创建会话成员 uuid=%s", conversation.Uuid)
			}
		}
		conversation.Profiles = append([]string(nil), members...)
		return nil
	})
}

// ClaimIcebreaker UPDATE conversation SET message_limit = 1 WHERE uuid = ? AND message_limit = 0
func (r *conversationRepository) ClaimIcebreaker(ctx context.Context, uuid string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("uuid = ? AND message_limit = ?", uuid, 0).
		Update("message_limit", 1)
	if res.Error != nil {
		return false, wrapDBErrorf(res.Error, "更新破冰计数 uuid=%s", uuid)
	}
	return res.RowsAffected == 1, nil
}

func (r *conversationRepository) SetApproved(ctx context.Context, uuid string, approved bool) error {
	err := r.db.WithContext(ctx).Model(&model.Conversation{}).Where("uuid = ?", uuid).
		Update("approved", approved).Error
	return wrapDBErrorf(err, "更新会话通过状态 uuid=%s", uuid)
}
