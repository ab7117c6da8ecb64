// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，gorm 实现在各自的文件中
package repository

import (
	"context"
	"time"

	"gated_chat_server/internal/model"

	"gorm.io/gorm"
)

// ==================== Repository 接口定义 ====================

// ProfileRepository 身份镜像
type ProfileRepository interface {
	// FindByUuid 根据 profile id 查找
	FindByUuid(ctx context.Context, uuid string) (*model.Profile, error)
	// FindByUuids 批量查找，不存在的 id 直接忽略
	FindByUuids(ctx context.Context, uuids []string) ([]model.Profile, error)
	// Upsert 不存在则创建，存在则同步昵称和私密标记
	Upsert(ctx context.Context, profile *model.Profile) error
	// UpdatePresence 更新在线状态
	UpdatePresence(ctx context.Context, uuid string, online bool, lastSeen *time.Time) error
}

// ConversationRepository 会话
type ConversationRepository interface {
	// FindByUuid 查找会话并填充成员
	FindByUuid(ctx context.Context, uuid string) (*model.Conversation, error)
	// FindByUuidForUpdate 同 FindByUuid，事务内对会话行加写锁
	FindByUuidForUpdate(ctx context.Context, uuid string) (*model.Conversation, error)
	// FindPrivateByPair 查找两人之间的私聊会话
	FindPrivateByPair(ctx context.Context, a, b string) (*model.Conversation, error)
	// Create 创建会话及成员，私聊双方组合键冲突时返回 Conflict
	Create(ctx context.Context, conversation *model.Conversation, members []string) error
	// ClaimIcebreaker message_limit 0 -> 1 的原子比较并递增，返回本次是否成功
	ClaimIcebreaker(ctx context.Context, uuid string) (bool, error)
	// SetApproved 设置会话通过状态
	SetApproved(ctx context.Context, uuid string, approved bool) error
}

// MessageRepository 消息
type MessageRepository interface {
	// Create 保存消息
	Create(ctx context.Context, message *model.Message) error
	// FindByUuid 根据雪花 id 查找
	FindByUuid(ctx context.Context, uuid int64) (*model.Message, error)
	// FindByUuids 批量查找
	FindByUuids(ctx context.Context, uuids []int64) ([]model.Message, error)
	// ExistsBySender 发送者是否已在会话中发过消息
	ExistsBySender(ctx context.Context, conversationId, senderId string) (bool, error)
	// MarkRead 批量置为已读，返回实际变更行数
	MarkRead(ctx context.Context, uuids []int64) (int64, error)
}

// RelationshipRepository 双方关系
type RelationshipRepository interface {
	// FindBetween 查找两人之间的关系（不区分方向）
	FindBetween(ctx context.Context, a, b string) (*model.Relationship, error)
	// Create 创建关系，唯一约束冲突返回 Conflict
	Create(ctx context.Context, relationship *model.Relationship) error
	// CompareAndSetStatus 仅当当前状态为 from 时更新为 to，返回是否更新
	CompareAndSetStatus(ctx context.Context, uuid string, from, to model.RelationshipStatus) (bool, error)
	// CompareAndReopen 仅当当前状态为 from 时原地恢复为 pending，并以新的发起方重新登记方向
	CompareAndReopen(ctx context.Context, uuid string, from model.RelationshipStatus, senderId, receiverId string) (bool, error)
}

// FollowRepository 关注关系
type FollowRepository interface {
	// Find 查找有向关注边
	Find(ctx context.Context, followerId, followingId string) (*model.Follow, error)
	// Create 创建关注边，重复返回 Conflict
	Create(ctx context.Context, follow *model.Follow) error
	// UpdateStatus 更新关注状态
	UpdateStatus(ctx context.Context, followerId, followingId string, status model.FollowStatus) error
	// SetMutual 设置互关标记
	SetMutual(ctx context.Context, followerId, followingId string, mutual bool) error
	// ListByProfile 与 profile 相关的全部关注边（两个方向）
	ListByProfile(ctx context.Context, profileId string) ([]model.Follow, error)
}

// SettingsRepository 会话个人设置
type SettingsRepository interface {
	// Find 查找个人设置
	Find(ctx context.Context, profileId, conversationId string) (*model.ConversationSettings, error)
	// EnsureDefaults 为每个成员补齐默认设置，已存在的行保持不变
	EnsureDefaults(ctx context.Context, conversationId string, profileIds []string) error
	// Save 按 (profile_id, conversation_id) upsert
	Save(ctx context.Context, settings *model.ConversationSettings) error
}

// DeliveryRepository 已通知接收者台账
type DeliveryRepository interface {
	// NotifiedRecipients 已经为根消息通知过的接收者
	NotifiedRecipients(ctx context.Context, rootMessageId int64) ([]string, error)
	// Claim 插入台账，已存在返回 false
	Claim(ctx context.Context, delivery *model.MessageDelivery) (bool, error)
	// Release 删除登记，入队失败后允许重新通知
	Release(ctx context.Context, rootMessageId int64, recipientId string) error
}

// ==================== Repository 聚合 ====================

// TxRunner 在一个事务中执行 fn
type TxRunner func(fn func(txRepos *Repositories) error) error

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层通过此结构访问数据层
type Repositories struct {
	Profile      ProfileRepository
	Conversation ConversationRepository
	Message      MessageRepository
	Relationship RelationshipRepository
	Follow       FollowRepository
	Settings     SettingsRepository
	Delivery     DeliveryRepository

	runTx TxRunner
}

// NewRepositories 基于 gorm 创建所有 Repository
func NewRepositories(db *gorm.DB) *Repositories {
	repos := &Repositories{
		Profile:      NewProfileRepository(db),
		Conversation: NewConversationRepository(db),
		Message:      NewMessageRepository(db),
		Relationship: NewRelationshipRepository(db),
		Follow:       NewFollowRepository(db),
		Settings:     NewSettingsRepository(db),
		Delivery:     NewDeliveryRepository(db),
	}
	repos.runTx = func(fn func(txRepos *Repositories) error) error {
		return db.Transaction(func(tx *gorm.DB) error {
			// 使用事务 db 创建新的 Repositories 实例
			return fn(NewRepositories(tx))
		})
	}
	return repos
}

// SetTxRunner 替换事务实现，内存存储使用
func (r *Repositories) SetTxRunner(run TxRunner) {
	r.runTx = run
}

// Transaction 在事务中执行函数，fn 返回错误时整体回滚
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	if r.runTx == nil {
		return fn(r)
	}
	return r.runTx(fn)
}
