// Package service 定义业务层接口
// 本文件定义 Handler 层依赖的 Service 接口
package service

import (
	"context"

	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/model"
	"gated_chat_server/internal/service/message"
)

// RelationshipService 关系状态机
type RelationshipService interface {
	// Seed 获取或按种子策略创建关系
	Seed(ctx context.Context, requesterId, otherId string) (*model.Relationship, error)
	// Between 查询两人之间的关系
	Between(ctx context.Context, a, b string) (*model.Relationship, error)
	// Request 发起请求，deleted / hidden 原地恢复为 pending
	Request(ctx context.Context, actorId, targetId string) (*model.Relationship, error)
	// Accept 接收方通过请求
	Accept(ctx context.Context, actorId, otherId string) (*model.Relationship, error)
	// Block 拉黑
	Block(ctx context.Context, actorId, otherId string) (*model.Relationship, error)
	// Delete 删除关系
	Delete(ctx context.Context, actorId, otherId string) (*model.Relationship, error)
}

// ConversationService 会话
type ConversationService interface {
	CreatePrivate(ctx context.Context, actorId, otherId string) (*model.Conversation, error)
	CreateGroup(ctx context.Context, actorId string, memberIds []string) (*model.Conversation, error)
	Get(ctx context.Context, actorId, conversationId string) (*model.Conversation, error)
	UpdateSettings(ctx context.Context, actorId, conversationId string, patch model.SettingsPatch) (*model.ConversationSettings, error)
}

// MessageService 消息写入、转发、已读
type MessageService interface {
	Send(ctx context.Context, in message.SendInput) (*model.Message, error)
	Forward(ctx context.Context, actorId string, messageId int64, conversationIds []string) (*message.ForwardResult, error)
	MarkSeen(ctx context.Context, readerId string, messageIds []int64) ([]message.Receipt, error)
	Get(ctx context.Context, actorId string, messageId int64) (*model.Message, error)
	// Load 投递 worker 使用，不校验成员
	Load(ctx context.Context, messageId int64) (*model.Message, error)
}

// FollowService 关注关系
type FollowService interface {
	Follow(ctx context.Context, followerId, followingId string) (*model.Follow, error)
	AcceptFollow(ctx context.Context, actorId, followerId string) (*model.Follow, error)
	Status(ctx context.Context, a, b string) (identity.FollowStatus, error)
	List(ctx context.Context, profileId string, listType identity.ListType) ([]string, error)
}

// PresenceService 在线状态
type PresenceService interface {
	Online(ctx context.Context, profileId string) error
	Offline(ctx context.Context, profileId string) error
	OnlineIDs(ctx context.Context) ([]string, error)
}
