// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"gated_chat_server/internal/dao/mysql/repository"
	myredis "gated_chat_server/internal/dao/redis"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/service/conversation"
	"gated_chat_server/internal/service/fanout"
	"gated_chat_server/internal/service/follow"
	"gated_chat_server/internal/service/guard"
	"gated_chat_server/internal/service/message"
	"gated_chat_server/internal/service/presence"
	"gated_chat_server/internal/service/relationship"

	"go.uber.org/zap"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层和实时推送通过此结构访问业务
type Services struct {
	Relationship RelationshipService
	Conversation ConversationService
	Message      MessageService
	Follow       FollowService
	Presence     PresenceService
}

// Deps 构建 Services 需要的基础设施
type Deps struct {
	Repos *repository.Repositories
	Queue fanout.Enqueuer
	Cache myredis.AsyncCacheService
	// Follows 为空时使用本地关注图
	Follows identity.FollowStatusProvider
	Logger  *zap.Logger
}

// NewServices 创建并注入所有 Service 实例
func NewServices(d Deps) *Services {
	lg := d.Logger
	follows := d.Follows
	if follows == nil {
		follows = identity.NewFollowDirectory(d.Repos.Follow)
	}

	relationshipSvc := relationship.NewService(d.Repos, follows, lg.Named("relationship"))
	dispatcher := fanout.NewDispatcher(d.Repos, d.Queue, lg.Named("fanout"))
	messageSvc := message.NewService(d.Repos, guard.New(lg.Named("guard")), relationshipSvc, dispatcher, lg.Named("message"))

	return &Services{
		Relationship: relationshipSvc,
		Conversation: conversation.NewService(d.Repos, relationshipSvc, lg.Named("conversation")),
		Message:      messageSvc,
		Follow:       follow.NewService(d.Repos, lg.Named("follow")),
		Presence:     presence.NewService(d.Repos, d.Cache, lg.Named("presence")),
	}
}
