// Package relationship 两个 profile 之间的关系状态机：初始状态种子策略与状态迁移
package relationship

import (
	"context"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/constants"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/random"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Service 关系业务
type Service struct {
	repos   *repository.Repositories
	follows identity.FollowStatusProvider
	lg      *zap.Logger
}

// NewService 创建关系服务
func NewService(repos *repository.Repositories, follows identity.FollowStatusProvider, lg *zap.Logger) *Service {
	return &Service{repos: repos, follows: follows, lg: lg}
}

// Between 查找两人之间的关系
func (s *Service) Between(ctx context.Context, a, b string) (*model.Relationship, error) {
	return s.repos.Relationship.FindBetween(ctx, a, b)
}

// Seed 获取或创建关系，新建时按种子策略计算初始状态
// 并发创建触发唯一约束时重读已有记录
func (s *Service) Seed(ctx context.Context, requesterId, otherId string) (*model.Relationship, error) {
	if requesterId == otherId {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot seed a relationship with oneself")
	}
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		rel, err := s.repos.Relationship.FindBetween(ctx, requesterId, otherId)
		if err == nil {
			return rel, nil
		}
		if !errorx.IsNotFound(err) {
			return nil, err
		}

		in, err := s.seedInput(ctx, requesterId, otherId)
		if err != nil {
			return nil, err
		}
		rel = &model.Relationship{
			Uuid:       random.PrefixedID(constants.RELATIONSHIP_ID_PREFIX, constants.CONVERSATION_ID_LEN),
			SenderId:   requesterId,
			ReceiverId: otherId,
			Status:     SeedStatus(in),
		}
		err = s.repos.Relationship.Create(ctx, rel)
		if err == nil {
			s.lg.Info("relationship seeded",
				zap.String("sender", requesterId), zap.String("receiver", otherId), zap.String("status", string(rel.Status)))
			return rel, nil
		}
		if !errorx.IsConflict(err) {
			return nil, err
		}
		s.lg.Debug("relationship created concurrently, re-reading", zap.String("pair", model.PairKey(requesterId, otherId)))
	}
	return nil, errorx.Newf(errorx.CodeConflict, "relationship %s could not be seeded", model.PairKey(requesterId, otherId))
}

// seedInput 收集种子策略输入，关注服务失败时按未关注处理
func (s *Service) seedInput(ctx context.Context, requesterId, otherId string) (SeedInput, error) {
	profiles, err := s.repos.Profile.FindByUuids(ctx, []string{requesterId, otherId})
	if err != nil {
		return SeedInput{}, err
	}
	byId := lo.KeyBy(profiles, func(p model.Profile) string { return p.Uuid })
	requester, ok := byId[requesterId]
	if !ok {
		return SeedInput{}, errorx.Newf(errorx.CodeNotFound, "profile %s not found", requesterId)
	}
	other, ok := byId[otherId]
	if !ok {
		return SeedInput{}, errorx.Newf(errorx.CodeNotFound, "profile %s not found", otherId)
	}

	in := SeedInput{P1Private: requester.IsPrivate, P2Private: other.IsPrivate}
	status, err := s.follows.GetFollowStatus(ctx, requesterId, otherId)
	if err != nil {
		s.lg.Warn("follow status unavailable, treating as not following", zap.Error(err))
		status = identity.FollowStatus{}
	}
	in.P1FollowsP2, in.P2FollowsP1 = status.P1FollowsP2, status.P2FollowsP1
	in.EitherAccepted = status.P1Accepted || status.P2Accepted

	if !in.P1FollowsP2 && !in.P2FollowsP1 {
		shared, err := s.follows.SharedConnection(ctx, requesterId, otherId)
		if err != nil {
			s.lg.Warn("shared connection lookup failed", zap.Error(err))
		}
		in.SharedConnection = shared
	}

	list, err := s.follows.GetFollowList(ctx, requesterId, identity.ListAll)
	if err != nil {
		s.lg.Warn("follow list unavailable", zap.Error(err))
	}
	in.RequesterHasFollowSignal = len(lo.Without(list, otherId)) > 0
	return in, nil
}

// Request 显式发起请求：无记录时新建 pending，deleted / hidden 原地恢复为 pending
func (s *Service) Request(ctx context.Context, actorId, targetId string) (*model.Relationship, error) {
	if actorId == targetId {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot request oneself")
	}
	rel, err := s.repos.Relationship.FindBetween(ctx, actorId, targetId)
	if errorx.IsNotFound(err) {
		rel = &model.Relationship{
			Uuid:       random.PrefixedID(constants.RELATIONSHIP_ID_PREFIX, constants.CONVERSATION_ID_LEN),
			SenderId:   actorId,
			ReceiverId: targetId,
			Status:     model.RelationshipPending,
		}
		err = s.repos.Relationship.Create(ctx, rel)
		if err == nil {
			return rel, nil
		}
		if !errorx.IsConflict(err) {
			return nil, err
		}
		rel, err = s.repos.Relationship.FindBetween(ctx, actorId, targetId)
	}
	if err != nil {
		return nil, err
	}
	return Reopen(ctx, s.repos.Relationship, rel, actorId, targetId)
}

// Accept 只有接收方可以通过，通过后私聊会话同步置为 approved
func (s *Service) Accept(ctx context.Context, actorId, otherId string) (*model.Relationship, error) {
	var result *model.Relationship
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		rel, err := tx.Relationship.FindBetween(ctx, actorId, otherId)
		if err != nil {
			return err
		}
		if rel.Status != model.RelationshipAccepted && rel.ReceiverId != actorId {
			return errorx.ErrSelfAccept
		}
		if result, err = MoveTo(ctx, tx.Relationship, rel, model.RelationshipAccepted); err != nil {
			return err
		}
		conv, err := tx.Conversation.FindPrivateByPair(ctx, actorId, otherId)
		if errorx.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Conversation.SetApproved(ctx, conv.Uuid, true)
	})
	if err != nil {
		return nil, err
	}
	s.lg.Info("relationship accepted", zap.String("receiver", actorId), zap.String("sender", otherId))
	return result, nil
}

// Block 任意一方都可拉黑，尚无记录时直接创建 blocked 记录
func (s *Service) Block(ctx context.Context, actorId, otherId string) (*model.Relationship, error) {
	if actorId == otherId {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot block oneself")
	}
	rel, err := s.repos.Relationship.FindBetween(ctx, actorId, otherId)
	if errorx.IsNotFound(err) {
		rel = &model.Relationship{
			Uuid:       random.PrefixedID(constants.RELATIONSHIP_ID_PREFIX, constants.CONVERSATION_ID_LEN),
			SenderId:   actorId,
			ReceiverId: otherId,
			Status:     model.RelationshipBlocked,
		}
		if err = s.repos.Relationship.Create(ctx, rel); err == nil {
			return rel, nil
		}
		if !errorx.IsConflict(err) {
			return nil, err
		}
		rel, err = s.repos.Relationship.FindBetween(ctx, actorId, otherId)
	}
	if err != nil {
		return nil, err
	}
	return MoveTo(ctx, s.repos.Relationship, rel, model.RelationshipBlocked)
}

// Delete 任意一方删除关系
func (s *Service) Delete(ctx context.Context, actorId, otherId string) (*model.Relationship, error) {
	rel, err := s.repos.Relationship.FindBetween(ctx, actorId, otherId)
	if err != nil {
		return nil, err
	}
	if !rel.Involves(actorId) {
		return nil, errorx.ErrNotParticipant
	}
	return MoveTo(ctx, s.repos.Relationship, rel, model.RelationshipDeleted)
}
