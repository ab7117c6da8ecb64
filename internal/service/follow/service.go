// Package follow 关注关系：关注、通过关注申请、互关标记维护
package follow

import (
	"context"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

type Service struct {
	repos     *repository.Repositories
	directory *identity.FollowDirectory
	lg        *zap.Logger
}

func NewService(repos *repository.Repositories, lg *zap.Logger) *Service {
	return &Service{repos: repos, directory: identity.NewFollowDirectory(repos.Follow), lg: lg}
}

// Follow 关注公开账号直接生效，关注私密账号进入待通过状态
// 已关注时原样返回
func (s *Service) Follow(ctx context.Context, followerId, followingId string) (*model.Follow, error) {
	if followerId == followingId {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot follow oneself")
	}
	target, err := s.repos.Profile.FindByUuid(ctx, followingId)
	if err != nil {
		return nil, err
	}

	var result *model.Follow
	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		existing, err := tx.Follow.Find(ctx, followerId, followingId)
		if err == nil {
			result = existing
			return nil
		}
		if !errorx.IsNotFound(err) {
			return err
		}
		status := model.FollowAccepted
		if target.IsPrivate {
			status = model.FollowRequested
		}
		result = &model.Follow{FollowerId: followerId, FollowingId: followingId, Status: status}
		if err := tx.Follow.Create(ctx, result); err != nil {
			return err
		}
		return recomputeMutual(ctx, tx, result)
	})
	if err != nil {
		return nil, err
	}
	s.lg.Debug("follow edge", zap.String("follower", followerId), zap.String("following", followingId),
		zap.String("status", string(result.Status)), zap.Bool("mutual", result.IsMutual))
	return result, nil
}

// AcceptFollow 被关注方通过关注申请
func (s *Service) AcceptFollow(ctx context.Context, actorId, followerId string) (*model.Follow, error) {
	var result *model.Follow
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		edge, err := tx.Follow.Find(ctx, followerId, actorId)
		if err != nil {
			return err
		}
		if edge.Status != model.FollowAccepted {
			if err := tx.Follow.UpdateStatus(ctx, followerId, actorId, model.FollowAccepted); err != nil {
				return err
			}
			edge.Status = model.FollowAccepted
		}
		result = edge
		return recomputeMutual(ctx, tx, edge)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recomputeMutual 反向边存在即为互关，两条边同时更新
func recomputeMutual(ctx context.Context, tx *repository.Repositories, edge *model.Follow) error {
	reverse, err := tx.Follow.Find(ctx, edge.FollowingId, edge.FollowerId)
	if errorx.IsNotFound(err) {
		edge.IsMutual = false
		return tx.Follow.SetMutual(ctx, edge.FollowerId, edge.FollowingId, false)
	}
	if err != nil {
		return err
	}
	edge.IsMutual = true
	if err := tx.Follow.SetMutual(ctx, edge.FollowerId, edge.FollowingId, true); err != nil {
		return err
	}
	if !reverse.IsMutual {
		return tx.Follow.SetMutual(ctx, reverse.FollowerId, reverse.FollowingId, true)
	}
	return nil
}

// Status 双方关注状态
func (s *Service) Status(ctx context.Context, a, b string) (identity.FollowStatus, error) {
	return s.directory.GetFollowStatus(ctx, a, b)
}

// List 关注 / 粉丝列表
func (s *Service) List(ctx context.Context, profileId string, listType identity.ListType) ([]string, error) {
	switch listType {
	case identity.ListFollowers, identity.ListFollowing, identity.ListAll:
	default:
		return nil, errorx.Newf(errorx.CodeInvalidParam, "unknown follow list type %q", listType)
	}
	return s.directory.GetFollowList(ctx, profileId, listType)
}
