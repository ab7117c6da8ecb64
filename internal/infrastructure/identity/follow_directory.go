package identity

import (
	"context"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"github.com/samber/lo"
)

// FollowStatus 两个 profile 之间的关注状态
// Follows 表示存在有向边（不论是否已通过），Accepted 表示该边已通过
type FollowStatus struct {
	P1FollowsP2 bool
	P2FollowsP1 bool
	P1Accepted  bool
	P2Accepted  bool
}

// ListType 关注列表类型
type ListType string

const (
	ListFollowers ListType = "followers"
	ListFollowing ListType = "following"
	ListAll       ListType = "all"
)

// FollowStatusProvider 种子策略依赖的关注关系查询
type FollowStatusProvider interface {
	GetFollowStatus(ctx context.Context, p1, p2 string) (FollowStatus, error)
	GetFollowList(ctx context.Context, profileId string, listType ListType) ([]string, error)
	SharedConnection(ctx context.Context, p1, p2 string) (bool, error)
}

// FollowDirectory 基于本地关注表的实现
type FollowDirectory struct {
	follows repository.FollowRepository
}

func NewFollowDirectory(follows repository.FollowRepository) *FollowDirectory {
	return &FollowDirectory{follows: follows}
}

func (d *FollowDirectory) GetFollowStatus(ctx context.Context, p1, p2 string) (FollowStatus, error) {
	var status FollowStatus
	forward, err := d.edge(ctx, p1, p2)
	if err != nil {
		return status, err
	}
	backward, err := d.edge(ctx, p2, p1)
	if err != nil {
		return status, err
	}
	if forward != nil {
		status.P1FollowsP2 = true
		status.P1Accepted = forward.Status == model.FollowAccepted
	}
	if backward != nil {
		status.P2FollowsP1 = true
		status.P2Accepted = backward.Status == model.FollowAccepted
	}
	return status, nil
}

func (d *FollowDirectory) edge(ctx context.Context, follower, following string) (*model.Follow, error) {
	f, err := d.follows.Find(ctx, follower, following)
	if errorx.IsNotFound(err) {
		return nil, nil
	}
	return f, err
}

// GetFollowList 返回与 profile 有关注边的对端 id
func (d *FollowDirectory) GetFollowList(ctx context.Context, profileId string, listType ListType) ([]string, error) {
	edges, err := d.follows.ListByProfile(ctx, profileId)
	if err != nil {
		return nil, err
	}
	ids := lo.FilterMap(edges, func(f model.Follow, _ int) (string, bool) {
		switch {
		case f.FollowerId == profileId && listType != ListFollowers:
			return f.FollowingId, true
		case f.FollowingId == profileId && listType != ListFollowing:
			return f.FollowerId, true
		}
		return "", false
	})
	return lo.Uniq(ids), nil
}

// SharedConnection 双方是否存在共同的关注联系人
func (d *FollowDirectory) SharedConnection(ctx context.Context, p1, p2 string) (bool, error) {
	a, err := d.GetFollowList(ctx, p1, ListAll)
	if err != nil {
		return false, err
	}
	b, err := d.GetFollowList(ctx, p2, ListAll)
	if err != nil {
		return false, err
	}
	shared := lo.Filter(a, func(id string, _ int) bool {
		return id != p1 && id != p2 && lo.Contains(b, id)
	})
	return len(shared) > 0, nil
}

var _ FollowStatusProvider = (*FollowDirectory)(nil)
