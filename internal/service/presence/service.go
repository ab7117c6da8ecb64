// Package presence 在线状态：数据库里的 is_online / last_seen 加上缓存中的在线集合
package presence

import (
	"context"
	"sort"
	"strconv"
	"time"

	"gated_chat_server/internal/dao/mysql/repository"
	myredis "gated_chat_server/internal/dao/redis"
	"gated_chat_server/pkg/constants"

	"go.uber.org/zap"
)

const lastSeenTTL = 7 * 24 * time.Hour

type Service struct {
	repos *repository.Repositories
	cache myredis.AsyncCacheService
	lg    *zap.Logger
	now   func() time.Time
}

func NewService(repos *repository.Repositories, cache myredis.AsyncCacheService, lg *zap.Logger) *Service {
	return &Service{repos: repos, cache: cache, lg: lg, now: time.Now}
}

// Online 置为在线并清空 last seen
func (s *Service) Online(ctx context.Context, profileId string) error {
	if err := s.repos.Profile.UpdatePresence(ctx, profileId, true, nil); err != nil {
		return err
	}
	if err := s.cache.AddToSet(ctx, constants.PRESENCE_ONLINE_SET_KEY, profileId); err != nil {
		s.lg.Warn("add to online set failed", zap.String("profile", profileId), zap.Error(err))
	}
	s.cache.SubmitTask(func() {
		if err := s.cache.Delete(context.Background(), constants.PRESENCE_LAST_SEEN_PREFIX+profileId); err != nil {
			s.lg.Warn("clear last seen failed", zap.String("profile", profileId), zap.Error(err))
		}
	})
	return nil
}

// Offline 置为离线并记录 last seen
func (s *Service) Offline(ctx context.Context, profileId string) error {
	now := s.now()
	if err := s.repos.Profile.UpdatePresence(ctx, profileId, false, &now); err != nil {
		return err
	}
	if err := s.cache.RemoveFromSet(ctx, constants.PRESENCE_ONLINE_SET_KEY, profileId); err != nil {
		s.lg.Warn("remove from online set failed", zap.String("profile", profileId), zap.Error(err))
	}
	s.cache.SubmitTask(func() {
		key := constants.PRESENCE_LAST_SEEN_PREFIX + profileId
		if err := s.cache.Set(context.Background(), key, strconv.FormatInt(now.UnixMilli(), 10), lastSeenTTL); err != nil {
			s.lg.Warn("record last seen failed", zap.String("profile", profileId), zap.Error(err))
		}
	})
	return nil
}

// OnlineIDs 当前在线的 profile id，按字典序
func (s *Service) OnlineIDs(ctx context.Context) ([]string, error) {
	ids, err := s.cache.GetSetMembers(ctx, constants.PRESENCE_ONLINE_SET_KEY)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// LastSeen 缓存中的最后在线时间，未记录返回零值
func (s *Service) LastSeen(ctx context.Context, profileId string) (time.Time, error) {
	v, err := s.cache.Get(ctx, constants.PRESENCE_LAST_SEEN_PREFIX+profileId)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
