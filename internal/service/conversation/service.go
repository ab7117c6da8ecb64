// Package conversation 会话创建与个人会话设置
package conversation

import (
	"context"
	"time"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/constants"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/random"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// RelationshipSeeder 创建私聊时获取或创建双方关系
type RelationshipSeeder interface {
	Seed(ctx context.Context, requesterId, otherId string) (*model.Relationship, error)
}

type Service struct {
	repos  *repository.Repositories
	seeder RelationshipSeeder
	lg     *zap.Logger
	now    func() time.Time
}

func NewService(repos *repository.Repositories, seeder RelationshipSeeder, lg *zap.Logger) *Service {
	return &Service{repos: repos, seeder: seeder, lg: lg, now: time.Now}
}

// CreatePrivate 创建双人会话
// 双方已有私聊会话时返回 Conflict；关系按种子策略初始化，已通过的关系直接放开会话
func (s *Service) CreatePrivate(ctx context.Context, actorId, otherId string) (*model.Conversation, error) {
	if otherId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "profile id is required")
	}
	if actorId == otherId {
		return nil, errorx.New(errorx.CodeInvalidParam, "cannot start a conversation with oneself")
	}
	if err := s.requireProfiles(ctx, []string{actorId, otherId}); err != nil {
		return nil, err
	}
	if existing, err := s.repos.Conversation.FindPrivateByPair(ctx, actorId, otherId); err == nil {
		return nil, errorx.Newf(errorx.CodeConflict, "conversation %s already exists", existing.Uuid)
	} else if !errorx.IsNotFound(err) {
		return nil, err
	}

	rel, err := s.seeder.Seed(ctx, actorId, otherId)
	if err != nil {
		return nil, err
	}

	key := model.PairKey(actorId, otherId)
	conv := &model.Conversation{
		Uuid:      random.PrefixedID(constants.CONVERSATION_ID_PREFIX, constants.CONVERSATION_ID_LEN),
		RoomType:  model.RoomPrivate,
		PairKey:   &key,
		Approved:  rel.Status == model.RelationshipAccepted,
		CreatorId: actorId,
	}
	members := []string{actorId, otherId}
	err = s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.Conversation.Create(ctx, conv, members); err != nil {
			return err
		}
		return tx.Settings.EnsureDefaults(ctx, conv.Uuid, members)
	})
	if err != nil {
		return nil, err
	}
	s.lg.Info("private conversation created",
		zap.String("conversation", conv.Uuid), zap.Strings("profiles", members), zap.String("relationship", string(rel.Status)))
	return conv, nil
}

// CreateGroup 创建群聊，群聊无需审批
func (s *Service) CreateGroup(ctx context.Context, actorId string, memberIds []string) (*model.Conversation, error) {
	members := lo.Uniq(append([]string{actorId}, memberIds...))
	members = lo.Compact(members)
	if len(members) < 2 {
		return nil, errorx.New(errorx.CodeInvalidParam, "a group needs at least two profiles")
	}
	if err := s.requireProfiles(ctx, members); err != nil {
		return nil, err
	}
	conv := &model.Conversation{
		Uuid:      random.PrefixedID(constants.CONVERSATION_ID_PREFIX, constants.CONVERSATION_ID_LEN),
		RoomType:  model.RoomGroup,
		Approved:  true,
		CreatorId: actorId,
	}
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		if err := tx.Conversation.Create(ctx, conv, members); err != nil {
			return err
		}
		return tx.Settings.EnsureDefaults(ctx, conv.Uuid, members)
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// Get 只有成员可以查看
func (s *Service) Get(ctx context.Context, actorId, conversationId string) (*model.Conversation, error) {
	if conversationId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "conversation id is required")
	}
	conv, err := s.repos.Conversation.FindByUuid(ctx, conversationId)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(actorId) {
		return nil, errorx.ErrNotParticipant
	}
	return conv, nil
}

// UpdateSettings 按 (profile, conversation) upsert 个人设置
// 开关 false->true 记录时间，true->false 清空时间
func (s *Service) UpdateSettings(ctx context.Context, actorId, conversationId string, patch model.SettingsPatch) (*model.ConversationSettings, error) {
	if _, err := s.Get(ctx, actorId, conversationId); err != nil {
		return nil, err
	}
	var result *model.ConversationSettings
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		settings, err := tx.Settings.Find(ctx, actorId, conversationId)
		if errorx.IsNotFound(err) {
			settings = &model.ConversationSettings{ProfileId: actorId, ConversationId: conversationId}
		} else if err != nil {
			return err
		}
		settings.Apply(patch, s.now())
		if err := tx.Settings.Save(ctx, settings); err != nil {
			return err
		}
		result = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) requireProfiles(ctx context.Context, ids []string) error {
	profiles, err := s.repos.Profile.FindByUuids(ctx, ids)
	if err != nil {
		return err
	}
	found := lo.Map(profiles, func(p model.Profile, _ int) string { return p.Uuid })
	if missing := lo.Without(ids, found...); len(missing) > 0 {
		return errorx.Newf(errorx.CodeNotFound, "profile %s not found", missing[0])
	}
	return nil
}
