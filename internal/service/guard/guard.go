// Package guard 消息落库前的会话准入校验
package guard

import (
	"context"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// Decision 校验通过后的结果，Receivers 为除发送者外的会话成员
type Decision struct {
	Receivers    []string
	Relationship *model.Relationship // 群聊或尚无关系记录时为 nil
}

// Guard 会话准入
type Guard struct {
	lg *zap.Logger
}

func New(lg *zap.Logger) *Guard {
	return &Guard{lg: lg}
}

// Check 按固定顺序校验，遇到第一个失败立即返回
// 需要在写消息的同一事务内、会话行加锁之后调用
func (g *Guard) Check(ctx context.Context, repos *repository.Repositories, senderId string, conv *model.Conversation) (*Decision, error) {
	if !conv.HasMember(senderId) {
		return nil, errorx.ErrNotParticipant
	}
	decision := &Decision{Receivers: conv.Others(senderId)}

	if conv.IsPrivate() {
		if len(conv.Profiles) != 2 || len(decision.Receivers) != 1 {
			return nil, errorx.Newf(errorx.CodeInvalidParam, "private conversation %s must have exactly two profiles", conv.Uuid)
		}
		receiverId := decision.Receivers[0]

		rel, err := repos.Relationship.FindBetween(ctx, senderId, receiverId)
		switch {
		case errorx.IsNotFound(err):
		case err != nil:
			return nil, err
		default:
			decision.Relationship = rel
			if err := g.checkRelationship(ctx, repos, rel, senderId, conv.Uuid); err != nil {
				return nil, err
			}
		}

		blocked, err := settingsBlocked(ctx, repos, receiverId, conv.Uuid)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, g.deny(errorx.ErrPeerBlockedConversation, senderId, conv.Uuid)
		}
	}

	blocked, err := settingsBlocked(ctx, repos, senderId, conv.Uuid)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, g.deny(errorx.ErrSelfBlockedConversation, senderId, conv.Uuid)
	}

	if !conv.Approved && conv.MessageLimit != 0 {
		return nil, g.deny(errorx.ErrQuotaExceeded, senderId, conv.Uuid)
	}
	return decision, nil
}

func (g *Guard) checkRelationship(ctx context.Context, repos *repository.Repositories, rel *model.Relationship, senderId, conversationId string) error {
	switch rel.Status {
	case model.RelationshipBlocked:
		return g.deny(errorx.ErrRelationshipBlocked, senderId, conversationId)
	case model.RelationshipPending, model.RelationshipHidden:
		sent, err := repos.Message.ExistsBySender(ctx, conversationId, senderId)
		if err != nil {
			return err
		}
		if !sent {
			return nil
		}
		if rel.Status == model.RelationshipPending {
			return g.deny(errorx.ErrPendingLimit, senderId, conversationId)
		}
		return g.deny(errorx.ErrHiddenLimit, senderId, conversationId)
	}
	return nil
}

// ClaimIcebreaker message_limit 为 0 时原子置 1
// 未通过的会话抢占失败说明破冰额度已被并发请求用掉
func (g *Guard) ClaimIcebreaker(ctx context.Context, repos *repository.Repositories, conv *model.Conversation) error {
	if conv.MessageLimit != 0 {
		return nil
	}
	ok, err := repos.Conversation.ClaimIcebreaker(ctx, conv.Uuid)
	if err != nil {
		return err
	}
	if ok {
		conv.MessageLimit = 1
		return nil
	}
	if !conv.Approved {
		return errorx.ErrQuotaExceeded
	}
	return nil
}

func (g *Guard) deny(err *errorx.CodeError, senderId, conversationId string) error {
	g.lg.Debug("message rejected",
		zap.Int("code", err.Code), zap.String("sender", senderId), zap.String("conversation", conversationId))
	return err
}

func settingsBlocked(ctx context.Context, repos *repository.Repositories, profileId, conversationId string) (bool, error) {
	settings, err := repos.Settings.Find(ctx, profileId, conversationId)
	if errorx.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return settings.IsBlocked, nil
}
