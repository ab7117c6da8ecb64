// Package message 消息写入、转发与已读
// 写入在事务内完成准入校验，提交之后再发出扇出事件
package message

import (
	"context"
	"strings"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/internal/service/fanout"
	"gated_chat_server/internal/service/guard"
	"gated_chat_server/pkg/constants"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/snowflake"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Reactivator 对已删除的关系发起新请求
type Reactivator interface {
	Request(ctx context.Context, actorId, targetId string) (*model.Relationship, error)
}

// Dispatcher 扇出分发
type Dispatcher interface {
	Recipients(ctx context.Context, rootId int64, senderId string, current []string) ([]string, error)
	Dispatch(ctx context.Context, ev fanout.MessageCreated) fanout.Result
}

// SendInput 发送消息参数
type SendInput struct {
	SenderId       string
	ConversationId string
	Content        string
	AttachmentUrl  string
	ParentId       *int64
}

// ForwardResult 转发结果，按目标会话 id 归类
type ForwardResult struct {
	Created []*model.Message
	Skipped []string         // 接收者都已通知过
	Failed  map[string]error // 校验或写入失败
}

// Receipt 发给原发送者的已读回执
type Receipt struct {
	SenderId   string
	ReaderId   string
	MessageIds []int64
}

type Service struct {
	repos         *repository.Repositories
	guard         *guard.Guard
	relationships Reactivator
	dispatcher    Dispatcher
	lg            *zap.Logger
}

func NewService(repos *repository.Repositories, g *guard.Guard, relationships Reactivator, dispatcher Dispatcher, lg *zap.Logger) *Service {
	return &Service{repos: repos, guard: g, relationships: relationships, dispatcher: dispatcher, lg: lg}
}

// Send 校验并保存一条新消息，提交后为接收者分发投递任务
func (s *Service) Send(ctx context.Context, in SendInput) (*model.Message, error) {
	if in.ConversationId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "conversation id is required")
	}
	if strings.TrimSpace(in.Content) == "" && in.AttachmentUrl == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "message content is empty")
	}
	if err := s.reactivate(ctx, in.SenderId, in.ConversationId); err != nil {
		return nil, err
	}

	msg := &model.Message{
		Uuid:          snowflake.GenerateID(),
		SenderId:      in.SenderId,
		Content:       in.Content,
		AttachmentUrl: in.AttachmentUrl,
		ParentId:      in.ParentId,
	}
	decision, err := s.persist(ctx, in.ConversationId, msg, func(tx *repository.Repositories) error {
		if in.ParentId == nil {
			return nil
		}
		parent, err := tx.Message.FindByUuid(ctx, *in.ParentId)
		if err != nil {
			return err
		}
		if parent.ConversationId != in.ConversationId {
			return errorx.Newf(errorx.CodeInvalidParam, "message %d belongs to another conversation", parent.Uuid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.fanOut(ctx, msg, decision.Receivers)
	return msg, nil
}

// reactivate 私聊关系已删除时，发送即视为重新发起请求
func (s *Service) reactivate(ctx context.Context, senderId, conversationId string) error {
	conv, err := s.repos.Conversation.FindByUuid(ctx, conversationId)
	if err != nil {
		return err
	}
	if !conv.IsPrivate() || !conv.HasMember(senderId) {
		return nil
	}
	others := conv.Others(senderId)
	if len(others) != 1 {
		return nil
	}
	rel, err := s.repos.Relationship.FindBetween(ctx, senderId, others[0])
	if errorx.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if rel.Status != model.RelationshipDeleted {
		return nil
	}
	if _, err := s.relationships.Request(ctx, senderId, others[0]); err != nil {
		return err
	}
	s.lg.Info("relationship reactivated by message",
		zap.String("sender", senderId), zap.String("receiver", others[0]), zap.String("relationship", rel.Uuid))
	return nil
}

// persist 锁定会话行，依次执行准入校验、破冰计数和额外校验，然后写入消息
func (s *Service) persist(ctx context.Context, conversationId string, msg *model.Message, extra func(tx *repository.Repositories) error) (*guard.Decision, error) {
	var decision *guard.Decision
	err := s.repos.Transaction(func(tx *repository.Repositories) error {
		conv, err := tx.Conversation.FindByUuidForUpdate(ctx, conversationId)
		if err != nil {
			return err
		}
		if decision, err = s.guard.Check(ctx, tx, msg.SenderId, conv); err != nil {
			return err
		}
		if err := s.guard.ClaimIcebreaker(ctx, tx, conv); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(tx); err != nil {
				return err
			}
		}
		msg.ConversationId = conv.Uuid
		return tx.Message.Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// fanOut 消息已落库，分发失败只记录日志
func (s *Service) fanOut(ctx context.Context, msg *model.Message, receivers []string) {
	recipients, err := s.dispatcher.Recipients(ctx, msg.RootId(), msg.SenderId, receivers)
	if err != nil {
		s.lg.Warn("resolve recipients failed", zap.Int64("message", msg.Uuid), zap.Error(err))
		return
	}
	s.dispatcher.Dispatch(ctx, fanout.MessageCreated{
		MessageId:  msg.Uuid,
		RootId:     msg.RootId(),
		SenderId:   msg.SenderId,
		Recipients: recipients,
	})
}

// Forward 把消息转发到多个会话
// 转发副本指向转发链的根消息，已经通知过根消息的接收者不会再收到投递
func (s *Service) Forward(ctx context.Context, actorId string, messageId int64, conversationIds []string) (*ForwardResult, error) {
	targets := lo.Uniq(lo.Compact(conversationIds))
	if len(targets) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "at least one target conversation is required")
	}
	if len(targets) > constants.FORWARD_MAX_TARGETS {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "at most %d target conversations", constants.FORWARD_MAX_TARGETS)
	}
	src, err := s.Get(ctx, actorId, messageId)
	if err != nil {
		return nil, err
	}
	root := src.RootId()
	notified, err := s.repos.Delivery.NotifiedRecipients(ctx, root)
	if err != nil {
		return nil, err
	}

	res := &ForwardResult{Failed: map[string]error{}}
	for _, convId := range targets {
		conv, err := s.repos.Conversation.FindByUuid(ctx, convId)
		if err != nil {
			res.Failed[convId] = err
			continue
		}
		delta := lo.Without(fanout.Delta(conv.Others(actorId), notified), actorId)
		if len(delta) == 0 {
			res.Skipped = append(res.Skipped, convId)
			continue
		}

		forwardedFrom := root
		copied := &model.Message{
			Uuid:            snowflake.GenerateID(),
			SenderId:        actorId,
			Content:         src.Content,
			AttachmentUrl:   src.AttachmentUrl,
			IsForwarded:     true,
			ForwardedFromId: &forwardedFrom,
		}
		if _, err := s.persist(ctx, convId, copied, nil); err != nil {
			res.Failed[convId] = err
			continue
		}
		s.dispatcher.Dispatch(ctx, fanout.MessageCreated{
			MessageId:  copied.Uuid,
			RootId:     root,
			SenderId:   actorId,
			Recipients: delta,
		})
		notified = append(notified, delta...)
		res.Created = append(res.Created, copied)
	}
	s.lg.Info("message forwarded",
		zap.Int64("root", root), zap.Int("created", len(res.Created)),
		zap.Strings("skipped", res.Skipped), zap.Int("failed", len(res.Failed)))
	return res, nil
}

// MarkSeen 把读者所在会话里别人发的消息置为已读，回执按原发送者归组
// 不属于读者的消息直接忽略
func (s *Service) MarkSeen(ctx context.Context, readerId string, messageIds []int64) ([]Receipt, error) {
	ids := lo.Uniq(messageIds)
	if len(ids) == 0 {
		return nil, errorx.New(errorx.CodeInvalidParam, "message ids are required")
	}
	if len(ids) > constants.SEEN_MAX_MESSAGE_IDS {
		return nil, errorx.Newf(errorx.CodeInvalidParam, "at most %d message ids", constants.SEEN_MAX_MESSAGE_IDS)
	}
	msgs, err := s.repos.Message.FindByUuids(ctx, ids)
	if err != nil {
		return nil, err
	}

	membership := map[string]bool{}
	readable := lo.Filter(msgs, func(m model.Message, _ int) bool {
		if m.SenderId == readerId {
			return false
		}
		member, ok := membership[m.ConversationId]
		if !ok {
			conv, err := s.repos.Conversation.FindByUuid(ctx, m.ConversationId)
			member = err == nil && conv.HasMember(readerId)
			membership[m.ConversationId] = member
		}
		return member
	})
	if len(readable) == 0 {
		return nil, nil
	}

	readIds := lo.Map(readable, func(m model.Message, _ int) int64 { return m.Uuid })
	if _, err := s.repos.Message.MarkRead(ctx, readIds); err != nil {
		return nil, err
	}

	bySender := lo.GroupBy(readable, func(m model.Message) string { return m.SenderId })
	senders := lo.Uniq(lo.Map(readable, func(m model.Message, _ int) string { return m.SenderId }))
	receipts := make([]Receipt, 0, len(senders))
	for _, senderId := range senders {
		receipts = append(receipts, Receipt{
			SenderId:   senderId,
			ReaderId:   readerId,
			MessageIds: lo.Map(bySender[senderId], func(m model.Message, _ int) int64 { return m.Uuid }),
		})
	}
	return receipts, nil
}

// Get 读取消息，只有会话成员可以查看
func (s *Service) Get(ctx context.Context, actorId string, messageId int64) (*model.Message, error) {
	msg, err := s.repos.Message.FindByUuid(ctx, messageId)
	if err != nil {
		return nil, err
	}
	conv, err := s.repos.Conversation.FindByUuid(ctx, msg.ConversationId)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(actorId) {
		return nil, errorx.ErrNotParticipant
	}
	return msg, nil
}

// Load 投递任务使用，不做成员校验
func (s *Service) Load(ctx context.Context, messageId int64) (*model.Message, error) {
	return s.repos.Message.FindByUuid(ctx, messageId)
}
