// Package fanout 消息落库后按接收者生成投递任务
package fanout

import (
	"context"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Enqueuer 投递队列的写端
type Enqueuer interface {
	Enqueue(ctx context.Context, job model.DeliveryJob) error
}

// MessageCreated 消息（含转发副本）写入成功后发出的领域事件
// Recipients 已扣除此前通知过的接收者
type MessageCreated struct {
	MessageId  int64
	RootId     int64
	SenderId   string
	Recipients []string
}

// Result 一次分发的结果
type Result struct {
	Enqueued []string
	Skipped  []string         // 已被其它请求通知过
	Failed   map[string]error // 单个接收者失败，互不影响
}

// Dispatcher 扇出分发
type Dispatcher struct {
	repos *repository.Repositories
	queue Enqueuer
	lg    *zap.Logger
}

func NewDispatcher(repos *repository.Repositories, queue Enqueuer, lg *zap.Logger) *Dispatcher {
	return &Dispatcher{repos: repos, queue: queue, lg: lg}
}

// Delta 本次接收者减去已通知接收者，保持 current 的顺序并去重
func Delta(current, previous []string) []string {
	return lo.Without(lo.Uniq(current), previous...)
}

// Recipients 计算事件的接收者：去掉发送者和已通知过根消息的接收者
func (d *Dispatcher) Recipients(ctx context.Context, rootId int64, senderId string, current []string) ([]string, error) {
	notified, err := d.repos.Delivery.NotifiedRecipients(ctx, rootId)
	if err != nil {
		return nil, err
	}
	return lo.Without(Delta(current, notified), senderId), nil
}

// Dispatch 为每个接收者登记台账并入队一个投递任务
// 单个接收者失败只记录日志，不影响其它接收者，也不向上返回；入队失败时撤销登记
func (d *Dispatcher) Dispatch(ctx context.Context, ev MessageCreated) Result {
	res := Result{Failed: map[string]error{}}
	recipients := lo.Without(lo.Uniq(ev.Recipients), ev.SenderId)
	if len(recipients) == 0 {
		return res
	}

	profiles, err := d.repos.Profile.FindByUuids(ctx, recipients)
	if err != nil {
		for _, id := range recipients {
			res.Failed[id] = d.fail(ev, id, err)
		}
		return res
	}
	known := lo.KeyBy(profiles, func(p model.Profile) string { return p.Uuid })

	for _, recipientId := range recipients {
		if _, ok := known[recipientId]; !ok {
			res.Failed[recipientId] = d.fail(ev, recipientId, errorx.Newf(errorx.CodeNotFound, "profile %s not found", recipientId))
			continue
		}
		claimed, err := d.repos.Delivery.Claim(ctx, &model.MessageDelivery{
			RootMessageId: ev.RootId,
			RecipientId:   recipientId,
			MessageId:     ev.MessageId,
		})
		if err != nil {
			res.Failed[recipientId] = d.fail(ev, recipientId, err)
			continue
		}
		if !claimed {
			res.Skipped = append(res.Skipped, recipientId)
			continue
		}
		job := model.DeliveryJob{MessageId: ev.MessageId, RecipientProfileId: recipientId}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			res.Failed[recipientId] = d.fail(ev, recipientId, err)
			// 撤销登记，下一次发送或转发仍会通知到该接收者
			if rerr := d.repos.Delivery.Release(ctx, ev.RootId, recipientId); rerr != nil {
				d.lg.Error("release delivery claim failed",
					zap.Int64("root", ev.RootId), zap.String("recipient", recipientId), zap.Error(rerr))
			}
			continue
		}
		res.Enqueued = append(res.Enqueued, recipientId)
	}
	d.lg.Debug("fan-out dispatched",
		zap.Int64("message", ev.MessageId),
		zap.Strings("enqueued", res.Enqueued),
		zap.Strings("skipped", res.Skipped),
		zap.Int("failed", len(res.Failed)))
	return res
}

func (d *Dispatcher) fail(ev MessageCreated, recipientId string, cause error) error {
	err := errorx.Wrapf(cause, errorx.CodeDeliveryFailure, "deliver message %d to %s", ev.MessageId, recipientId)
	d.lg.Warn("delivery job failed",
		zap.Int64("message", ev.MessageId), zap.String("recipient", recipientId), zap.Error(err))
	return err
}
