package chat

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"gated_chat_server/internal/dto/respond"
	"gated_chat_server/internal/infrastructure/mq"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/constants"
	"gated_chat_server/pkg/errorx"

	"go.uber.org/zap"
)

// MessageLoader 按 id 读取已落库的消息
type MessageLoader interface {
	Load(ctx context.Context, messageId int64) (*model.Message, error)
}

// GroupSender 向频道组发送事件
type GroupSender interface {
	GroupSend(ctx context.Context, group, eventType string, payload any) (int, error)
}

// DeliveryWorkerPool 从投递队列取任务，把消息推给接收者的 chat 组
// 接收者不在线时推送直接丢弃，不做离线存储
type DeliveryWorkerPool struct {
	queue   mq.Queue
	sender  GroupSender
	loader  MessageLoader
	workers int
	lg      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDeliveryWorkerPool(queue mq.Queue, sender GroupSender, loader MessageLoader, workers int, lg *zap.Logger) *DeliveryWorkerPool {
	if workers <= 0 {
		workers = constants.DELIVERY_WORKERS
	}
	return &DeliveryWorkerPool{queue: queue, sender: sender, loader: loader, workers: workers, lg: lg}
}

// Start 启动 worker，单个 worker panic 后自动重启
func (p *DeliveryWorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for !p.run(ctx, id) {
				p.lg.Warn("delivery worker restarted", zap.Int("worker", id))
			}
		}(i)
	}
	p.lg.Info("delivery workers started", zap.Int("workers", p.workers))
}

// Stop 停止取任务并等待处理中的任务结束，已入队的任务保留在队列中
func (p *DeliveryWorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// run 正常退出返回 true，panic 返回 false
func (p *DeliveryWorkerPool) run(ctx context.Context, id int) (finished bool) {
	defer func() {
		if r := recover(); r != nil {
			p.lg.Error("delivery worker panic", zap.Int("worker", id), zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
			finished = ctx.Err() != nil
		}
	}()
	for {
		d, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, mq.ErrClosed) || ctx.Err() != nil {
				return true
			}
			p.lg.Warn("dequeue delivery job failed", zap.Int("worker", id), zap.Error(err))
			select {
			case <-ctx.Done():
				return true
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}
		err = p.process(ctx, d.Job)
		if ackErr := d.Ack(context.Background(), err); ackErr != nil {
			p.lg.Warn("ack delivery job failed", zap.Int64("message", d.Job.MessageId), zap.Error(ackErr))
		}
	}
}

// process 返回错误时由队列决定是否重试
func (p *DeliveryWorkerPool) process(ctx context.Context, job model.DeliveryJob) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DELIVERY_JOB_TIMEOUT)
	defer cancel()

	msg, err := p.loader.Load(ctx, job.MessageId)
	if errorx.IsNotFound(err) {
		p.lg.Warn("delivery job references missing message",
			zap.Int64("message", job.MessageId), zap.String("recipient", job.RecipientProfileId))
		return nil
	}
	if err != nil {
		return errorx.Wrap(err, errorx.CodeDeliveryFailure, fmt.Sprintf("load message %d", job.MessageId))
	}

	n, err := p.sender.GroupSend(ctx, ChatGroup(job.RecipientProfileId), EventChatMessage, respond.NewMessageRespond(msg))
	if err != nil {
		return errorx.Wrapf(err, errorx.CodeDeliveryFailure, "push message %d to %s", job.MessageId, job.RecipientProfileId)
	}
	if n == 0 {
		p.lg.Debug("recipient offline, push dropped",
			zap.Int64("message", job.MessageId), zap.String("recipient", job.RecipientProfileId))
	}
	return nil
}
