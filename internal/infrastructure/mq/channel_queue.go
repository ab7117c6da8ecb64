package mq

import (
	"context"
	"sync"

	"gated_chat_server/internal/model"

	"go.uber.org/zap"
)

type channelItem struct {
	job     model.DeliveryJob
	attempt int
}

// ChannelQueue 进程内缓冲队列，单机部署使用
// 处理失败的任务重新入队，超过 maxRetry 后丢弃
type ChannelQueue struct {
	items    chan channelItem
	closed   chan struct{}
	once     sync.Once
	maxRetry int
	lg       *zap.Logger
}

func NewChannelQueue(size, maxRetry int, lg *zap.Logger) *ChannelQueue {
	return &ChannelQueue{
		items:    make(chan channelItem, size),
		closed:   make(chan struct{}),
		maxRetry: maxRetry,
		lg:       lg,
	}
}

func (q *ChannelQueue) Enqueue(ctx context.Context, job model.DeliveryJob) error {
	return q.put(ctx, channelItem{job: job, attempt: 1})
}

func (q *ChannelQueue) put(ctx context.Context, item channelItem) error {
	select {
	case <-q.closed:
		return ErrClosed
	default:
	}
	select {
	case q.items <- item:
		return nil
	case <-q.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *ChannelQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case item := <-q.items:
		return newDelivery(item.job, item.attempt, func(_ context.Context, err error) error {
			if err == nil {
				return nil
			}
			if item.attempt >= q.maxRetry {
				q.lg.Warn("delivery job dropped after retries",
					zap.Int64("message", item.job.MessageId),
					zap.String("recipient", item.job.RecipientProfileId),
					zap.Int("attempt", item.attempt), zap.Error(err))
				return nil
			}
			q.requeue(channelItem{job: item.job, attempt: item.attempt + 1})
			return nil
		}), nil
	case <-q.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// requeue 不阻塞，缓冲区满时由后台协程等待空位或队列关闭
// Ack 运行在消费协程里，这里阻塞会让所有消费者停在写入上
func (q *ChannelQueue) requeue(item channelItem) {
	select {
	case q.items <- item:
		return
	case <-q.closed:
		return
	default:
	}
	go func() {
		select {
		case q.items <- item:
		case <-q.closed:
			q.lg.Warn("retry dropped on close",
				zap.Int64("message", item.job.MessageId), zap.String("recipient", item.job.RecipientProfileId))
		}
	}()
}

// Close 之后缓冲区中未取出的任务被丢弃
func (q *ChannelQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}

var _ Queue = (*ChannelQueue)(nil)
