package mq

import (
	"context"
	"fmt"

	"gated_chat_server/internal/config"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TaskDeliveryPush asynq 任务类型
const TaskDeliveryPush = "delivery:push"

const asynqQueueName = "delivery"

// AsynqQueue 基于 asynq（redis）的投递队列
// asynq server 的 handler 把任务交给 Dequeue 的调用方，并等待 Ack 的结果决定是否重试
type AsynqQueue struct {
	client     *asynq.Client
	server     *asynq.Server
	deliveries chan *Delivery
	maxRetry   int
	lg         *zap.Logger
}

// NewAsynqQueue 创建客户端并启动 server
func NewAsynqQueue(redisCfg config.RedisConfig, deliveryCfg config.DeliveryConfig, lg *zap.Logger) (*AsynqQueue, error) {
	opt := asynq.RedisClientOpt{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.Db,
	}
	q := &AsynqQueue{
		client:     asynq.NewClient(opt),
		deliveries: make(chan *Delivery),
		maxRetry:   deliveryCfg.MaxRetry,
		lg:         lg,
	}
	q.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: deliveryCfg.Workers,
		Queues:      map[string]int{asynqQueueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			lg.Warn("asynq task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskDeliveryPush, q.handle)
	if err := q.server.Start(mux); err != nil {
		_ = q.client.Close()
		return nil, errorx.Wrap(err, errorx.CodeQueueError, "start asynq server")
	}
	return q, nil
}

func (q *AsynqQueue) Enqueue(ctx context.Context, job model.DeliveryJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeQueueError, "encode delivery job")
	}
	task := asynq.NewTask(TaskDeliveryPush, payload)
	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(asynqQueueName), asynq.MaxRetry(q.maxRetry)); err != nil {
		return errorx.Wrap(err, errorx.CodeQueueError, "enqueue asynq task")
	}
	return nil
}

func (q *AsynqQueue) handle(ctx context.Context, task *asynq.Task) error {
	job, err := decodeJob(task.Payload())
	if err != nil {
		return fmt.Errorf("decode delivery job: %v: %w", err, asynq.SkipRetry)
	}
	retried, _ := asynq.GetRetryCount(ctx)
	done := make(chan error, 1)
	d := newDelivery(job, retried+1, func(_ context.Context, err error) error {
		done <- err
		return nil
	})

	select {
	case q.deliveries <- d:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *AsynqQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case d := <-q.deliveries:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close 等待处理中的任务结束后退出
func (q *AsynqQueue) Close() error {
	q.server.Shutdown()
	return q.client.Close()
}

var _ Queue = (*AsynqQueue)(nil)
