// Package mq 投递任务队列
// 提供 channel（单机）、kafka、asynq 三种实现，语义均为至少一次投递，不保证跨接收者的顺序
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"gated_chat_server/internal/model"
)

// ErrClosed 队列已关闭
var ErrClosed = errors.New("mq: queue closed")

// Queue 投递队列
type Queue interface {
	// Enqueue 写入一个投递任务
	Enqueue(ctx context.Context, job model.DeliveryJob) error
	// Dequeue 阻塞直到取到任务、ctx 结束或队列关闭
	Dequeue(ctx context.Context) (*Delivery, error)
	// Close 释放底层资源
	Close() error
}

// Delivery 取出的任务，处理完成后必须 Ack
// Ack 传入非空错误表示处理失败，由具体实现决定是否重试
type Delivery struct {
	Job     model.DeliveryJob
	Attempt int

	once sync.Once
	ack  func(ctx context.Context, err error) error
}

func newDelivery(job model.DeliveryJob, attempt int, ack func(ctx context.Context, err error) error) *Delivery {
	return &Delivery{Job: job, Attempt: attempt, ack: ack}
}

// Ack 只有第一次调用生效
func (d *Delivery) Ack(ctx context.Context, err error) error {
	var ackErr error
	d.once.Do(func() {
		if d.ack != nil {
			ackErr = d.ack(ctx, err)
		}
	})
	return ackErr
}

func encodeJob(job model.DeliveryJob) ([]byte, error) {
	return json.Marshal(job)
}

func decodeJob(data []byte) (model.DeliveryJob, error) {
	var job model.DeliveryJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, err
	}
	if job.MessageId == 0 || job.RecipientProfileId == "" {
		return job, errors.New("mq: incomplete delivery job")
	}
	return job, nil
}
