package mq

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gated_chat_server/internal/config"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const attemptHeader = "attempt"

// KafkaQueue 基于 kafka 的投递队列
// 写入时以接收者 id 为 key，同一接收者的任务落在同一分区；消费组读取，
// 每个分区只提交连续完成的最高位点
type KafkaQueue struct {
	writer   *kafka.Writer
	reader   *kafka.Reader
	maxRetry int
	lg       *zap.Logger

	offsets   *offsetTracker
	commitMu  sync.Mutex
	committed map[int]int64
}

// NewKafkaQueue 创建生产者与消费组读取者
func NewKafkaQueue(cfg config.KafkaConfig, maxRetry int, lg *zap.Logger) *KafkaQueue {
	timeout := time.Duration(cfg.Timeout) * time.Second
	return &KafkaQueue{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.HostPort),
			Topic:                  cfg.DeliveryTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           timeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.HostPort},
			Topic:       cfg.DeliveryTopic,
			GroupID:     cfg.GroupID,
			StartOffset: kafka.FirstOffset,
			MaxWait:     timeout,
		}),
		maxRetry:  maxRetry,
		lg:        lg,
		offsets:   newOffsetTracker(),
		committed: make(map[int]int64),
	}
}

// EnsureTopic 创建投递主题，已存在时 broker 返回的错误只记录日志
func EnsureTopic(cfg config.KafkaConfig, lg *zap.Logger) {
	conn, err := kafka.Dial("tcp", cfg.HostPort)
	if err != nil {
		lg.Error("dial kafka failed", zap.String("addr", cfg.HostPort), zap.Error(err))
		return
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.DeliveryTopic,
		NumPartitions:     cfg.Partition,
		ReplicationFactor: 1,
	})
	if err != nil {
		lg.Warn("create delivery topic", zap.String("topic", cfg.DeliveryTopic), zap.Error(err))
	}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, job model.DeliveryJob) error {
	return q.write(ctx, job, 1)
}

func (q *KafkaQueue) write(ctx context.Context, job model.DeliveryJob, attempt int) error {
	value, err := encodeJob(job)
	if err != nil {
		return errorx.Wrap(err, errorx.CodeQueueError, "encode delivery job")
	}
	err = q.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(job.RecipientProfileId),
		Value:   value,
		Headers: []kafka.Header{{Key: attemptHeader, Value: []byte(strconv.Itoa(attempt))}},
	})
	if err != nil {
		return errorx.Wrap(err, errorx.CodeQueueError, "write delivery job to kafka")
	}
	return nil
}

// Dequeue 无法解析的消息直接提交跳过
func (q *KafkaQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		msg, err := q.reader.FetchMessage(ctx)
		if err != nil {
			return nil, err
		}
		q.offsets.track(msg)
		job, err := decodeJob(msg.Value)
		if err != nil {
			q.lg.Error("skip malformed delivery job",
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			if err := q.commit(ctx, msg); err != nil {
				return nil, err
			}
			continue
		}
		attempt := attemptOf(msg.Headers)
		return newDelivery(job, attempt, func(ctx context.Context, procErr error) error {
			if procErr != nil {
				if attempt < q.maxRetry {
					if err := q.write(ctx, job, attempt+1); err != nil {
						// 重新写入失败时不提交，等待重平衡后重放
						return err
					}
				} else {
					q.lg.Warn("delivery job dropped after retries",
						zap.Int64("message", job.MessageId), zap.String("recipient", job.RecipientProfileId), zap.Error(procErr))
				}
			}
			return q.commit(ctx, msg)
		}), nil
	}
}

// commit 标记完成并提交连续前缀
// 串行提交，reader 对每个请求单独提交，并发时低位点可能覆盖高位点
func (q *KafkaQueue) commit(ctx context.Context, msg kafka.Message) error {
	mark, ok := q.offsets.complete(msg)
	if !ok {
		return nil
	}
	q.commitMu.Lock()
	defer q.commitMu.Unlock()
	if last, ok := q.committed[mark.Partition]; ok && mark.Offset <= last {
		return nil
	}
	if err := q.reader.CommitMessages(ctx, mark); err != nil {
		return err
	}
	q.committed[mark.Partition] = mark.Offset
	return nil
}

func (q *KafkaQueue) Close() error {
	werr := q.writer.Close()
	rerr := q.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func attemptOf(headers []kafka.Header) int {
	for _, h := range headers {
		if h.Key != attemptHeader {
			continue
		}
		if n, err := strconv.Atoi(string(h.Value)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

var _ Queue = (*KafkaQueue)(nil)
