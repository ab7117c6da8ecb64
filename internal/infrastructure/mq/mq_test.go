package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"gated_chat_server/internal/config"
	"gated_chat_server/internal/model"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestChannelQueueRoundTrip(t *testing.T) {
	q := NewChannelQueue(4, 3, zaptest.NewLogger(t))
	ctx := context.Background()
	job := model.DeliveryJob{MessageId: 1, RecipientProfileId: "B"}

	require.NoError(t, q.Enqueue(ctx, job))
	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, job, d.Job)
	assert.Equal(t, 1, d.Attempt)
	require.NoError(t, d.Ack(ctx, nil))
}

func TestChannelQueueRetriesFailedJobs(t *testing.T) {
	q := NewChannelQueue(4, 2, zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, model.DeliveryJob{MessageId: 1, RecipientProfileId: "B"}))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Ack(ctx, errors.New("publish failed")))
	// 重复 Ack 无效
	require.NoError(t, d.Ack(ctx, errors.New("publish failed")))

	d, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Attempt)
	require.NoError(t, d.Ack(ctx, errors.New("publish failed")))

	// 超过重试次数后丢弃
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = q.Dequeue(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannelQueueRetryDoesNotBlockOnFullBuffer(t *testing.T) {
	q := NewChannelQueue(1, 3, zaptest.NewLogger(t))
	defer q.Close()
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, model.DeliveryJob{MessageId: 1, RecipientProfileId: "B"}))
	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(ctx, model.DeliveryJob{MessageId: 2, RecipientProfileId: "B"}))

	acked := make(chan error, 1)
	go func() { acked <- d.Ack(context.Background(), errors.New("publish failed")) }()
	select {
	case err := <-acked:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ack blocked on full buffer")
	}

	// 缓冲区腾出后重试任务依旧入队
	next, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Job.MessageId)
	short, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	retried, err := q.Dequeue(short)
	require.NoError(t, err)
	assert.Equal(t, int64(1), retried.Job.MessageId)
	assert.Equal(t, 2, retried.Attempt)
}

func TestChannelQueueClose(t *testing.T) {
	q := NewChannelQueue(1, 1, zaptest.NewLogger(t))
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(context.Background(), model.DeliveryJob{MessageId: 1, RecipientProfileId: "B"}), ErrClosed)
	_, err := q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDecodeJobRejectsIncompletePayload(t *testing.T) {
	data, err := encodeJob(model.DeliveryJob{MessageId: 7, RecipientProfileId: "B"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message_id":7,"recipient_profile_id":"B"}`, string(data))

	job, err := decodeJob(data)
	require.NoError(t, err)
	assert.Equal(t, int64(7), job.MessageId)

	_, err = decodeJob([]byte(`{"message_id":7}`))
	assert.Error(t, err)
	_, err = decodeJob([]byte(`not json`))
	assert.Error(t, err)
}

func TestAttemptHeader(t *testing.T) {
	assert.Equal(t, 1, attemptOf(nil))
	assert.Equal(t, 3, attemptOf([]kafka.Header{{Key: attemptHeader, Value: []byte("3")}}))
	assert.Equal(t, 1, attemptOf([]kafka.Header{{Key: attemptHeader, Value: []byte("x")}}))
}

func TestProviderSelectsChannel(t *testing.T) {
	cfg := &config.Config{DeliveryConfig: config.DeliveryConfig{Mode: config.DeliveryModeChannel, QueueSize: 2, MaxRetry: 1}}
	q, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &ChannelQueue{}, q)

	cfg.DeliveryConfig.Mode = "pigeon"
	_, err = New(cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func kafkaMsg(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "delivery", Partition: partition, Offset: offset}
}

func TestOffsetTrackerCommitsContiguousPrefix(t *testing.T) {
	tr := newOffsetTracker()
	for _, off := range []int64{10, 11, 12} {
		tr.track(kafkaMsg(0, off))
	}
	tr.track(kafkaMsg(1, 5))

	// 11、12 先完成，10 仍在处理，不能提交
	_, ok := tr.complete(kafkaMsg(0, 12))
	assert.False(t, ok)
	_, ok = tr.complete(kafkaMsg(0, 11))
	assert.False(t, ok)

	mark, ok := tr.complete(kafkaMsg(0, 10))
	require.True(t, ok)
	assert.Equal(t, int64(12), mark.Offset)
	assert.Equal(t, 0, tr.pending(0))

	// 分区之间互不影响
	mark, ok = tr.complete(kafkaMsg(1, 5))
	require.True(t, ok)
	assert.Equal(t, int64(5), mark.Offset)
}

func TestOffsetTrackerStopsAtGap(t *testing.T) {
	tr := newOffsetTracker()
	for _, off := range []int64{1, 2, 3, 4} {
		tr.track(kafkaMsg(0, off))
	}
	_, ok := tr.complete(kafkaMsg(0, 3))
	assert.False(t, ok)
	mark, ok := tr.complete(kafkaMsg(0, 1))
	require.True(t, ok)
	assert.Equal(t, int64(1), mark.Offset)
	assert.Equal(t, 3, tr.pending(0))

	mark, ok = tr.complete(kafkaMsg(0, 2))
	require.True(t, ok)
	assert.Equal(t, int64(3), mark.Offset)
	assert.Equal(t, 1, tr.pending(0))
}

func TestOffsetTrackerResetsAfterRebalance(t *testing.T) {
	tr := newOffsetTracker()
	tr.track(kafkaMsg(0, 20))
	tr.track(kafkaMsg(0, 21))

	// 重平衡后从已提交位点重新拉取
	tr.track(kafkaMsg(0, 20))
	assert.Equal(t, 1, tr.pending(0))

	_, ok := tr.complete(kafkaMsg(0, 21))
	assert.False(t, ok, "offset from the old window is ignored")
	mark, ok := tr.complete(kafkaMsg(0, 20))
	require.True(t, ok)
	assert.Equal(t, int64(20), mark.Offset)

	_, ok = tr.complete(kafkaMsg(0, 20))
	assert.False(t, ok)
}
