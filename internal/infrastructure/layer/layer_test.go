package layer

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type inbox struct {
	mu   sync.Mutex
	got  []string
	seen chan struct{}
}

func newInbox() *inbox {
	return &inbox{seen: make(chan struct{}, 16)}
}

func (i *inbox) Receive(group string, data []byte) {
	i.mu.Lock()
	i.got = append(i.got, group+"|"+string(data))
	i.mu.Unlock()
	i.seen <- struct{}{}
}

func (i *inbox) messages() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.got...)
}

func TestMemoryLayerGroups(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLayer()
	a, b := newInbox(), newInbox()

	require.NoError(t, l.GroupAdd(ctx, "chat:A", a))
	require.NoError(t, l.GroupAdd(ctx, "activity", a))
	require.NoError(t, l.GroupAdd(ctx, "activity", b))

	n, err := l.GroupSend(ctx, "activity", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = l.GroupSend(ctx, "chat:A", []byte("direct"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []string{"activity|hello", "chat:A|direct"}, a.messages())
	assert.Equal(t, []string{"activity|hello"}, b.messages())

	require.NoError(t, l.GroupDiscard(ctx, "activity", a))
	assert.Equal(t, 1, l.Size("activity"))

	n, err = l.GroupSend(ctx, "chat:Z", []byte("nobody"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisLayerAcrossNodes(t *testing.T) {
	addr := os.Getenv("GATED_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GATED_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	node1, err := NewRedisLayer(ctx, client, "test-layer:", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer node1.Close()
	node2, err := NewRedisLayer(ctx, client, "test-layer:", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer node2.Close()

	b := newInbox()
	require.NoError(t, node2.GroupAdd(ctx, "chat:B", b))

	n, err := node1.GroupSend(ctx, "chat:B", []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	select {
	case <-b.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}
	assert.Equal(t, []string{"chat:B|hi"}, b.messages())
}
