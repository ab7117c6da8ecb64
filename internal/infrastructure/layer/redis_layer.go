package layer

import (
	"context"
	"strings"
	"sync"

	"gated_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLayer 多节点频道组
// 每个节点只为本机有连接的组订阅 redis 频道，收到的消息转交本机 MemoryLayer 分发
type RedisLayer struct {
	client *redis.Client
	prefix string
	local  *MemoryLayer
	pubsub *redis.PubSub
	mu     sync.Mutex // 串行化订阅变更
	done   chan struct{}
	lg     *zap.Logger
}

// NewRedisLayer 建立订阅连接并启动接收循环
func NewRedisLayer(ctx context.Context, client *redis.Client, prefix string, lg *zap.Logger) (*RedisLayer, error) {
	// 订阅一个节点私有频道，保证订阅连接在任何组加入之前就已建立
	nodeChannel := prefix + "__node:" + uuid.NewString()
	pubsub := client.Subscribe(ctx, nodeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errorx.Wrap(err, errorx.CodeCacheError, "subscribe redis layer")
	}
	l := &RedisLayer{
		client: client,
		prefix: prefix,
		local:  NewMemoryLayer(),
		pubsub: pubsub,
		done:   make(chan struct{}),
		lg:     lg,
	}
	go l.receiveLoop()
	return l, nil
}

func (l *RedisLayer) receiveLoop() {
	defer close(l.done)
	for msg := range l.pubsub.Channel() {
		group, ok := strings.CutPrefix(msg.Channel, l.prefix)
		if !ok {
			continue
		}
		l.local.deliver(group, []byte(msg.Payload))
	}
}

func (l *RedisLayer) GroupAdd(ctx context.Context, group string, r Receiver) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.local.add(group, r) {
		return nil
	}
	if err := l.pubsub.Subscribe(ctx, l.prefix+group); err != nil {
		l.local.discard(group, r)
		return errorx.Wrapf(err, errorx.CodeCacheError, "subscribe group %s", group)
	}
	return nil
}

func (l *RedisLayer) GroupDiscard(ctx context.Context, group string, r Receiver) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.local.discard(group, r) {
		return nil
	}
	if err := l.pubsub.Unsubscribe(ctx, l.prefix+group); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "unsubscribe group %s", group)
	}
	return nil
}

func (l *RedisLayer) GroupSend(ctx context.Context, group string, data []byte) (int, error) {
	n, err := l.client.Publish(ctx, l.prefix+group, data).Result()
	if err != nil {
		return 0, errorx.Wrapf(err, errorx.CodeCacheError, "publish group %s", group)
	}
	return int(n), nil
}

func (l *RedisLayer) Close() error {
	err := l.pubsub.Close()
	<-l.done
	_ = l.local.Close()
	return err
}

var _ Layer = (*RedisLayer)(nil)
