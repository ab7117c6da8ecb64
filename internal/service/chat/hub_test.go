package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gated_chat_server/internal/dao/memory"
	"gated_chat_server/internal/dao/mysql/repository"
	myredis "gated_chat_server/internal/dao/redis"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/infrastructure/layer"
	"gated_chat_server/internal/infrastructure/mq"
	"gated_chat_server/internal/model"
	"gated_chat_server/internal/service/message"
	"gated_chat_server/internal/service/presence"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/jwt"
	"gated_chat_server/pkg/util/snowflake"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSeen struct {
	mu    sync.Mutex
	calls [][]int64
}

func (f *fakeSeen) MarkSeen(_ context.Context, readerId string, ids []int64) ([]message.Receipt, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ids)
	f.mu.Unlock()
	return []message.Receipt{{SenderId: "A", ReaderId: readerId, MessageIds: ids}}, nil
}

type hubFixture struct {
	repos *repository.Repositories
	hub   *Hub
	layer *layer.MemoryLayer
	seen  *fakeSeen
	srv   *httptest.Server
}

func newHubFixture(t *testing.T, opts Options) *hubFixture {
	t.Helper()
	jwt.Init("hub-secret-0123456789abcdef", 5)
	lg := zap.NewNop()
	repos := memory.NewRepositories()
	cache := myredis.NewMemoryCache(1, 16, lg)
	l := layer.NewMemoryLayer()
	seen := &fakeSeen{}
	hub := NewHub(identity.NewVerifier(repos.Profile, lg), l, presence.NewService(repos, cache, lg), seen, opts, lg)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeConn))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		cache.Close()
	})
	return &hubFixture{repos: repos, hub: hub, layer: l, seen: seen, srv: srv}
}

func (f *hubFixture) dial(t *testing.T, profileId string) *websocket.Conn {
	t.Helper()
	token, err := jwt.GenerateProfileToken(profileId, strings.ToLower(profileId), false)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(f.url()+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	expect(t, conn, EventOnlineUsers)
	return conn
}

func (f *hubFixture) url() string {
	return "ws" + strings.TrimPrefix(f.srv.URL, "http")
}

// expect 读取直到出现指定类型的帧，跳过其它帧
func expect(t *testing.T, conn *websocket.Conn, eventType string) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", eventType)
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == eventType {
			return env
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	data, err := encode(eventType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestServeConnRejectsBadToken(t *testing.T) {
	f := newHubFixture(t, Options{})
	_, resp, err := websocket.DefaultDialer.Dial(f.url()+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(f.url(), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServeConnAcceptsBearerHeader(t *testing.T) {
	f := newHubFixture(t, Options{})
	token, err := jwt.GenerateProfileToken("A", "a", false)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(f.url(), http.Header{"Authorization": []string{"Bearer " + token}})
	require.NoError(t, err)
	defer conn.Close()
	expect(t, conn, EventOnlineUsers)
}

func TestConnectJoinsGroupsAndMarksOnline(t *testing.T) {
	f := newHubFixture(t, Options{})
	a := f.dial(t, "A")
	_ = a

	assert.Equal(t, 1, f.layer.Size(ChatGroup("A")))
	assert.Equal(t, 1, f.layer.Size(NotificationGroup("A")))
	assert.Equal(t, 1, f.layer.Size("activity"))
	assert.Equal(t, 1, f.hub.Connections("A"))

	p, err := f.repos.Profile.FindByUuid(context.Background(), "A")
	require.NoError(t, err)
	assert.True(t, p.IsOnline)
	assert.Nil(t, p.LastSeen)

	f.dial(t, "B")
	env := expect(t, a, EventOnlineUsers)
	var online OnlineUsersPayload
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	assert.Equal(t, []string{"A", "B"}, online.ProfileIds)
}

func TestTypingRelayedToReceiver(t *testing.T) {
	f := newHubFixture(t, Options{})
	a := f.dial(t, "A")
	b := f.dial(t, "B")

	send(t, a, EventTyping, TypingPayload{ReceiverId: "B", Message: json.RawMessage(`"typing..."`)})
	env := expect(t, b, EventReceiveTyping)
	var p ReceiveTypingPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "A", p.SenderId)
	assert.JSONEq(t, `"typing..."`, string(p.Message))
}

func TestSeenReceiptGoesToOriginalSender(t *testing.T) {
	f := newHubFixture(t, Options{})
	a := f.dial(t, "A")
	b := f.dial(t, "B")

	send(t, b, EventSeen, SeenPayload{MessageIds: snowflake.NewIDs([]int64{7, 8})})
	env := expect(t, a, EventSeen)
	assert.JSONEq(t, `{"reader_id":"B","message_ids":["7","8"]}`, string(env.Payload))
	f.seen.mu.Lock()
	defer f.seen.mu.Unlock()
	assert.Equal(t, [][]int64{{7, 8}}, f.seen.calls)
}

func TestSeenRejectsNumericIds(t *testing.T) {
	f := newHubFixture(t, Options{})
	b := f.dial(t, "B")

	send(t, b, EventSeen, map[string]any{"message_ids": []int64{7}})
	env := expect(t, b, EventError)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, errorx.CodeInvalidParam, p.Code)
}

func TestPassthroughAndOrdering(t *testing.T) {
	f := newHubFixture(t, Options{})
	a1 := f.dial(t, "A")
	a2 := f.dial(t, "A")

	for i := 0; i < 5; i++ {
		send(t, a1, "custom", map[string]int{"seq": i})
	}
	for _, conn := range []*websocket.Conn{a1, a2} {
		for i := 0; i < 5; i++ {
			env := expect(t, conn, "custom")
			var p map[string]int
			require.NoError(t, json.Unmarshal(env.Payload, &p))
			assert.Equal(t, i, p["seq"])
		}
	}
}

func TestMalformedEnvelopeRepliesError(t *testing.T) {
	f := newHubFixture(t, Options{})
	a := f.dial(t, "A")

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	env := expect(t, a, EventError)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, 1001, p.Code)

	send(t, a, EventTyping, map[string]string{})
	expect(t, a, EventError)
}

func TestDisconnectBroadcastsOnlineUsers(t *testing.T) {
	f := newHubFixture(t, Options{})
	a := f.dial(t, "A")
	b := f.dial(t, "B")
	expect(t, a, EventOnlineUsers)

	require.NoError(t, b.Close())
	env := expect(t, a, EventOnlineUsers)
	var online OnlineUsersPayload
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	// 默认只广播，不置离线
	assert.Contains(t, online.ProfileIds, "B")
	assert.Eventually(t, func() bool { return f.hub.Connections("B") == 0 }, time.Second, 10*time.Millisecond)
	p, err := f.repos.Profile.FindByUuid(context.Background(), "B")
	require.NoError(t, err)
	assert.True(t, p.IsOnline)
}

func TestDisconnectMarksOfflineWhenConfigured(t *testing.T) {
	f := newHubFixture(t, Options{MarkOfflineOnDisconnect: true})
	a := f.dial(t, "A")
	b := f.dial(t, "B")
	expect(t, a, EventOnlineUsers)

	require.NoError(t, b.Close())
	env := expect(t, a, EventOnlineUsers)
	var online OnlineUsersPayload
	require.NoError(t, json.Unmarshal(env.Payload, &online))
	assert.Equal(t, []string{"A"}, online.ProfileIds)

	p, err := f.repos.Profile.FindByUuid(context.Background(), "B")
	require.NoError(t, err)
	assert.False(t, p.IsOnline)
	assert.NotNil(t, p.LastSeen)
}

func TestDeliveryWorkersPushChatMessage(t *testing.T) {
	f := newHubFixture(t, Options{})
	ctx := context.Background()
	b := f.dial(t, "B")

	msg := &model.Message{Uuid: 42, ConversationId: "C1", SenderId: "A", Content: "hi"}
	require.NoError(t, f.repos.Message.Create(ctx, msg))

	queue := mq.NewChannelQueue(16, 3, zap.NewNop())
	loader := message.NewService(f.repos, nil, nil, nil, zap.NewNop())
	pool := NewDeliveryWorkerPool(queue, f.hub, loader, 2, zap.NewNop())
	pool.Start(ctx)
	defer func() {
		pool.Stop()
		_ = queue.Close()
	}()

	require.NoError(t, queue.Enqueue(ctx, model.DeliveryJob{MessageId: 404, RecipientProfileId: "B"}))
	require.NoError(t, queue.Enqueue(ctx, model.DeliveryJob{MessageId: 42, RecipientProfileId: "offline"}))
	require.NoError(t, queue.Enqueue(ctx, model.DeliveryJob{MessageId: 42, RecipientProfileId: "B"}))

	env := expect(t, b, EventChatMessage)
	var p ChatMessagePayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, int64(42), p.Id)
	assert.Equal(t, "hi", p.Content)
	assert.Equal(t, "A", p.SenderId)
}

func TestSeenAcceptsIdFromPushedMessage(t *testing.T) {
	f := newHubFixture(t, Options{})
	ctx := context.Background()
	a := f.dial(t, "A")
	b := f.dial(t, "B")

	const bigId = int64(1790000000000000001)
	require.NoError(t, f.repos.Message.Create(ctx, &model.Message{Uuid: bigId, ConversationId: "C1", SenderId: "A", Content: "hi"}))

	queue := mq.NewChannelQueue(4, 1, zap.NewNop())
	pool := NewDeliveryWorkerPool(queue, f.hub, message.NewService(f.repos, nil, nil, nil, zap.NewNop()), 1, zap.NewNop())
	pool.Start(ctx)
	defer func() {
		pool.Stop()
		_ = queue.Close()
	}()
	require.NoError(t, queue.Enqueue(ctx, model.DeliveryJob{MessageId: bigId, RecipientProfileId: "B"}))

	// 客户端原样取出推送里的 id 回传
	pushed := expect(t, b, EventChatMessage)
	var raw struct {
		Id json.RawMessage `json:"id"`
	}
	require.NoError(t, json.Unmarshal(pushed.Payload, &raw))
	assert.Equal(t, `"1790000000000000001"`, string(raw.Id))
	require.NoError(t, b.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"seen","payload":{"message_ids":[`+string(raw.Id)+`]}}`)))

	receipt := expect(t, a, EventSeen)
	var p SeenReceiptPayload
	require.NoError(t, json.Unmarshal(receipt.Payload, &p))
	assert.Equal(t, []int64{bigId}, p.MessageIds.Int64s())
	f.seen.mu.Lock()
	defer f.seen.mu.Unlock()
	assert.Equal(t, [][]int64{{bigId}}, f.seen.calls)
}

func TestConnStateOnlyMovesForward(t *testing.T) {
	c := &UserConn{}
	c.state.Store(int32(StateAuthenticated))
	assert.True(t, c.advance(StateJoined))
	assert.False(t, c.advance(StateAuthenticated))
	assert.True(t, c.advance(StateClosed))
	assert.False(t, c.advance(StateClosed))
	assert.Equal(t, "closed", c.State().String())
}
