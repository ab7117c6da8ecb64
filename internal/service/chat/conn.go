package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gated_chat_server/pkg/constants"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ConnState 连接状态，只会向前推进
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateJoined
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// UserConn 一个 websocket 连接
// Read 协程按到达顺序逐个处理客户端事件，Write 协程独占写端
type UserConn struct {
	Conn      *websocket.Conn
	Id        string
	ProfileId string
	SendBack  chan []byte // 给前端

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	lg     *zap.Logger
}

func newUserConn(conn *websocket.Conn, id, profileId string, lg *zap.Logger) *UserConn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &UserConn{
		Conn:      conn,
		Id:        id,
		ProfileId: profileId,
		SendBack:  make(chan []byte, constants.CHANNEL_SIZE),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		lg:        lg.With(zap.String("conn", id), zap.String("profile", profileId)),
	}
	c.state.Store(int32(StateAuthenticated))
	return c
}

// State 当前状态
func (c *UserConn) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *UserConn) advance(to ConnState) bool {
	for {
		cur := c.state.Load()
		if ConnState(cur) >= to {
			return false
		}
		if c.state.CompareAndSwap(cur, int32(to)) {
			return true
		}
	}
}

// Receive 组消息入口，写缓冲满时丢弃
func (c *UserConn) Receive(group string, data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.SendBack <- data:
	case <-c.done:
	default:
		c.lg.Warn("send buffer full, dropping frame", zap.String("group", group))
	}
}

// Read 读取客户端事件并交给 handle，返回即表示连接已断开
func (c *UserConn) Read(handle func(ctx context.Context, c *UserConn, data []byte)) {
	c.Conn.SetReadLimit(constants.WS_MAX_MESSAGE_SIZE)
	_ = c.Conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	})
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.lg.Info("ws read failed", zap.Error(err))
			}
			return
		}
		handle(c.ctx, c, data)
	}
}

// Write 从 SendBack 取帧写给前端，并定时发送 ping
func (c *UserConn) Write() {
	ticker := time.NewTicker(constants.WS_PING_PERIOD)
	defer ticker.Stop()
	for {
		select {
		case data := <-c.SendBack:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.lg.Info("ws write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// close 取消未完成的事件处理并关闭底层连接，可重复调用
func (c *UserConn) close() {
	c.once.Do(func() {
		c.cancel()
		close(c.done)
		_ = c.Conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = c.Conn.Close()
	})
}
