// Package chat 实时推送中枢
// 管理 websocket 连接的生命周期，把连接加入频道组，转发客户端的临时事件，并由后台 worker 推送已落库的消息
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/infrastructure/layer"
	"gated_chat_server/internal/service/message"
	"gated_chat_server/pkg/constants"
	"gated_chat_server/pkg/errorx"
	"gated_chat_server/pkg/util/snowflake"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Presence 在线状态
type Presence interface {
	Online(ctx context.Context, profileId string) error
	Offline(ctx context.Context, profileId string) error
	OnlineIDs(ctx context.Context) ([]string, error)
}

// SeenMarker 批量已读
type SeenMarker interface {
	MarkSeen(ctx context.Context, readerId string, messageIds []int64) ([]message.Receipt, error)
}

// Options hub 行为开关
type Options struct {
	// MarkOfflineOnDisconnect 断开本节点上最后一个连接时置为离线
	MarkOfflineOnDisconnect bool
}

// Hub 连接与频道组管理
type Hub struct {
	verifier identity.TokenVerifier
	layer    layer.Layer
	presence Presence
	seen     SeenMarker
	opts     Options
	lg       *zap.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	conns      map[string]*UserConn
	perProfile map[string]int
}

func NewHub(verifier identity.TokenVerifier, l layer.Layer, presence Presence, seen SeenMarker, opts Options, lg *zap.Logger) *Hub {
	return &Hub{
		verifier: verifier,
		layer:    l,
		presence: presence,
		seen:     seen,
		opts:     opts,
		lg:       lg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			// 允许跨域连接
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns:      map[string]*UserConn{},
		perProfile: map[string]int{},
	}
}

func ChatGroup(profileId string) string {
	return constants.GROUP_CHAT_PREFIX + profileId
}

func NotificationGroup(profileId string) string {
	return constants.GROUP_NOTIFICATION_PREFIX + profileId
}

func groupsOf(profileId string) []string {
	return []string{ChatGroup(profileId), NotificationGroup(profileId), constants.GROUP_ACTIVITY}
}

// tokenFromRequest 优先取 query 参数 token，其次 Authorization: Bearer
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// ServeConn 校验 token，升级为 websocket 并加入频道组
// 校验失败直接返回 401，不升级连接
func (h *Hub) ServeConn(w http.ResponseWriter, r *http.Request) {
	profile, err := h.verifier.Verify(r.Context(), tokenFromRequest(r))
	if err != nil {
		h.lg.Info("ws authentication failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.lg.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := newUserConn(conn, uuid.NewString(), profile.Uuid, h.lg)
	if err := h.join(c); err != nil {
		h.lg.Error("ws join failed", zap.String("profile", profile.Uuid), zap.Error(err))
		c.advance(StateClosed)
		c.close()
		return
	}
	go c.Write()
	go func() {
		c.Read(h.handle)
		h.leave(c)
	}()
	h.lg.Info("ws connected", zap.String("profile", profile.Uuid), zap.String("conn", c.Id))
}

func (h *Hub) join(c *UserConn) error {
	ctx := c.ctx
	groups := groupsOf(c.ProfileId)
	for i, g := range groups {
		if err := h.layer.GroupAdd(ctx, g, c); err != nil {
			for _, added := range groups[:i] {
				_ = h.layer.GroupDiscard(ctx, added, c)
			}
			return err
		}
	}
	c.advance(StateJoined)

	h.mu.Lock()
	h.conns[c.Id] = c
	h.perProfile[c.ProfileId]++
	h.mu.Unlock()

	if err := h.presence.Online(ctx, c.ProfileId); err != nil {
		h.lg.Warn("mark online failed", zap.String("profile", c.ProfileId), zap.Error(err))
	}
	h.broadcastOnline(ctx)
	return nil
}

// leave 只执行一次：退出频道组并广播在线列表
func (h *Hub) leave(c *UserConn) {
	if !c.advance(StateClosed) {
		return
	}
	c.close()
	ctx := context.Background()
	for _, g := range groupsOf(c.ProfileId) {
		if err := h.layer.GroupDiscard(ctx, g, c); err != nil {
			h.lg.Warn("group discard failed", zap.String("group", g), zap.Error(err))
		}
	}

	h.mu.Lock()
	delete(h.conns, c.Id)
	h.perProfile[c.ProfileId]--
	last := h.perProfile[c.ProfileId] <= 0
	if last {
		delete(h.perProfile, c.ProfileId)
	}
	h.mu.Unlock()

	if last && h.opts.MarkOfflineOnDisconnect {
		if err := h.presence.Offline(ctx, c.ProfileId); err != nil {
			h.lg.Warn("mark offline failed", zap.String("profile", c.ProfileId), zap.Error(err))
		}
	}
	h.broadcastOnline(ctx)
	h.lg.Info("ws disconnected", zap.String("profile", c.ProfileId), zap.String("conn", c.Id))
}

func (h *Hub) broadcastOnline(ctx context.Context) {
	ids, err := h.presence.OnlineIDs(ctx)
	if err != nil {
		h.lg.Warn("load online users failed", zap.Error(err))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	if _, err := h.GroupSend(ctx, constants.GROUP_ACTIVITY, EventOnlineUsers, OnlineUsersPayload{ProfileIds: ids}); err != nil {
		h.lg.Warn("broadcast online users failed", zap.Error(err))
	}
}

// GroupSend 编码信封并发送到频道组，返回送达数量
func (h *Hub) GroupSend(ctx context.Context, group, eventType string, payload any) (int, error) {
	data, err := encode(eventType, payload)
	if err != nil {
		return 0, err
	}
	return h.layer.GroupSend(ctx, group, data)
}

// handle 处理一个客户端事件，同一连接上的事件串行执行
func (h *Hub) handle(ctx context.Context, c *UserConn, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		h.reply(c, errorx.New(errorx.CodeInvalidParam, "malformed envelope"))
		return
	}
	var err error
	switch env.Type {
	case EventTyping:
		err = h.relayTyping(ctx, c, env.Payload)
	case EventSeen:
		err = h.relaySeen(ctx, c, env.Payload)
	default:
		// 原样转发到自己的 chat 组，同一 profile 的其它连接也能收到
		_, err = h.layer.GroupSend(ctx, ChatGroup(c.ProfileId), data)
	}
	if err != nil {
		h.reply(c, err)
	}
}

func (h *Hub) relayTyping(ctx context.Context, c *UserConn, raw json.RawMessage) error {
	var p TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ReceiverId == "" {
		return errorx.New(errorx.CodeInvalidParam, "typing requires receiver_id")
	}
	if p.ReceiverId == c.ProfileId {
		return nil
	}
	_, err := h.GroupSend(ctx, ChatGroup(p.ReceiverId), EventReceiveTyping, ReceiveTypingPayload{
		SenderId: c.ProfileId,
		Message:  p.Message,
	})
	return err
}

func (h *Hub) relaySeen(ctx context.Context, c *UserConn, raw json.RawMessage) error {
	var p SeenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errorx.New(errorx.CodeInvalidParam, "seen requires message_ids")
	}
	receipts, err := h.seen.MarkSeen(ctx, c.ProfileId, p.MessageIds.Int64s())
	if err != nil {
		return err
	}
	for _, r := range receipts {
		if _, err := h.GroupSend(ctx, ChatGroup(r.SenderId), EventSeen, SeenReceiptPayload{
			ReaderId:   r.ReaderId,
			MessageIds: snowflake.NewIDs(r.MessageIds),
		}); err != nil {
			h.lg.Warn("send seen receipt failed", zap.String("sender", r.SenderId), zap.Error(err))
		}
	}
	return nil
}

// reply 把错误回给当前连接
func (h *Hub) reply(c *UserConn, err error) {
	code := errorx.GetCode(err)
	msg := err.Error()
	var ce *errorx.CodeError
	if errors.As(err, &ce) {
		msg = ce.Msg
	}
	data, encErr := encode(EventError, ErrorPayload{Code: code, Message: msg})
	if encErr != nil {
		return
	}
	c.Receive("", data)
}

// Connections 本节点上某个 profile 的连接数
func (h *Hub) Connections(profileId string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.perProfile[profileId]
}

// Close 断开本节点的全部连接
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*UserConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		h.leave(c)
	}
}
