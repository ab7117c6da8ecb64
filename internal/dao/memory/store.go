// Package memory 提供 Repository 接口的内存实现
// 用于 storageConfig.mode = "memory" 的本地调试和单元测试
// 事务通过互斥锁串行执行，失败时恢复事务开始时的快照
// 事务外的写入同样先取事务锁，快照与回滚之间不会混入其它写入
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gated_chat_server/internal/dao/mysql/repository"
	"gated_chat_server/internal/model"
	"gated_chat_server/pkg/errorx"

	"gorm.io/gorm"
)

// Store 全部表的内存副本
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	seq           uint
	profiles      map[string]model.Profile
	conversations map[string]model.Conversation
	members       map[string][]string
	messages      map[int64]model.Message
	relationships map[string]model.Relationship // key: pair key
	follows       map[string]model.Follow       // key: follower -> following
	settings      map[string]model.ConversationSettings
	deliveries    map[int64]map[string]int64 // root -> recipient -> message
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{
		profiles:      map[string]model.Profile{},
		conversations: map[string]model.Conversation{},
		members:       map[string][]string{},
		messages:      map[int64]model.Message{},
		relationships: map[string]model.Relationship{},
		follows:       map[string]model.Follow{},
		settings:      map[string]model.ConversationSettings{},
		deliveries:    map[int64]map[string]int64{},
	}
}

// NewRepositories 基于新建的 Store 创建 Repository 聚合
func NewRepositories() *repository.Repositories {
	return NewStore().Repositories()
}

// Repositories 返回共享本 Store 的 Repository 聚合
func (s *Store) Repositories() *repository.Repositories {
	repos := s.repositories(false)
	txRepos := s.repositories(true)
	repos.SetTxRunner(func(fn func(txRepos *repository.Repositories) error) error {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		snap := s.snapshot()
		if err := fn(txRepos); err != nil {
			s.restore(snap)
			return err
		}
		return nil
	})
	return repos
}

// repositories inTx 为 true 时调用方已持有事务锁
func (s *Store) repositories(inTx bool) *repository.Repositories {
	return &repository.Repositories{
		Profile:      &profileRepo{s, inTx},
		Conversation: &conversationRepo{s, inTx},
		Message:      &messageRepo{s, inTx},
		Relationship: &relationshipRepo{s, inTx},
		Follow:       &followRepo{s, inTx},
		Settings:     &settingsRepo{s, inTx},
		Delivery:     &deliveryRepo{s, inTx},
	}
}

// writeLock 返回解锁函数，事务外的写入额外持有 txMu
func (s *Store) writeLock(inTx bool) func() {
	if !inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !inTx {
			s.txMu.Unlock()
		}
	}
}

func (s *Store) nextModel() gorm.Model {
	s.seq++
	now := time.Now()
	return gorm.Model{ID: s.seq, CreatedAt: now, UpdatedAt: now}
}

type snapshot struct {
	seq           uint
	profiles      map[string]model.Profile
	conversations map[string]model.Conversation
	members       map[string][]string
	messages      map[int64]model.Message
	relationships map[string]model.Relationship
	follows       map[string]model.Follow
	settings      map[string]model.ConversationSettings
	deliveries    map[int64]map[string]int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := snapshot{
		seq:           s.seq,
		profiles:      cloneMap(s.profiles),
		conversations: cloneMap(s.conversations),
		members:       make(map[string][]string, len(s.members)),
		messages:      cloneMap(s.messages),
		relationships: cloneMap(s.relationships),
		follows:       cloneMap(s.follows),
		settings:      cloneMap(s.settings),
		deliveries:    make(map[int64]map[string]int64, len(s.deliveries)),
	}
	for k, v := range s.members {
		snap.members[k] = append([]string(nil), v...)
	}
	for k, v := range s.deliveries {
		snap.deliveries[k] = cloneMap(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = snap.seq
	s.profiles = snap.profiles
	s.conversations = snap.conversations
	s.members = snap.members
	s.messages = snap.messages
	s.relationships = snap.relationships
	s.follows = snap.follows
	s.settings = snap.settings
	s.deliveries = snap.deliveries
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func notFound(format string, args ...any) error {
	return errorx.Newf(errorx.CodeNotFound, format, args...)
}

func conflict(format string, args ...any) error {
	return errorx.Newf(errorx.CodeConflict, format, args...)
}

// ==================== Profile ====================

type profileRepo struct {
	s    *Store
	inTx bool
}

func (r *profileRepo) FindByUuid(_ context.Context, uuid string) (*model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.profiles[uuid]
	if !ok {
		return nil, notFound("profile %s not found", uuid)
	}
	return &p, nil
}

func (r *profileRepo) FindByUuids(_ context.Context, uuids []string) ([]model.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Profile, 0, len(uuids))
	for _, id := range uuids {
		if p, ok := r.s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *profileRepo) Upsert(_ context.Context, profile *model.Profile) error {
	defer r.s.writeLock(r.inTx)()
	if existing, ok := r.s.profiles[profile.Uuid]; ok {
		existing.Nickname = profile.Nickname
		existing.IsPrivate = profile.IsPrivate
		existing.UpdatedAt = time.Now()
		r.s.profiles[profile.Uuid] = existing
		*profile = existing
		return nil
	}
	profile.Model = r.s.nextModel()
	r.s.profiles[profile.Uuid] = *profile
	return nil
}

func (r *profileRepo) UpdatePresence(_ context.Context, uuid string, online bool, lastSeen *time.Time) error {
	defer r.s.writeLock(r.inTx)()
	p, ok := r.s.profiles[uuid]
	if !ok {
		return nil
	}
	p.IsOnline = online
	p.LastSeen = lastSeen
	r.s.profiles[uuid] = p
	return nil
}

// ==================== Conversation ====================

type conversationRepo struct {
	s    *Store
	inTx bool
}

func (r *conversationRepo) load(uuid string) (*model.Conversation, error) {
	c, ok := r.s.conversations[uuid]
	if !ok {
		return nil, notFound("conversation %s not found", uuid)
	}
	c.Profiles = append([]string(nil), r.s.members[uuid]...)
	return &c, nil
}

func (r *conversationRepo) FindByUuid(_ context.Context, uuid string) (*model.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.load(uuid)
}

// FindByUuidForUpdate 事务已经串行，无需额外加锁
func (r *conversationRepo) FindByUuidForUpdate(ctx context.Context, uuid string) (*model.Conversation, error) {
	return r.FindByUuid(ctx, uuid)
}

func (r *conversationRepo) FindPrivateByPair(_ context.Context, a, b string) (*model.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	key := model.PairKey(a, b)
	for uuid, c := range r.s.conversations {
		if c.PairKey != nil && *c.PairKey == key {
			return r.load(uuid)
		}
	}
	return nil, notFound("private conversation %s not found", key)
}

func (r *conversationRepo) Create(_ context.Context, conversation *model.Conversation, members []string) error {
	defer r.s.writeLock(r.inTx)()
	if _, ok := r.s.conversations[conversation.Uuid]; ok {
		return conflict("conversation %s exists", conversation.Uuid)
	}
	if conversation.PairKey != nil {
		for _, c := range r.s.conversations {
			if c.PairKey != nil && *c.PairKey == *conversation.PairKey {
				return conflict("private conversation %s exists", *conversation.PairKey)
			}
		}
	}
	conversation.Model = r.s.nextModel()
	conversation.Profiles = append([]string(nil), members...)
	stored := *conversation
	stored.Profiles = nil
	r.s.conversations[conversation.Uuid] = stored
	r.s.members[conversation.Uuid] = append([]string(nil), members...)
	return nil
}

func (r *conversationRepo) ClaimIcebreaker(_ context.Context, uuid string) (bool, error) {
	defer r.s.writeLock(r.inTx)()
	c, ok := r.s.conversations[uuid]
	if !ok || c.MessageLimit != 0 {
		return false, nil
	}
	c.MessageLimit = 1
	r.s.conversations[uuid] = c
	return true, nil
}

func (r *conversationRepo) SetApproved(_ context.Context, uuid string, approved bool) error {
	defer r.s.writeLock(r.inTx)()
	c, ok := r.s.conversations[uuid]
	if !ok {
		return nil
	}
	c.Approved = approved
	r.s.conversations[uuid] = c
	return nil
}

// ==================== Message ====================

type messageRepo struct {
	s    *Store
	inTx bool
}

func (r *messageRepo) Create(_ context.Context, message *model.Message) error {
	defer r.s.writeLock(r.inTx)()
	if _, ok := r.s.messages[message.Uuid]; ok {
		return conflict("message %d exists", message.Uuid)
	}
	message.Model = r.s.nextModel()
	r.s.messages[message.Uuid] = *message
	return nil
}

func (r *messageRepo) FindByUuid(_ context.Context, uuid int64) (*model.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[uuid]
	if !ok {
		return nil, notFound("message %d not found", uuid)
	}
	return &m, nil
}

func (r *messageRepo) FindByUuids(_ context.Context, uuids []int64) ([]model.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]model.Message, 0, len(uuids))
	for _, id := range uuids {
		if m, ok := r.s.messages[id]; ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *messageRepo) ExistsBySender(_ context.Context, conversationId, senderId string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.messages {
		if m.ConversationId == conversationId && m.SenderId == senderId {
			return true, nil
		}
	}
	return false, nil
}

func (r *messageRepo) MarkRead(_ context.Context, uuids []int64) (int64, error) {
	defer r.s.writeLock(r.inTx)()
	var n int64
	for _, id := range uuids {
		m, ok := r.s.messages[id]
		if !ok || m.IsRead {
			continue
		}
		m.IsRead = true
		r.s.messages[id] = m
		n++
	}
	return n, nil
}

// ==================== Relationship ====================

type relationshipRepo struct {
	s    *Store
	inTx bool
}

func (r *relationshipRepo) FindBetween(_ context.Context, a, b string) (*model.Relationship, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rel, ok := r.s.relationships[model.PairKey(a, b)]
	if !ok {
		return nil, notFound("relationship %s/%s not found", a, b)
	}
	return &rel, nil
}

func (r *relationshipRepo) Create(_ context.Context, relationship *model.Relationship) error {
	defer r.s.writeLock(r.inTx)()
	relationship.PairKey = model.PairKey(relationship.SenderId, relationship.ReceiverId)
	if _, ok := r.s.relationships[relationship.PairKey]; ok {
		return conflict("relationship %s exists", relationship.PairKey)
	}
	relationship.Model = r.s.nextModel()
	r.s.relationships[relationship.PairKey] = *relationship
	return nil
}

func (r *relationshipRepo) CompareAndSetStatus(_ context.Context, uuid string, from, to model.RelationshipStatus) (bool, error) {
	defer r.s.writeLock(r.inTx)()
	for key, rel := range r.s.relationships {
		if rel.Uuid != uuid {
			continue
		}
		if rel.Status != from {
			return false, nil
		}
		rel.Status = to
		rel.UpdatedAt = time.Now()
		r.s.relationships[key] = rel
		return true, nil
	}
	return false, nil
}

func (r *relationshipRepo) CompareAndReopen(_ context.Context, uuid string, from model.RelationshipStatus, senderId, receiverId string) (bool, error) {
	defer r.s.writeLock(r.inTx)()
	for key, rel := range r.s.relationships {
		if rel.Uuid != uuid {
			continue
		}
		if rel.Status != from {
			return false, nil
		}
		rel.Status = model.RelationshipPending
		rel.SenderId = senderId
		rel.ReceiverId = receiverId
		rel.UpdatedAt = time.Now()
		r.s.relationships[key] = rel
		return true, nil
	}
	return false, nil
}

// RelationshipCount 关系总数，用于断言唯一性
func (s *Store) RelationshipCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.relationships)
}

// ==================== Follow ====================

type followRepo struct {
	s    *Store
	inTx bool
}

func followKey(followerId, followingId string) string {
	return followerId + "->" + followingId
}

func (r *followRepo) Find(_ context.Context, followerId, followingId string) (*model.Follow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	f, ok := r.s.follows[followKey(followerId, followingId)]
	if !ok {
		return nil, notFound("follow %s->%s not found", followerId, followingId)
	}
	return &f, nil
}

func (r *followRepo) Create(_ context.Context, follow *model.Follow) error {
	defer r.s.writeLock(r.inTx)()
	key := followKey(follow.FollowerId, follow.FollowingId)
	if _, ok := r.s.follows[key]; ok {
		return conflict("follow %s exists", key)
	}
	follow.Model = r.s.nextModel()
	r.s.follows[key] = *follow
	return nil
}

func (r *followRepo) update(followerId, followingId string, fn func(*model.Follow)) {
	defer r.s.writeLock(r.inTx)()
	key := followKey(followerId, followingId)
	if f, ok := r.s.follows[key]; ok {
		fn(&f)
		r.s.follows[key] = f
	}
}

func (r *followRepo) UpdateStatus(_ context.Context, followerId, followingId string, status model.FollowStatus) error {
	r.update(followerId, followingId, func(f *model.Follow) { f.Status = status })
	return nil
}

func (r *followRepo) SetMutual(_ context.Context, followerId, followingId string, mutual bool) error {
	r.update(followerId, followingId, func(f *model.Follow) { f.IsMutual = mutual })
	return nil
}

func (r *followRepo) ListByProfile(_ context.Context, profileId string) ([]model.Follow, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []model.Follow
	for _, f := range r.s.follows {
		if f.FollowerId == profileId || f.FollowingId == profileId {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ==================== Settings ====================

type settingsRepo struct {
	s    *Store
	inTx bool
}

func settingsKey(profileId, conversationId string) string {
	return profileId + "@" + conversationId
}

func (r *settingsRepo) Find(_ context.Context, profileId, conversationId string) (*model.ConversationSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.settings[settingsKey(profileId, conversationId)]
	if !ok {
		return nil, notFound("settings %s@%s not found", profileId, conversationId)
	}
	return &st, nil
}

func (r *settingsRepo) EnsureDefaults(_ context.Context, conversationId string, profileIds []string) error {
	defer r.s.writeLock(r.inTx)()
	for _, id := range profileIds {
		key := settingsKey(id, conversationId)
		if _, ok := r.s.settings[key]; ok {
			continue
		}
		r.s.settings[key] = model.ConversationSettings{Model: r.s.nextModel(), ProfileId: id, ConversationId: conversationId}
	}
	return nil
}

func (r *settingsRepo) Save(_ context.Context, settings *model.ConversationSettings) error {
	defer r.s.writeLock(r.inTx)()
	key := settingsKey(settings.ProfileId, settings.ConversationId)
	if existing, ok := r.s.settings[key]; ok {
		settings.Model = existing.Model
		settings.UpdatedAt = time.Now()
	} else {
		settings.Model = r.s.nextModel()
	}
	r.s.settings[key] = *settings
	return nil
}

// ==================== Delivery ====================

type deliveryRepo struct {
	s    *Store
	inTx bool
}

func (r *deliveryRepo) NotifiedRecipients(_ context.Context, rootMessageId int64) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]string, 0, len(r.s.deliveries[rootMessageId]))
	for id := range r.s.deliveries[rootMessageId] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *deliveryRepo) Claim(_ context.Context, delivery *model.MessageDelivery) (bool, error) {
	defer r.s.writeLock(r.inTx)()
	byRecipient, ok := r.s.deliveries[delivery.RootMessageId]
	if !ok {
		byRecipient = map[string]int64{}
		r.s.deliveries[delivery.RootMessageId] = byRecipient
	}
	if _, exists := byRecipient[delivery.RecipientId]; exists {
		return false, nil
	}
	byRecipient[delivery.RecipientId] = delivery.MessageId
	return true, nil
}

func (r *deliveryRepo) Release(_ context.Context, rootMessageId int64, recipientId string) error {
	defer r.s.writeLock(r.inTx)()
	delete(r.s.deliveries[rootMessageId], recipientId)
	return nil
}

var (
	_ repository.ProfileRepository      = (*profileRepo)(nil)
	_ repository.ConversationRepository = (*conversationRepo)(nil)
	_ repository.MessageRepository      = (*messageRepo)(nil)
	_ repository.RelationshipRepository = (*relationshipRepo)(nil)
	_ repository.FollowRepository       = (*followRepo)(nil)
	_ repository.SettingsRepository     = (*settingsRepo)(nil)
	_ repository.DeliveryRepository     = (*deliveryRepo)(nil)
)
