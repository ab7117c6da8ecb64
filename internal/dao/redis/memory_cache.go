package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache 进程内缓存，未配置 Redis 的单机模式与测试使用
type MemoryCache struct {
	mu       sync.Mutex
	values   map[string]memoryValue
	sets     map[string]map[string]struct{}
	taskChan chan func()
	lg       *zap.Logger
	wg       sync.WaitGroup
	once     sync.Once
}

type memoryValue struct {
	value    string
	expireAt time.Time
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache(workerNum, taskChanSize int, lg *zap.Logger) *MemoryCache {
	mc := &MemoryCache{
		values:   map[string]memoryValue{},
		sets:     map[string]map[string]struct{}{},
		taskChan: make(chan func(), taskChanSize),
		lg:       lg,
	}
	startWorkers(&mc.wg, mc.taskChan, workerNum, lg)
	return mc
}

func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := memoryValue{value: value}
	if ttl > 0 {
		v.expireAt = time.Now().Add(ttl)
	}
	m.values[key] = v
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", nil
	}
	if !v.expireAt.IsZero() && time.Now().After(v.expireAt) {
		delete(m.values, key)
		return "", nil
	}
	return v.value, nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	delete(m.sets, key)
	return nil
}

func (m *MemoryCache) AddToSet(_ context.Context, key string, members ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		set = map[string]struct{}{}
		m.sets[key] = set
	}
	for _, member := range members {
		set[toString(member)] = struct{}{}
	}
	return nil
}

func (m *MemoryCache) GetSetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryCache) RemoveFromSet(_ context.Context, key string, members ...interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[key], toString(member))
	}
	return nil
}

func (m *MemoryCache) SubmitTask(action func()) {
	submit(m.taskChan, action, m.lg)
}

// Close 停止 worker
func (m *MemoryCache) Close() {
	m.once.Do(func() {
		close(m.taskChan)
		m.wg.Wait()
	})
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

var _ AsyncCacheService = (*MemoryCache)(nil)
