package layer

import (
	"context"
	"sync"
)

// MemoryLayer 单进程内的频道组
type MemoryLayer struct {
	mu     sync.RWMutex
	groups map[string]map[Receiver]struct{}
}

func NewMemoryLayer() *MemoryLayer {
	return &MemoryLayer{groups: map[string]map[Receiver]struct{}{}}
}

func (m *MemoryLayer) GroupAdd(_ context.Context, group string, r Receiver) error {
	m.add(group, r)
	return nil
}

// add 返回加入前该组是否为空
func (m *MemoryLayer) add(group string, r Receiver) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.groups[group]
	if !ok {
		members = map[Receiver]struct{}{}
		m.groups[group] = members
	}
	members[r] = struct{}{}
	return len(members) == 1
}

func (m *MemoryLayer) GroupDiscard(_ context.Context, group string, r Receiver) error {
	m.discard(group, r)
	return nil
}

// discard 返回移除后该组是否为空
func (m *MemoryLayer) discard(group string, r Receiver) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.groups[group]
	if !ok {
		return false
	}
	delete(members, r)
	if len(members) == 0 {
		delete(m.groups, group)
		return true
	}
	return false
}

func (m *MemoryLayer) GroupSend(_ context.Context, group string, data []byte) (int, error) {
	return m.deliver(group, data), nil
}

func (m *MemoryLayer) deliver(group string, data []byte) int {
	m.mu.RLock()
	receivers := make([]Receiver, 0, len(m.groups[group]))
	for r := range m.groups[group] {
		receivers = append(receivers, r)
	}
	m.mu.RUnlock()

	for _, r := range receivers {
		r.Receive(group, data)
	}
	return len(receivers)
}

// Size 组内本机接收方数量
func (m *MemoryLayer) Size(group string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups[group])
}

func (m *MemoryLayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = map[string]map[Receiver]struct{}{}
	return nil
}

var _ Layer = (*MemoryLayer)(nil)
