// Package redis 在线状态与 last seen 使用的缓存
// presence 服务只依赖这里的接口，redis 与内存两种实现可互换
package redis

import (
	"context"
	"time"
)

// CacheService presence 需要的 key 与集合操作
type CacheService interface {
	// Set ttl 为 0 表示不过期
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get key 不存在时返回 ("", nil)
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	// AddToSet 在线集合，成员为 profile id
	AddToSet(ctx context.Context, key string, members ...any) error
	GetSetMembers(ctx context.Context, key string) ([]string, error)
	RemoveFromSet(ctx context.Context, key string, members ...any) error
}

// AsyncCacheService 附带 worker pool，last seen 这类可丢失的写入走 SubmitTask
type AsyncCacheService interface {
	CacheService
	SubmitTask(action func())
}
