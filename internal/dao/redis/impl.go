package redis

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gated_chat_server/pkg/errorx"
)

// RedisCache Redis 缓存实现
// 同时实现 CacheService 与 AsyncCacheService，调用方按需声明最小接口
type RedisCache struct {
	client   *redis.Client
	taskChan chan func()
	lg       *zap.Logger
	wg       sync.WaitGroup
	once     sync.Once
}

// NewRedisCache 创建 Redis 缓存实例并启动 worker pool
func NewRedisCache(client *redis.Client, workerNum, taskChanSize int, lg *zap.Logger) *RedisCache {
	rc := &RedisCache{
		client:   client,
		taskChan: make(chan func(), taskChanSize),
		lg:       lg,
	}
	startWorkers(&rc.wg, rc.taskChan, workerNum, lg)
	lg.Info("redis cache workers started", zap.Int("workers", workerNum), zap.Int("buffer", taskChanSize))
	return rc
}

// startWorkers 启动 worker，单个任务 panic 后 worker 自动重启
func startWorkers(wg *sync.WaitGroup, tasks <-chan func(), n int, lg *zap.Logger) {
	var run func()
	run = func() {
		defer func() {
			if rec := recover(); rec != nil {
				lg.Error("cache worker panic", zap.Any("recover", rec))
				go run()
				return
			}
			wg.Done()
		}()
		for task := range tasks {
			if task != nil {
				task()
			}
		}
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go run()
	}
}

// submit 缓冲区满时降级为同步执行
func submit(tasks chan<- func(), action func(), lg *zap.Logger) {
	select {
	case tasks <- action:
	default:
		lg.Warn("cache task channel full, executing synchronously")
		action()
	}
}

// ==================== String 操作 ====================

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis set key %s", key)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", errorx.Wrapf(err, errorx.CodeCacheError, "redis get key %s", key)
	}
	return value, nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Unlink(ctx, key).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis unlink key %s", key)
	}
	return nil
}

// ==================== Set 集合操作 ====================

func (r *RedisCache) AddToSet(ctx context.Context, key string, members ...interface{}) error {
	if err := r.client.SAdd(ctx, key, members...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis sadd key %s", key)
	}
	return nil
}

func (r *RedisCache) GetSetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, errorx.Wrapf(err, errorx.CodeCacheError, "redis smembers key %s", key)
	}
	return members, nil
}

func (r *RedisCache) RemoveFromSet(ctx context.Context, key string, members ...interface{}) error {
	if err := r.client.SRem(ctx, key, members...).Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeCacheError, "redis srem key %s", key)
	}
	return nil
}

// ==================== 异步任务 ====================

func (r *RedisCache) SubmitTask(action func()) {
	submit(r.taskChan, action, r.lg)
}

// Close 停止接收任务并等待 worker 退出
func (r *RedisCache) Close() {
	r.once.Do(func() {
		close(r.taskChan)
		r.wg.Wait()
	})
}

var _ AsyncCacheService = (*RedisCache)(nil)
