package redis

import (
	"context"
	"fmt"

	"gated_chat_server/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Init 创建 Redis 客户端并检查连通性，同时返回带 worker pool 的缓存服务
func Init(ctx context.Context, cfg config.RedisConfig, lg *zap.Logger) (*redis.Client, *RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.Db,
		PoolSize:     50,
		MinIdleConns: 15, // 与 worker 数量匹配
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Addr(), err)
	}
	// 15 个 worker，缓冲区 3000，多个 Service 共享
	return client, NewRedisCache(client, 15, 3000, lg), nil
}
