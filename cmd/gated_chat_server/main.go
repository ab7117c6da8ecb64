package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gated_chat_server/internal/config"
	"gated_chat_server/internal/dao/memory"
	dao "gated_chat_server/internal/dao/mysql"
	"gated_chat_server/internal/dao/mysql/repository"
	myredis "gated_chat_server/internal/dao/redis"
	"gated_chat_server/internal/handler"
	"gated_chat_server/internal/https_server"
	"gated_chat_server/internal/infrastructure/identity"
	"gated_chat_server/internal/infrastructure/layer"
	"gated_chat_server/internal/infrastructure/logger"
	"gated_chat_server/internal/infrastructure/mq"
	"gated_chat_server/internal/service"
	"gated_chat_server/internal/service/chat"
	"gated_chat_server/pkg/util/jwt"
	"gated_chat_server/pkg/util/snowflake"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	conf := config.GetConfig()

	// 2. 初始化日志
	lg, err := logger.Init(&conf.LogConfig, conf.MainConfig.Mode)
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer func() { _ = lg.Sync() }()
	gin.SetMode(conf.MainConfig.Mode)

	jwt.Init(conf.JWTConfig.Secret, conf.JWTConfig.AccessTokenExpiry)
	snowflake.Init(conf.SnowflakeConfig.MachineID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 存储
	var repos *repository.Repositories
	if conf.StorageConfig.Mode == config.StorageModeMemory {
		repos = memory.NewRepositories()
		lg.Warn("使用内存存储，重启后数据丢失")
	} else {
		repos, _, err = dao.Init(conf.MysqlConfig)
		if err != nil {
			lg.Fatal("数据库初始化失败", zap.Error(err))
		}
	}
	lg.Info("存储初始化成功", zap.String("mode", conf.StorageConfig.Mode))

	// 4. Redis：频道层或 asynq 需要时才连接
	var (
		redisClient *redis.Client
		cache       myredis.AsyncCacheService
	)
	if conf.LayerConfig.Mode == config.LayerModeRedis || conf.DeliveryConfig.Mode == config.DeliveryModeAsynq {
		var redisCache *myredis.RedisCache
		redisClient, redisCache, err = myredis.Init(ctx, conf.RedisConfig, lg.Named("redis"))
		if err != nil {
			lg.Fatal("Redis 初始化失败", zap.Error(err))
		}
		defer redisClient.Close()
		defer redisCache.Close()
		cache = redisCache
	} else {
		memCache := myredis.NewMemoryCache(4, 1024, lg.Named("cache"))
		defer memCache.Close()
		cache = memCache
	}

	// 5. 投递队列
	queue, err := mq.New(conf, lg.Named("mq"))
	if err != nil {
		lg.Fatal("投递队列初始化失败", zap.Error(err))
	}

	// 6. 频道层
	var groups layer.Layer
	if conf.LayerConfig.Mode == config.LayerModeRedis {
		groups, err = layer.NewRedisLayer(ctx, redisClient, conf.LayerConfig.ChannelPrefix, lg.Named("layer"))
		if err != nil {
			lg.Fatal("频道层初始化失败", zap.Error(err))
		}
	} else {
		groups = layer.NewMemoryLayer()
	}

	// 7. Service 层与实时 hub
	svcs := service.NewServices(service.Deps{
		Repos:  repos,
		Queue:  queue,
		Cache:  cache,
		Logger: lg,
	})
	verifier := identity.NewVerifier(repos.Profile, lg.Named("identity"))
	hub := chat.NewHub(verifier, groups, svcs.Presence, svcs.Message, chat.Options{
		MarkOfflineOnDisconnect: conf.PresenceConfig.MarkOfflineOnDisconnect,
	}, lg.Named("hub"))

	workers := chat.NewDeliveryWorkerPool(queue, hub, svcs.Message, conf.DeliveryConfig.Workers, lg.Named("delivery"))
	workers.Start(ctx)

	// 8. HTTP 服务
	if err := handler.InitTrans("zh"); err != nil {
		lg.Fatal("validator 翻译器初始化失败", zap.Error(err))
	}
	engine := https_server.Init(handler.NewHandlers(svcs, hub), verifier, &conf.MainConfig)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.MainConfig.Host, conf.MainConfig.Port),
		Handler: engine,
	}
	go func() {
		lg.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server running fault", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", zap.Error(err))
	}
	hub.Close()
	if err := queue.Close(); err != nil {
		lg.Error("close queue", zap.Error(err))
	}
	workers.Stop()
	if err := groups.Close(); err != nil {
		lg.Error("close layer", zap.Error(err))
	}
	lg.Info("服务器已关闭")
}
