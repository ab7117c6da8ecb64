package mq

import (
	"fmt"

	"gated_chat_server/internal/config"

	"go.uber.org/zap"
)

// New 按 deliveryConfig.mode 选择队列实现
func New(cfg *config.Config, lg *zap.Logger) (Queue, error) {
	switch cfg.DeliveryConfig.Mode {
	case config.DeliveryModeChannel:
		return NewChannelQueue(cfg.DeliveryConfig.QueueSize, cfg.DeliveryConfig.MaxRetry, lg), nil
	case config.DeliveryModeKafka:
		EnsureTopic(cfg.KafkaConfig, lg)
		return NewKafkaQueue(cfg.KafkaConfig, cfg.DeliveryConfig.MaxRetry, lg), nil
	case config.DeliveryModeAsynq:
		return NewAsynqQueue(cfg.RedisConfig, cfg.DeliveryConfig, lg)
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.DeliveryConfig.Mode)
	}
}
