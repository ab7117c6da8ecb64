// Package config 提供应用程序的配置加载和管理功能
// 使用 TOML 格式的配置文件，支持多路径查找，敏感项可由环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// 投递队列模式
const (
	DeliveryModeChannel = "channel"
	DeliveryModeKafka   = "kafka"
	DeliveryModeAsynq   = "asynq"
)

// 频道层模式
const (
	LayerModeMemory = "memory"
	LayerModeRedis  = "redis"
)

// 存储模式
const (
	StorageModeMySQL  = "mysql"
	StorageModeMemory = "memory"
)

// MainConfig 主配置，包含应用基本信息
type MainConfig struct {
	AppName     string `toml:"appName"`     // 应用名称
	Host        string `toml:"host"`        // 监听地址，如 "0.0.0.0"
	Port        int    `toml:"port"`        // 监听端口，如 8000
	Mode        string `toml:"mode"`        // gin 模式：debug / release
	TLSRedirect bool   `toml:"tlsRedirect"` // 是否将 HTTP 重定向到 HTTPS
	TLSHost     string `toml:"tlsHost"`     // 重定向目标，如 "chat.example.com:443"
}

// MysqlConfig MySQL 数据库连接配置
type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

// DSN 拼接 gorm mysql 驱动所需的连接串
func (m MysqlConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		m.User, m.Password, m.Host, m.Port, m.DatabaseName)
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Password string `toml:"password"` // 无密码留空
	Db       int    `toml:"db"`
}

// Addr 返回 host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig 日志配置，使用 lumberjack 进行日志轮转
type LogConfig struct {
	LogPath    string `toml:"logPath"`    // 日志文件存储目录
	FileName   string `toml:"fileName"`   // 日志文件名
	MaxSize    int    `toml:"maxSize"`    // 单个日志文件最大大小（MB）
	MaxBackups int    `toml:"maxBackups"` // 保留旧日志文件的最大个数
	MaxAge     int    `toml:"maxAge"`     // 保留旧日志文件的最大天数
	Level      string `toml:"level"`      // debug, info, warn, error
}

// KafkaConfig Kafka 投递队列配置（deliveryConfig.mode = "kafka" 时使用）
type KafkaConfig struct {
	HostPort      string `toml:"hostPort"`      // 如 "localhost:9092"
	DeliveryTopic string `toml:"deliveryTopic"` // 投递任务主题
	GroupID       string `toml:"groupId"`       // 消费组
	Partition     int    `toml:"partition"`     // 创建主题时的分区数
	Timeout       int    `toml:"timeout"`       // 写超时（秒）
}

// DeliveryConfig 投递任务队列与 worker 配置
type DeliveryConfig struct {
	Mode      string `toml:"mode"`      // "channel" / "kafka" / "asynq"
	Workers   int    `toml:"workers"`   // 并发 worker 数
	QueueSize int    `toml:"queueSize"` // channel 模式缓冲区大小
	MaxRetry  int    `toml:"maxRetry"`  // asynq 模式最大重试次数
}

// LayerConfig 频道组发布订阅配置
type LayerConfig struct {
	Mode          string `toml:"mode"`          // "memory" 单机 / "redis" 多节点
	ChannelPrefix string `toml:"channelPrefix"` // redis 频道前缀
}

// PresenceConfig 在线状态配置
type PresenceConfig struct {
	// 断开最后一个连接时是否置为离线，默认 false 只广播不落库
	MarkOfflineOnDisconnect bool `toml:"markOfflineOnDisconnect"`
}

// StorageConfig 存储后端配置
type StorageConfig struct {
	Mode string `toml:"mode"` // "mysql" / "memory"（本地调试）
}

// JWTConfig JWT 认证配置
type JWTConfig struct {
	Secret            string `toml:"secret"`            // 签名密钥，建议 32 字符以上
	AccessTokenExpiry int    `toml:"accessTokenExpiry"` // Access Token 有效期（分钟）
}

// SnowflakeConfig 雪花算法配置
type SnowflakeConfig struct {
	MachineID int64 `toml:"machineId"` // 0-1023
}

// Config 应用程序总配置，聚合所有子配置
type Config struct {
	MainConfig      `toml:"mainConfig"`
	MysqlConfig     `toml:"mysqlConfig"`
	RedisConfig     `toml:"redisConfig"`
	LogConfig       `toml:"logConfig"`
	KafkaConfig     `toml:"kafkaConfig"`
	DeliveryConfig  `toml:"deliveryConfig"`
	LayerConfig     `toml:"layerConfig"`
	PresenceConfig  `toml:"presenceConfig"`
	StorageConfig   `toml:"storageConfig"`
	JWTConfig       `toml:"jwtConfig"`
	SnowflakeConfig `toml:"snowflakeConfig"`
}

// envOverrides 环境变量覆盖项，前缀 GATED，例如 GATED_MYSQL_PASSWORD
type envOverrides struct {
	MysqlHost     string `envconfig:"MYSQL_HOST"`
	MysqlPort     int    `envconfig:"MYSQL_PORT"`
	MysqlUser     string `envconfig:"MYSQL_USER"`
	MysqlPassword string `envconfig:"MYSQL_PASSWORD"`
	MysqlDatabase string `envconfig:"MYSQL_DATABASE"`
	RedisHost     string `envconfig:"REDIS_HOST"`
	RedisPort     int    `envconfig:"REDIS_PORT"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	KafkaHostPort string `envconfig:"KAFKA_HOST_PORT"`
	JWTSecret     string `envconfig:"JWT_SECRET"`
	DeliveryMode  string `envconfig:"DELIVERY_MODE"`
	LayerMode     string `envconfig:"LAYER_MODE"`
	StorageMode   string `envconfig:"STORAGE_MODE"`
	Port          int    `envconfig:"PORT"`
}

const envPrefix = "GATED"

// DefaultPaths 候选配置文件路径（优先加载本地配置）
var DefaultPaths = []string{
	"configs/config_local.toml",
	"configs/config.toml",
	"../../configs/config_local.toml",
	"../../configs/config.toml",
}

// Load 依次尝试候选路径，加载第一个存在的配置文件，再叠加 .env 与环境变量
// 所有路径都不存在时仅使用默认值和环境变量
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	cfg := new(Config)
	for _, path := range paths {
		_, err := toml.DecodeFile(path, cfg)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	// .env 不存在不算错误
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return nil, fmt.Errorf("process env overrides: %w", err)
	}
	cfg.applyEnv(env)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(env envOverrides) {
	overrideString(&c.MysqlConfig.Host, env.MysqlHost)
	overrideInt(&c.MysqlConfig.Port, env.MysqlPort)
	overrideString(&c.MysqlConfig.User, env.MysqlUser)
	overrideString(&c.MysqlConfig.Password, env.MysqlPassword)
	overrideString(&c.MysqlConfig.DatabaseName, env.MysqlDatabase)
	overrideString(&c.RedisConfig.Host, env.RedisHost)
	overrideInt(&c.RedisConfig.Port, env.RedisPort)
	overrideString(&c.RedisConfig.Password, env.RedisPassword)
	overrideString(&c.KafkaConfig.HostPort, env.KafkaHostPort)
	overrideString(&c.JWTConfig.Secret, env.JWTSecret)
	overrideString(&c.DeliveryConfig.Mode, env.DeliveryMode)
	overrideString(&c.LayerConfig.Mode, env.LayerMode)
	overrideString(&c.StorageConfig.Mode, env.StorageMode)
	overrideInt(&c.MainConfig.Port, env.Port)
}

func (c *Config) applyDefaults() {
	setString(&c.MainConfig.AppName, "gated_chat_server")
	setString(&c.MainConfig.Host, "0.0.0.0")
	setInt(&c.MainConfig.Port, 8000)
	setString(&c.MainConfig.Mode, "debug")
	setString(&c.LogConfig.LogPath, "./logs")
	setString(&c.LogConfig.Level, "info")
	setString(&c.KafkaConfig.DeliveryTopic, "delivery_jobs")
	setString(&c.KafkaConfig.GroupID, "delivery")
	setInt(&c.KafkaConfig.Timeout, 3)
	setInt(&c.KafkaConfig.Partition, 3)
	setString(&c.DeliveryConfig.Mode, DeliveryModeChannel)
	setInt(&c.DeliveryConfig.Workers, 8)
	setInt(&c.DeliveryConfig.QueueSize, 1024)
	setInt(&c.DeliveryConfig.MaxRetry, 5)
	setString(&c.LayerConfig.Mode, LayerModeMemory)
	setString(&c.LayerConfig.ChannelPrefix, "group:")
	setString(&c.StorageConfig.Mode, StorageModeMySQL)
	setInt(&c.JWTConfig.AccessTokenExpiry, 60)
}

// Validate 校验枚举类配置
func (c *Config) Validate() error {
	switch c.DeliveryConfig.Mode {
	case DeliveryModeChannel, DeliveryModeKafka, DeliveryModeAsynq:
	default:
		return fmt.Errorf("unknown delivery mode %q", c.DeliveryConfig.Mode)
	}
	switch c.LayerConfig.Mode {
	case LayerModeMemory, LayerModeRedis:
	default:
		return fmt.Errorf("unknown layer mode %q", c.LayerConfig.Mode)
	}
	switch c.StorageConfig.Mode {
	case StorageModeMySQL, StorageModeMemory:
	default:
		return fmt.Errorf("unknown storage mode %q", c.StorageConfig.Mode)
	}
	if c.DeliveryConfig.Mode == DeliveryModeKafka && c.KafkaConfig.HostPort == "" {
		return errors.New("kafka delivery mode requires kafkaConfig.hostPort")
	}
	if c.JWTConfig.Secret == "" {
		return errors.New("jwtConfig.secret is required")
	}
	return nil
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 && v != 0 {
		*dst = v
	}
}

// config 全局配置单例，延迟加载
var config *Config

// GetConfig 获取全局配置实例，首次调用时加载，失败直接退出
func GetConfig() *Config {
	if config == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		config = cfg
	}
	return config
}
