package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger       `mapstructure:"logger"`
	API          API          `mapstructure:"api"`
	Executor     Executor     `mapstructure:"executor"`
	OpenClaw     OpenClaw     `mapstructure:"openclaw"`
	Cache        Cache        `mapstructure:"cache"`
	Events       Events       `mapstructure:"events"`
	Webhook      Webhook      `mapstructure:"webhook"`
	Housekeeping Housekeeping `mapstructure:"housekeeping"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type API struct {
	Port int `mapstructure:"port"`
}

// Executor controls admission and worker supervision.
type Executor struct {
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`
	MaxTimeout      time.Duration `mapstructure:"max_timeout"`
	Binary          string        `mapstructure:"binary"`
	CallbackBaseURL string        `mapstructure:"callback_base_url"`
}

// OpenClaw points at the external worker's gateway and local artifacts.
type OpenClaw struct {
	GatewayURL     string        `mapstructure:"gateway_url"`
	AuthToken      string        `mapstructure:"auth_token"`
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	StatusCacheTTL time.Duration `mapstructure:"status_cache_ttl"`
	MemoryDir      string        `mapstructure:"memory_dir"`
	LogFile        string        `mapstructure:"log_file"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type Events struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	SubscriberBuffer  int           `mapstructure:"subscriber_buffer"`
}

type Webhook struct {
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type Housekeeping struct {
	Schedule     string `mapstructure:"schedule"`
	KeepTerminal int    `mapstructure:"keep_terminal"`
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 3001)
	viper.SetDefault("executor.max_concurrency", 2)
	viper.SetDefault("executor.default_timeout", 300*time.Second)
	viper.SetDefault("executor.max_timeout", 600*time.Second)
	viper.SetDefault("executor.binary", "openclaw")
	viper.SetDefault("executor.callback_base_url", "http://localhost:3001")
	viper.SetDefault("openclaw.gateway_url", "http://localhost:18789")
	viper.SetDefault("openclaw.gateway_timeout", 3*time.Second)
	viper.SetDefault("openclaw.status_cache_ttl", 15*time.Second)
	viper.SetDefault("openclaw.memory_dir", "/root/clawd/memory")
	viper.SetDefault("openclaw.log_file", "/tmp/openclaw/openclaw.log")
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("events.heartbeat_interval", 30*time.Second)
	viper.SetDefault("events.subscriber_buffer", 64)
	viper.SetDefault("webhook.rate_per_second", 10)
	viper.SetDefault("webhook.burst", 30)
	viper.SetDefault("housekeeping.schedule", "@every 10m")
	viper.SetDefault("housekeeping.keep_terminal", 50)
}

func Load() (*Config, error) {
	// .env is optional; real env vars always win.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
