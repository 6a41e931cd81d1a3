package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`

	API      APIConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Admin    AdminConfig
	Order    OrderConfig
}

type APIConfig struct {
	BaseURL        string        `env:"API_BASE_URL,required"`
	Key            string        `env:"API_KEY,required"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	PollInterval   time.Duration `env:"NOTIFICATION_POLL_INTERVAL" envDefault:"30s"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,required"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	TTL      time.Duration `env:"REDIS_TTL" envDefault:"24h"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST,required"`
	Port            int           `env:"DB_PORT,required"`
	User            string        `env:"DB_USER,required"`
	Password        string        `env:"DB_PASSWORD,required"`
	Name            string        `env:"DB_NAME,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

type AdminConfig struct {
	IDs       []int64 `env:"ADMIN_IDS" envSeparator:","`
	ChannelID int64   `env:"ADMIN_CHANNEL_ID"`
}

type OrderConfig struct {
	// MinTokens is the smallest inventory request a partner may place.
	MinTokens int `env:"MIN_ORDER_TOKENS" envDefault:"10"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if len(cfg.Admin.IDs) == 0 {
		return nil, fmt.Errorf("at least one admin ID is required")
	}
	if cfg.Order.MinTokens <= 0 {
		return nil, fmt.Errorf("MIN_ORDER_TOKENS must be positive")
	}

	return &cfg, nil
}
