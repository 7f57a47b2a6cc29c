package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Telegram TelegramConfig
	Stats    StatsConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type TelegramConfig struct {
	APIBase    string
	BotToken   string
	ChatID     string
	PhotoDelay time.Duration
}

type StatsConfig struct {
	RefreshInterval time.Duration
}

func LoadAll() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			// Optional on purpose: a missing store config makes the endpoints
			// fail closed instead of preventing startup.
			PostgresURL: os.Getenv("POSTGRES_URL"),
		},
		Telegram: TelegramConfig{
			APIBase:    getEnv("TELEGRAM_API_BASE", "https://api.telegram.org"),
			BotToken:   os.Getenv("BOT_TOKEN"),
			ChatID:     os.Getenv("CHAT_ID"),
			PhotoDelay: time.Duration(getEnvInt("PHOTO_DELAY_MS", 500)) * time.Millisecond,
		},
		Stats: StatsConfig{
			RefreshInterval: time.Duration(getEnvInt("STATS_REFRESH_SECONDS", 300)) * time.Second,
		},
		Redis: loadRedisConfig(),
	}

	validate(cfg)
	return cfg, nil
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
		TTL:      time.Duration(getEnvInt("STATS_CACHE_TTL_SECONDS", 10)) * time.Second,
	}
}

// StoreConfigured reports whether the backing store can be opened.
func (c *Config) StoreConfigured() bool {
	return c.Database.PostgresURL != ""
}

// RelayConfigured reports whether the Telegram relay has credentials.
func (c *Config) RelayConfigured() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func validate(cfg *Config) {
	if cfg.Telegram.PhotoDelay < 0 {
		panic("PHOTO_DELAY_MS must be >= 0")
	}
	if cfg.Stats.RefreshInterval <= 0 {
		panic("STATS_REFRESH_SECONDS must be > 0")
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL <= 0 {
		panic("STATS_CACHE_TTL_SECONDS must be > 0")
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}
