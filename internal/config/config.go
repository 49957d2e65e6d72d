package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Upstream UpstreamConfig
	Sync     SyncConfig
	Telegram TelegramConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

type UpstreamConfig struct {
	BaseURL string
}

type SyncConfig struct {
	// Token gates the admin endpoints. An empty token leaves them open outside
	// production.
	Token           string
	IntervalMinutes int
}

type TelegramConfig struct {
	BotToken       string
	AllowedChatIDs string
	DefaultLimit   int
	// UpdateOffset seeds the long-poll cursor when no durable cursor exists yet.
	UpdateOffset int64
}

const defaultUpstreamBaseURL = "https://alljobs.teletalk.com.bd"

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key string) string {
		return strings.TrimSpace(os.Getenv(key))
	}
	optInt := func(key string, def int) int {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return def
		}
		return v
	}
	optSeconds := func(key string, def time.Duration) time.Duration {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return def
		}
		return time.Duration(v) * time.Second
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:     opt("DB_HOST"),
		DBPort:     opt("DB_PORT"),
		DBName:     opt("DB_NAME"),
		DBUser:     opt("DB_USER"),
		DBPassword: opt("DB_PASSWORD"),
		DBSSLMode:  opt("DB_SSL_MODE"),

		ConnectTimeout:        optSeconds("DB_CONNECT_TIMEOUT_SECONDS", 10*time.Second),
		PoolMaxConns:          int32(optInt("DB_POOL_MAX_CONNS", 10)),
		PoolMinConns:          int32(optInt("DB_POOL_MIN_CONNS", 0)),
		PoolMaxConnLifetime:   optSeconds("DB_POOL_MAX_CONN_LIFETIME_SECONDS", time.Hour),
		PoolMaxConnIdleTime:   optSeconds("DB_POOL_MAX_CONN_IDLE_SECONDS", 30*time.Minute),
		PoolHealthCheckPeriod: optSeconds("DB_POOL_HEALTH_CHECK_SECONDS", time.Minute),
	}

	base := opt("UPSTREAM_BASE_URL")
	if base == "" {
		base = defaultUpstreamBaseURL
	}
	cfg.Upstream = UpstreamConfig{BaseURL: strings.TrimRight(base, "/")}

	cfg.Sync = SyncConfig{
		Token:           opt("SYNC_TOKEN"),
		IntervalMinutes: optInt("SYNC_INTERVAL_MINUTES", 30),
	}
	if cfg.Sync.IntervalMinutes < 1 {
		cfg.Sync.IntervalMinutes = 1
	}

	offset, _ := strconv.ParseInt(opt("TELEGRAM_UPDATE_OFFSET"), 10, 64)
	cfg.Telegram = TelegramConfig{
		BotToken:       opt("TELEGRAM_BOT_TOKEN"),
		AllowedChatIDs: opt("TELEGRAM_ALLOWED_CHAT_IDS"),
		DefaultLimit:   optInt("DIGEST_JOBS_LIMIT", 25),
		UpdateOffset:   offset,
	}
	if cfg.Telegram.DefaultLimit < 1 {
		cfg.Telegram.DefaultLimit = 1
	}
	if cfg.Telegram.DefaultLimit > 100 {
		cfg.Telegram.DefaultLimit = 100
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func (c AppConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}
