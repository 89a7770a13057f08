package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"sibyl/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	AI            AIConfig
	Market        MarketConfig
	Trading       TradingConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"sibyl"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"SERVER_PORT" default:"8000"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"sibyl"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"sibyl"`
	Database string `envconfig:"POSTGRES_DB" default:"sibyl"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig configures the optional market snapshot cache.
// Caching is disabled when Host is empty.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// KafkaConfig configures the optional trade event publisher.
// Publishing is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers    []string `envconfig:"KAFKA_BROKERS"`
	TradeTopic string   `envconfig:"KAFKA_TRADE_TOPIC" default:"sibyl.trades"`
}

func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// TelegramConfig configures optional trade notifications.
type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	ChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

type AIConfig struct {
	OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
	BaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	DecisionModel string        `envconfig:"DECISION_MODEL" default:"gpt-4.1"`
	Timeout       time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	RatePerMinute float64       `envconfig:"AI_RATE_PER_MINUTE" default:"60"`
}

type MarketConfig struct {
	Asset             string        `envconfig:"MARKET_ASSET" default:"bitcoin"`
	VsCurrency        string        `envconfig:"MARKET_VS_CURRENCY" default:"usd"`
	NewsAPIKey        string        `envconfig:"CRYPTOPANIC_API_KEY"`
	NewsCurrencies    []string      `envconfig:"NEWS_CURRENCIES" default:"BTC"`
	RequestTimeout    time.Duration `envconfig:"MARKET_REQUEST_TIMEOUT" default:"10s"`
	SnapshotCacheTTL  time.Duration `envconfig:"MARKET_SNAPSHOT_CACHE_TTL" default:"10s"`
	HeadlinesPerCycle int           `envconfig:"MARKET_HEADLINES_PER_CYCLE" default:"3"`
}

// TradingConfig holds process-level trading safety switches. Tunable trading
// parameters live in the persisted settings record, not here.
type TradingConfig struct {
	// AutoTradeFullPipeline selects what a scheduled cycle runs: when false the
	// auto-trade loop records a HOLD without consulting the decision model,
	// bounding model spend; when true it runs the full pipeline
	AutoTradeFullPipeline bool `envconfig:"AUTO_TRADE_FULL_PIPELINE" default:"false"`

	// CycleBackoff is how long the auto-trade loop waits after a failed cycle
	CycleBackoff time.Duration `envconfig:"AUTO_TRADE_CYCLE_BACKOFF" default:"60s"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables, loading .env first if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env config")
	}

	return &cfg, nil
}
