package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Market   MarketConfig   `mapstructure:"market"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Recorder RecorderConfig `mapstructure:"recorder"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// MarketConfig drives the quote pipeline: which upstream provider is active,
// how often the scheduler polls, and the per-batch fetch timeout.
type MarketConfig struct {
	Provider        string `mapstructure:"provider"` // "polygon" or "finnhub", read once at startup
	PolygonAPIKey   string `mapstructure:"polygon_api_key"`
	FinnhubAPIKey   string `mapstructure:"finnhub_api_key"`
	PollIntervalMS  int    `mapstructure:"poll_interval_ms"`
	FetchTimeoutSec int    `mapstructure:"fetch_timeout_sec"`
	HeartbeatSec    int    `mapstructure:"heartbeat_sec"`
	TickersFile     string `mapstructure:"tickers_file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type RecorderConfig struct {
	NumWorkers   int `mapstructure:"num_workers"`
	HistoryDepth int `mapstructure:"history_depth"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults (12-Factor App: Dev/Prod Parity)
	v.SetDefault("app.port", ":5000")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")

	v.SetDefault("market.provider", "polygon")
	v.SetDefault("market.polygon_api_key", "")
	v.SetDefault("market.finnhub_api_key", "")
	v.SetDefault("market.poll_interval_ms", 60000)
	v.SetDefault("market.fetch_timeout_sec", 10)
	v.SetDefault("market.heartbeat_sec", 30)
	v.SetDefault("market.tickers_file", "tickers.yaml")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")
	v.SetDefault("kafka.group_id", "quote-recorder-group")

	v.SetDefault("recorder.num_workers", 4)
	v.SetDefault("recorder.history_depth", 500)

	// 3. Configure Viper to read Environment Variables
	// Maps dot-notation to underscores (e.g., "market.provider" -> "MARKET_PROVIDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys
	// Crucial for Viper to map flat Env Vars (MARKET_PROVIDER) to nested structs (Market.Provider)
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level")
	bindEnv(v, "market.provider", "market.polygon_api_key", "market.finnhub_api_key",
		"market.poll_interval_ms", "market.fetch_timeout_sec", "market.heartbeat_sec",
		"market.tickers_file")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic", "kafka.group_id")
	bindEnv(v, "recorder.num_workers", "recorder.history_depth")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	// 6. Basic Validation
	switch cfg.Market.Provider {
	case "polygon", "finnhub":
	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.Market.Provider)
	}
	if cfg.Market.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("market poll interval must be positive")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers cannot be empty")
	}

	return &cfg, nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
