package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env string `validate:"oneof=development production test"`

	// Storage
	DatabaseDriver string `validate:"oneof=mysql postgres clickhouse sqlite"`
	DatabaseURL    string
	RedisURL       string `validate:"omitempty,url"`
	PushgatewayURL string `validate:"omitempty,url"`

	// Aggregation window
	RetentionDays   int     `validate:"min=1,max=365"`
	MinRankID       int     `validate:"min=0"`
	ConfidenceLevel float64 `validate:"gte=0.5,lt=1"`

	// Loading
	LoadMode       string `validate:"oneof=stream bulk"`
	FetchBatchSize int    `validate:"min=1"`

	// Orchestration
	WorkerCount     int `validate:"min=0"`
	AggregateShards int `validate:"min=0"`

	ThreeVsThreeMinGames int `validate:"min=1"`
	HighestRankTarget    int `validate:"min=0"`

	// Output
	OutputRoot string        `validate:"required"`
	RunTimeout time.Duration `validate:"gt=0"`
	Timezone   string        `validate:"required"`

	// serve
	HTTPAddr       string `validate:"required"`
	AllowedOrigins []string
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing or out of range.
func Load() (*Config, error) {
	return load(true)
}

// LoadOptionalDatabase is Load for commands that work without the store:
// DATABASE_URL may be unset.
func LoadOptionalDatabase() (*Config, error) {
	return load(false)
}

func load(requireDatabase bool) (*Config, error) {
	cfg := &Config{
		Env: getEnv("ENV", "production"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "mysql"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),

		RetentionDays:   getEnvInt("DATA_RETENTION_DAYS", 30),
		MinRankID:       getEnvInt("MIN_RANK_ID", 4),
		ConfidenceLevel: getEnvFloat("CONFIDENCE_LEVEL", 0.95),

		LoadMode:       getEnv("LOAD_MODE", "stream"),
		FetchBatchSize: getEnvInt("FETCH_BATCH_SIZE", 100_000),

		WorkerCount:     getEnvInt("WORKER_COUNT", 0),
		AggregateShards: getEnvInt("AGGREGATE_SHARDS", 0),

		ThreeVsThreeMinGames: getEnvInt("THREE_VS_THREE_MIN_GAMES", 4),
		HighestRankTarget:    getEnvInt("HIGHEST_RANK_TARGET", 22),

		OutputRoot: getEnv("OUTPUT_ROOT", "data/output"),
		RunTimeout: getEnvDuration("RUN_TIMEOUT", 2*time.Hour),
		Timezone:   getEnv("TIMEZONE", "Asia/Tokyo"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
	}

	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if requireDatabase {
		var err error
		if cfg.DatabaseURL, err = getEnvRequired("DATABASE_URL"); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks every field against its constraints. It is called by Load and
// again after command line flags override values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: TIMEZONE: %w", err)
	}
	return nil
}

// Location returns the timezone used to derive the retention cutoff.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Since returns the start of the retention window relative to now.
func (c *Config) Since(now time.Time) time.Time {
	return now.In(c.Location()).AddDate(0, 0, -c.RetentionDays)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
