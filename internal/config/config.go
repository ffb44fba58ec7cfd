package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Bounds for url-source fetches
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	FetchMaxBytes int64         `envconfig:"FETCH_MAX_BYTES" default:"2097152"`

	IngestWorkers   int `envconfig:"INGEST_WORKERS" default:"2"`
	IngestQueueSize int `envconfig:"INGEST_QUEUE_SIZE" default:"64"`

	// Optional cron expression for periodic refresh of url/page sources
	RefreshSchedule string `envconfig:"REFRESH_SCHEDULE"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("HELICON", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// Validate checks fields that envconfig defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("HELICON_DATABASE_URL is required")
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("HELICON_INGEST_WORKERS must be positive")
	}
	if c.IngestQueueSize <= 0 {
		return fmt.Errorf("HELICON_INGEST_QUEUE_SIZE must be positive")
	}
	return nil
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

func (c *Config) HasRefreshSchedule() bool {
	return c.RefreshSchedule != ""
}
