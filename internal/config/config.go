package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"citeweb"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"citeweb"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	ShareTTLHours int    `envconfig:"SHARE_TTL_HOURS" default:"168"`

	NSQDHost     string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP     string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	EnableEvents bool   `envconfig:"ENABLE_EVENTS" default:"false"`

	// Upstream providers
	GoogleAPIKey         string `envconfig:"GOOGLE_API_KEY"`
	GoogleSearchEngineID string `envconfig:"GOOGLE_SEARCH_ENGINE_ID"`
	SearchEndpoint       string `envconfig:"SEARCH_ENDPOINT"`
	CompletionAPIKey     string `envconfig:"COMPLETION_API_KEY"`
	CompletionBaseURL    string `envconfig:"COMPLETION_BASE_URL" default:"https://api.groq.com/openai/v1"`
	GeminiAPIKey         string `envconfig:"GEMINI_API_KEY"`
	DefaultModel         string `envconfig:"DEFAULT_MODEL" default:"llama3-8b-8192"`

	// Pipeline defaults, overridable at runtime through /settings
	SearchTopK           int   `envconfig:"SEARCH_TOP_K" default:"5"`
	PageWordBudget       int   `envconfig:"PAGE_WORD_BUDGET" default:"700"`
	CorpusWordBudget     int   `envconfig:"CORPUS_WORD_BUDGET" default:"20000"`
	StructuredWordBudget int   `envconfig:"STRUCTURED_WORD_BUDGET" default:"2500"`
	StructuredMaxEntries int   `envconfig:"STRUCTURED_MAX_ENTRIES" default:"25"`
	FetchConcurrency     int   `envconfig:"FETCH_CONCURRENCY" default:"8"`
	FetchTimeoutSeconds  int   `envconfig:"FETCH_TIMEOUT_SECONDS" default:"20"`
	FetchMaxBodyBytes    int64 `envconfig:"FETCH_MAX_BODY_BYTES" default:"5242880"` // 5MB
	ScrapeTimeoutSeconds int   `envconfig:"SCRAPE_TIMEOUT_SECONDS" default:"60"`
	ChatTimeoutSeconds   int   `envconfig:"CHAT_TIMEOUT_SECONDS" default:"120"`

	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath    string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MaxRequestBytes int64  `envconfig:"MAX_REQUEST_BYTES" default:"1048576"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("%w: REDIS_ADDR", ErrMissingRequired)
	}
	if c.DefaultModel == "" {
		return fmt.Errorf("%w: DEFAULT_MODEL", ErrMissingRequired)
	}

	if c.SearchTopK < 1 || c.SearchTopK > 10 {
		return fmt.Errorf("%w: SEARCH_TOP_K must be between 1 and 10", ErrInvalidValue)
	}
	for name, v := range map[string]int{
		"PAGE_WORD_BUDGET":       c.PageWordBudget,
		"CORPUS_WORD_BUDGET":     c.CorpusWordBudget,
		"STRUCTURED_WORD_BUDGET": c.StructuredWordBudget,
		"STRUCTURED_MAX_ENTRIES": c.StructuredMaxEntries,
		"FETCH_TIMEOUT_SECONDS":  c.FetchTimeoutSeconds,
		"SCRAPE_TIMEOUT_SECONDS": c.ScrapeTimeoutSeconds,
		"CHAT_TIMEOUT_SECONDS":   c.ChatTimeoutSeconds,
		"SHARE_TTL_HOURS":        c.ShareTTLHours,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidValue, name)
		}
	}
	if c.FetchConcurrency < 1 || c.FetchConcurrency > 32 {
		return fmt.Errorf("%w: FETCH_CONCURRENCY must be between 1 and 32", ErrInvalidValue)
	}
	return nil
}
