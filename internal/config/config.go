// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type APIConfig struct {
	Port              int    `yaml:"port"`
	JWTSecret         string `yaml:"jwt_secret"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

type WorkerConfig struct {
	Ceiling             int           `yaml:"ceiling"`               // max jobs claimed/processed per iteration
	MinDelay            time.Duration `yaml:"min_delay"`             // poll delay after a productive cycle
	MaxDelay            time.Duration `yaml:"max_delay"`             // idle backoff cap
	BackoffFactor       float64       `yaml:"backoff_factor"`        // idle delay multiplier
	CycleBudgetMultiple int           `yaml:"cycle_budget_multiple"` // stop a cycle after this x allowance jobs
	MaxCyclesPerTrigger int           `yaml:"max_cycles_per_trigger"`
}

type LimitConfig struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	Analysis LimitConfig `yaml:"analysis"`
	Fetch    LimitConfig `yaml:"fetch"`
}

type AnalysisConfig struct {
	Provider        string        `yaml:"provider"` // openai | gemini | noop
	OpenAIKey       string        `yaml:"openai_key"`
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	Model           string        `yaml:"model"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
}

type CronConfig struct {
	WorkerSpec    string `yaml:"worker_spec"`    // optional cron schedule for bounded worker runs
	ReconcileSpec string `yaml:"reconcile_spec"` // periodic progress reconciliation sweep
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	API       APIConfig       `yaml:"api"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Cron      CronConfig      `yaml:"cron"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.API.JWTSecret == "" && !dev {
		return nil, errors.New("api.jwt_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.RequestsPerMinute <= 0 {
		cfg.API.RequestsPerMinute = 60
	}
	if cfg.Worker.Ceiling <= 0 {
		cfg.Worker.Ceiling = 2
	}
	if cfg.Worker.MinDelay <= 0 {
		cfg.Worker.MinDelay = time.Second
	}
	if cfg.Worker.MaxDelay <= 0 {
		cfg.Worker.MaxDelay = time.Minute
	}
	if cfg.Worker.BackoffFactor <= 1 {
		cfg.Worker.BackoffFactor = 2.0
	}
	if cfg.Worker.CycleBudgetMultiple <= 0 {
		cfg.Worker.CycleBudgetMultiple = 5
	}
	if cfg.Worker.MaxCyclesPerTrigger <= 0 {
		cfg.Worker.MaxCyclesPerTrigger = 3
	}
	if cfg.RateLimit.Analysis.MaxRequests <= 0 {
		cfg.RateLimit.Analysis.MaxRequests = 10
	}
	if cfg.RateLimit.Analysis.Window <= 0 {
		cfg.RateLimit.Analysis.Window = time.Minute
	}
	if cfg.RateLimit.Fetch.MaxRequests <= 0 {
		cfg.RateLimit.Fetch.MaxRequests = 30
	}
	if cfg.RateLimit.Fetch.Window <= 0 {
		cfg.RateLimit.Fetch.Window = time.Minute
	}
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = "openai"
	}
	if cfg.Analysis.Model == "" {
		cfg.Analysis.Model = "gpt-4o-mini"
	}
	if cfg.Analysis.MaxOutputTokens <= 0 {
		cfg.Analysis.MaxOutputTokens = 2048
	}
	if cfg.Analysis.MaxRetries <= 0 {
		cfg.Analysis.MaxRetries = 3
	}
	if cfg.Analysis.RetryBaseDelay <= 0 {
		cfg.Analysis.RetryBaseDelay = time.Second
	}
	if cfg.Analysis.FetchTimeout <= 0 {
		cfg.Analysis.FetchTimeout = 60 * time.Second
	}
	if cfg.Cron.ReconcileSpec == "" {
		cfg.Cron.ReconcileSpec = "@every 1m"
	}
}
