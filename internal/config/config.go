package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the creatorpulse service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Benchmark  BenchmarkConfig
	LLM        LLMConfig
	Briefing   BriefingConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the optional analytical store used for the
// shared benchmark contribution pool.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     []string
	Database string
	User     string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled    bool
	RPS        float64
	Burst      int
	AdminRPS   float64
	AdminBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool
	Path      string
	Namespace string
}

// BenchmarkConfig controls the contribution pipeline and the percentile refresh.
type BenchmarkConfig struct {
	// Backend selects where contributions live: "postgres" or "clickhouse".
	Backend string
	// RefreshInterval is how often the scheduler recomputes segments.
	RefreshInterval time.Duration
	RefreshOnStart  bool
	// Retention is the trailing window of contributions used for percentiles.
	Retention           time.Duration
	ContributionWorkers int
	ContributionQueue   int
	// CacheTTL bounds how long a resolved segment is served from process memory.
	CacheTTL time.Duration
}

// LLMConfig configures the text-generation collaborator.
type LLMConfig struct {
	Enabled   bool
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type BriefingConfig struct {
	CacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("CREATORPULSE_HTTP_ADDR", ":8080"),
			Env:             getEnv("CREATORPULSE_ENV", "development"),
			ShutdownTimeout: getDurationEnv("CREATORPULSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("CREATORPULSE_DB_HOST", "localhost"),
			Port:     getIntEnv("CREATORPULSE_DB_PORT", 5432),
			User:     getEnv("CREATORPULSE_DB_USER", "creatorpulse"),
			Password: getEnv("CREATORPULSE_DB_PASSWORD", "creatorpulse_secret"),
			DBName:   getEnv("CREATORPULSE_DB_NAME", "creatorpulse"),
			SSLMode:  getEnv("CREATORPULSE_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("CREATORPULSE_DB_MAX_CONNS", 20),
			MinConns: getIntEnv("CREATORPULSE_DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("CREATORPULSE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("CREATORPULSE_REDIS_PASSWORD", ""),
			DB:       getIntEnv("CREATORPULSE_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("CREATORPULSE_CLICKHOUSE_ENABLED", false),
			Addr:     getSliceEnv("CREATORPULSE_CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			Database: getEnv("CREATORPULSE_CLICKHOUSE_DB", "creatorpulse"),
			User:     getEnv("CREATORPULSE_CLICKHOUSE_USER", "default"),
			Password: getEnv("CREATORPULSE_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("CREATORPULSE_AUTH_ENABLED", true),
			MasterKey: getEnv("CREATORPULSE_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("CREATORPULSE_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getBoolEnv("CREATORPULSE_RATE_LIMIT_ENABLED", true),
			RPS:        getFloatEnv("CREATORPULSE_RATE_LIMIT_RPS", 200),
			Burst:      getIntEnv("CREATORPULSE_RATE_LIMIT_BURST", 50),
			AdminRPS:   getFloatEnv("CREATORPULSE_RATE_LIMIT_ADMIN_RPS", 1),
			AdminBurst: getIntEnv("CREATORPULSE_RATE_LIMIT_ADMIN_BURST", 2),
		},
		Log: LogConfig{
			Level:  getEnv("CREATORPULSE_LOG_LEVEL", "info"),
			Format: getEnv("CREATORPULSE_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("CREATORPULSE_METRICS_ENABLED", true),
			Path:      getEnv("CREATORPULSE_METRICS_PATH", "/metrics"),
			Namespace: getEnv("CREATORPULSE_METRICS_NAMESPACE", "creatorpulse"),
		},
		Benchmark: BenchmarkConfig{
			Backend:             getEnv("CREATORPULSE_BENCHMARK_BACKEND", "postgres"),
			RefreshInterval:     getDurationEnv("CREATORPULSE_BENCHMARK_REFRESH_INTERVAL", 24*time.Hour),
			RefreshOnStart:      getBoolEnv("CREATORPULSE_BENCHMARK_REFRESH_ON_START", false),
			Retention:           getDurationEnv("CREATORPULSE_BENCHMARK_RETENTION", 90*24*time.Hour),
			ContributionWorkers: getIntEnv("CREATORPULSE_BENCHMARK_WORKERS", 2),
			ContributionQueue:   getIntEnv("CREATORPULSE_BENCHMARK_QUEUE", 256),
			CacheTTL:            getDurationEnv("CREATORPULSE_BENCHMARK_CACHE_TTL", 10*time.Minute),
		},
		LLM: LLMConfig{
			Enabled:   getBoolEnv("CREATORPULSE_LLM_ENABLED", true),
			APIKey:    getEnv("ANTHROPIC_API_KEY", ""),
			Model:     getEnv("CREATORPULSE_LLM_MODEL", "claude-3-haiku-20240307"),
			MaxTokens: getIntEnv("CREATORPULSE_LLM_MAX_TOKENS", 600),
			Timeout:   getDurationEnv("CREATORPULSE_LLM_TIMEOUT", 15*time.Second),
		},
		Briefing: BriefingConfig{
			CacheTTL: getDurationEnv("CREATORPULSE_BRIEFING_CACHE_TTL", 6*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("CREATORPULSE_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Benchmark.Backend {
	case "postgres", "clickhouse":
	default:
		return fmt.Errorf("unsupported benchmark backend %q", c.Benchmark.Backend)
	}
	if c.Benchmark.Backend == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("benchmark backend clickhouse requires CREATORPULSE_CLICKHOUSE_ENABLED")
	}
	if c.Benchmark.RefreshInterval <= 0 {
		return fmt.Errorf("benchmark refresh interval must be positive")
	}
	if c.Benchmark.ContributionWorkers < 1 {
		return fmt.Errorf("benchmark workers must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// LLMAvailable reports whether briefings should attempt text generation at all.
func (c *Config) LLMAvailable() bool {
	return c.LLM.Enabled && c.LLM.APIKey != ""
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
