package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultDatabaseURL points at the embedded SQLite store in the working directory
const DefaultDatabaseURL = "sqlite:///./ai_council.db"

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Primary providers
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Providers     ProvidersConfig
	Fallback      FallbackConfig
	Refinement    RefinementConfig
	RateLimit     RateLimitConfig
	Observability ObservabilityConfig
	Environment   string
	Version       string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds session store configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// ProvidersConfig holds model provider configurations
type ProvidersConfig struct {
	// Primary selects the model that answers first: gemini or anthropic
	Primary     string
	MaxTokens   int
	Temperature float64

	Gemini    ModelConfig
	Anthropic ModelConfig
	OpenAI    ModelConfig
}

// ModelConfig holds one provider's settings
type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// FallbackConfig holds the reliability settings of the agent calls
type FallbackConfig struct {
	DegradationFactor float64
	FailureWindow     time.Duration
	FailureThreshold  int
	PrimaryTimeout    time.Duration
	FallbackTimeout   time.Duration
	HybridMinSources  int
	HybridMaxSources  int
	RecoveryCooldown  time.Duration // zero means manual reset only
	CatalogPath       string        // empty uses the embedded catalog
}

// RefinementConfig holds council session settings
type RefinementConfig struct {
	AgentConcurrency int
	SessionTimeout   time.Duration
}

// RateLimitConfig holds the per-client request limit
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string // json or console
	TracingEnabled    bool
	TracingSampleRate float64
	ServiceName       string
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		Providers: ProvidersConfig{
			Primary:     strings.ToLower(getEnv("PRIMARY_PROVIDER", ProviderGemini)),
			MaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 500),
			Temperature: getEnvAsFloat("LLM_TEMPERATURE", 0.3),
			Gemini: ModelConfig{
				APIKey:  getEnv("GOOGLE_API_KEY", ""),
				BaseURL: getEnv("GEMINI_BASE_URL", ""),
				Model:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
				Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 30*time.Second),
			},
			Anthropic: ModelConfig{
				APIKey:  getEnv("ANTHROPIC_API_KEY", ""),
				BaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
				Model:   getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
				Timeout: getEnvAsDuration("ANTHROPIC_TIMEOUT", 30*time.Second),
			},
			OpenAI: ModelConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", ""),
				Model:   getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
				Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 15*time.Second),
			},
		},
		Fallback: FallbackConfig{
			DegradationFactor: getEnvAsFloat("DEGRADATION_FACTOR", 0.8),
			FailureWindow:     getEnvAsDuration("FAILURE_WINDOW", 60*time.Second),
			FailureThreshold:  getEnvAsInt("FAILURE_THRESHOLD", 3),
			PrimaryTimeout:    getEnvAsDuration("PRIMARY_TIMEOUT", 30*time.Second),
			FallbackTimeout:   getEnvAsDuration("FALLBACK_TIMEOUT", 15*time.Second),
			HybridMinSources:  getEnvAsInt("HYBRID_MIN_SOURCES", 2),
			HybridMaxSources:  getEnvAsInt("HYBRID_MAX_SOURCES", 3),
			RecoveryCooldown:  getEnvAsDuration("RECOVERY_COOLDOWN", 0),
			CatalogPath:       getEnv("FALLBACK_CATALOG_PATH", ""),
		},
		Refinement: RefinementConfig{
			AgentConcurrency: getEnvAsInt("AGENT_CONCURRENCY", 6),
			SessionTimeout:   getEnvAsDuration("SESSION_TIMEOUT", 3*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Hour),
		},
		Observability: ObservabilityConfig{
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			LogFormat:         getEnv("LOG_FORMAT", "json"),
			TracingEnabled:    getEnvAsBool("TRACING_ENABLED", false),
			TracingSampleRate: getEnvAsFloat("TRACING_SAMPLE_RATE", 0.1),
			ServiceName:       getEnv("OTEL_SERVICE_NAME", "ai-product-council"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	switch c.Providers.Primary {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported primary provider %q", c.Providers.Primary)
	}

	// The primary model must be reachable in production
	if c.IsProduction() && c.PrimaryModel().APIKey == "" {
		return fmt.Errorf("%s api key is required in production", c.Providers.Primary)
	}

	if err := c.Fallback.Validate(); err != nil {
		return err
	}

	if c.Refinement.AgentConcurrency < 1 {
		return fmt.Errorf("agent concurrency must be at least 1")
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requires a positive request count and window")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// Validate rejects fallback settings the orchestrator cannot honour
func (f *FallbackConfig) Validate() error {
	if f.DegradationFactor <= 0 || f.DegradationFactor > 1 {
		return fmt.Errorf("degradation factor must be in (0, 1], got %v", f.DegradationFactor)
	}
	if f.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1")
	}
	if f.FailureWindow <= 0 {
		return fmt.Errorf("failure window must be positive")
	}
	if f.PrimaryTimeout <= 0 || f.FallbackTimeout <= 0 {
		return fmt.Errorf("primary and fallback timeouts must be positive")
	}
	if f.HybridMinSources < 2 {
		return fmt.Errorf("hybrid needs at least 2 sources")
	}
	if f.HybridMaxSources < f.HybridMinSources {
		return fmt.Errorf("hybrid max sources (%d) is below min sources (%d)", f.HybridMaxSources, f.HybridMinSources)
	}
	if f.RecoveryCooldown < 0 {
		return fmt.Errorf("recovery cooldown cannot be negative")
	}
	return nil
}

// PrimaryModel returns the settings of the configured primary provider
func (c *Config) PrimaryModel() ModelConfig {
	if c.Providers.Primary == ProviderAnthropic {
		return c.Providers.Anthropic
	}
	return c.Providers.Gemini
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Driver returns the database driver implied by the configuration
func (c *DatabaseConfig) Driver() string {
	if strings.HasPrefix(c.ConnectionString, "sqlite:") {
		return DriverSQLite
	}
	return DriverPostgres
}

// SQLitePath returns the file path of a sqlite:// URL.
// sqlite:///./ai_council.db is relative, sqlite:////var/db/council.db is absolute.
func (c *DatabaseConfig) SQLitePath() string {
	path := strings.TrimPrefix(c.ConnectionString, "sqlite:")
	path = strings.TrimPrefix(path, "//")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return ":memory:"
	}
	return path
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.Driver() == DriverSQLite {
		return "sqlite path=" + c.SQLitePath()
	}
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars.
// Without either, sessions go to the embedded SQLite file.
func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}
	if host := getEnv("DB_HOST", ""); host != "" {
		pool.Host = host
		pool.Port = getEnvAsInt("DB_PORT", 5432)
		pool.User = getEnv("DB_USER", "council")
		pool.Password = getEnv("DB_PASSWORD", "")
		pool.Database = getEnv("DB_NAME", "ai_council")
		pool.SSLMode = getEnv("DB_SSLMODE", "disable")
		return pool
	}

	pool.ConnectionString = DefaultDatabaseURL
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
