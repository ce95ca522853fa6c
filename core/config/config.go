package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration in a structured way, one
// struct per concern.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Trace     TraceConfig
	Agent     AgentDefaultsConfig
	Discord   DiscordConfig
}

type AppConfig struct {
	Environment string // "production", "test", or the default "development"
	Port        string
	LogLevel    string
}

type DatabaseConfig struct {
	// URL is DATABASE_URL verbatim. An empty URL, or one starting with
	// "sqlite://"/"file:", selects the sqlite driver; anything starting
	// with "postgres://" or "postgresql://" selects postgres.
	URL string
}

type SecurityConfig struct {
	APIKey string // AUTOMAGIK_OMNI_API_KEY
}

// RateLimitConfig configures the sliding-window admission limiter. It is
// process-global: rate limiting is not scoped per instance.
type RateLimitConfig struct {
	MaxRequests         int
	WindowSeconds       int
	CleanupIntervalSecs int
}

// TraceConfig configures the trace store. Process-global, same as rate
// limiting.
type TraceConfig struct {
	CompressionThresholdBytes int
	RetentionDays             int
}

// AgentDefaultsConfig provides fallbacks used when an InstanceConfig leaves
// the corresponding field unset.
type AgentDefaultsConfig struct {
	TimeoutMs int
}

// DiscordConfig configures the process-wide Discord adapter backpressure
// queue.
type DiscordConfig struct {
	EventQueueCapacity int
}

// Global provides access to the loaded configuration for code that cannot
// take it as an explicit dependency (migration helpers, CLI flags).
var Global *Config

// Load reads environment variables (optionally from a local .env file) into
// a Config: godotenv for local dev, viper.AutomaticEnv for process env, with
// an explicit BindEnv per named variable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{
		"AUTOMAGIK_OMNI_API_KEY",
		"DATABASE_URL",
		"ENVIRONMENT",
		"LOG_LEVEL",
		"APP_PORT",
		"RATE_LIMIT_MAX_REQUESTS",
		"RATE_LIMIT_WINDOW_SECONDS",
		"RATE_LIMIT_CLEANUP_INTERVAL_SECONDS",
		"TRACE_COMPRESSION_THRESHOLD_BYTES",
		"TRACE_RETENTION_DAYS",
		"AGENT_DEFAULT_TIMEOUT_MS",
		"DISCORD_EVENT_QUEUE_CAPACITY",
	} {
		_ = viper.BindEnv(key)
	}

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_PORT", "8882")
	viper.SetDefault("RATE_LIMIT_MAX_REQUESTS", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("RATE_LIMIT_CLEANUP_INTERVAL_SECONDS", 300)
	viper.SetDefault("TRACE_COMPRESSION_THRESHOLD_BYTES", 1024)
	viper.SetDefault("TRACE_RETENTION_DAYS", 30)
	viper.SetDefault("AGENT_DEFAULT_TIMEOUT_MS", 30000)
	viper.SetDefault("DISCORD_EVENT_QUEUE_CAPACITY", 1000)

	cfg := &Config{
		App: AppConfig{
			Environment: viper.GetString("ENVIRONMENT"),
			Port:        viper.GetString("APP_PORT"),
			LogLevel:    viper.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			URL: viper.GetString("DATABASE_URL"),
		},
		Security: SecurityConfig{
			APIKey: viper.GetString("AUTOMAGIK_OMNI_API_KEY"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests:         viper.GetInt("RATE_LIMIT_MAX_REQUESTS"),
			WindowSeconds:       viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			CleanupIntervalSecs: viper.GetInt("RATE_LIMIT_CLEANUP_INTERVAL_SECONDS"),
		},
		Trace: TraceConfig{
			CompressionThresholdBytes: viper.GetInt("TRACE_COMPRESSION_THRESHOLD_BYTES"),
			RetentionDays:             viper.GetInt("TRACE_RETENTION_DAYS"),
		},
		Agent: AgentDefaultsConfig{
			TimeoutMs: viper.GetInt("AGENT_DEFAULT_TIMEOUT_MS"),
		},
		Discord: DiscordConfig{
			EventQueueCapacity: viper.GetInt("DISCORD_EVENT_QUEUE_CAPACITY"),
		},
	}

	Global = cfg
	return cfg, nil
}

// IsTestMode reports whether Admin API auth should be bypassed.
func (c *Config) IsTestMode() bool {
	return strings.EqualFold(c.App.Environment, "test")
}

func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c *RateLimitConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSecs) * time.Second
}
