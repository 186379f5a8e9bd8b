package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Session    SessionConfig    `mapstructure:"session"`
	Patterns   PatternsConfig   `mapstructure:"patterns"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Callback   CallbackConfig   `mapstructure:"callback"`
	Debug      DebugConfig      `mapstructure:"debug"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AlwaysReply includes the decoy reply on turns that were not classified as scams.
	AlwaysReply bool `mapstructure:"always_reply"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type AuthConfig struct {
	// APIKey is compared against x-api-key / Bearer tokens. Empty disables the check.
	APIKey     string `mapstructure:"api_key"`
	AdminToken string `mapstructure:"admin_token"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	LedgerTTL time.Duration `mapstructure:"ledger_ttl"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type NATSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	StreamName string `mapstructure:"stream_name"`
}

type SessionConfig struct {
	Shards          int           `mapstructure:"shards"`
	TTL             time.Duration `mapstructure:"ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
	// MinMessagesForReport is the post-append message count required before a report is sent.
	MinMessagesForReport int `mapstructure:"min_messages_for_report"`
}

// PatternsConfig extends the built-in keyword lists. Entries are matched case-insensitively.
type PatternsConfig struct {
	IntelKeywords  []string `mapstructure:"intel_keywords"`
	ScamKeywords   []string `mapstructure:"scam_keywords"`
	ScoredKeywords []string `mapstructure:"scored_keywords"`
}

type ClassifierConfig struct {
	// ConversationPolicy is the policy used by /v1/message: "binary" or "scored".
	ConversationPolicy string `mapstructure:"conversation_policy"`
}

type CallbackConfig struct {
	URL          string        `mapstructure:"url"`
	Secret       string        `mapstructure:"secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Workers      int           `mapstructure:"workers"`
	QueueSize    int           `mapstructure:"queue_size"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// setDefaults mirrors config/config.yaml so the service starts without a file
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "honeypot-lab")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.always_reply", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Admin-Token"})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests_per_minute", 120)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "honeypot:")
	v.SetDefault("redis.ledger_ttl", 7*24*time.Hour)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "honeypot")
	v.SetDefault("database.dbname", "honeypot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.stream_name", "HONEYPOT_REPORTS")

	v.SetDefault("session.shards", 32)
	v.SetDefault("session.ttl", 6*time.Hour)
	v.SetDefault("session.janitor_interval", 10*time.Minute)
	v.SetDefault("session.min_messages_for_report", 2)

	v.SetDefault("patterns.intel_keywords", []string{})
	v.SetDefault("patterns.scam_keywords", []string{})
	v.SetDefault("patterns.scored_keywords", []string{})

	v.SetDefault("classifier.conversation_policy", "binary")

	v.SetDefault("callback.url", "https://hackathon.guvi.in/api/updateHoneyPotFinalResult")
	v.SetDefault("callback.timeout", 5*time.Second)
	v.SetDefault("callback.workers", 2)
	v.SetDefault("callback.queue_size", 256)
	v.SetDefault("callback.max_attempts", 1)
	v.SetDefault("callback.retry_backoff", 2*time.Second)

	v.SetDefault("debug.enabled", false)
}

// Load reads configuration from file and environment variables.
// A missing config file is not an error; defaults and env vars apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/honeypot-lab")
	}

	v.SetEnvPrefix("HONEYPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets are usually injected via env only
	v.BindEnv("auth.api_key", "HONEYPOT_AUTH_API_KEY")
	v.BindEnv("auth.admin_token", "HONEYPOT_AUTH_ADMIN_TOKEN")
	v.BindEnv("callback.secret", "HONEYPOT_CALLBACK_SECRET")
	v.BindEnv("redis.password", "HONEYPOT_REDIS_PASSWORD")
	v.BindEnv("database.password", "HONEYPOT_DATABASE_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

// Validate checks values that would otherwise fail at runtime
func (c *Config) Validate() error {
	switch c.Classifier.ConversationPolicy {
	case "binary", "scored":
	default:
		return fmt.Errorf("invalid classifier.conversation_policy %q", c.Classifier.ConversationPolicy)
	}
	if c.Callback.Timeout <= 0 {
		return fmt.Errorf("callback.timeout must be positive")
	}
	if c.Callback.MaxAttempts < 1 {
		return fmt.Errorf("callback.max_attempts must be at least 1")
	}
	if c.Session.MinMessagesForReport < 1 {
		return fmt.Errorf("session.min_messages_for_report must be at least 1")
	}
	return nil
}
