// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables with the VISTAAR_ prefix (runtime override)
//  2. Config file (config.yaml in the working directory or /etc/vistaar)
//  3. Default values
//
// Security: sensitive fields (database password, API keys) are masked in
// MarshalJSON so a dumped config never leaks credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors, checked with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidPort indicates a port value is out of range.
	ErrInvalidPort = errors.New("invalid port")

	// ErrInvalidRedisDB indicates the Redis logical database index is invalid.
	ErrInvalidRedisDB = errors.New("invalid redis db")

	// ErrInvalidTokenBudget indicates a history token budget is not positive.
	ErrInvalidTokenBudget = errors.New("invalid token budget")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidModelName indicates the model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")
)

// Environment designations. EnvProduction activates the Redis placeholder
// policy in the cache service.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config stores application configuration.
type Config struct {
	// Service
	Environment string `mapstructure:"environment" json:"environment"`
	Host        string `mapstructure:"host" json:"host"`
	Port        int    `mapstructure:"port" json:"port"`
	LogLevel    string `mapstructure:"log_level" json:"log_level"`
	LogJSON     bool   `mapstructure:"log_json" json:"log_json"`

	// Model configuration
	ModelName      string `mapstructure:"model_name" json:"model_name"`
	MaxTurns       int    `mapstructure:"max_turns" json:"max_turns"`
	TargetLanguage string `mapstructure:"target_language" json:"target_language"`

	// History budgets (estimated tokens)
	HistoryBudgetTokens    int `mapstructure:"history_budget_tokens" json:"history_budget_tokens"`
	SuggestionBudgetTokens int `mapstructure:"suggestion_budget_tokens" json:"suggestion_budget_tokens"`

	// Redis (cache primary)
	RedisHost          string        `mapstructure:"redis_host" json:"redis_host"`
	RedisPort          int           `mapstructure:"redis_port" json:"redis_port"`
	RedisDB            int           `mapstructure:"redis_db" json:"redis_db"`
	RedisKeyPrefix     string        `mapstructure:"redis_key_prefix" json:"redis_key_prefix"`
	RedisDialTimeout   time.Duration `mapstructure:"redis_dial_timeout" json:"redis_dial_timeout"`
	RedisSocketTimeout time.Duration `mapstructure:"redis_socket_timeout" json:"redis_socket_timeout"`
	DefaultCacheTTL    time.Duration `mapstructure:"default_cache_ttl" json:"default_cache_ttl"`
	SuggestionCacheTTL time.Duration `mapstructure:"suggestion_cache_ttl" json:"suggestion_cache_ttl"`

	// PostgreSQL (session store)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Advisory network tool endpoints
	BapEndpoint  string `mapstructure:"bap_endpoint" json:"bap_endpoint"`
	BapID        string `mapstructure:"bap_id" json:"bap_id"`
	BapURI       string `mapstructure:"bap_uri" json:"bap_uri"`
	MarqoURL     string `mapstructure:"marqo_url" json:"marqo_url"`
	MarqoIndex   string `mapstructure:"marqo_index" json:"marqo_index"`
	NominatimURL string `mapstructure:"nominatim_url" json:"nominatim_url"`

	// Outbound HTTP timeouts for collaborator services
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/vistaar")

	v.SetEnvPrefix("VISTAAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults + env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", EnvDevelopment)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetDefault("model_name", "googleai/gemini-2.5-flash")
	v.SetDefault("max_turns", 5)
	v.SetDefault("target_language", "mr")

	v.SetDefault("history_budget_tokens", 60_000)
	v.SetDefault("suggestion_budget_tokens", 30_000)

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_key_prefix", "vistaar:")
	v.SetDefault("redis_dial_timeout", 10*time.Second)
	v.SetDefault("redis_socket_timeout", 15*time.Second)
	v.SetDefault("default_cache_ttl", time.Hour)
	v.SetDefault("suggestion_cache_ttl", 30*time.Minute)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "vistaar")
	v.SetDefault("postgres_password", "")
	v.SetDefault("postgres_db_name", "vistaar")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("marqo_index", "vistaar-index")
	v.SetDefault("nominatim_url", "https://nominatim.openstreetmap.org")

	v.SetDefault("connect_timeout", 10*time.Second)
	v.SetDefault("read_timeout", 15*time.Second)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.RedisPort < 1 || c.RedisPort > 65535 {
		return fmt.Errorf("%w: redis %d", ErrInvalidPort, c.RedisPort)
	}
	if c.RedisDB < 0 || c.RedisDB > 15 {
		return fmt.Errorf("%w: %d", ErrInvalidRedisDB, c.RedisDB)
	}
	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres %d", ErrInvalidPort, c.PostgresPort)
	}
	if c.ModelName == "" {
		return ErrInvalidModelName
	}
	if c.HistoryBudgetTokens <= 0 {
		return fmt.Errorf("%w: history %d", ErrInvalidTokenBudget, c.HistoryBudgetTokens)
	}
	if c.SuggestionBudgetTokens <= 0 {
		return fmt.Errorf("%w: suggestion %d", ErrInvalidTokenBudget, c.SuggestionBudgetTokens)
	}
	return nil
}

// IsProduction reports whether the service runs in a production-designated
// environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

// RedisAddr returns the host:port address of the Redis backend.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MarshalJSON masks sensitive fields.
func (c *Config) MarshalJSON() ([]byte, error) {
	type alias Config // avoid recursion
	masked := alias(*c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "***"
	}
	return json.Marshal(masked)
}
