package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Environment:            EnvDevelopment,
		Host:                   "0.0.0.0",
		Port:                   8080,
		ModelName:              "googleai/gemini-2.5-flash",
		HistoryBudgetTokens:    60_000,
		SuggestionBudgetTokens: 30_000,
		RedisHost:              "localhost",
		RedisPort:              6379,
		PostgresHost:           "localhost",
		PostgresPort:           5432,
		PostgresUser:           "vistaar",
		PostgresPassword:       "secret",
		PostgresDBName:         "vistaar",
		PostgresSSLMode:        "disable",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"bad port", func(c *Config) { c.Port = 0 }, ErrInvalidPort},
		{"port too high", func(c *Config) { c.Port = 70000 }, ErrInvalidPort},
		{"bad redis db", func(c *Config) { c.RedisDB = 16 }, ErrInvalidRedisDB},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"zero history budget", func(c *Config) { c.HistoryBudgetTokens = 0 }, ErrInvalidTokenBudget},
		{"negative suggestion budget", func(c *Config) { c.SuggestionBudgetTokens = -1 }, ErrInvalidTokenBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	t.Parallel()
	var cfg *Config
	if !errors.Is(cfg.Validate(), ErrConfigNil) {
		t.Error("nil config should fail validation")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("default port = %d, want 8080", cfg.Port)
	}
	if cfg.ModelName == "" {
		t.Error("default model name should not be empty")
	}
	if cfg.TargetLanguage != "mr" {
		t.Errorf("default target language = %q, want mr", cfg.TargetLanguage)
	}
	if cfg.IsProduction() {
		t.Error("default environment should not be production")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("VISTAAR_PORT", "9090")
	t.Setenv("VISTAAR_MODEL_NAME", "googleai/gemini-2.5-pro")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Port)
	}
	if cfg.ModelName != "googleai/gemini-2.5-pro" {
		t.Errorf("model = %q", cfg.ModelName)
	}
}

func TestRedisAddr(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	if got := cfg.RedisAddr(); got != "localhost:6379" {
		t.Errorf("RedisAddr() = %q", got)
	}
}

func TestPostgresConnectionString(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = `p'ass\word`
	dsn := cfg.PostgresConnectionString()
	if !strings.Contains(dsn, `password='p\'ass\\word'`) {
		t.Errorf("special characters not quoted: %s", dsn)
	}
	if !strings.Contains(dsn, "host=localhost") || !strings.Contains(dsn, "dbname=vistaar") {
		t.Errorf("dsn missing fields: %s", dsn)
	}
}

func TestPostgresURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	u := cfg.PostgresURL()
	if !strings.HasPrefix(u, "postgres://") {
		t.Errorf("URL = %q", u)
	}
	if !strings.Contains(u, "sslmode=disable") {
		t.Errorf("URL missing sslmode: %s", u)
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret") {
		t.Error("password leaked into JSON output")
	}
	if !strings.Contains(string(data), `"***"`) {
		t.Error("password not masked")
	}
}
