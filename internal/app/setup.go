package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vistaar-ai/vistaar/db"
	"github.com/vistaar-ai/vistaar/internal/api"
	"github.com/vistaar-ai/vistaar/internal/cache"
	"github.com/vistaar-ai/vistaar/internal/chat"
	"github.com/vistaar-ai/vistaar/internal/config"
	"github.com/vistaar-ai/vistaar/internal/genai"
	"github.com/vistaar-ai/vistaar/internal/log"
	"github.com/vistaar-ai/vistaar/internal/moderation"
	"github.com/vistaar-ai/vistaar/internal/session"
	"github.com/vistaar-ai/vistaar/internal/suggest"
	"github.com/vistaar-ai/vistaar/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := log.New(log.Config{
		Level: logLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool
	a.Sessions = session.New(pool, logger)

	a.Cache = provideCache(cfg, logger)

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	kit, err := tools.New(tools.Config{
		BapEndpoint:    cfg.BapEndpoint,
		BapID:          cfg.BapID,
		BapURI:         cfg.BapURI,
		MarqoEndpoint:  cfg.MarqoURL,
		MarqoIndex:     cfg.MarqoIndex,
		ConnectTimeout: cfg.ConnectTimeout,
		ReadTimeout:    cfg.ReadTimeout,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating tool kit: %w", err)
	}
	a.Tools = kit
	toolRefs := kit.Register(g)

	generator, err := genai.New(genai.Config{
		Genkit:   g,
		Model:    cfg.ModelName,
		Tools:    toolRefs,
		MaxTurns: cfg.MaxTurns,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}
	a.Generator = generator

	gate := moderation.NewGate(g, cfg.ModelName, logger)

	advisor, err := chat.New(chat.Config{
		Generator:           generator,
		Gate:                gate,
		Sessions:            a.Sessions,
		Logger:              logger,
		HistoryBudgetTokens: cfg.HistoryBudgetTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating advisor: %w", err)
	}
	a.Advisor = advisor

	suggestions, err := suggest.New(suggest.Config{
		Suggester:           generator,
		Cache:               a.Cache,
		Sessions:            a.Sessions,
		Logger:              logger,
		TTL:                 cfg.SuggestionCacheTTL,
		HistoryBudgetTokens: cfg.SuggestionBudgetTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("creating suggestion job: %w", err)
	}
	a.Suggestions = suggestions

	server, err := api.NewServer(api.ServerConfig{
		Advisor:         advisor,
		Sessions:        a.Sessions,
		Suggestions:     suggestions,
		Cache:           a.Cache,
		Pool:            pool,
		Logger:          logger,
		DefaultLanguage: cfg.TargetLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}
	a.Server = server

	return a, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The API
// key comes from the GEMINI_API_KEY environment variable.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideCache creates the resilient cache service. In production a
// placeholder Redis host means no real backend was provisioned; the
// service starts already demoted instead of timing out on every cold
// start.
func provideCache(cfg *config.Config, logger log.Logger) *cache.Service {
	memoryOnly := cfg.IsProduction() && isPlaceholderRedisHost(cfg.RedisHost)
	return cache.New(cache.Config{
		Addr:          cfg.RedisAddr(),
		DB:            cfg.RedisDB,
		KeyPrefix:     cfg.RedisKeyPrefix,
		Namespace:     "suggestions",
		DefaultTTL:    cfg.DefaultCacheTTL,
		DialTimeout:   cfg.RedisDialTimeout,
		SocketTimeout: cfg.RedisSocketTimeout,
		MemoryOnly:    memoryOnly,
		Logger:        logger,
	})
}

func isPlaceholderRedisHost(host string) bool {
	switch {
	case host == "", host == "localhost", host == "127.0.0.1":
		return true
	case strings.HasPrefix(host, "your-"):
		return true
	}
	return false
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
