// Package app provides application initialization and dependency
// wiring: configuration, logging, PostgreSQL, Redis cache, genkit, the
// advisory tool kit, and the HTTP server are assembled here and nowhere
// else.
package app

import (
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vistaar-ai/vistaar/internal/api"
	"github.com/vistaar-ai/vistaar/internal/cache"
	"github.com/vistaar-ai/vistaar/internal/chat"
	"github.com/vistaar-ai/vistaar/internal/config"
	"github.com/vistaar-ai/vistaar/internal/genai"
	"github.com/vistaar-ai/vistaar/internal/log"
	"github.com/vistaar-ai/vistaar/internal/session"
	"github.com/vistaar-ai/vistaar/internal/suggest"
	"github.com/vistaar-ai/vistaar/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	DBPool *pgxpool.Pool
	Cache  *cache.Service

	Sessions    *session.Store
	Tools       *tools.Kit
	Generator   *genai.Client
	Advisor     *chat.Advisor
	Suggestions *suggest.Job
	Server      *api.Server
}

// Close releases held resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.DBPool != nil {
		a.DBPool.Close()
	}
	return nil
}
