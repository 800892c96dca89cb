// Package app wires configuration, storage, Genkit and the proposal pipeline
// into a runnable application.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brokerlane/proposal-engine/internal/config"
	"github.com/brokerlane/proposal-engine/internal/generation"
	"github.com/brokerlane/proposal-engine/internal/knowledge"
	"github.com/brokerlane/proposal-engine/internal/proposal"
	"github.com/brokerlane/proposal-engine/internal/retrieval"
)

// App holds all initialized application components.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool   *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	Store     *knowledge.Store
	Engine    *retrieval.Engine
	Generator *generation.Client
	Service   *proposal.Service

	dbCleanup func()
}

// Close releases all resources held by the App. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return nil
}
