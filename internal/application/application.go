// Package application assembles the storage backend and lead service from
// configuration. Both the HTTP server and the leadctl CLI start here.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/leads/internal/config"
	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/store"
	"github.com/JonMunkholm/leads/internal/store/memory"
	"github.com/JonMunkholm/leads/internal/store/postgres"
	"github.com/JonMunkholm/leads/internal/store/sqlite"
)

// App holds the long-lived dependencies of a running process.
type App struct {
	Config  *config.Config
	Store   store.Backend
	Service *core.Service
}

// New opens the configured store and builds the service on top of it.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	backend, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	service := core.NewService(backend, backend, core.ServiceConfig{
		MaxConcurrentImports: cfg.Upload.MaxConcurrent,
		MaxWaitTime:          cfg.Upload.MaxWaitTime,
	})

	slog.Info("formats registered", "formats", core.Formats())

	return &App{Config: cfg, Store: backend, Service: service}, nil
}

// OpenStore opens the backend selected by the database URL.
func OpenStore(ctx context.Context, db config.DatabaseConfig) (store.Backend, error) {
	switch db.Driver() {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, db.URL, postgres.PoolOptions{
			MaxConns:        db.MaxConns,
			MinConns:        db.MinConns,
			MaxConnLifetime: db.MaxConnLifetime,
			MaxConnIdleTime: db.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("connected to database", "driver", config.DriverPostgres)
		return s, nil

	case config.DriverMemory:
		slog.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, db.URL)
		if err != nil {
			return nil, err
		}
		slog.Info("opened database", "driver", config.DriverSQLite, "path", db.URL)
		return s, nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver())
	}
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
