package darelteb

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tfkr-ae/darelteb/codec"
	"github.com/tfkr-ae/darelteb/db"
	"github.com/tfkr-ae/darelteb/domain"
	"github.com/tfkr-ae/darelteb/filekv"
	"github.com/tfkr-ae/darelteb/memkv"
)

// App wires a configured backend to a favorites store. It is what a screen or command receives.
type App struct {
	Config    *Config
	Repo      domain.KeyValueRepository // The opened backend
	Logs      domain.LogRepository      // Persisted logs; nil unless the sqlite backend persists logs
	Favorites *Favorites
}

// Open opens the backend selected by cfg and builds the favorites store on top of it.
// The returned App must be closed to release the backend.
func Open(cfg *Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	compression, err := codec.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	options := []func(*Favorites) error{
		WithLogger(logger),
		WithKey(cfg.FavoritesKey),
		WithCompression(compression),
	}

	switch cfg.Backend {
	case BackendSQLite:
		repo, err := db.Open(cfg.DataPath())
		if err != nil {
			return nil, fmt.Errorf("opening sqlite backend %s : %w", cfg.DataPath(), err)
		}
		app.Repo = repo
		if cfg.PersistLogs {
			app.Logs = repo
			options = append(options, WithLogRepository(repo))
		}
	case BackendFile:
		repo, err := filekv.New(cfg.DataPath())
		if err != nil {
			return nil, fmt.Errorf("opening file backend %s : %w", cfg.DataPath(), err)
		}
		app.Repo = repo
	case BackendMemory:
		app.Repo = memkv.New()
	}

	favorites, err := NewFavorites(app.Repo, options...)
	if err != nil {
		app.Repo.Close()
		return nil, fmt.Errorf("creating favorites store : %w", err)
	}
	app.Favorites = favorites
	return app, nil
}

// Close releases the backend.
func (app *App) Close() error {
	if app.Repo == nil {
		return nil
	}
	if err := app.Repo.Close(); err != nil {
		return fmt.Errorf("closing backend : %w", err)
	}
	return nil
}
