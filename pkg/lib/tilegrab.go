package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slok/tilegrab/internal/conventions"
	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/engine/fake"
	"github.com/slok/tilegrab/internal/engine/httpfetch"
	"github.com/slok/tilegrab/internal/log"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage"
	"github.com/slok/tilegrab/internal/storage/sqlite"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.tilegrab/tilegrab.db for storage and download tiles
// over plain HTTP.
type Config struct {
	// DBPath is the SQLite database path.
	// Default: ~/.tilegrab/tilegrab.db.
	DBPath string

	// DataDir is the base directory for tilegrab data (database, downloads).
	// Default: ~/.tilegrab.
	DataDir string

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger

	// Engine selects the download backend used by every task of this client.
	// Default: [EngineHTTP].
	//
	// Set this to [EngineFake] for testing without network access.
	Engine EngineType

	// RateLimit caps tile requests per second across all running tasks.
	// Zero (default) means unlimited. Only used with [EngineHTTP].
	RateLimit float64

	// ProxyURL routes tile requests through an HTTP proxy. Empty (default)
	// uses the environment proxy settings. Only used with [EngineHTTP].
	ProxyURL string
}

func (c *Config) defaults() error {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DataDir = filepath.Join(home, conventions.DefaultDataDir)
	}

	if c.DBPath == "" {
		c.DBPath = conventions.DBPath(c.DataDir)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	if c.Engine == "" {
		c.Engine = EngineHTTP
	}

	return nil
}

// Client is the main SDK entry point for managing download tasks
// programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	repo     storage.Repository
	eng      engine.Engine
	registry *platform.Registry
	logger   log.Logger
	closeFn  func() error
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}

	registry := platform.NewRegistry()

	// One engine for the client's lifetime: it owns the live download runs,
	// so every operation must talk to the same instance.
	eng, err := newEngine(cfg, repo, registry)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("could not create engine: %w", err)
	}

	return &Client{
		repo:     repo,
		eng:      eng,
		registry: registry,
		logger:   cfg.Logger,
		closeFn:  repo.Close,
	}, nil
}

// Close releases resources held by the client, including the database
// connection. After Close returns, the client must not be used.
//
// Downloads run inside the client's process and do not survive it: pause
// running tasks before closing so a later client can resume them.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// newEngine creates the download backend selected by Config.Engine.
func newEngine(cfg Config, repo *sqlite.Repository, registry *platform.Registry) (engine.Engine, error) {
	switch cfg.Engine {
	case EngineHTTP:
		journal, err := sqlite.NewJournal(sqlite.JournalConfig{
			DB:     repo.DB(),
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create tile journal: %w", err)
		}

		return httpfetch.NewEngine(httpfetch.EngineConfig{
			Repository: repo,
			Journal:    journal,
			Registry:   registry,
			ProxyURL:   cfg.ProxyURL,
			RateLimit:  cfg.RateLimit,
			Logger:     cfg.Logger,
		})
	case EngineFake:
		return fake.NewEngine(fake.EngineConfig{
			Repository: repo,
			Logger:     cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported engine type: %s: %w", cfg.Engine, ErrNotValid)
	}
}
