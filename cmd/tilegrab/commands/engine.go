package commands

import (
	"github.com/slok/tilegrab/internal/engine"
	"github.com/slok/tilegrab/internal/engine/fake"
	"github.com/slok/tilegrab/internal/engine/httpfetch"
	"github.com/slok/tilegrab/internal/platform"
	"github.com/slok/tilegrab/internal/storage/sqlite"
)

// newEngine creates the download engine selected by the global --engine flag.
func newEngine(rootCmd *RootCommand, repo *sqlite.Repository, journal *sqlite.Journal, registry *platform.Registry) (engine.Engine, error) {
	if rootCmd.Engine == EngineTypeFake {
		return fake.NewEngine(fake.EngineConfig{
			Repository: repo,
			Logger:     rootCmd.Logger,
		})
	}

	return httpfetch.NewEngine(httpfetch.EngineConfig{
		Repository: repo,
		Journal:    journal,
		Registry:   registry,
		ProxyURL:   rootCmd.ProxyURL,
		RateLimit:  rootCmd.RateLimit,
		Logger:     rootCmd.Logger,
	})
}
