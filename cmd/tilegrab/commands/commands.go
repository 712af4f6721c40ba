package commands

import (
	"context"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/tilegrab/internal/conventions"
	"github.com/slok/tilegrab/internal/log"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

const (
	// EngineTypeHTTP downloads tiles from the platform tile servers.
	EngineTypeHTTP = "http"
	// EngineTypeFake fabricates progress without network access.
	EngineTypeFake = "fake"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DataDir    string
	DBPath     string
	Engine     string
	RateLimit  float64
	ProxyURL   string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory for the task database and default downloads.").Envar("TILEGRAB_DATA_DIR").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("db-path", "Path to the SQLite task database (defaults to the data dir).").Envar("TILEGRAB_DB_PATH").StringVar(&c.DBPath)

	app.Flag("engine", "Download engine type (http, fake).").Default(EngineTypeHTTP).EnumVar(&c.Engine, EngineTypeHTTP, EngineTypeFake)
	app.Flag("rate-limit", "Global tile requests per second cap, 0 means unlimited.").Default("0").Float64Var(&c.RateLimit)
	app.Flag("proxy", "HTTP proxy URL for tile requests.").Envar("TILEGRAB_PROXY").StringVar(&c.ProxyURL)

	return c
}

// ResolvedDBPath returns the database path, placing it inside the data
// directory unless --db-path overrides it.
func (c *RootCommand) ResolvedDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return conventions.DBPath(c.DataDir)
}
