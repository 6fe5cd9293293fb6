package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/julianstephens/timeblock/internal/config"
	"github.com/julianstephens/timeblock/internal/constants"
	"github.com/julianstephens/timeblock/internal/keyring"
	"github.com/julianstephens/timeblock/internal/logger"
	"github.com/julianstephens/timeblock/internal/runner"
	"github.com/julianstephens/timeblock/internal/scheduler"
	"github.com/julianstephens/timeblock/internal/storage"
)

// EnvDBConnection holds a PostgreSQL connection string that may carry a
// password, unlike --db and the config file.
const EnvDBConnection = "TIMEBLOCK_DB_CONNECTION"

type Context struct {
	Store     storage.Provider
	Config    *config.Config
	Scheduler *scheduler.Scheduler
	Runner    *runner.Runner
	Out       io.Writer
	Now       func() time.Time
	// Base is the parent of every command context. Nil means Background.
	Base context.Context
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM, so an
// interrupted command stops between storage calls.
func (c *Context) SignalContext() (context.Context, context.CancelFunc) {
	base := c.Base
	if base == nil {
		base = context.Background()
	}
	return signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
}

// NewContext wires the scheduler and runner over store.
func NewContext(store storage.Provider, cfg *config.Config) *Context {
	return &Context{
		Store:     store,
		Config:    cfg,
		Scheduler: scheduler.New(store),
		Runner:    runner.New(store),
		Out:       os.Stdout,
		Now:       time.Now,
	}
}

// Options returns the pass options configured for this process.
func (c *Context) Options() scheduler.Options {
	if c.Config == nil {
		return scheduler.Options{}
	}
	return scheduler.Options{
		Mode:             constants.SchedulerMode(c.Config.Scheduler.Mode),
		WriteThroughDays: c.Config.Scheduler.WriteThroughDays,
	}
}

// Source says where ResolveStore found the database.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceConfig  Source = "config"
	SourceKeyring Source = "keyring"
	SourceDefault Source = "default"
)

// ResolveStore picks the database: the --db flag, then a connection string
// in the environment, then a db set in the config file or TIMEBLOCK_DB, then
// a connection string in the OS keyring, then the default sqlite path.
func ResolveStore(flag string, cfg *config.Config, lookupEnv func(string) (string, bool)) (storage.Provider, Source, error) {
	if flag = strings.TrimSpace(flag); flag != "" {
		store, err := storage.Open(config.ExpandHome(flag))
		return store, SourceFlag, err
	}
	if v, ok := lookupEnv(EnvDBConnection); ok && strings.TrimSpace(v) != "" {
		return storage.OpenConnection(strings.TrimSpace(v)), SourceEnv, nil
	}
	defaultPath := config.ExpandHome(constants.DefaultDBPath)
	if cfg != nil && cfg.DB != "" && cfg.DB != defaultPath {
		store, err := storage.Open(cfg.DB)
		return store, SourceConfig, err
	}

	connStr, err := keyring.GetConnectionString("")
	switch {
	case err == nil:
		return storage.OpenConnection(connStr), SourceKeyring, nil
	case errors.Is(err, keyring.ErrNotFound):
	default:
		logger.Debug("Keyring lookup skipped", "error", err)
	}

	store, err := storage.Open(defaultPath)
	return store, SourceDefault, err
}
