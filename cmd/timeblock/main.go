package main

import (
	"context"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/cli/schedule"
	"github.com/julianstephens/timeblock/internal/cli/system"
	"github.com/julianstephens/timeblock/internal/config"
	"github.com/julianstephens/timeblock/internal/constants"
	apperrors "github.com/julianstephens/timeblock/internal/errors"
	"github.com/julianstephens/timeblock/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file (YAML or JSON)." type:"path" default:"${config_path}"`
	DB      string `name:"db" help:"SQLite path or PostgreSQL connection string. PostgreSQL passwords are refused here; use TIMEBLOCK_DB_CONNECTION, .pgpass or the OS keyring."`
	Debug   bool   `help:"Log at debug level and mirror logs to stderr."`

	Init         system.InitCmd           `cmd:"" help:"Initialize timeblock storage."`
	Migrate      system.MigrateCmd        `cmd:"" help:"Run database migrations."`
	Serve        system.ServeCmd          `cmd:"" help:"Serve the HTTP API and the background batch pass."`
	RunScheduler schedule.RunSchedulerCmd `cmd:"" name:"run-scheduler" help:"Mark missed instances and schedule the backlog."`
	Windows      schedule.WindowsCmd      `cmd:"" help:"Show the windows of a day."`
	Events       schedule.EventsCmd       `cmd:"" help:"Show scheduled events for the coming days."`
	Validate     schedule.ValidateCmd     `cmd:"" help:"Check stored instances and day types for conflicts."`
	Backup       struct {
		Create  system.BackupCreateCmd  `cmd:"" help:"Create a database snapshot." default:"1"`
		List    system.BackupListCmd    `cmd:"" help:"List available snapshots."`
		Restore system.BackupRestoreCmd `cmd:"" help:"Restore a snapshot."`
	} `cmd:"" help:"Manage sqlite database snapshots."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Show keyring availability and the stored connection."`
	} `cmd:"" help:"Manage the connection string kept in the OS keyring."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Time-blocking scheduler and reconciliation engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": constants.DefaultConfigPath,
		},
	)
	command := ctx.Command()

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		apperrors.Fatal(err)
	}
	if CLI.Debug {
		cfg.Logging.Debug = true
	}

	if err := logger.Init(logger.Config{
		Debug:     cfg.Logging.Debug,
		ConfigDir: cfg.Logging.Dir,
		Stderr:    strings.HasPrefix(command, "serve"),
		JSON:      cfg.Logging.JSON,
	}); err != nil {
		apperrors.Fatal(err)
	}

	store, source, err := cli.ResolveStore(CLI.DB, cfg, os.LookupEnv)
	if err != nil {
		apperrors.Fatal(err)
	}
	logger.Debug("Resolved database", "source", source, "path", store.GetConfigPath())
	defer store.Close()

	// These commands open (or replace) the database themselves.
	if !skipsLoad(command) {
		if err := store.Load(context.Background()); err != nil {
			apperrors.Fatal(err)
		}
	}

	appCtx := cli.NewContext(store, cfg)
	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		apperrors.Fatal(err)
	}
}

func skipsLoad(command string) bool {
	for _, prefix := range []string{"init", "migrate", "keyring", "backup"} {
		if strings.HasPrefix(command, prefix) {
			return true
		}
	}
	return false
}
