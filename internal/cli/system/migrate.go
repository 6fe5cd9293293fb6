package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/timeblock/internal/backup"
	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/storage/sqlite"
)

type MigrateCmd struct {
	Status   bool `help:"Only report the schema version and pending migrations."`
	NoBackup bool `help:"Skip the sqlite snapshot taken before migrating."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	bg := context.Background()
	st, err := ctx.Store.SchemaStatus(bg)
	if err != nil {
		return err
	}

	if c.Status {
		fmt.Fprintf(ctx.Out, "Current schema version: %d\n", st.Current)
		fmt.Fprintf(ctx.Out, "Latest schema version:  %d\n", st.Latest)
		for _, m := range st.Pending {
			fmt.Fprintf(ctx.Out, "  pending %03d_%s\n", m.Version, m.Name)
		}
		return nil
	}

	if len(st.Pending) > 0 && !c.NoBackup {
		if _, ok := ctx.Store.(*sqlite.Store); ok {
			path, err := backup.NewManager(ctx.Store.GetConfigPath()).Create(bg, "premigrate")
			if err != nil {
				return fmt.Errorf("failed to snapshot database before migrating: %w", err)
			}
			fmt.Fprintf(ctx.Out, "Snapshot written to %s\n", path)
		}
	}

	count, err := ctx.Store.Migrate(bg, func(msg string) {
		fmt.Fprintln(ctx.Out, msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(ctx.Out, "No migrations to apply. Database is up to date.")
	} else {
		fmt.Fprintf(ctx.Out, "\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
