package system

import (
	"context"
	"fmt"
	"os"

	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/storage/sqlite"
)

type InitCmd struct {
	Force bool `help:"Delete an existing sqlite database before initializing."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if _, ok := ctx.Store.(*sqlite.Store); !ok {
			return fmt.Errorf("--force only applies to sqlite storage")
		}
		dbPath := ctx.Store.GetConfigPath()
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing database: %w", err)
				}
			}
			fmt.Fprintf(ctx.Out, "Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Initialized timeblock storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}
