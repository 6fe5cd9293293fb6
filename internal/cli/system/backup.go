package system

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/julianstephens/timeblock/internal/backup"
	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/storage/sqlite"
)

func backupManager(ctx *cli.Context) (*backup.Manager, error) {
	if _, ok := ctx.Store.(*sqlite.Store); !ok {
		return nil, fmt.Errorf("backups are only supported for sqlite storage")
	}
	return backup.NewManager(ctx.Store.GetConfigPath()), nil
}

type BackupCreateCmd struct {
	Label string `help:"Label embedded in the snapshot name." default:"manual"`
}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	path, err := mgr.Create(context.Background(), c.Label)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s Snapshot created: %s\n", cli.OKStyle.Render("✓"), path)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	snapshots, err := mgr.List()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintf(ctx.Out, "No backups in %s\n", mgr.Dir())
		return nil
	}
	cli.Header(ctx.Out, "Backups in %s", mgr.Dir())
	for _, s := range snapshots {
		cli.Row(ctx.Out, s.TakenAt.Local().Format("01-02 15:04:05"), filepath.Base(s.Path), fmt.Sprintf("%s, %d KB", s.Label, s.Size/1024))
	}
	return nil
}

type BackupRestoreCmd struct {
	Path string `arg:"" help:"Snapshot file to restore." type:"existingfile"`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	if err := mgr.Restore(context.Background(), c.Path); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s Restored %s\n", cli.OKStyle.Render("✓"), ctx.Store.GetConfigPath())
	return nil
}
