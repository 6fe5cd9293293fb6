package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/timeblock/internal/cli"
	"github.com/julianstephens/timeblock/internal/keyring"
	"github.com/julianstephens/timeblock/internal/storage/postgres"
)

// KeyringSetCmd stores a PostgreSQL connection string in the OS keyring.
type KeyringSetCmd struct {
	ConnectionString string `arg:"" help:"PostgreSQL connection string to store."`
	Name             string `help:"Keyring account name." default:""`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if !postgres.IsConnString(cmd.ConnectionString) && !postgres.HasParam(cmd.ConnectionString, "host") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if err := postgres.ValidateConnString(cmd.ConnectionString); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is an acceptable home for a password.
		fmt.Fprintln(ctx.Out, cli.WarnStyle.Render("⚠  Connection string contains a password; it is stored as-is in the encrypted OS keyring."))
	}

	if err := keyring.SetConnectionString(cmd.Name, cmd.ConnectionString); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s Connection string stored in OS keyring\n", cli.OKStyle.Render("✓"))
	return nil
}

// KeyringDeleteCmd removes the stored connection string.
type KeyringDeleteCmd struct {
	Name string `help:"Keyring account name." default:""`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	if err := keyring.DeleteConnectionString(cmd.Name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("no connection string found in keyring")
		}
		return err
	}
	fmt.Fprintf(ctx.Out, "%s Connection string deleted from OS keyring\n", cli.OKStyle.Render("✓"))
	return nil
}

// KeyringStatusCmd reports whether the keyring works and holds a connection.
type KeyringStatusCmd struct {
	Name string `help:"Keyring account name." default:""`
}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		fmt.Fprintln(ctx.Out, cli.ErrStyle.Render("✗ OS keyring is not available on this system"))
		return keyring.ErrKeyringUnavailable
	}
	fmt.Fprintf(ctx.Out, "%s OS keyring is available\n", cli.OKStyle.Render("✓"))

	connStr, err := keyring.GetConnectionString(cmd.Name)
	switch {
	case err == nil:
		fmt.Fprintf(ctx.Out, "%s Connection string stored: %s\n", cli.OKStyle.Render("✓"), maskPassword(connStr))
	case errors.Is(err, keyring.ErrNotFound):
		fmt.Fprintln(ctx.Out, "ℹ No connection string stored in keyring")
	default:
		return err
	}
	return nil
}

// maskPassword hides the password of a URL or key=value connection string.
func maskPassword(connStr string) string {
	if postgres.IsConnString(connStr) {
		idx := strings.Index(connStr, "://")
		rest := connStr[idx+3:]
		if at := strings.LastIndex(rest, "@"); at != -1 {
			userInfo := rest[:at]
			if colon := strings.Index(userInfo, ":"); colon != -1 {
				return connStr[:idx+3] + userInfo[:colon] + ":****" + rest[at:]
			}
		}
		return connStr
	}

	fields := strings.Fields(connStr)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}
