// Package migrations embeds the schema migrations for each supported store.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

// SQLite returns the sqlite migrations rooted at their directory.
func SQLite() (fs.FS, error) {
	return fs.Sub(FS, "sqlite")
}

// Postgres returns the postgres migrations rooted at their directory.
func Postgres() (fs.FS, error) {
	return fs.Sub(FS, "postgres")
}
