package storage

import (
	"github.com/julianstephens/timeblock/internal/storage/postgres"
	"github.com/julianstephens/timeblock/internal/storage/sqlite"
)

// Open picks the store for a --db value: PostgreSQL URLs and key=value DSNs
// containing a host or dbname go to postgres, anything else is a sqlite path.
// Postgres connection strings must not embed a password.
func Open(target string) (Provider, error) {
	if postgres.IsConnString(target) || looksLikeDSN(target) {
		if err := postgres.ValidateConnString(target); err != nil {
			return nil, err
		}
		return postgres.New(target), nil
	}
	return sqlite.NewStore(target), nil
}

func looksLikeDSN(target string) bool {
	return postgres.HasParam(target, "host") || postgres.HasParam(target, "dbname")
}

// OpenConnection opens postgres with a connection string read from the OS
// keyring or the environment, where credentials are allowed.
func OpenConnection(connStr string) Provider {
	return postgres.New(connStr)
}
