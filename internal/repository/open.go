package repository

import (
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/freeeve/hexfront/internal/repository/postgres"
	"github.com/freeeve/hexfront/internal/repository/sqlite"
)

// IsPostgresURL reports whether url names a Postgres server. Anything else is
// treated as a SQLite path.
func IsPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// OpenDB connects to Postgres or opens a SQLite file depending on url, and
// applies the schema.
func OpenDB(url string) (*sqlx.DB, error) {
	if !IsPostgresURL(url) {
		return sqlite.Open(url)
	}
	db, err := postgres.Connect(url)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
