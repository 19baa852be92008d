// Package repository is the storage layer over Postgres, using
// database/sql + lib/pq directly and sentinel not-found errors checked
// with errors.Is(err, sql.ErrNoRows).
package repository

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"hldesk/internal/config"
)

// Open establishes the Postgres connection pool used by every repository.
func Open(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
