// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB and Cockroach when
// configured for the MySQL wire protocol.
//
// Public entry points:
//
//	OpenWithOptions(dsn, maxOpen, maxIdle) – pool sizes from config.
//	Ping(ctx, db)                          – readiness-probe helper.
//
// OpenWithOptions Pings the database before returning so callers can fail
// fast during bootstrap.  Callers should Close() the returned *sqlx.DB
// when no longer needed.
package database

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// OpenWithOptions returns a *sqlx.DB with the given pool sizes and a
// 30-minute connection lifetime.  cmd/web passes the validated DB_MAX_OPEN
// and DB_MAX_IDLE values here; the schema defaults (15 open, 5 idle) are
// conservative enough for process-wide pools.
func OpenWithOptions(dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Ping bounds a health-probe ping so a wedged pool cannot hang the
// readiness endpoint.
func Ping(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
