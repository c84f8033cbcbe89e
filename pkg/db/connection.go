// Package db provides PostgreSQL connectivity with read-only session
// defaults and a lightweight health check.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const connectTimeout = 5 * time.Second

// ConnectReadOnly opens a PostgreSQL connection whose transactions are
// read-only by default. The caller owns the connection and must close it.
func ConnectReadOnly(ctx context.Context, dsn string) (*pgx.Conn, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid PostgreSQL DSN")
	}
	cfg.ConnectTimeout = connectTimeout
	cfg.RuntimeParams["default_transaction_read_only"] = "on"

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to PostgreSQL with provided DSN")
	}
	return conn, nil
}

// HealthcheckResult is the information returned by a successful health check.
type HealthcheckResult struct {
	CurrentDatabase     string
	CurrentUser         string
	ServerVersion       string
	TransactionReadOnly bool
}

// CheckHealth connects, runs a single probe query, and verifies that the
// session really is read-only.
func CheckHealth(ctx context.Context, dsn string) (*HealthcheckResult, error) {
	conn, err := ConnectReadOnly(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	var result HealthcheckResult
	var readOnly string
	err = conn.QueryRow(ctx, `
		SELECT
		  current_database(),
		  current_user,
		  current_setting('server_version'),
		  current_setting('transaction_read_only')
	`).Scan(&result.CurrentDatabase, &result.CurrentUser, &result.ServerVersion, &readOnly)
	if err != nil {
		return nil, errors.Wrap(err, "PostgreSQL health check failed")
	}

	result.TransactionReadOnly = readOnly == "on"
	if !result.TransactionReadOnly {
		return nil, errors.New("connected successfully but session is not read-only")
	}
	return &result, nil
}
