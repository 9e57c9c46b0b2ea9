package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/mmrzaf/sdcatalog/internal/domain"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

// Open connects to the metadata database and applies pending migrations.
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	dsn := strings.TrimSpace(opts.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn is required", opts.Driver)
	}

	var (
		db  *sql.DB
		err error
	)
	switch opts.Driver {
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, err
		}
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
			db.SetMaxIdleConns(opts.MaxOpenConns)
		}
	case DriverSQLite:
		if err := ensureParentDir(dsn); err != nil {
			return nil, err
		}
		db, err = sql.Open("sqlite3", sqliteDSN(dsn))
		if err != nil {
			return nil, err
		}
		// SQLite allows one writer; a single connection keeps writers queued
		// in the pool instead of failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("unsupported driver %q", opts.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(ctx, db, opts.Driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") || strings.Contains(path, "?") {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_foreign_keys=on"
}

func ensureParentDir(path string) error {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WithTx runs fn inside one transaction. It commits when fn succeeds and
// rolls back on every other exit path, including context cancellation.
// Errors other than domain.ErrNotFound come back as *domain.StorageError.
func WithTx(ctx context.Context, db *sql.DB, txOpts *sql.TxOptions, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, txOpts)
	if err != nil {
		return storageError(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return storageError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storageError(op, err)
	}
	return nil
}

func storageError(op string, err error) error {
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StorageError{Op: op, Err: errors.WithStack(err)}
}
