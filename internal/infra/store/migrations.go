package store

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	v  int
	up []string
}

var postgresMigrations = []migration{
	{1, []string{`
	CREATE TABLE IF NOT EXISTS datasets (
		id BIGSERIAL PRIMARY KEY,
		node TEXT NOT NULL,
		path TEXT NOT NULL,
		disease TEXT NOT NULL
	)`}},
	{2, []string{`
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		model TEXT NOT NULL,
		n_sample BIGINT NOT NULL,
		disease TEXT NOT NULL,
		condition TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'running', 'cancelled', 'success', 'failed')),
		created_at TIMESTAMPTZ NOT NULL
	)`}},
	{3, []string{
		`CREATE INDEX IF NOT EXISTS idx_datasets_node_disease ON datasets(node, disease)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at DESC)`,
	}},
}

var sqliteMigrations = []migration{
	{1, []string{`
	CREATE TABLE IF NOT EXISTS datasets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		node TEXT NOT NULL,
		path TEXT NOT NULL,
		disease TEXT NOT NULL
	)`}},
	{2, []string{`
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		model TEXT NOT NULL,
		n_sample INTEGER NOT NULL,
		disease TEXT NOT NULL,
		condition TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'running', 'cancelled', 'success', 'failed')),
		created_at TEXT NOT NULL
	)`}},
	{3, []string{
		`CREATE INDEX IF NOT EXISTS idx_datasets_node_disease ON datasets(node, disease)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status_created ON tasks(status, created_at DESC)`,
	}},
}

// Migrate brings the schema up to the latest version recorded in
// schema_migrations. Each version is applied in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var (
		migs   []migration
		insert string
	)
	switch driver {
	case DriverPostgres:
		migs = postgresMigrations
		insert = `INSERT INTO schema_migrations(version) VALUES ($1)`
	case DriverSQLite:
		migs = sqliteMigrations
		insert = `INSERT INTO schema_migrations(version) VALUES (?)`
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	cur, err := CurrentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migs {
		if cur >= m.v {
			continue
		}
		err := WithTx(ctx, db, nil, fmt.Sprintf("migration %d", m.v), func(tx *sql.Tx) error {
			for _, ddl := range m.up {
				if _, err := tx.ExecContext(ctx, ddl); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, insert, m.v)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d failed: %w", m.v, err)
		}
		cur = m.v
	}
	return nil
}

func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var cur int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&cur)
	return cur, err
}

func LatestVersion(driver string) int {
	migs := postgresMigrations
	if driver == DriverSQLite {
		migs = sqliteMigrations
	}
	return migs[len(migs)-1].v
}
