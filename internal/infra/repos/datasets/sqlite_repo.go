package datasets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil {
		return errors.New("nil dataset")
	}
	return store.WithTx(ctx, r.db, nil, "insert dataset", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO datasets (node, path, disease)
			VALUES (?, ?, ?)`,
			ds.Node, ds.Path, ds.Disease,
		)
		if err != nil {
			return err
		}
		ds.ID, err = res.LastInsertId()
		return err
	})
}

func (r *SQLiteRepository) InsertMany(ctx context.Context, list []*domain.Dataset) error {
	return store.WithTx(ctx, r.db, nil, "import datasets", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO datasets (node, path, disease) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, ds := range list {
			res, err := stmt.ExecContext(ctx, ds.Node, ds.Path, ds.Disease)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if ds.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) FindOne(ctx context.Context, node, disease string) (*domain.Dataset, error) {
	var ds domain.Dataset
	err := store.WithTx(ctx, r.db, nil, "find dataset", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, node, path, disease
			FROM datasets
			WHERE node = ? AND disease = ?
			ORDER BY id ASC
			LIMIT 1`, node, disease,
		).Scan(&ds.ID, &ds.Node, &ds.Path, &ds.Disease)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("dataset for node %q and disease %q: %w", node, disease, domain.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Dataset, error) {
	out := make([]*domain.Dataset, 0)
	err := store.WithTx(ctx, r.db, nil, "list datasets", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id, node, path, disease FROM datasets ORDER BY id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ds domain.Dataset
			if err := rows.Scan(&ds.ID, &ds.Node, &ds.Path, &ds.Disease); err != nil {
				return err
			}
			out = append(out, &ds)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := store.WithTx(ctx, r.db, nil, "count datasets", func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&n)
	})
	return n, err
}

func (r *SQLiteRepository) DeleteOne(ctx context.Context, node, disease, path string) (bool, error) {
	var affected int64
	err := store.WithTx(ctx, r.db, nil, "delete dataset", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM datasets
			WHERE id = (
				SELECT id FROM datasets
				WHERE node = ? AND disease = ? AND path = ?
				ORDER BY id ASC
				LIMIT 1
			)`, node, disease, path)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	var affected int64
	err := store.WithTx(ctx, r.db, nil, "delete all datasets", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM datasets`)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
