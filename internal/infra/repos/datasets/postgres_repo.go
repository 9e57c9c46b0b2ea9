package datasets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
)

type PostgresRepository struct {
	db     *sql.DB
	txOpts *sql.TxOptions
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		txOpts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
}

func (r *PostgresRepository) Insert(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil {
		return errors.New("nil dataset")
	}
	return store.WithTx(ctx, r.db, r.txOpts, "insert dataset", func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO datasets (node, path, disease)
			VALUES ($1, $2, $3)
			RETURNING id`,
			ds.Node, ds.Path, ds.Disease,
		).Scan(&ds.ID)
	})
}

func (r *PostgresRepository) InsertMany(ctx context.Context, list []*domain.Dataset) error {
	return store.WithTx(ctx, r.db, r.txOpts, "import datasets", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO datasets (node, path, disease)
			VALUES ($1, $2, $3)
			RETURNING id`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, ds := range list {
			if err := stmt.QueryRowContext(ctx, ds.Node, ds.Path, ds.Disease).Scan(&ds.ID); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) FindOne(ctx context.Context, node, disease string) (*domain.Dataset, error) {
	var ds domain.Dataset
	err := store.WithTx(ctx, r.db, r.txOpts, "find dataset", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id, node, path, disease
			FROM datasets
			WHERE node = $1 AND disease = $2
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

func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Dataset, error) {
	out := make([]*domain.Dataset, 0)
	err := store.WithTx(ctx, r.db, r.txOpts, "list datasets", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, node, path, disease
			FROM datasets
			ORDER BY id ASC`)
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

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := store.WithTx(ctx, r.db, r.txOpts, "count datasets", func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&n)
	})
	return n, err
}

func (r *PostgresRepository) DeleteOne(ctx context.Context, node, disease, path string) (bool, error) {
	var affected int64
	err := store.WithTx(ctx, r.db, r.txOpts, "delete dataset", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM datasets
			WHERE id = (
				SELECT id FROM datasets
				WHERE node = $1 AND disease = $2 AND path = $3
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

func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	var affected int64
	err := store.WithTx(ctx, r.db, r.txOpts, "delete all datasets", func(tx *sql.Tx) error {
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
