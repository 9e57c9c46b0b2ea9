package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
)

const taskColumns = `task_id, username, model, n_sample, disease, condition, status, created_at`

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

func (r *PostgresRepository) Create(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	return store.WithTx(ctx, r.db, r.txOpts, "create task", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			task.ID, task.Username, task.Model, task.NSample,
			task.Disease, task.Condition, task.Status, task.CreatedAt,
		)
		return err
	})
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.Task, error) {
	var task *domain.Task
	err := store.WithTx(ctx, r.db, r.txOpts, "get task", func(tx *sql.Tx) error {
		var err error
		task, err = scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = $1`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *PostgresRepository) GetStatus(ctx context.Context, id string) (domain.TaskStatus, error) {
	var status domain.TaskStatus
	err := store.WithTx(ctx, r.db, r.txOpts, "get task status", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE task_id = $1`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
		}
		return err
	})
	return status, err
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	return store.WithTx(ctx, r.db, r.txOpts, "update task status", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tasks SET status = $1 WHERE task_id = $2`, status, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

func (r *PostgresRepository) Transition(ctx context.Context, id string, next domain.TaskStatus, guard func(from domain.TaskStatus) error) (domain.TaskStatus, error) {
	var from domain.TaskStatus
	var guardErr error
	err := store.WithTx(ctx, r.db, r.txOpts, "transition task status", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE task_id = $1 FOR UPDATE`, id).Scan(&from)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if guard != nil {
			if guardErr = guard(from); guardErr != nil {
				return guardErr
			}
		}
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET status = $1 WHERE task_id = $2`, next, id)
		return err
	})
	if guardErr != nil {
		return from, guardErr
	}
	return from, err
}

func (r *PostgresRepository) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultTaskListLimit
	}

	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, filter.CreatedAfter.UTC())
		where = append(where, fmt.Sprintf("created_at > $%d", len(args)))
	}
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	out := make([]*domain.Task, 0)
	err := store.WithTx(ctx, r.db, r.txOpts, "list tasks", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return err
			}
			out = append(out, task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID, &task.Username, &task.Model, &task.NSample,
		&task.Disease, &task.Condition, &task.Status, &task.CreatedAt,
	); err != nil {
		return nil, err
	}
	task.CreatedAt = task.CreatedAt.UTC()
	return &task, nil
}
