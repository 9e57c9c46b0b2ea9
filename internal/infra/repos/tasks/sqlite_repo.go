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

// Fixed width so that text comparison orders the same as time.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}

	return store.WithTx(ctx, r.db, nil, "create task", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.Username, task.Model, task.NSample,
			task.Disease, task.Condition, task.Status,
			task.CreatedAt.UTC().Format(sqliteTimeLayout),
		)
		return err
	})
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*domain.Task, error) {
	var task *domain.Task
	err := store.WithTx(ctx, r.db, nil, "get task", func(tx *sql.Tx) error {
		var err error
		task, err = scanSQLiteTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, id))
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

func (r *SQLiteRepository) GetStatus(ctx context.Context, id string) (domain.TaskStatus, error) {
	var status domain.TaskStatus
	err := store.WithTx(ctx, r.db, nil, "get task status", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE task_id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
		}
		return err
	})
	return status, err
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	return store.WithTx(ctx, r.db, nil, "update task status", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE task_id = ?`, status, id)
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

// Transition relies on the single pooled connection for exclusion; SQLite
// has no row locks.
func (r *SQLiteRepository) Transition(ctx context.Context, id string, next domain.TaskStatus, guard func(from domain.TaskStatus) error) (domain.TaskStatus, error) {
	var from domain.TaskStatus
	var guardErr error
	err := store.WithTx(ctx, r.db, nil, "transition task status", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE task_id = ?`, id).Scan(&from)
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
		_, err = tx.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE task_id = ?`, next, id)
		return err
	})
	if guardErr != nil {
		return from, guardErr
	}
	return from, err
}

func (r *SQLiteRepository) List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultTaskListLimit
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.CreatedAfter != nil {
		where = append(where, "created_at > ?")
		args = append(args, filter.CreatedAfter.UTC().Format(sqliteTimeLayout))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	out := make([]*domain.Task, 0)
	err := store.WithTx(ctx, r.db, nil, "list tasks", func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			task, err := scanSQLiteTask(rows)
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

func scanSQLiteTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var createdAt string
	if err := row.Scan(
		&task.ID, &task.Username, &task.Model, &task.NSample,
		&task.Disease, &task.Condition, &task.Status, &createdAt,
	); err != nil {
		return nil, err
	}
	t, err := time.Parse(sqliteTimeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("task %s: bad created_at %q: %w", task.ID, createdAt, err)
	}
	task.CreatedAt = t
	return &task, nil
}
