package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmrzaf/sdcatalog/internal/domain"
)

var taskRowColumns = []string{"task_id", "username", "model", "n_sample", "disease", "condition", "status", "created_at"}

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestPostgresCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tasks \(task_id, username, model, n_sample, disease, condition, status, created_at\)`).
		WithArgs(sqlmock.AnyArg(), "u", "m", int64(100), "AML", "c", "running", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task := &domain.Task{Username: "u", Model: "m", NSample: 100, Disease: "AML", Condition: "c", Status: domain.TaskStatusRunning}
	require.NoError(t, repo.Create(context.Background(), task))
	assert.NotEmpty(t, task.ID)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestPostgresUpdateStatus(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		check     func(t *testing.T, err error)
	}{
		{
			name: "updates existing task",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE tasks SET status = \$1 WHERE task_id = \$2`).
					WithArgs("success", "t1").
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			check: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name: "unknown task is not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE tasks SET status`).
					WithArgs("success", "t1").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrNotFound) },
		},
		{
			name: "driver failure rolls back",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE tasks SET status`).
					WillReturnError(errors.New("connection refused"))
				mock.ExpectRollback()
			},
			check: func(t *testing.T, err error) { assert.True(t, domain.IsStorage(err)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setupMock(mock)
			tt.check(t, repo.UpdateStatus(context.Background(), "t1", domain.TaskStatusSuccess))
		})
	}
}

func TestPostgresGetStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM tasks WHERE task_id = \$1`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("cancelled"))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM tasks WHERE task_id = \$1`).
		WithArgs("t2").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	status, err := repo.GetStatus(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCancelled, status)

	_, err = repo.GetStatus(context.Background(), "t2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresTransitionLocksRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM tasks WHERE task_id = \$1 FOR UPDATE`).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("success"))
	mock.ExpectRollback()

	from, err := repo.Transition(context.Background(), "t1", domain.TaskStatusRunning, func(from domain.TaskStatus) error {
		if !from.CanTransitionTo(domain.TaskStatusRunning) {
			return domain.ErrInvalidTransition
		}
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.TaskStatusSuccess, from)
}

func TestPostgresListBuildsFilter(t *testing.T) {
	repo, mock := newMockRepo(t)
	after := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	created := after.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM tasks WHERE status = \$1 AND created_at > \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("running", after, 10).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow("t1", "u", "m", int64(5), "AML", "c", "running", created))
	mock.ExpectCommit()

	list, err := repo.List(context.Background(), domain.TaskFilter{Status: domain.TaskStatusRunning, CreatedAfter: &after, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0].ID)
	assert.True(t, list[0].CreatedAt.Equal(created))
}

func TestPostgresListDefaultLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM tasks ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(domain.DefaultTaskListLimit).
		WillReturnRows(sqlmock.NewRows(taskRowColumns))
	mock.ExpectCommit()

	list, err := repo.List(context.Background(), domain.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
