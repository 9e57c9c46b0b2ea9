package tasks

import (
	"context"
	"database/sql"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
)

// Repository stores synthetic-generation task records. Status is the only
// mutable column; concurrent updates of one task are last-writer-wins.
type Repository interface {
	// Create assigns ID and CreatedAt when unset.
	Create(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, id string) (*domain.Task, error)
	GetStatus(ctx context.Context, id string) (domain.TaskStatus, error)
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error
	// Transition reads the current status under a row lock, lets guard veto
	// the change, then writes next. It returns the previous status.
	Transition(ctx context.Context, id string, next domain.TaskStatus, guard func(from domain.TaskStatus) error) (domain.TaskStatus, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
}

// New picks the implementation matching the store driver.
func New(db *sql.DB, driver string) Repository {
	if driver == store.DriverSQLite {
		return NewSQLiteRepository(db)
	}
	return NewPostgresRepository(db)
}
