package datasets

import (
	"context"
	"database/sql"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/store"
)

// Repository persists dataset locations. Every call runs in its own
// transaction and reports store failures as *domain.StorageError.
type Repository interface {
	Insert(ctx context.Context, ds *domain.Dataset) error
	// InsertMany adds all records atomically: either every row lands or none.
	InsertMany(ctx context.Context, list []*domain.Dataset) error
	// FindOne returns the earliest inserted match, or domain.ErrNotFound.
	FindOne(ctx context.Context, node, disease string) (*domain.Dataset, error)
	List(ctx context.Context) ([]*domain.Dataset, error)
	Count(ctx context.Context) (int64, error)
	// DeleteOne removes the earliest inserted row matching the full triple.
	DeleteOne(ctx context.Context, node, disease, path string) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// New picks the implementation matching the store driver.
func New(db *sql.DB, driver string) Repository {
	if driver == store.DriverSQLite {
		return NewSQLiteRepository(db)
	}
	return NewPostgresRepository(db)
}
