package app

import (
	"context"
	"fmt"

	"github.com/mmrzaf/sdcatalog/internal/domain"
	"github.com/mmrzaf/sdcatalog/internal/infra/repos/datasets"
	"github.com/mmrzaf/sdcatalog/internal/logging"
	"github.com/mmrzaf/sdcatalog/internal/validation"
)

// CatalogueService records where datasets live. Inputs are validated
// before the store is touched.
type CatalogueService struct {
	repo   datasets.Repository
	logger *logging.Logger
}

func NewCatalogueService(repo datasets.Repository, logger *logging.Logger) *CatalogueService {
	return &CatalogueService{
		repo:   repo,
		logger: logger.WithComponent("catalogue"),
	}
}

func (s *CatalogueService) Insert(ctx context.Context, node, path, disease string) (*domain.Dataset, error) {
	ds := &domain.Dataset{Node: node, Path: path, Disease: disease}
	if err := validation.ValidateDataset(ds); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, ds); err != nil {
		s.logger.Errorw("dataset.insert_failed", map[string]any{"node": node, "disease": disease, "error": err.Error()})
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	s.logger.Infow("dataset.inserted", map[string]any{"id": ds.ID, "node": node, "disease": disease, "path": path})
	return ds, nil
}

func (s *CatalogueService) FindOne(ctx context.Context, node, disease string) (*domain.Dataset, error) {
	if err := validation.ValidateLookup(node, disease); err != nil {
		return nil, err
	}
	ds, err := s.repo.FindOne(ctx, node, disease)
	if err != nil {
		return nil, fmt.Errorf("find dataset: %w", err)
	}
	return ds, nil
}

// ListAll returns an empty slice for an empty catalogue; reporting that
// as not-found is left to the caller.
func (s *CatalogueService) ListAll(ctx context.Context) ([]*domain.Dataset, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return list, nil
}

func (s *CatalogueService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *CatalogueService) DeleteOne(ctx context.Context, node, disease, path string) (bool, error) {
	if err := validation.ValidateDatasetKey(node, disease, path); err != nil {
		return false, err
	}
	removed, err := s.repo.DeleteOne(ctx, node, disease, path)
	if err != nil {
		return false, fmt.Errorf("delete dataset: %w", err)
	}
	s.logger.Infow("dataset.deleted", map[string]any{"node": node, "disease": disease, "path": path, "removed": removed})
	return removed, nil
}

func (s *CatalogueService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all datasets: %w", err)
	}
	s.logger.Warnw("dataset.purged", map[string]any{"removed": n})
	return n, nil
}

// Import validates every record first, then inserts them in a single
// transaction.
func (s *CatalogueService) Import(ctx context.Context, manifest *domain.DatasetManifest) (int, error) {
	if manifest == nil || len(manifest.Datasets) == 0 {
		return 0, domain.NewValidationError("datasets", "manifest has no entries")
	}
	list := make([]*domain.Dataset, 0, len(manifest.Datasets))
	for i := range manifest.Datasets {
		ds := manifest.Datasets[i]
		if err := validation.ValidateDataset(&ds); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		list = append(list, &ds)
	}
	if err := s.repo.InsertMany(ctx, list); err != nil {
		return 0, fmt.Errorf("import datasets: %w", err)
	}
	s.logger.Infow("dataset.imported", map[string]any{"count": len(list)})
	return len(list), nil
}
