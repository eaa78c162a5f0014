package service

import (
	"context"

	"spectrostation"
	"spectrostation/internal/repository"
)

const maxSpectraPageSize = 200

// SpectraService is read access to the committed capture archive.
type SpectraService struct {
	repo repository.SpectrumRepo
}

func NewSpectraService(repo repository.SpectrumRepo) *SpectraService {
	return &SpectraService{repo: repo}
}

// List returns the newest captures, capped to a sane page size.
func (s *SpectraService) List(ctx context.Context, limit int) ([]spectrostation.Spectrum, error) {
	if limit <= 0 || limit > maxSpectraPageSize {
		limit = maxSpectraPageSize
	}
	return s.repo.List(ctx, limit)
}

// Get fetches one capture by id.
func (s *SpectraService) Get(ctx context.Context, id string) (spectrostation.Spectrum, error) {
	return s.repo.Get(ctx, id)
}
