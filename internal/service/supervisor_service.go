package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"formgate/internal/cache"
	"formgate/internal/engine"
	"formgate/internal/model"
	"formgate/internal/repository"
	"formgate/internal/storage"
)

// SupervisorPerPage is the page size of supervisor listings
const SupervisorPerPage = 15

// SupervisorService serves read-only views over collected responses
type SupervisorService struct {
	responseRepo repository.ResponseRepo
	forms        *FormService
	blobs        storage.BlobStore
	stats        cache.StatsCache
}

// NewSupervisorService creates a new supervisor service
func NewSupervisorService(
	responseRepo repository.ResponseRepo,
	forms *FormService,
	blobs storage.BlobStore,
	stats cache.StatsCache,
) *SupervisorService {
	return &SupervisorService{
		responseRepo: responseRepo,
		forms:        forms,
		blobs:        blobs,
		stats:        stats,
	}
}

// List returns one page of responses, newest first
func (s *SupervisorService) List(ctx context.Context, filter model.ResponseFilter) (*model.ResponsePage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.PerPage = SupervisorPerPage

	page, err := s.responseRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return page, nil
}

// Get returns a response with its form and current visibility
func (s *SupervisorService) Get(ctx context.Context, id string) (*model.ResponseDetail, error) {
	response, err := s.responseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load response: %w", err)
	}
	if response == nil {
		return nil, ErrResponseNotFound
	}

	detail := &model.ResponseDetail{
		Response: response,
		Status:   response.Status(),
	}
	// the form may have been deleted since
	form, err := s.forms.Get(ctx, response.FormID)
	switch {
	case err == nil:
		detail.Form = form
		detail.Visibility = engine.ResolveVisibility(form.Questions, response.Answers)
	case !errors.Is(err, ErrFormNotFound):
		return nil, err
	}
	return detail, nil
}

// OpenFile streams an uploaded answer file
func (s *SupervisorService) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	return s.blobs.Open(ctx, fileID)
}

// Stats returns per-form started/submitted counters
func (s *SupervisorService) Stats(ctx context.Context, limit int) ([]cache.FormStats, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.stats.Top(ctx, limit)
}
