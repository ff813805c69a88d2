package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/state"
)

type resourceRepository[T any] interface {
	List(ctx context.Context, page, size int) (*models.Page[T], error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, record T) (*T, error)
	Update(ctx context.Context, id int64, record T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// resourceService dispatches the paginated CRUD operations of one resource
// into its list slice.
type resourceService[T state.Keyed] struct {
	repo     resourceRepository[T]
	pageSize int
	noun     string
	logger   *zap.Logger
}

func (s *resourceService[T]) fetch(ctx context.Context, slice *state.ListSlice[T], page, size int) error {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = s.pageSize
	}
	ticket := slice.Begin(state.OpFetch)
	result, err := s.repo.List(ctx, page, size)
	if err != nil {
		slice.Failed(ticket, err)
		s.logger.Warn("list failed", zap.String("resource", s.noun), zap.Int("page", page), zap.Error(err))
		return err
	}
	slice.Fetched(ticket, result)
	return nil
}

func (s *resourceService[T]) create(ctx context.Context, slice *state.ListSlice[T], record T) (*T, error) {
	ticket := slice.Begin(state.OpCreate)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		slice.Failed(ticket, err)
		return nil, err
	}
	slice.Created(ticket, *created)
	s.logger.Info("record created", zap.String("resource", s.noun), zap.Int64("id", (*created).Key()))
	return created, nil
}

func (s *resourceService[T]) update(ctx context.Context, slice *state.ListSlice[T], id int64, record T) (*T, error) {
	ticket := slice.Begin(state.OpUpdate)
	updated, err := s.repo.Update(ctx, id, record)
	if err != nil {
		slice.Failed(ticket, err)
		return nil, err
	}
	slice.Updated(ticket, *updated)
	s.logger.Info("record updated", zap.String("resource", s.noun), zap.Int64("id", id))
	return updated, nil
}

func (s *resourceService[T]) remove(ctx context.Context, slice *state.ListSlice[T], id int64) error {
	ticket := slice.Begin(state.OpDelete)
	if err := s.repo.Delete(ctx, id); err != nil {
		slice.Failed(ticket, err)
		return err
	}
	slice.Deleted(ticket, id)
	s.logger.Info("record deleted", zap.String("resource", s.noun), zap.Int64("id", id))
	return nil
}
