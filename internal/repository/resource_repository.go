package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/pkg/backend"
)

// resourceRepository binds the list/get/create/update/delete verbs of one
// paginated backend resource.
type resourceRepository[T any] struct {
	client *backend.Client
	path   string
}

// List fetches one page of the resource.
func (r *resourceRepository[T]) List(ctx context.Context, page, size int) (*models.Page[T], error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	var result models.Page[T]
	if err := r.client.Get(ctx, r.path, query, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Get fetches one record by id.
func (r *resourceRepository[T]) Get(ctx context.Context, id int64) (*T, error) {
	var result T
	if err := r.client.Get(ctx, r.itemPath(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create posts a new record and returns the server's copy.
func (r *resourceRepository[T]) Create(ctx context.Context, record T) (*T, error) {
	var result T
	if err := r.client.Post(ctx, r.path, nil, record, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update replaces the record with id.
func (r *resourceRepository[T]) Update(ctx context.Context, id int64, record T) (*T, error) {
	var result T
	if err := r.client.Put(ctx, r.itemPath(id), record, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes the record with id.
func (r *resourceRepository[T]) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, r.itemPath(id))
}

func (r *resourceRepository[T]) itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", r.path, id)
}
