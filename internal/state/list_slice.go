package state

import (
	"fmt"
	"sync"

	"github.com/noah-isme/course-console/internal/models"
)

// Keyed is implemented by every mirrored record.
type Keyed interface {
	Key() int64
}

// ListSnapshot is an immutable copy of a paginated slice.
type ListSnapshot[T any] struct {
	Items       []T    `json:"items"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
	Status      Status `json:"status"`
	Operation   Op     `json:"operation,omitempty"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
}

// HasPrev reports whether a previous page exists.
func (s ListSnapshot[T]) HasPrev() bool { return s.CurrentPage > 0 }

// HasNext reports whether a following page exists.
func (s ListSnapshot[T]) HasNext() bool { return s.CurrentPage+1 < s.TotalPages }

// ListSlice mirrors one page of a paginated backend resource.
type ListSlice[T Keyed] struct {
	mu          sync.RWMutex
	singular    string
	plural      string
	items       []T
	currentPage int
	totalPages  int
	async
}

// NewListSlice builds an empty slice; the nouns feed the fallback error messages.
func NewListSlice[T Keyed](singular, plural string) *ListSlice[T] {
	return &ListSlice[T]{singular: singular, plural: plural, items: []T{}, async: newAsync()}
}

// Begin marks op pending: loading is set and the error cleared.
func (s *ListSlice[T]) Begin(op Op) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin(op)
}

// Fetched replaces the list and pagination from the envelope. Responses
// superseded by a newer fetch are discarded.
func (s *ListSlice[T]) Fetched(t Ticket, page *models.Page[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fulfil(t) {
		return
	}
	s.items = append([]T(nil), page.Items()...)
	s.currentPage = page.PageNumber()
	s.totalPages = page.PageCount()
}

// Created settles a create. The list is left for the caller's refetch.
func (s *ListSlice[T]) Created(t Ticket, _ T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
}

// Updated replaces the record with the same key; unknown keys are ignored.
func (s *ListSlice[T]) Updated(t Ticket, record T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
	for i := range s.items {
		if s.items[i].Key() == record.Key() {
			s.items[i] = record
			return
		}
	}
}

// Deleted removes the record with id; unknown ids are ignored.
func (s *ListSlice[T]) Deleted(t Ticket, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
	kept := s.items[:0:0]
	for _, item := range s.items {
		if item.Key() != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// Failed settles t as rejected.
func (s *ListSlice[T]) Failed(t Ticket, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject(t, failureMessage(err, s.fallback(t.Op)))
}

// Loading reports whether any operation is in flight.
func (s *ListSlice[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading()
}

// Snapshot copies the current state.
func (s *ListSlice[T]) Snapshot() ListSnapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ListSnapshot[T]{
		Items:       append([]T{}, s.items...),
		Loading:     s.loading(),
		Error:       s.err,
		Status:      s.status,
		Operation:   s.op,
		CurrentPage: s.currentPage,
		TotalPages:  s.totalPages,
	}
}

func (s *ListSlice[T]) fallback(op Op) string {
	if op == OpFetch {
		return fmt.Sprintf("Failed to fetch %s", s.plural)
	}
	return fmt.Sprintf("Failed to %s %s", op, s.singular)
}
