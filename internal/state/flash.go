package state

import "sync"

// FlashKind is the severity of a notification.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
)

// Flash is a notification shown once on the next rendered page.
type Flash struct {
	Kind    FlashKind `json:"kind"`
	Message string    `json:"message"`
}

type flashQueue struct {
	mu      sync.Mutex
	pending []Flash
}

// PushFlash queues a notification for the next render.
func (s *Store) PushFlash(kind FlashKind, message string) {
	s.flashes.mu.Lock()
	s.flashes.pending = append(s.flashes.pending, Flash{Kind: kind, Message: message})
	s.flashes.mu.Unlock()
}

// PopFlashes returns and clears the queued notifications.
func (s *Store) PopFlashes() []Flash {
	s.flashes.mu.Lock()
	defer s.flashes.mu.Unlock()
	out := s.flashes.pending
	s.flashes.pending = nil
	return out
}
