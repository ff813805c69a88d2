package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/models"
)

// Store groups the slices of one console session.
type Store struct {
	Courses     *ListSlice[models.Course]
	Students    *ListSlice[models.Student]
	Enrollments *EnrollmentSlice
	Auth        *AuthSlice

	flashes  flashQueue
	lastSeen atomic.Int64
	swept    atomic.Bool
}

// NewStore builds a store with empty slices.
func NewStore() *Store {
	return &Store{
		Courses:     NewListSlice[models.Course]("course", "courses"),
		Students:    NewListSlice[models.Student]("student", "students"),
		Enrollments: NewEnrollmentSlice(),
		Auth:        NewAuthSlice(),
	}
}

func (s *Store) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
	s.swept.Store(false)
}

// shell returns an empty store that keeps the identity of s.
func (s *Store) shell() *Store {
	fresh := NewStore()
	fresh.Auth = s.Auth
	fresh.lastSeen.Store(s.lastSeen.Load())
	fresh.swept.Store(true)
	return fresh
}

func (s *Store) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// Registry keeps one Store per session id.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]*Store
	idleTTL time.Duration
	maxIdle time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewRegistry constructs a Registry. A non-positive idleTTL disables sweeping.
func NewRegistry(idleTTL time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{stores: make(map[string]*Store), idleTTL: idleTTL, now: time.Now, logger: logger}
}

// WithSessionTTL bounds how long an authenticated store may stay idle. Past
// ttl the persisted token has expired too and the store is dropped outright.
func (r *Registry) WithSessionTTL(ttl time.Duration) *Registry {
	r.maxIdle = ttl
	return r
}

// For returns the store of sessionID, creating it on first use.
func (r *Registry) For(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[sessionID]
	if !ok {
		store = NewStore()
		r.stores[sessionID] = store
	}
	store.touch(r.now())
	return store
}

// Lookup returns the store of sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	store, ok := r.stores[sessionID]
	return store, ok
}

// Drop forgets sessionID.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.stores, sessionID)
	r.mu.Unlock()
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep releases stores idle for longer than the TTL and returns how many it
// touched. An authenticated store keeps its auth slice and loses only the
// cached lists, so an idle user keeps their role until the token goes.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	swept := 0
	for id, store := range r.stores {
		idle := store.idleSince(now)
		if idle <= r.idleTTL {
			continue
		}
		expired := r.maxIdle > 0 && idle > r.maxIdle
		if store.Auth.Snapshot().IsAuthenticated && !expired {
			if store.swept.Load() {
				continue
			}
			r.stores[id] = store.shell()
		} else {
			delete(r.stores, id)
		}
		swept++
	}
	return swept
}

// StartJanitor runs Sweep on the cron spec until the returned stop is called.
func (r *Registry) StartJanitor(spec string) (func(), error) {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(spec, func() {
		if swept := r.Sweep(); swept > 0 {
			r.logger.Info("swept idle session state", zap.Int("swept", swept), zap.Int("remaining", r.Len()))
		}
	}); err != nil {
		return nil, err
	}
	scheduler.Start()
	return func() { <-scheduler.Stop().Done() }, nil
}
