package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/state"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

// SessionEventKind names a session lifecycle transition.
type SessionEventKind string

const (
	SessionLogin    SessionEventKind = "login"
	SessionLogout   SessionEventKind = "logout"
	SessionExpired  SessionEventKind = "expired"
	SessionRestored SessionEventKind = "restored"
)

// SessionEvent is delivered to subscribers after every transition.
type SessionEvent struct {
	SessionID string
	Kind      SessionEventKind
	User      *models.SessionUser
}

type sessionTokenStore interface {
	GetToken(ctx context.Context, sessionID string) (string, error)
	SetToken(ctx context.Context, sessionID, token string, ttl time.Duration) error
	Delete(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// SessionConfig tunes token persistence.
type SessionConfig struct {
	TTL               time.Duration
	DecodeTokenClaims bool
}

type sessionContextKey struct{}

// WithSessionID binds a console session id to ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sessionID)
}

// SessionIDFromContext returns the console session id bound to ctx.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(sessionContextKey{}).(string)
	return id
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string { return uuid.NewString() }

// ValidSessionID reports whether id looks like one NewSessionID produced.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SessionService is the only writer of the persisted bearer token and the
// auth slice's authenticated flag.
type SessionService struct {
	repo     sessionTokenStore
	registry *state.Registry
	cfg      SessionConfig
	logger   *zap.Logger

	mu        sync.RWMutex
	listeners map[int]func(SessionEvent)
	nextID    int
}

// NewSessionService constructs a SessionService.
func NewSessionService(repo sessionTokenStore, registry *state.Registry, cfg SessionConfig, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		repo:      repo,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
		listeners: make(map[int]func(SessionEvent)),
	}
}

// Subscribe registers fn for every session event and returns its cancel func.
func (s *SessionService) Subscribe(fn func(SessionEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *SessionService) notify(event SessionEvent) {
	s.mu.RLock()
	listeners := make([]func(SessionEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(event)
	}
}

// Load returns the state of sessionID with the auth slice synchronised to the
// persisted token. A missing token leaves the session unauthenticated.
func (s *SessionService) Load(ctx context.Context, sessionID string) (*state.Store, error) {
	store := s.registry.For(sessionID)

	token, err := s.repo.GetToken(ctx, sessionID)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			if store.Auth.Snapshot().IsAuthenticated {
				store.Auth.LogoutLocal()
			}
			return store, nil
		}
		return store, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	before := store.Auth.Snapshot()
	store.Auth.Restore(token)
	if before.IsAuthenticated && before.Token == token {
		return store, nil
	}

	// A user captured at login survives; a restore from the token alone has no identity.
	if s.cfg.DecodeTokenClaims && store.Auth.Snapshot().User == nil {
		if user := userFromClaims(token); user != nil {
			store.Auth.SetUser(user)
		}
	}
	snap := store.Auth.Snapshot()
	s.logger.Debug("session restored from token",
		zap.String("session_id", sessionID),
		zap.Bool("has_role", snap.Role() != ""))
	s.notify(SessionEvent{SessionID: sessionID, Kind: SessionRestored, User: snap.User})
	return store, nil
}

// Start persists token for sessionID after a successful login.
func (s *SessionService) Start(ctx context.Context, sessionID, token string) error {
	if err := s.repo.SetToken(ctx, sessionID, token, s.cfg.TTL); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	var user *models.SessionUser
	if store, ok := s.registry.Lookup(sessionID); ok {
		user = store.Auth.Snapshot().User
	}
	s.notify(SessionEvent{SessionID: sessionID, Kind: SessionLogin, User: user})
	return nil
}

// End clears the persisted token and the auth slice of sessionID.
func (s *SessionService) End(ctx context.Context, sessionID string, kind SessionEventKind) {
	if sessionID == "" {
		return
	}
	if err := s.repo.Delete(context.WithoutCancel(ctx), sessionID); err != nil {
		s.logger.Warn("failed to delete session token", zap.String("session_id", sessionID), zap.Error(err))
	}
	var user *models.SessionUser
	if store, ok := s.registry.Lookup(sessionID); ok {
		user = store.Auth.Snapshot().User
		store.Auth.LogoutLocal()
	}
	s.notify(SessionEvent{SessionID: sessionID, Kind: kind, User: user})
}

// Token returns the bearer token of the session bound to ctx.
func (s *SessionService) Token(ctx context.Context) string {
	store, ok := s.registry.Lookup(SessionIDFromContext(ctx))
	if !ok {
		return ""
	}
	return store.Auth.Snapshot().Token
}

// HandleUnauthorized ends the session bound to ctx after a backend 401.
func (s *SessionService) HandleUnauthorized(ctx context.Context) {
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		return
	}
	s.logger.Info("backend rejected token, ending session", zap.String("session_id", sessionID))
	s.End(ctx, sessionID, SessionExpired)
}

// Ping checks the token store.
func (s *SessionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// userFromClaims reads identity claims without verifying the signature; the
// backend still verifies the token on every call.
func userFromClaims(token string) *models.SessionUser {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	username := claimString(claims, "username")
	if username == "" {
		username, _ = claims.GetSubject()
	}
	if username == "" {
		return nil
	}
	role := models.Role(strings.ToUpper(strings.TrimPrefix(claimString(claims, "role"), "ROLE_")))
	if role == "" {
		if roles, ok := claims["roles"].([]interface{}); ok && len(roles) > 0 {
			if first, ok := roles[0].(string); ok {
				role = models.Role(strings.ToUpper(strings.TrimPrefix(first, "ROLE_")))
			}
		}
	}
	if !role.Valid() {
		role = ""
	}
	return &models.SessionUser{Username: username, Email: claimString(claims, "email"), Role: role}
}

func claimString(claims jwt.MapClaims, key string) string {
	value, _ := claims[key].(string)
	return strings.TrimSpace(value)
}
