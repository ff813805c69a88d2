package state

import (
	"sync"

	"github.com/noah-isme/course-console/internal/models"
)

// AuthSnapshot is an immutable copy of the auth slice. The token never leaves
// the server.
type AuthSnapshot struct {
	User            *models.SessionUser `json:"user"`
	IsAuthenticated bool                `json:"isAuthenticated"`
	Loading         bool                `json:"loading"`
	Error           string              `json:"error,omitempty"`
	Status          Status              `json:"status"`
	Token           string              `json:"-"`
}

// Role returns the user's role or "" for a session restored from a token alone.
func (s AuthSnapshot) Role() models.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// AuthSlice holds the identity of one console session.
type AuthSlice struct {
	mu            sync.RWMutex
	user          *models.SessionUser
	token         string
	authenticated bool
	async
}

// NewAuthSlice builds an unauthenticated slice.
func NewAuthSlice() *AuthSlice {
	return &AuthSlice{async: newAsync()}
}

// Begin marks op pending.
func (s *AuthSlice) Begin(op Op) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin(op)
}

// LoggedIn stores the token and identity from a login response.
func (s *AuthSlice) LoggedIn(t Ticket, resp models.AuthResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
	s.token = resp.Token
	s.user = resp.User()
	s.authenticated = resp.Token != ""
}

// LoginFailed clears the identity and records the message.
func (s *AuthSlice) LoginFailed(t Ticket, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject(t, failureMessage(err, "Login failed"))
	s.clear()
}

// SignedUp settles a signup. Signup never authenticates.
func (s *AuthSlice) SignedUp(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
}

// SignupFailed records the message.
func (s *AuthSlice) SignupFailed(t Ticket, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject(t, failureMessage(err, "Signup failed"))
}

// LoggedOut settles a logout. The identity is dropped whatever the outcome.
func (s *AuthSlice) LoggedOut(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
	s.reset()
}

// Restore authenticates from a stored token. A user captured earlier in this
// process is kept; otherwise the session has no username or role.
func (s *AuthSlice) Restore(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return
	}
	if s.token != token {
		s.user = nil
	}
	s.token = token
	s.authenticated = true
}

// SetUser replaces the identity, used when claims are decoded from the token.
func (s *AuthSlice) SetUser(user *models.SessionUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// LogoutLocal drops the identity without calling the backend.
func (s *AuthSlice) LogoutLocal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// SetError records a validation message without dispatching.
func (s *AuthSlice) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = message
	s.status = StatusRejected
}

// ClearError drops the last error message.
func (s *AuthSlice) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// Snapshot copies the current state.
func (s *AuthSlice) Snapshot() AuthSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := AuthSnapshot{
		IsAuthenticated: s.authenticated,
		Loading:         s.loading(),
		Error:           s.err,
		Status:          s.status,
		Token:           s.token,
	}
	if s.user != nil {
		user := *s.user
		snap.User = &user
	}
	return snap
}

func (s *AuthSlice) clear() {
	s.user = nil
	s.token = ""
	s.authenticated = false
}

func (s *AuthSlice) reset() {
	s.clear()
	s.err = ""
}
