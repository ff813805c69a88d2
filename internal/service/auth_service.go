package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/state"
	"github.com/noah-isme/course-console/pkg/backend"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

type authRepository interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
}

// AuthService runs the login, signup and logout flows of one console session.
type AuthService struct {
	repo      authRepository
	sessions  *SessionService
	validator *dto.Validator
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authRepository, sessions *SessionService, validate *dto.Validator, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &AuthService{repo: repo, sessions: sessions, validator: validate, logger: logger}
}

// Login exchanges credentials for a token and binds it to sessionID.
func (s *AuthService) Login(ctx context.Context, sessionID string, store *state.Store, form dto.LoginForm) (*models.SessionUser, error) {
	if err := s.validator.Struct(form); err != nil {
		store.Auth.SetError(err.Error())
		return nil, validationError(err)
	}

	ticket := store.Auth.Begin(state.OpLogin)
	resp, err := s.repo.Login(ctx, form.Request())
	if err == nil && resp.Token == "" {
		message := resp.Message
		if message == "" {
			message = "Login failed"
		}
		err = appErrors.Clone(appErrors.ErrUnauthorized, message)
	}
	if err != nil {
		err = withFallback(err, "Login failed")
		store.Auth.LoginFailed(ticket, err)
		s.logger.Info("login rejected", zap.String("username", form.Username), zap.Error(err))
		return nil, err
	}

	store.Auth.LoggedIn(ticket, *resp)
	if err := s.sessions.Start(ctx, sessionID, resp.Token); err != nil {
		store.Auth.LogoutLocal()
		return nil, err
	}
	user := store.Auth.Snapshot().User
	s.logger.Info("user logged in", zap.String("username", form.Username))
	return user, nil
}

// Signup registers an account. The session stays unauthenticated.
func (s *AuthService) Signup(ctx context.Context, store *state.Store, form dto.SignupForm) (*models.AuthResponse, error) {
	if err := s.validator.Struct(form); err != nil {
		store.Auth.SetError(err.Error())
		return nil, validationError(err)
	}
	if !form.Role.Valid() {
		err := appErrors.Clone(appErrors.ErrValidation, "Please choose a valid role")
		store.Auth.SetError(err.Message)
		return nil, err
	}

	ticket := store.Auth.Begin(state.OpSignup)
	resp, err := s.repo.Signup(ctx, form.Request())
	if err != nil {
		err = withFallback(err, "Signup failed")
		store.Auth.SignupFailed(ticket, err)
		return nil, err
	}
	store.Auth.SignedUp(ticket)
	s.logger.Info("user signed up", zap.String("username", form.Username), zap.String("role", string(form.Role)))
	return resp, nil
}

// Logout notifies the backend and ends the session whatever the outcome.
func (s *AuthService) Logout(ctx context.Context, sessionID string, store *state.Store) {
	ticket := store.Auth.Begin(state.OpLogout)
	if err := s.repo.Logout(ctx); err != nil {
		s.logger.Warn("backend logout failed", zap.Error(err))
	}
	store.Auth.LoggedOut(ticket)
	s.sessions.End(ctx, sessionID, SessionLogout)
}

// ClearError drops the inline error shown on the auth pages.
func (s *AuthService) ClearError(store *state.Store) {
	store.Auth.ClearError()
}

func validationError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
}

// withFallback replaces transport text with fallback when the backend sent no
// message of its own.
func withFallback(err error, fallback string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) && typed.Code != appErrors.ErrBackendUnavailable.Code && !errors.Is(err, backend.ErrNoDetail) {
		return err
	}
	appErr := appErrors.FromError(err)
	return appErrors.Wrap(err, appErr.Code, appErr.Status, fallback)
}
