package repository

import (
	"context"

	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/pkg/backend"
)

// AuthRepository binds the backend /auth endpoints. It expects a client built
// without a token source or unauthorized hook: a failed login must surface the
// backend message instead of ending the session.
type AuthRepository struct {
	client *backend.Client
}

// NewAuthRepository constructs an AuthRepository.
func NewAuthRepository(client *backend.Client) *AuthRepository {
	return &AuthRepository{client: client}
}

// Login exchanges credentials for a token.
func (r *AuthRepository) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var result models.AuthResponse
	if err := r.client.Post(ctx, "/auth/login", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Signup registers a new account.
func (r *AuthRepository) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	var result models.AuthResponse
	if err := r.client.Post(ctx, "/auth/signup", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Logout notifies the backend that the session ended.
func (r *AuthRepository) Logout(ctx context.Context) error {
	return r.client.Post(ctx, "/auth/logout", nil, nil, nil)
}
