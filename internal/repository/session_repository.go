package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

const sessionKeyPattern = "console:session:%s:token"

// RedisSessionRepository stores one bearer token per console session in Redis.
type RedisSessionRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSessionRepository constructs a Redis-backed session repository.
func NewRedisSessionRepository(client *redis.Client, logger *zap.Logger) *RedisSessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSessionRepository{client: client, logger: logger}
}

// GetToken returns the token for sessionID or ErrCacheMiss.
func (r *RedisSessionRepository) GetToken(ctx context.Context, sessionID string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrCacheMiss
	}

	token, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get session %s: %w", sessionID, err)
	}
	return token, nil
}

// SetToken stores token for sessionID with ttl.
func (r *RedisSessionRepository) SetToken(ctx context.Context, sessionID, token string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Set(ctx, sessionKey(sessionID), token, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", sessionID, err)
	}
	return nil
}

// Delete removes the token for sessionID.
func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete session %s: %w", sessionID, err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (r *RedisSessionRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *RedisSessionRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf(sessionKeyPattern, sessionID)
}

type memoryToken struct {
	token     string
	expiresAt time.Time
}

// MemorySessionRepository keeps tokens in process memory. Tokens do not survive
// a console restart.
type MemorySessionRepository struct {
	mu     sync.RWMutex
	tokens map[string]memoryToken
	now    func() time.Time
}

// NewMemorySessionRepository constructs an in-memory session repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{tokens: make(map[string]memoryToken), now: time.Now}
}

// GetToken returns the token for sessionID or ErrCacheMiss.
func (r *MemorySessionRepository) GetToken(ctx context.Context, sessionID string) (string, error) {
	r.mu.RLock()
	entry, ok := r.tokens[sessionID]
	r.mu.RUnlock()
	if !ok {
		return "", appErrors.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		_ = r.Delete(ctx, sessionID)
		return "", appErrors.ErrCacheMiss
	}
	return entry.token, nil
}

// SetToken stores token for sessionID. A non-positive ttl never expires.
func (r *MemorySessionRepository) SetToken(ctx context.Context, sessionID, token string, ttl time.Duration) error {
	entry := memoryToken{token: token}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.mu.Lock()
	r.tokens[sessionID] = entry
	r.mu.Unlock()
	return nil
}

// Delete removes the token for sessionID.
func (r *MemorySessionRepository) Delete(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.tokens, sessionID)
	r.mu.Unlock()
	return nil
}

// Ping always succeeds.
func (r *MemorySessionRepository) Ping(ctx context.Context) error { return nil }
