package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/service"
	"github.com/noah-isme/course-console/internal/state"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
	"github.com/noah-isme/course-console/pkg/response"
)

// Gin context keys set by Session.
const (
	ContextSessionIDKey = "sessionID"
	ContextStoreKey     = "sessionStore"
)

// LoginRoute is where unauthenticated requests are sent.
const LoginRoute = "/login"

// SessionOptions configures the session cookie.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session binds the console session named by the cookie, minting one when the
// cookie is absent or malformed, and loads its state.
func Session(sessions *service.SessionService, opts SessionOptions, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := opts.CookieName
	if name == "" {
		name = "console_session"
	}
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(name)
		if err != nil || !service.ValidSessionID(sessionID) {
			sessionID = service.NewSessionID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, sessionID, int(opts.TTL.Seconds()), "/", "", opts.Secure, true)
		}

		ctx := service.WithSessionID(c.Request.Context(), sessionID)
		c.Request = c.Request.WithContext(ctx)

		store, err := sessions.Load(ctx, sessionID)
		if err != nil {
			logger.Warn("session load failed", zap.String("session_id", sessionID), zap.Error(err))
		}

		c.Set(ContextSessionIDKey, sessionID)
		c.Set(ContextStoreKey, store)
		c.Next()
	}
}

// StoreFrom returns the session state bound by Session.
func StoreFrom(c *gin.Context) *state.Store {
	value, exists := c.Get(ContextStoreKey)
	if !exists {
		return nil
	}
	store, _ := value.(*state.Store)
	return store
}

// SessionIDFrom returns the session id bound by Session.
func SessionIDFrom(c *gin.Context) string {
	return c.GetString(ContextSessionIDKey)
}

// RequireAuth is the authentication gate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := StoreFrom(c)
		if store == nil || !store.Auth.Snapshot().IsAuthenticated {
			deny(c, LoginRoute, appErrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// PublicOnly sends authenticated users from the login and signup pages to
// their landing route.
func PublicOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := StoreFrom(c)
		if store != nil {
			if snap := store.Auth.Snapshot(); snap.IsAuthenticated {
				c.Redirect(http.StatusSeeOther, ResolveCapabilities(snap.Role()).LandingRoute)
				c.Abort()
				return
			}
		}
		c.Next()
	}
}

// deny redirects browsers to target and answers JSON clients with err.
func deny(c *gin.Context, target string, err *appErrors.Error) {
	if response.WantsJSON(c) {
		response.Error(c, err)
		c.Abort()
		return
	}
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}
