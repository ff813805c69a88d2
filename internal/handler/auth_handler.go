package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/middleware"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/service"
	"github.com/noah-isme/course-console/internal/state"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
	"github.com/noah-isme/course-console/pkg/response"
)

// AuthHandler serves login, signup and logout.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type authView struct {
	Username string        `json:"username"`
	Email    string        `json:"email,omitempty"`
	Role     models.Role   `json:"role,omitempty"`
	Roles    []models.Role `json:"-"`
	Error    string        `json:"error,omitempty"`
}

type loginResult struct {
	User     *models.SessionUser `json:"user"`
	Redirect string              `json:"redirect"`
}

// Root sends the caller to its landing route.
func (h *AuthHandler) Root(c *gin.Context) {
	snap := store(c).Auth.Snapshot()
	if !snap.IsAuthenticated {
		c.Redirect(http.StatusSeeOther, middleware.LoginRoute)
		return
	}
	c.Redirect(http.StatusSeeOther, middleware.ResolveCapabilities(snap.Role()).LandingRoute)
}

// LoginPage renders the login form. Any error left from an earlier attempt is cleared.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	h.auth.ClearError(store(c))
	render(c, http.StatusOK, tmplLogin, "Login", authView{}, nil)
}

// Login godoc
// @Summary Log in and bind the token to the console session
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.LoginForm true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	if !bind(c, &form, "login") {
		return
	}
	s := store(c)

	user, err := h.auth.Login(c.Request.Context(), middleware.SessionIDFrom(c), s, form)
	if err != nil {
		if response.WantsJSON(c) {
			response.Error(c, err)
			return
		}
		render(c, statusOf(err), tmplLogin, "Login", authView{
			Username: form.Username,
			Error:    s.Auth.Snapshot().Error,
		}, nil)
		return
	}

	landing := middleware.ResolveCapabilities(s.Auth.Snapshot().Role()).LandingRoute
	if response.WantsJSON(c) {
		response.JSON(c, http.StatusOK, loginResult{User: user, Redirect: landing}, nil)
		return
	}
	c.Redirect(http.StatusSeeOther, landing)
}

// SignupPage renders the signup form.
func (h *AuthHandler) SignupPage(c *gin.Context) {
	h.auth.ClearError(store(c))
	render(c, http.StatusOK, tmplSignup, "Sign Up", authView{Role: models.RoleStudent, Roles: models.Roles}, nil)
}

// Signup godoc
// @Summary Register an account
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.SignupForm true "Account"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var form dto.SignupForm
	if !bind(c, &form, "signup") {
		return
	}
	s := store(c)

	resp, err := h.auth.Signup(c.Request.Context(), s, form)
	if err != nil {
		if response.WantsJSON(c) {
			response.Error(c, err)
			return
		}
		message := s.Auth.Snapshot().Error
		if message == "" {
			message = appErrors.Message(err, "Signup failed")
		}
		render(c, statusOf(err), tmplSignup, "Sign Up", authView{
			Username: form.Username,
			Email:    form.Email,
			Role:     form.Role,
			Roles:    models.Roles,
			Error:    message,
		}, nil)
		return
	}

	if response.WantsJSON(c) {
		response.Created(c, resp)
		return
	}
	redirectWithFlash(c, middleware.LoginRoute, state.FlashSuccess, "Registration successful! Please login.")
}

// Logout godoc
// @Summary End the console session
// @Tags Auth
// @Produce json
// @Success 204
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.Logout(c.Request.Context(), middleware.SessionIDFrom(c), store(c))
	if response.WantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, middleware.LoginRoute)
}
