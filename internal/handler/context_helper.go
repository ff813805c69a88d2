package handler

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-console/internal/middleware"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/state"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
	"github.com/noah-isme/course-console/pkg/middleware/requestid"
	"github.com/noah-isme/course-console/pkg/response"
)

// NavLink is one entry of the layout navigation.
type NavLink struct {
	Label  string
	Href   string
	Active bool
}

// Page is the data every HTML template receives.
type Page struct {
	Title         string
	Path          string
	Nav           []NavLink
	User          *models.SessionUser
	Authenticated bool
	Flashes       []state.Flash
	RequestID     string
	Content       interface{}
}

var navItems = []struct {
	label string
	route string
}{
	{"Courses", middleware.RouteCourses},
	{"Students", middleware.RouteStudents},
	{"Enrollments", middleware.RouteEnrollments},
}

func newPage(c *gin.Context, title string, content interface{}) Page {
	page := Page{
		Title:     title,
		Path:      c.Request.URL.Path,
		RequestID: requestid.Value(c),
		Content:   content,
	}
	store := middleware.StoreFrom(c)
	if store == nil {
		return page
	}
	auth := store.Auth.Snapshot()
	page.User = auth.User
	page.Authenticated = auth.IsAuthenticated
	page.Flashes = store.PopFlashes()
	if auth.IsAuthenticated {
		caps := middleware.ResolveCapabilities(auth.Role())
		for _, item := range navItems {
			if caps.Allows(item.route) {
				page.Nav = append(page.Nav, NavLink{Label: item.label, Href: item.route, Active: item.route == page.Path})
			}
		}
	}
	return page
}

// render answers HTML by default and the JSON view-model when negotiated.
func render(c *gin.Context, status int, template, title string, content interface{}, pagination *models.Pagination) {
	if response.WantsJSON(c) {
		var meta map[string]interface{}
		if store := middleware.StoreFrom(c); store != nil {
			if flashes := store.PopFlashes(); len(flashes) > 0 {
				meta = map[string]interface{}{"flashes": flashes}
			}
		}
		response.JSON(c, status, content, pagination, meta)
		return
	}
	response.HTML(c, status, template, newPage(c, title, content))
}

// errorView is rendered by fail for HTML clients.
type errorView struct {
	Status  int
	Message string
	Back    string
}

// fail reports err. An unauthorized error means the session already ended, so
// browsers are sent to the login page.
func fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	if response.WantsJSON(c) {
		response.Error(c, appErr)
		return
	}
	if appErrors.IsUnauthorized(appErr) {
		c.Redirect(http.StatusSeeOther, middleware.LoginRoute)
		return
	}
	status := appErr.Status
	if status < http.StatusBadRequest {
		status = http.StatusBadGateway
	}
	response.HTML(c, status, tmplError, newPage(c, "Error", errorView{
		Status:  status,
		Message: appErr.Message,
		Back:    c.Request.Referer(),
	}))
}

// bind decodes the request body into form. An empty body binds nothing; a
// malformed one is answered with 400 and reported as false.
func bind(c *gin.Context, form interface{}, what string) bool {
	if err := c.ShouldBind(form); err != nil && !errors.Is(err, io.EOF) {
		fail(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload"))
		return false
	}
	return true
}

// redirectWithFlash queues message and sends the browser to target (PRG).
func redirectWithFlash(c *gin.Context, target string, kind state.FlashKind, message string) {
	if store := middleware.StoreFrom(c); store != nil && message != "" {
		store.PushFlash(kind, message)
	}
	c.Redirect(http.StatusSeeOther, target)
}

func store(c *gin.Context) *state.Store {
	if s := middleware.StoreFrom(c); s != nil {
		return s
	}
	return state.NewStore()
}

func currentUser(c *gin.Context) *models.SessionUser {
	if s := middleware.StoreFrom(c); s != nil {
		return s.Auth.Snapshot().User
	}
	return nil
}

func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "invalid "+name)
	}
	return id, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func queryInt64(c *gin.Context, key string) int64 {
	value, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func withQuery(path string, key string, value int64) string {
	if value <= 0 && key != "page" {
		return path
	}
	return path + "?" + url.Values{key: {strconv.FormatInt(value, 10)}}.Encode()
}

func statusOf(err error) int {
	status := appErrors.FromError(err).Status
	if status < http.StatusBadRequest {
		return http.StatusBadGateway
	}
	return status
}
