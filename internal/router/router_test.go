package router

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/handler"
	"github.com/noah-isme/course-console/internal/middleware"
	"github.com/noah-isme/course-console/internal/repository"
	"github.com/noah-isme/course-console/internal/service"
	"github.com/noah-isme/course-console/internal/state"
	"github.com/noah-isme/course-console/internal/views"
	"github.com/noah-isme/course-console/pkg/backend"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const cookieName = "console_session"

// fakeAPI plays the course-management backend.
type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	expired  bool
	enrolled bool
	grade    string
}

var accounts = map[string]string{
	"alice": `{"token":"t1","type":"Bearer","username":"alice","email":"alice@uni.test","role":"ADMIN"}`,
	"ada":   `{"token":"t1","type":"Bearer","username":"ada","email":"ada@uni.test","role":"STUDENT"}`,
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		call += "?" + r.URL.RawQuery
	}
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, "/api")

	if !strings.HasPrefix(path, "/auth/") && (f.expired || r.Header.Get("Authorization") != "Bearer t1") {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Token expired"}`)
		return
	}

	switch r.Method + " " + path {
	case "POST /auth/login":
		var req struct{ Username string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		body, ok := accounts[req.Username]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, body)
	case "POST /auth/signup":
		_, _ = io.WriteString(w, `{"message":"User registered successfully"}`)
	case "POST /auth/logout", "DELETE /courses/3", "DELETE /enrollments/12":
		w.WriteHeader(http.StatusNoContent)
	case "GET /courses":
		page := r.URL.Query().Get("page")
		_, _ = fmt.Fprintf(w, `{"content":[{"id":1,"code":"CS101","title":"Intro","credits":6,"capacity":50},{"id":7,"code":"CS207","title":"Algorithms","credits":6,"capacity":40}],"number":%s,"totalPages":4}`, page)
	case "GET /courses/1":
		_, _ = io.WriteString(w, `{"id":1,"code":"CS101","title":"Intro","credits":6,"capacity":50}`)
	case "GET /students":
		_, _ = io.WriteString(w, `{"content":[{"id":5,"indexNumber":"S-5","firstName":"Ada","lastName":"Lovelace","email":"ada@uni.test"},{"id":6,"indexNumber":"S-6","firstName":"Alan","lastName":"Turing","email":"alan@uni.test"}],"number":0,"totalPages":1}`)
	case "POST /enrollments/enroll":
		f.mu.Lock()
		f.enrolled = true
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"id":12,"student":{"id":5},"course":{"id":7}}`)
	case "PATCH /enrollments/12/grade":
		f.mu.Lock()
		f.grade = r.URL.Query().Get("grade")
		f.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"id":12,"student":{"id":5},"course":{"id":7,"code":"CS207"},"grade":%q}`, r.URL.Query().Get("grade"))
	case "GET /enrollments/by-student/5":
		f.mu.Lock()
		enrolled, grade := f.enrolled, f.grade
		f.mu.Unlock()
		if !enrolled {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		item := map[string]interface{}{
			"id":         12,
			"student":    map[string]interface{}{"id": 5, "indexNumber": "S-5", "firstName": "Ada", "lastName": "Lovelace", "email": "ada@uni.test"},
			"course":     map[string]interface{}{"id": 7, "code": "CS207", "title": "Algorithms", "credits": 6, "capacity": 40},
			"enrolledAt": "2024-09-01T10:00:00",
		}
		if grade != "" {
			item["grade"] = grade
		}
		_ = json.NewEncoder(w).Encode([]interface{}{item})
	case "GET /enrollments/gpa/5":
		_, _ = io.WriteString(w, `3.5`)
	case "GET /enrollments/by-course/1":
		_, _ = io.WriteString(w, `[{"id":12,"student":{"id":5,"indexNumber":"S-5","firstName":"Ada","lastName":"Lovelace"},"course":{"id":1},"grade":"A_MINUS"}]`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"not found"}`)
	}
}

func newConsole(t *testing.T, api *fakeAPI) *gin.Engine {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logr := zap.NewNop()
	registry := state.NewRegistry(time.Hour, logr)
	sessions := service.NewSessionService(repository.NewMemorySessionRepository(), registry, service.SessionConfig{TTL: time.Hour}, logr)

	apiClient, err := backend.New(backend.Config{
		BaseURL:        srv.URL + "/api",
		Token:          sessions.Token,
		OnUnauthorized: sessions.HandleUnauthorized,
	})
	require.NoError(t, err)
	authClient, err := backend.New(backend.Config{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)

	validate := dto.NewValidator()
	courses := service.NewCourseService(repository.NewCourseRepository(apiClient), 10, validate, logr)
	students := service.NewStudentService(repository.NewStudentRepository(apiClient), 10, validate, logr)
	enrollments := service.NewEnrollmentService(repository.NewEnrollmentRepository(apiClient), validate, logr)
	auth := service.NewAuthService(repository.NewAuthRepository(authClient), sessions, validate, logr)

	renderer, err := views.New()
	require.NoError(t, err)

	return New(Options{
		Session: middleware.SessionOptions{CookieName: cookieName, TTL: time.Hour},
		HTML:    renderer,
	}, Handlers{
		Auth:        handler.NewAuthHandler(auth),
		Courses:     handler.NewCourseHandler(courses, enrollments, 10),
		Students:    handler.NewStudentHandler(students, 10),
		Enrollments: handler.NewEnrollmentHandler(enrollments, students, courses, 100),
		Ops:         handler.NewMetricsHandler(nil, nil),
	}, sessions, nil, logr)
}

// browser keeps the session cookie between requests.
type browser struct {
	t      *testing.T
	engine http.Handler
	cookie *http.Cookie
}

func (b *browser) do(method, path, body string, jsonClient bool) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	switch {
	case strings.HasPrefix(body, "{"):
		req.Header.Set("Content-Type", "application/json")
	case body != "":
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if jsonClient {
		req.Header.Set("Accept", "application/json")
	} else {
		req.Header.Set("Accept", "text/html")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.engine.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) login(username string) {
	b.t.Helper()
	w := b.do(http.MethodPost, "/login", fmt.Sprintf(`{"username":%q,"password":"pw"}`, username), true)
	require.Equal(b.t, http.StatusOK, w.Code, w.Body.String())
}

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *struct{ Code, Message string } `json:"error"`
	Pagination *struct {
		Page       int `json:"page"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
	Meta map[string]json.RawMessage `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestLoginRedirectsToRoleLanding(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}

	w := b.do(http.MethodPost, "/login", `{"username":"alice","password":"pw"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	var result struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
		Redirect string `json:"redirect"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "ADMIN", result.User.Role)
	assert.Equal(t, "/courses", result.Redirect)

	w = b.do(http.MethodGet, "/login", "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/courses", w.Header().Get("Location"))

	w = b.do(http.MethodGet, "/", "", false)
	assert.Equal(t, "/courses", w.Header().Get("Location"))
}

func TestBrowserLoginFailureRendersMessage(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}

	w := b.do(http.MethodPost, "/login", "username=mallory&password=pw", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = b.do(http.MethodPost, "/login", "username=&password=", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please fill in all required fields")
}

func TestUnauthenticatedRequestsGoToLogin(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}

	w := b.do(http.MethodGet, "/", "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = b.do(http.MethodGet, "/courses", "", false)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = b.do(http.MethodGet, "/courses", "", true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCourseListRendersPage(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodGet, "/courses", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "CS101")
	assert.Contains(t, body, "Page 1 of 4")
	assert.Contains(t, body, `href="/courses"`)
	assert.Contains(t, api.Calls(), "GET /api/courses?page=0&size=10")
}

func TestDeleteRefetchesCurrentPage(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodDelete, "/courses/3?page=2", "", true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 4, env.Pagination.TotalPages)
	assert.Contains(t, string(env.Meta["flashes"]), "Course deleted successfully!")

	calls := api.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, "DELETE /api/courses/3", calls[len(calls)-2])
	assert.Equal(t, "GET /api/courses?page=2&size=10", calls[len(calls)-1])
}

func TestBrowserDeleteUsesPostRedirectGet(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}
	b.login("alice")

	w := b.do(http.MethodPost, "/courses/3/delete?page=2", "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/courses?page=2", w.Header().Get("Location"))

	w = b.do(http.MethodGet, "/courses?page=2", "", false)
	assert.Contains(t, w.Body.String(), "Course deleted successfully!")

	w = b.do(http.MethodGet, "/courses?page=2", "", false)
	assert.NotContains(t, w.Body.String(), "Course deleted successfully!")
}

func TestCourseFormValidationStaysOnDialog(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodPost, "/courses", "code=CS300&title=", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Please fill in all required fields")
	assert.Contains(t, w.Body.String(), `value="CS300"`)
	for _, call := range api.Calls() {
		assert.NotContains(t, call, "POST /api/courses")
	}
}

func TestNewCourseDialogStartsWithDefaults(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}
	b.login("alice")

	w := b.do(http.MethodGet, "/courses/new", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="credits" type="number" min="0" value="2"`)
	assert.Contains(t, w.Body.String(), `name="capacity" type="number" min="0" value="50"`)
}

func TestMalformedJSONBodyIsRejected(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodPost, "/courses", `{"code":"CS300","credits":`, true)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid course payload", env.Error.Message)
	for _, call := range api.Calls() {
		assert.NotContains(t, call, "POST /api/courses")
	}
}

func TestStudentIsSentToEnrollments(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}
	b.login("ada")

	w := b.do(http.MethodGet, "/courses", "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/enrollments", w.Header().Get("Location"))

	w = b.do(http.MethodGet, "/students", "", true)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = b.do(http.MethodGet, "/enrollments", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Students          []struct{ ID int64 } `json:"students"`
		SelectedStudentID int64                `json:"selectedStudentId"`
		CanGrade          bool                 `json:"canGrade"`
		CanExport         bool                 `json:"canExport"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	require.Len(t, view.Students, 1)
	assert.Equal(t, int64(5), view.SelectedStudentID)
	assert.False(t, view.CanGrade)
	assert.True(t, view.CanExport)

	w = b.do(http.MethodPost, "/enrollments", `{"studentId":6,"courseId":7}`, true)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEnrollRefetchesEnrollmentsAndGPA(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodPost, "/enrollments", `{"studentId":5,"courseId":7}`, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var snap struct {
		Items []struct {
			Course struct{ ID int64 } `json:"course"`
		} `json:"items"`
		GPA *float64 `json:"gpa"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &snap))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(7), snap.Items[0].Course.ID)
	require.NotNil(t, snap.GPA)
	assert.InDelta(t, 3.5, *snap.GPA, 0.0001)

	calls := api.Calls()
	assert.Contains(t, calls, "POST /api/enrollments/enroll?courseId=7&studentId=5")
	assert.Contains(t, calls, "GET /api/enrollments/by-student/5")
	assert.Contains(t, calls, "GET /api/enrollments/gpa/5")

	w = b.do(http.MethodGet, "/enrollments?studentId=5", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3.50")
	assert.Contains(t, w.Body.String(), "Not graded")
}

func TestEnrollWithoutSelectionShowsFlash(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}
	b.login("alice")

	w := b.do(http.MethodPost, "/enrollments", "studentId=5", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = b.do(http.MethodGet, w.Header().Get("Location"), "", false)
	assert.Contains(t, w.Body.String(), "Please select both student and course")
}

func TestGradeRendersDisplayLabel(t *testing.T) {
	api := &fakeAPI{enrolled: true}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodPut, "/enrollments/12/grade", `{"studentId":5,"grade":"B_PLUS"}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, api.Calls(), "PATCH /api/enrollments/12/grade?grade=B_PLUS")

	w = b.do(http.MethodGet, "/enrollments?studentId=5", "", false)
	assert.Contains(t, w.Body.String(), "B +")

	w = b.do(http.MethodGet, "/enrollments/12/grade?studentId=5", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<option value="B_PLUS" selected>`)
}

func TestDropConfirmsThenRedirects(t *testing.T) {
	api := &fakeAPI{enrolled: true}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodGet, "/enrollments/12/drop?studentId=5", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/enrollments/12/drop?studentId=5"`)

	w = b.do(http.MethodPost, "/enrollments/12/drop?studentId=5", "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/enrollments?studentId=5", w.Header().Get("Location"))
	assert.Contains(t, api.Calls(), "DELETE /api/enrollments/12")

	w = b.do(http.MethodGet, "/enrollments?studentId=5", "", false)
	assert.Contains(t, w.Body.String(), "Enrollment dropped successfully")
}

func TestTranscriptExport(t *testing.T) {
	api := &fakeAPI{enrolled: true, grade: "A"}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodGet, "/enrollments/export?studentId=5&format=csv", "", false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transcript-S-5.csv")
	assert.Contains(t, w.Body.String(), "CS207")
	assert.Contains(t, w.Body.String(), "3.50")

	w = b.do(http.MethodGet, "/enrollments/export?studentId=5&format=pdf", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = b.do(http.MethodGet, "/enrollments/export?studentId=5&format=xlsx", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseRoster(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}
	b.login("alice")

	w := b.do(http.MethodGet, "/courses/1/enrollments", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ada Lovelace")
	assert.Contains(t, w.Body.String(), "A -")
}

func TestBackendUnauthorizedEndsSession(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	api.mu.Lock()
	api.expired = true
	api.mu.Unlock()

	w := b.do(http.MethodGet, "/courses", "", true)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	api.mu.Lock()
	api.expired = false
	api.mu.Unlock()

	w = b.do(http.MethodGet, "/enrollments", "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestSignupFlow(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}

	w := b.do(http.MethodPost, "/signup", "username=neo&email=neo%40uni.test&password=a&confirmPassword=b&role=STUDENT", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match")
	assert.NotContains(t, api.Calls(), "POST /api/auth/signup")

	w = b.do(http.MethodPost, "/signup", "username=neo&email=neo%40uni.test&password=a&confirmPassword=a&role=STUDENT", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	w = b.do(http.MethodGet, "/login", "", false)
	assert.Contains(t, w.Body.String(), "Registration successful! Please login.")
}

func TestLogoutClearsSession(t *testing.T) {
	api := &fakeAPI{}
	b := &browser{t: t, engine: newConsole(t, api)}
	b.login("alice")

	w := b.do(http.MethodPost, "/logout", "", false)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Contains(t, api.Calls(), "POST /api/auth/logout")

	w = b.do(http.MethodGet, "/courses", "", false)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestHealthEndpoints(t *testing.T) {
	b := &browser{t: t, engine: newConsole(t, &fakeAPI{})}

	w := b.do(http.MethodGet, "/health", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	w = b.do(http.MethodGet, "/ready", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, b.cookie)
}
