package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/pkg/backend"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

func newTestBackend(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*backend.Client, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		w.Header().Set("Content-Type", "application/json")
		respond(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := backend.New(backend.Config{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	return client, &captured
}

func TestCourseRepositoryList(t *testing.T) {
	client, captured := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"id":1,"code":"CS101","title":"Intro","credits":6,"capacity":50}],"number":2,"totalPages":3}`))
	})
	repo := NewCourseRepository(client)

	page, err := repo.List(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Items(), 1)
	assert.Equal(t, "CS101", page.Items()[0].Code)
	assert.Equal(t, 2, page.PageNumber())
	assert.Equal(t, 3, page.PageCount())

	require.Len(t, *captured, 1)
	assert.Equal(t, http.MethodGet, (*captured)[0].Method)
	assert.Equal(t, "/api/courses", (*captured)[0].Path)
	assert.Equal(t, "page=2&size=10", (*captured)[0].Query)
}

func TestCourseRepositoryPageFallbacks(t *testing.T) {
	client, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"currentPage":1}`))
	})
	page, err := NewCourseRepository(client).List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items())
	assert.NotNil(t, page.Items())
	assert.Equal(t, 1, page.PageNumber())
	assert.Equal(t, 0, page.PageCount())
}

func TestStudentRepositoryCrudPaths(t *testing.T) {
	client, captured := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id":4,"indexNumber":"S-4","firstName":"Ada","lastName":"Lovelace","email":"ada@uni.test"}`))
	})
	repo := NewStudentRepository(client)
	ctx := context.Background()

	created, err := repo.Create(ctx, models.Student{IndexNumber: "S-4", FirstName: "Ada", LastName: "Lovelace", Email: "ada@uni.test"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)

	_, err = repo.Get(ctx, 4)
	require.NoError(t, err)
	_, err = repo.Update(ctx, 4, *created)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, 4))

	got := *captured
	require.Len(t, got, 4)
	assert.Equal(t, capturedRequest{Method: http.MethodPost, Path: "/api/students", Body: got[0].Body}, got[0])
	var posted map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(got[0].Body), &posted))
	assert.Equal(t, "ada@uni.test", posted["email"])
	assert.Equal(t, "/api/students/4", got[1].Path)
	assert.Equal(t, http.MethodPut, got[2].Method)
	assert.Equal(t, http.MethodDelete, got[3].Method)
	assert.Equal(t, "/api/students/4", got[3].Path)
}

func TestEnrollmentRepositoryActions(t *testing.T) {
	client, captured := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/enrollments/gpa/5":
			_, _ = w.Write([]byte(`3.25`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/api/enrollments/by-student/5", r.URL.Path == "/api/enrollments/by-course/7":
			_, _ = w.Write([]byte(`[{"id":12,"student":{"id":5},"course":{"id":7,"code":"MA201"},"enrolledAt":"2024-02-01T09:30:00","grade":null}]`))
		default:
			_, _ = w.Write([]byte(`{"id":12,"student":{"id":5},"course":{"id":7},"enrolledAt":"2024-02-01T09:30:00","grade":"B_PLUS"}`))
		}
	})
	repo := NewEnrollmentRepository(client)
	ctx := context.Background()

	enrolled, err := repo.Enroll(ctx, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), enrolled.ID)
	assert.Equal(t, 2024, enrolled.EnrolledAt.Year())

	graded, err := repo.Grade(ctx, 12, models.GradeBPlus)
	require.NoError(t, err)
	assert.Equal(t, models.GradeBPlus, graded.Grade)

	list, err := repo.ByStudent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Graded())
	assert.Equal(t, "MA201", list[0].Course.Code)

	_, err = repo.ByCourse(ctx, 7)
	require.NoError(t, err)

	gpa, err := repo.GPA(ctx, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.25, gpa, 0.0001)

	require.NoError(t, repo.Drop(ctx, 12))

	got := *captured
	require.Len(t, got, 6)
	assert.Equal(t, http.MethodPost, got[0].Method)
	assert.Equal(t, "/api/enrollments/enroll", got[0].Path)
	assert.Equal(t, "courseId=7&studentId=5", got[0].Query)
	assert.Equal(t, http.MethodPatch, got[1].Method)
	assert.Equal(t, "/api/enrollments/12/grade", got[1].Path)
	assert.Equal(t, "grade=B_PLUS", got[1].Query)
	assert.Equal(t, "/api/enrollments/by-course/7", got[3].Path)
	assert.Equal(t, "/api/enrollments/12", got[5].Path)
}

func TestEnrollmentRepositoryWrappedGPA(t *testing.T) {
	client, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"gpa":2.5}`))
	})
	gpa, err := NewEnrollmentRepository(client).GPA(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, gpa, 0.0001)
}

func TestAuthRepositoryLogin(t *testing.T) {
	client, captured := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"t1","type":"Bearer","username":"alice","email":"alice@uni.test","role":"ADMIN"}`))
	})
	resp, err := NewAuthRepository(client).Login(context.Background(), models.LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "t1", resp.Token)
	assert.Equal(t, models.RoleAdmin, resp.User().Role)
	assert.Equal(t, "/api/auth/login", (*captured)[0].Path)
	assert.JSONEq(t, `{"username":"alice","password":"secret"}`, (*captured)[0].Body)
}

func TestMemorySessionRepositoryExpiry(t *testing.T) {
	repo := NewMemorySessionRepository()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, repo.SetToken(ctx, "sid", "t1", time.Minute))
	token, err := repo.GetToken(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "t1", token)

	now = now.Add(2 * time.Minute)
	_, err = repo.GetToken(ctx, "sid")
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.SetToken(ctx, "sid", "t2", 0))
	require.NoError(t, repo.Delete(ctx, "sid"))
	_, err = repo.GetToken(ctx, "sid")
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "console:session:abc:token", sessionKey("abc"))
}
