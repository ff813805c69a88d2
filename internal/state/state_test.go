package state

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-console/internal/models"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

func intPtr(v int) *int { return &v }

func TestListSliceLoadingBetweenDispatchAndSettlement(t *testing.T) {
	slice := NewListSlice[models.Course]("course", "courses")
	assert.False(t, slice.Loading())
	assert.Equal(t, StatusIdle, slice.Snapshot().Status)

	ticket := slice.Begin(OpFetch)
	assert.True(t, slice.Loading())
	assert.Equal(t, StatusPending, slice.Snapshot().Status)

	slice.Fetched(ticket, &models.Page[models.Course]{
		Content:    []models.Course{{ID: 1, Code: "CS101"}},
		Number:     intPtr(2),
		TotalPages: intPtr(3),
	})
	snap := slice.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, StatusFulfilled, snap.Status)
	assert.Equal(t, 2, snap.CurrentPage)
	assert.Equal(t, 3, snap.TotalPages)
	require.Len(t, snap.Items, 1)
	assert.True(t, snap.HasPrev())
	assert.False(t, snap.HasNext())
}

func TestListSliceDiscardsSupersededFetch(t *testing.T) {
	slice := NewListSlice[models.Course]("course", "courses")
	first := slice.Begin(OpFetch)
	second := slice.Begin(OpFetch)

	slice.Fetched(second, &models.Page[models.Course]{Content: []models.Course{{ID: 2}}, CurrentPage: intPtr(1)})
	assert.True(t, slice.Loading())

	slice.Fetched(first, &models.Page[models.Course]{Content: []models.Course{{ID: 1}}})
	snap := slice.Snapshot()
	assert.False(t, snap.Loading)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, int64(2), snap.Items[0].ID)
	assert.Equal(t, 1, snap.CurrentPage)
}

func TestListSliceMissingEnvelopeFields(t *testing.T) {
	slice := NewListSlice[models.Student]("student", "students")
	slice.Fetched(slice.Begin(OpFetch), &models.Page[models.Student]{})
	snap := slice.Snapshot()
	assert.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
	assert.Equal(t, 0, snap.CurrentPage)
	assert.Equal(t, 0, snap.TotalPages)
}

func TestListSliceRejectedMessages(t *testing.T) {
	slice := NewListSlice[models.Student]("student", "students")

	slice.Failed(slice.Begin(OpFetch), errors.New("dial tcp: refused"))
	snap := slice.Snapshot()
	assert.Equal(t, "Failed to fetch students", snap.Error)
	assert.Equal(t, StatusRejected, snap.Status)
	assert.False(t, snap.Loading)

	slice.Failed(slice.Begin(OpCreate), errors.New("boom"))
	assert.Equal(t, "Failed to create student", slice.Snapshot().Error)

	slice.Failed(slice.Begin(OpUpdate), appErrors.Clone(appErrors.ErrConflict, "Email already used"))
	assert.Equal(t, "Email already used", slice.Snapshot().Error)

	slice.Begin(OpFetch)
	assert.Empty(t, slice.Snapshot().Error)
}

func TestListSliceUpdateAndDeleteInPlace(t *testing.T) {
	slice := NewListSlice[models.Course]("course", "courses")
	slice.Fetched(slice.Begin(OpFetch), &models.Page[models.Course]{
		Content: []models.Course{{ID: 1, Title: "Algebra"}, {ID: 3, Title: "Calculus"}},
	})

	slice.Updated(slice.Begin(OpUpdate), models.Course{ID: 3, Title: "Calculus II"})
	assert.Equal(t, "Calculus II", slice.Snapshot().Items[1].Title)

	before := slice.Snapshot().Items
	slice.Updated(slice.Begin(OpUpdate), models.Course{ID: 99, Title: "Ghost"})
	assert.Equal(t, before, slice.Snapshot().Items)

	slice.Deleted(slice.Begin(OpDelete), 99)
	assert.Len(t, slice.Snapshot().Items, 2)

	slice.Deleted(slice.Begin(OpDelete), 1)
	items := slice.Snapshot().Items
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)
}

func TestListSliceCreateLeavesListForRefetch(t *testing.T) {
	slice := NewListSlice[models.Course]("course", "courses")
	slice.Fetched(slice.Begin(OpFetch), &models.Page[models.Course]{Content: []models.Course{{ID: 1}}})
	slice.Created(slice.Begin(OpCreate), models.Course{ID: 2})
	snap := slice.Snapshot()
	assert.Len(t, snap.Items, 1)
	assert.Equal(t, OpCreate, snap.Operation)
	assert.False(t, snap.Loading)
}

func TestEnrollmentSliceFlow(t *testing.T) {
	slice := NewEnrollmentSlice()
	slice.Fetched(slice.Begin(OpFetch), ScopeStudent, 5, []models.Enrollment{
		{ID: 12, Course: models.Course{ID: 7}},
		{ID: 13, Course: models.Course{ID: 8}},
	})
	slice.GPAFetched(slice.Begin(OpGPA), 3.5)

	slice.Graded(slice.Begin(OpGrade), models.Enrollment{ID: 12, Course: models.Course{ID: 7}, Grade: models.GradeBPlus})
	snap := slice.Snapshot()
	assert.Equal(t, models.GradeBPlus, snap.Items[0].Grade)
	assert.Equal(t, "B +", snap.Items[0].Grade.Label())
	require.NotNil(t, snap.GPA)
	assert.InDelta(t, 3.5, *snap.GPA, 0.0001)
	_, enrolled := snap.EnrolledCourseIDs()[7]
	assert.True(t, enrolled)

	slice.Dropped(slice.Begin(OpDrop), 13)
	assert.Len(t, slice.Snapshot().Items, 1)

	slice.Fetched(slice.Begin(OpFetch), ScopeStudent, 6, nil)
	snap = slice.Snapshot()
	assert.Nil(t, snap.GPA)
	assert.NotNil(t, snap.Items)
	assert.Equal(t, int64(6), snap.ScopeID)

	slice.Failed(slice.Begin(OpEnroll), errors.New("x"))
	assert.Equal(t, "Failed to enroll student", slice.Snapshot().Error)
}

func TestAuthSliceLoginAndRestore(t *testing.T) {
	slice := NewAuthSlice()
	ticket := slice.Begin(OpLogin)
	assert.True(t, slice.Snapshot().Loading)

	slice.LoggedIn(ticket, models.AuthResponse{Token: "t1", Username: "alice", Role: models.RoleAdmin})
	snap := slice.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, models.RoleAdmin, snap.Role())
	assert.Equal(t, "t1", snap.Token)

	slice.Restore("t1")
	assert.Equal(t, "alice", slice.Snapshot().User.Username)

	slice.Restore("t2")
	snap = slice.Snapshot()
	assert.True(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
	assert.Equal(t, models.Role(""), snap.Role())

	slice.LogoutLocal()
	snap = slice.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.Token)
}

func TestAuthSliceLoginFailure(t *testing.T) {
	slice := NewAuthSlice()
	slice.LoginFailed(slice.Begin(OpLogin), appErrors.Clone(appErrors.ErrUnauthorized, "Bad credentials"))
	snap := slice.Snapshot()
	assert.False(t, snap.IsAuthenticated)
	assert.Equal(t, "Bad credentials", snap.Error)

	slice.ClearError()
	assert.Empty(t, slice.Snapshot().Error)

	slice.SignupFailed(slice.Begin(OpSignup), errors.New("offline"))
	assert.Equal(t, "Signup failed", slice.Snapshot().Error)
}

func TestRegistrySweep(t *testing.T) {
	registry := NewRegistry(time.Hour, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	first := registry.For("a")
	assert.Same(t, first, registry.For("a"))
	now = now.Add(30 * time.Minute)
	registry.For("b")

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, registry.Sweep())
	_, ok := registry.Lookup("a")
	assert.False(t, ok)
	_, ok = registry.Lookup("b")
	assert.True(t, ok)

	registry.Drop("b")
	assert.Equal(t, 0, registry.Len())
}

func TestRegistrySweepKeepsAuthenticatedIdentity(t *testing.T) {
	registry := NewRegistry(time.Hour, nil).WithSessionTTL(24 * time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return now }

	store := registry.For("admin")
	store.Auth.LoggedIn(store.Auth.Begin(OpLogin), models.AuthResponse{Token: "t1", Username: "alice", Role: models.RoleAdmin})
	store.Courses.Fetched(store.Courses.Begin(OpFetch), &models.Page[models.Course]{Content: []models.Course{{ID: 1}}})
	registry.For("anonymous")

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 2, registry.Sweep())
	_, ok := registry.Lookup("anonymous")
	assert.False(t, ok)

	kept, ok := registry.Lookup("admin")
	require.True(t, ok)
	assert.NotSame(t, store, kept)
	assert.Same(t, store.Auth, kept.Auth)
	assert.Equal(t, models.RoleAdmin, kept.Auth.Snapshot().Role())
	assert.Empty(t, kept.Courses.Snapshot().Items)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 0, registry.Sweep(), "an already released store is left alone")

	now = now.Add(24 * time.Hour)
	assert.Equal(t, 1, registry.Sweep())
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryJanitorRejectsBadSpec(t *testing.T) {
	registry := NewRegistry(time.Minute, nil)
	_, err := registry.StartJanitor("not a spec")
	require.Error(t, err)

	stop, err := registry.StartJanitor("@every 1h")
	require.NoError(t, err)
	stop()
}

func TestStoreFlashesShowOnce(t *testing.T) {
	store := NewStore()
	store.PushFlash(FlashSuccess, "Course created successfully!")
	store.PushFlash(FlashError, "Error deleting course. Please try again.")

	flashes := store.PopFlashes()
	require.Len(t, flashes, 2)
	assert.Equal(t, FlashSuccess, flashes[0].Kind)
	assert.Empty(t, store.PopFlashes())
}
