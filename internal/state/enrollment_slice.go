package state

import (
	"sync"

	"github.com/noah-isme/course-console/internal/models"
)

// Scope says whose enrollments the slice currently holds.
type Scope string

const (
	ScopeNone    Scope = ""
	ScopeStudent Scope = "student"
	ScopeCourse  Scope = "course"
)

// EnrollmentSnapshot is an immutable copy of the enrollment slice.
type EnrollmentSnapshot struct {
	Items     []models.Enrollment `json:"items"`
	Scope     Scope               `json:"scope,omitempty"`
	ScopeID   int64               `json:"scopeId,omitempty"`
	GPA       *float64            `json:"gpa"`
	Loading   bool                `json:"loading"`
	Error     string              `json:"error,omitempty"`
	Status    Status              `json:"status"`
	Operation Op                  `json:"operation,omitempty"`
}

// EnrolledCourseIDs returns the set of course ids in the snapshot.
func (s EnrollmentSnapshot) EnrolledCourseIDs() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(s.Items))
	for _, item := range s.Items {
		ids[item.Course.ID] = struct{}{}
	}
	return ids
}

// EnrollmentSlice mirrors the enrollments of one student or one course plus
// the selected student's GPA.
type EnrollmentSlice struct {
	mu      sync.RWMutex
	items   []models.Enrollment
	scope   Scope
	scopeID int64
	gpa     *float64
	async
}

// NewEnrollmentSlice builds an empty slice.
func NewEnrollmentSlice() *EnrollmentSlice {
	return &EnrollmentSlice{items: []models.Enrollment{}, async: newAsync()}
}

// Begin marks op pending.
func (s *EnrollmentSlice) Begin(op Op) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin(op)
}

// Fetched replaces the list with the enrollments of scope/id. Superseded
// fetches are discarded. Switching to a different student drops the GPA.
func (s *EnrollmentSlice) Fetched(t Ticket, scope Scope, id int64, items []models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fulfil(t) {
		return
	}
	if scope != s.scope || id != s.scopeID {
		s.gpa = nil
	}
	s.scope = scope
	s.scopeID = id
	if items == nil {
		items = []models.Enrollment{}
	}
	s.items = append([]models.Enrollment(nil), items...)
}

// Enrolled settles an enroll; the list is refetched by the caller.
func (s *EnrollmentSlice) Enrolled(t Ticket, _ models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
}

// Graded replaces the enrollment with the same id.
func (s *EnrollmentSlice) Graded(t Ticket, record models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
	for i := range s.items {
		if s.items[i].ID == record.ID {
			s.items[i] = record
			return
		}
	}
}

// Dropped removes enrollment id.
func (s *EnrollmentSlice) Dropped(t Ticket, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfil(t)
	kept := make([]models.Enrollment, 0, len(s.items))
	for _, item := range s.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.items = kept
}

// GPAFetched stores the GPA of the selected student.
func (s *EnrollmentSlice) GPAFetched(t Ticket, gpa float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fulfil(t) {
		return
	}
	s.gpa = &gpa
}

// Failed settles t as rejected.
func (s *EnrollmentSlice) Failed(t Ticket, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Op == OpGPA {
		s.gpa = nil
	}
	s.reject(t, failureMessage(err, enrollmentFallback(t.Op)))
}

// Snapshot copies the current state.
func (s *EnrollmentSlice) Snapshot() EnrollmentSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := EnrollmentSnapshot{
		Items:     append([]models.Enrollment{}, s.items...),
		Scope:     s.scope,
		ScopeID:   s.scopeID,
		Loading:   s.loading(),
		Error:     s.err,
		Status:    s.status,
		Operation: s.op,
	}
	if s.gpa != nil {
		gpa := *s.gpa
		snap.GPA = &gpa
	}
	return snap
}

func enrollmentFallback(op Op) string {
	switch op {
	case OpFetch:
		return "Failed to fetch enrollments"
	case OpEnroll:
		return "Failed to enroll student"
	case OpGrade:
		return "Failed to update grade"
	case OpDrop:
		return "Failed to drop enrollment"
	case OpGPA:
		return "Failed to fetch GPA"
	}
	return "Enrollment request failed"
}
