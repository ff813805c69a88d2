package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/state"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
	"github.com/noah-isme/course-console/pkg/export"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
	Grade(ctx context.Context, id int64, grade models.Grade) (*models.Enrollment, error)
	ByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error)
	ByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error)
	Drop(ctx context.Context, id int64) error
	GPA(ctx context.Context, studentID int64) (float64, error)
}

// EnrollmentService handles enrollment, grading and transcript use-cases.
type EnrollmentService struct {
	repo      enrollmentRepository
	validator *dto.Validator
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(repo enrollmentRepository, validate *dto.Validator, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, validator: validate, logger: logger}
}

// Refresh reloads the enrollments and GPA of studentID. A GPA failure is
// recorded on the slice but does not fail the refresh.
func (s *EnrollmentService) Refresh(ctx context.Context, store *state.Store, studentID int64) error {
	slice := store.Enrollments
	ticket := slice.Begin(state.OpFetch)
	items, err := s.repo.ByStudent(ctx, studentID)
	if err != nil {
		slice.Failed(ticket, err)
		return err
	}
	slice.Fetched(ticket, state.ScopeStudent, studentID, items)

	gpaTicket := slice.Begin(state.OpGPA)
	gpa, err := s.repo.GPA(ctx, studentID)
	if err != nil {
		slice.Failed(gpaTicket, err)
		if appErrors.IsUnauthorized(err) {
			return err
		}
		s.logger.Warn("gpa lookup failed", zap.Int64("student_id", studentID), zap.Error(err))
		return nil
	}
	slice.GPAFetched(gpaTicket, gpa)
	return nil
}

// FetchRoster loads the enrollments of courseID.
func (s *EnrollmentService) FetchRoster(ctx context.Context, store *state.Store, courseID int64) error {
	slice := store.Enrollments
	ticket := slice.Begin(state.OpFetch)
	items, err := s.repo.ByCourse(ctx, courseID)
	if err != nil {
		slice.Failed(ticket, err)
		return err
	}
	slice.Fetched(ticket, state.ScopeCourse, courseID, items)
	return nil
}

// Enroll registers form.StudentID in form.CourseID.
func (s *EnrollmentService) Enroll(ctx context.Context, store *state.Store, form dto.EnrollForm) (*models.Enrollment, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Please select both student and course")
	}
	slice := store.Enrollments
	ticket := slice.Begin(state.OpEnroll)
	enrollment, err := s.repo.Enroll(ctx, form.StudentID, form.CourseID)
	if err != nil {
		slice.Failed(ticket, err)
		return nil, err
	}
	slice.Enrolled(ticket, *enrollment)
	s.logger.Info("student enrolled", zap.Int64("student_id", form.StudentID), zap.Int64("course_id", form.CourseID))
	return enrollment, nil
}

// Grade sets the grade of enrollment id.
func (s *EnrollmentService) Grade(ctx context.Context, store *state.Store, id int64, form dto.GradeForm) (*models.Enrollment, error) {
	if err := s.validator.Struct(form); err != nil || !form.Grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Please select a grade")
	}
	slice := store.Enrollments
	ticket := slice.Begin(state.OpGrade)
	enrollment, err := s.repo.Grade(ctx, id, form.Grade)
	if err != nil {
		slice.Failed(ticket, err)
		return nil, err
	}
	slice.Graded(ticket, *enrollment)
	s.logger.Info("enrollment graded", zap.Int64("enrollment_id", id), zap.String("grade", string(form.Grade)))
	return enrollment, nil
}

// Drop removes enrollment id.
func (s *EnrollmentService) Drop(ctx context.Context, store *state.Store, id int64) error {
	slice := store.Enrollments
	ticket := slice.Begin(state.OpDrop)
	if err := s.repo.Drop(ctx, id); err != nil {
		slice.Failed(ticket, err)
		return err
	}
	slice.Dropped(ticket, id)
	s.logger.Info("enrollment dropped", zap.Int64("enrollment_id", id))
	return nil
}

// SelectableStudents narrows the student list for user. STUDENT accounts only
// see the record whose email matches their own.
func SelectableStudents(students []models.Student, user *models.SessionUser) []models.Student {
	if user == nil || user.Role != models.RoleStudent {
		return students
	}
	selectable := make([]models.Student, 0, 1)
	for _, student := range students {
		if user.Email != "" && strings.EqualFold(strings.TrimSpace(student.Email), strings.TrimSpace(user.Email)) {
			selectable = append(selectable, student)
		}
	}
	return selectable
}

// ResolveSelectedStudent picks the requested student if it is selectable, or
// the only selectable student for STUDENT accounts. Zero means no selection.
func ResolveSelectedStudent(selectable []models.Student, requested int64, user *models.SessionUser) int64 {
	for _, student := range selectable {
		if student.ID == requested && requested != 0 {
			return requested
		}
	}
	if user != nil && user.Role == models.RoleStudent && len(selectable) == 1 {
		return selectable[0].ID
	}
	return 0
}

// EnrollableCourses drops the courses the student is already enrolled in.
func EnrollableCourses(courses []models.Course, enrollments state.EnrollmentSnapshot) []models.Course {
	taken := enrollments.EnrolledCourseIDs()
	enrollable := make([]models.Course, 0, len(courses))
	for _, course := range courses {
		if _, ok := taken[course.ID]; !ok {
			enrollable = append(enrollable, course)
		}
	}
	return enrollable
}

// FormatGPA renders a GPA with two decimals.
func FormatGPA(gpa *float64) string {
	if gpa == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *gpa)
}

// Transcript builds the export dataset of student from the enrollment slice.
func Transcript(student models.Student, enrollments state.EnrollmentSnapshot) export.Dataset {
	data := export.Dataset{
		Title:   "Transcript - " + student.FullName(),
		Headers: []string{"Course Code", "Course Title", "Credits", "Enrolled At", "Grade"},
		Rows:    make([]map[string]string, 0, len(enrollments.Items)),
		Summary: []export.SummaryLine{
			{Label: "Index Number", Value: student.IndexNumber},
			{Label: "Email", Value: student.Email},
			{Label: "GPA", Value: FormatGPA(enrollments.GPA)},
		},
	}
	for _, item := range enrollments.Items {
		data.Rows = append(data.Rows, map[string]string{
			"Course Code":  item.Course.Code,
			"Course Title": item.Course.Title,
			"Credits":      fmt.Sprintf("%d", item.Course.Credits),
			"Enrolled At":  item.EnrolledAt.Display(),
			"Grade":        item.Grade.Label(),
		})
	}
	return data
}
