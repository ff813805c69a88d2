package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/middleware"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/service"
	"github.com/noah-isme/course-console/internal/state"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
	"github.com/noah-isme/course-console/pkg/export"
	"github.com/noah-isme/course-console/pkg/response"
)

// EnrollmentHandler serves the enrollment view, grading, drops and transcript export.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	students    *service.StudentService
	courses     *service.CourseService
	lookupSize  int
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, students *service.StudentService, courses *service.CourseService, lookupSize int) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, students: students, courses: courses, lookupSize: lookupSize}
}

type enrollmentView struct {
	Students          []models.Student         `json:"students"`
	Courses           []models.Course          `json:"courses"`
	EnrollableCourses []models.Course          `json:"enrollableCourses"`
	SelectedStudentID int64                    `json:"selectedStudentId"`
	Enrollments       state.EnrollmentSnapshot `json:"enrollments"`
	GPA               string                   `json:"gpa"`
	Grades            []models.Grade           `json:"-"`
	CanGrade          bool                     `json:"canGrade"`
	CanExport         bool                     `json:"canExport"`
	LookupError       string                   `json:"lookupError,omitempty"`
}

// selection loads the lookup lists and resolves which student the caller may
// act on. STUDENT accounts are pinned to their own record.
func (h *EnrollmentHandler) selection(c *gin.Context, s *state.Store, requested int64) ([]models.Student, int64, error) {
	ctx := c.Request.Context()
	if err := h.students.FetchLookup(ctx, s, h.lookupSize); err != nil {
		return nil, 0, err
	}
	selectable := service.SelectableStudents(s.Students.Snapshot().Items, currentUser(c))
	return selectable, service.ResolveSelectedStudent(selectable, requested, currentUser(c)), nil
}

func enrollmentsURL(studentID int64) string {
	return withQuery(middleware.RouteEnrollments, "studentId", studentID)
}

// Index godoc
// @Summary Enrollment view for the selected student
// @Tags Enrollments
// @Produce json
// @Param studentId query int false "Selected student"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	s := store(c)
	view := enrollmentView{Grades: models.Grades}

	selectable, selected, err := h.selection(c, s, queryInt64(c, "studentId"))
	if err != nil {
		if appErrors.IsUnauthorized(err) {
			fail(c, err)
			return
		}
		view.LookupError = appErrors.Message(err, "Failed to fetch students")
	}
	if err := h.courses.FetchLookup(ctx, s, h.lookupSize); err != nil {
		if appErrors.IsUnauthorized(err) {
			fail(c, err)
			return
		}
		view.LookupError = appErrors.Message(err, "Failed to fetch courses")
	}
	view.Students = selectable
	view.Courses = s.Courses.Snapshot().Items
	view.SelectedStudentID = selected

	if selected != 0 {
		if err := h.enrollments.Refresh(ctx, s, selected); err != nil && appErrors.IsUnauthorized(err) {
			fail(c, err)
			return
		}
	}
	snap := s.Enrollments.Snapshot()
	if selected == 0 || snap.Scope != state.ScopeStudent || snap.ScopeID != selected {
		snap.Items, snap.GPA = nil, nil
	}
	view.Enrollments = snap
	view.GPA = service.FormatGPA(snap.GPA)
	view.EnrollableCourses = service.EnrollableCourses(view.Courses, snap)

	caps := middleware.ResolveCapabilities(s.Auth.Snapshot().Role())
	view.CanGrade = caps.Allows(middleware.RouteEnrollmentGrade)
	view.CanExport = caps.Allows(middleware.RouteEnrollmentExport)

	render(c, http.StatusOK, tmplEnrollments, "Enrollments", view, nil)
}

// Enroll godoc
// @Summary Enroll a student in a course
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollForm true "Enrollment"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var form dto.EnrollForm
	if !bind(c, &form, "enrollment") {
		return
	}
	s := store(c)

	if currentUser(c) != nil && currentUser(c).Role == models.RoleStudent {
		_, own, err := h.selection(c, s, form.StudentID)
		if err != nil {
			fail(c, err)
			return
		}
		if form.StudentID != 0 && own != form.StudentID {
			fail(c, appErrors.Clone(appErrors.ErrForbidden, "You can only enroll yourself"))
			return
		}
	}

	if _, err := h.enrollments.Enroll(c.Request.Context(), s, form); err != nil {
		if appErrors.IsUnauthorized(err) || response.WantsJSON(c) {
			fail(c, err)
			return
		}
		redirectWithFlash(c, enrollmentsURL(form.StudentID), state.FlashError, appErrors.Message(err, "Failed to enroll student"))
		return
	}
	h.refreshed(c, form.StudentID, http.StatusCreated, "Student enrolled successfully")
}

type gradeView struct {
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
	Grades     []models.Grade     `json:"grades"`
	Form       dto.GradeForm      `json:"form"`
	Action     string             `json:"action"`
	Cancel     string             `json:"cancel"`
	Error      string             `json:"error,omitempty"`
}

// GradeForm shows the grade dialog of enrollment :id.
func (h *EnrollmentHandler) GradeForm(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	studentID := queryInt64(c, "studentId")
	s := store(c)
	view := h.buildGradeView(id, studentID, s)
	if view.Enrollment == nil && studentID != 0 {
		if err := h.enrollments.Refresh(c.Request.Context(), s, studentID); err != nil {
			fail(c, err)
			return
		}
		view = h.buildGradeView(id, studentID, s)
	}
	if view.Enrollment == nil {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "Enrollment not found"))
		return
	}
	render(c, http.StatusOK, tmplGradeForm, "Update Grade", view, nil)
}

func (h *EnrollmentHandler) buildGradeView(id, studentID int64, s *state.Store) gradeView {
	view := gradeView{
		Grades: models.Grades,
		Form:   dto.GradeForm{StudentID: studentID},
		Action: fmt.Sprintf("/enrollments/%d/grade", id),
		Cancel: enrollmentsURL(studentID),
	}
	for _, item := range s.Enrollments.Snapshot().Items {
		if item.ID == id {
			record := item
			view.Enrollment = &record
			view.Form.Grade = item.Grade
			break
		}
	}
	return view
}

// Grade godoc
// @Summary Assign a grade to an enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param payload body dto.GradeForm true "Grade"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/grade [put]
func (h *EnrollmentHandler) Grade(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var form dto.GradeForm
	if !bind(c, &form, "grade") {
		return
	}
	s := store(c)

	if _, err := h.enrollments.Grade(c.Request.Context(), s, id, form); err != nil {
		if appErrors.IsUnauthorized(err) || response.WantsJSON(c) {
			fail(c, err)
			return
		}
		view := h.buildGradeView(id, form.StudentID, s)
		view.Form.Grade = form.Grade
		view.Error = appErrors.Message(err, "Failed to update grade")
		render(c, statusOf(err), tmplGradeForm, "Update Grade", view, nil)
		return
	}
	h.refreshed(c, form.StudentID, http.StatusOK, "Grade updated successfully")
}

// ConfirmDrop shows the confirmation step before dropping enrollment :id.
func (h *EnrollmentHandler) ConfirmDrop(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	studentID := queryInt64(c, "studentId")
	render(c, http.StatusOK, tmplConfirm, "Drop Enrollment", confirmView{
		Heading: "Drop Enrollment",
		Message: "Are you sure you want to drop this enrollment?",
		Action:  withQuery(fmt.Sprintf("/enrollments/%d/drop", id), "studentId", studentID),
		Cancel:  enrollmentsURL(studentID),
	}, nil)
}

// Drop godoc
// @Summary Drop an enrollment
// @Tags Enrollments
// @Produce json
// @Param id path int true "Enrollment ID"
// @Param studentId query int false "Student whose view is refreshed"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var form dto.DropForm
	if !bind(c, &form, "drop") {
		return
	}
	if form.StudentID == 0 {
		form.StudentID = queryInt64(c, "studentId")
	}
	s := store(c)

	if currentUser(c) != nil && currentUser(c).Role == models.RoleStudent && !h.ownsEnrollment(c, s, id) {
		fail(c, appErrors.Clone(appErrors.ErrForbidden, "You can only drop your own enrollments"))
		return
	}

	if err := h.enrollments.Drop(c.Request.Context(), s, id); err != nil {
		if appErrors.IsUnauthorized(err) || response.WantsJSON(c) {
			fail(c, err)
			return
		}
		redirectWithFlash(c, enrollmentsURL(form.StudentID), state.FlashError, "Failed to drop enrollment. Please try again.")
		return
	}
	h.refreshed(c, form.StudentID, http.StatusOK, "Enrollment dropped successfully")
}

func (h *EnrollmentHandler) ownsEnrollment(c *gin.Context, s *state.Store, id int64) bool {
	_, own, err := h.selection(c, s, 0)
	if err != nil || own == 0 {
		return false
	}
	if err := h.enrollments.Refresh(c.Request.Context(), s, own); err != nil {
		return false
	}
	for _, item := range s.Enrollments.Snapshot().Items {
		if item.ID == id {
			return true
		}
	}
	return false
}

// refreshed completes an enrollment write. The redirect target refetches
// enrollments and GPA; JSON clients get the refreshed snapshot inline.
func (h *EnrollmentHandler) refreshed(c *gin.Context, studentID int64, status int, message string) {
	if !response.WantsJSON(c) {
		redirectWithFlash(c, enrollmentsURL(studentID), state.FlashSuccess, message)
		return
	}
	s := store(c)
	s.PushFlash(state.FlashSuccess, message)
	if studentID != 0 {
		if err := h.enrollments.Refresh(c.Request.Context(), s, studentID); err != nil {
			fail(c, err)
			return
		}
	}
	render(c, status, tmplEnrollments, "Enrollments", s.Enrollments.Snapshot(), nil)
}

// Export godoc
// @Summary Download the transcript of a student
// @Tags Enrollments
// @Produce text/csv
// @Produce application/pdf
// @Param studentId query int true "Student"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /enrollments/export [get]
func (h *EnrollmentHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	s := store(c)
	selectable, selected, err := h.selection(c, s, queryInt64(c, "studentId"))
	if err != nil {
		fail(c, err)
		return
	}
	if selected == 0 {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "Please select a student"))
		return
	}
	if err := h.enrollments.Refresh(c.Request.Context(), s, selected); err != nil {
		fail(c, err)
		return
	}

	var student models.Student
	for _, candidate := range selectable {
		if candidate.ID == selected {
			student = candidate
			break
		}
	}
	payload, err := export.Render(format, service.Transcript(student, s.Enrollments.Snapshot()))
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "Failed to export transcript"))
		return
	}
	filename := export.Filename("transcript-"+student.IndexNumber, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, format.ContentType(), payload)
}
