package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/service"
	"github.com/noah-isme/course-console/internal/state"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
	"github.com/noah-isme/course-console/pkg/response"
)

// StudentHandler serves the student list and its dialogs.
type StudentHandler struct {
	students *service.StudentService
	pageSize int
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, pageSize int) *StudentHandler {
	return &StudentHandler{students: students, pageSize: pageSize}
}

// List godoc
// @Summary Student list view
// @Tags Students
// @Produce json
// @Param page query int false "Zero-based page"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	s := store(c)
	if err := h.students.Fetch(c.Request.Context(), s, queryInt(c, "page", 0)); err != nil && appErrors.IsUnauthorized(err) {
		fail(c, err)
		return
	}
	h.renderList(c, http.StatusOK, s)
}

func (h *StudentHandler) renderList(c *gin.Context, status int, s *state.Store) {
	snap := s.Students.Snapshot()
	render(c, status, tmplStudentList, "Students", snap,
		&models.Pagination{Page: snap.CurrentPage, PageSize: h.pageSize, TotalPages: snap.TotalPages})
}

func studentListURL(page int) string {
	return withQuery("/students", "page", int64(page))
}

// New shows an empty add dialog.
func (h *StudentHandler) New(c *gin.Context) {
	page := queryInt(c, "page", 0)
	render(c, http.StatusOK, tmplStudentForm, "Add Student", formView{
		Heading: "Add Student",
		Action:  studentListURL(page),
		Cancel:  studentListURL(page),
		Form:    dto.StudentForm{},
	}, nil)
}

// Edit shows the dialog pre-filled with student :id.
func (h *StudentHandler) Edit(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	render(c, http.StatusOK, tmplStudentForm, "Edit Student", formView{
		Heading: "Edit Student",
		Action:  withQuery(fmt.Sprintf("/students/%d", id), "page", int64(page)),
		Cancel:  studentListURL(page),
		Form:    dto.StudentFormFrom(*student),
		Editing: true,
	}, nil)
}

// Create godoc
// @Summary Create a student and refetch the current page
// @Tags Students
// @Accept json
// @Produce json
// @Param page query int false "Page to refetch"
// @Param payload body dto.StudentForm true "Student"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	page := queryInt(c, "page", 0)
	var form dto.StudentForm
	if !bind(c, &form, "student") {
		return
	}

	_, err := h.students.Create(c.Request.Context(), store(c), form)
	h.afterSave(c, page, form, err, formView{
		Heading: "Add Student",
		Action:  studentListURL(page),
		Cancel:  studentListURL(page),
	}, "Student created successfully!", http.StatusCreated)
}

// Update godoc
// @Summary Update a student and refetch the current page
// @Tags Students
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Param page query int false "Page to refetch"
// @Param payload body dto.StudentForm true "Student"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	var form dto.StudentForm
	if !bind(c, &form, "student") {
		return
	}

	_, err = h.students.Update(c.Request.Context(), store(c), id, form)
	h.afterSave(c, page, form, err, formView{
		Heading: "Edit Student",
		Action:  withQuery(fmt.Sprintf("/students/%d", id), "page", int64(page)),
		Cancel:  studentListURL(page),
		Editing: true,
	}, "Student updated successfully!", http.StatusOK)
}

func (h *StudentHandler) afterSave(c *gin.Context, page int, form dto.StudentForm, err error, view formView, success string, status int) {
	if err == nil {
		h.refetched(c, page, status, success)
		return
	}
	if appErrors.IsUnauthorized(err) {
		fail(c, err)
		return
	}
	view.Form = form
	view.Error = "Error saving student. Please try again."
	var fields dto.FieldErrors
	if errors.As(err, &fields) {
		view.Errors = fields
		view.Error = fields.Error()
	}
	if response.WantsJSON(c) {
		response.Error(c, appErrors.Clone(appErrors.FromError(err), view.Error))
		return
	}
	render(c, statusOf(err), tmplStudentForm, view.Heading, view, nil)
}

// ConfirmDelete shows the confirmation step.
func (h *StudentHandler) ConfirmDelete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	render(c, http.StatusOK, tmplConfirm, "Delete Student", confirmView{
		Heading: "Delete Student",
		Message: "Are you sure you want to delete this student?",
		Action:  withQuery(fmt.Sprintf("/students/%d/delete", id), "page", int64(page)),
		Cancel:  studentListURL(page),
	}, nil)
}

// Delete godoc
// @Summary Delete a student and refetch the current page
// @Tags Students
// @Produce json
// @Param id path int true "Student ID"
// @Param page query int false "Page to refetch"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	if err := h.students.Delete(c.Request.Context(), store(c), id); err != nil {
		if appErrors.IsUnauthorized(err) || response.WantsJSON(c) {
			fail(c, err)
			return
		}
		redirectWithFlash(c, studentListURL(page), state.FlashError, "Error deleting student. Please try again.")
		return
	}
	h.refetched(c, page, http.StatusOK, "Student deleted successfully!")
}

func (h *StudentHandler) refetched(c *gin.Context, page, status int, message string) {
	if !response.WantsJSON(c) {
		redirectWithFlash(c, studentListURL(page), state.FlashSuccess, message)
		return
	}
	s := store(c)
	s.PushFlash(state.FlashSuccess, message)
	if err := h.students.Fetch(c.Request.Context(), s, page); err != nil {
		fail(c, err)
		return
	}
	h.renderList(c, status, s)
}
