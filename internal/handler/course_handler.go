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

// CourseHandler serves the course list, its add/edit dialogs and the roster.
type CourseHandler struct {
	courses     *service.CourseService
	enrollments *service.EnrollmentService
	pageSize    int
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService, enrollments *service.EnrollmentService, pageSize int) *CourseHandler {
	return &CourseHandler{courses: courses, enrollments: enrollments, pageSize: pageSize}
}

type courseListView struct {
	state.ListSnapshot[models.Course]
	PageSize int `json:"pageSize"`
}

// List godoc
// @Summary Course list view
// @Tags Courses
// @Produce json
// @Param page query int false "Zero-based page"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	s := store(c)
	page := queryInt(c, "page", 0)
	if err := h.courses.Fetch(c.Request.Context(), s, page); err != nil && appErrors.IsUnauthorized(err) {
		fail(c, err)
		return
	}
	h.renderList(c, http.StatusOK, s)
}

func (h *CourseHandler) renderList(c *gin.Context, status int, s *state.Store) {
	snap := s.Courses.Snapshot()
	render(c, status, tmplCourseList, "Courses", courseListView{ListSnapshot: snap, PageSize: h.pageSize},
		&models.Pagination{Page: snap.CurrentPage, PageSize: h.pageSize, TotalPages: snap.TotalPages})
}

// New shows an empty add dialog.
func (h *CourseHandler) New(c *gin.Context) {
	page := queryInt(c, "page", 0)
	h.renderForm(c, http.StatusOK, formView{
		Heading: "Add Course",
		Action:  withQuery("/courses", "page", int64(page)),
		Cancel:  withQuery("/courses", "page", int64(page)),
		Form:    dto.NewCourseForm(),
	})
}

// Edit shows the dialog pre-filled with course :id.
func (h *CourseHandler) Edit(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	h.renderForm(c, http.StatusOK, formView{
		Heading: "Edit Course",
		Action:  withQuery(fmt.Sprintf("/courses/%d", id), "page", int64(page)),
		Cancel:  withQuery("/courses", "page", int64(page)),
		Form:    dto.CourseFormFrom(*course),
		Editing: true,
	})
}

// Create godoc
// @Summary Create a course and refetch the current page
// @Tags Courses
// @Accept json
// @Produce json
// @Param page query int false "Page to refetch"
// @Param payload body dto.CourseForm true "Course"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	page := queryInt(c, "page", 0)
	var form dto.CourseForm
	if !bind(c, &form, "course") {
		return
	}

	_, err := h.courses.Create(c.Request.Context(), store(c), form)
	h.afterSave(c, page, form, err, formView{
		Heading: "Add Course",
		Action:  withQuery("/courses", "page", int64(page)),
		Cancel:  withQuery("/courses", "page", int64(page)),
	}, "Course created successfully!", http.StatusCreated)
}

// Update godoc
// @Summary Update a course and refetch the current page
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param page query int false "Page to refetch"
// @Param payload body dto.CourseForm true "Course"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	var form dto.CourseForm
	if !bind(c, &form, "course") {
		return
	}

	_, err = h.courses.Update(c.Request.Context(), store(c), id, form)
	h.afterSave(c, page, form, err, formView{
		Heading: "Edit Course",
		Action:  withQuery(fmt.Sprintf("/courses/%d", id), "page", int64(page)),
		Cancel:  withQuery("/courses", "page", int64(page)),
		Editing: true,
	}, "Course updated successfully!", http.StatusOK)
}

func (h *CourseHandler) afterSave(c *gin.Context, page int, form dto.CourseForm, err error, view formView, success string, status int) {
	if err != nil {
		if appErrors.IsUnauthorized(err) {
			fail(c, err)
			return
		}
		view.Form = form
		var fields dto.FieldErrors
		if errors.As(err, &fields) {
			view.Errors = fields
			view.Error = fields.Error()
		} else {
			view.Error = "Error saving course. Please try again."
		}
		if response.WantsJSON(c) {
			response.Error(c, appErrors.Clone(appErrors.FromError(err), view.Error))
			return
		}
		h.renderForm(c, statusOf(err), view)
		return
	}
	h.refetched(c, page, status, success)
}

// ConfirmDelete shows the confirmation step.
func (h *CourseHandler) ConfirmDelete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	render(c, http.StatusOK, tmplConfirm, "Delete Course", confirmView{
		Heading: "Delete Course",
		Message: "Are you sure you want to delete this course?",
		Action:  withQuery(fmt.Sprintf("/courses/%d/delete", id), "page", int64(page)),
		Cancel:  withQuery("/courses", "page", int64(page)),
	}, nil)
}

// Delete godoc
// @Summary Delete a course and refetch the current page
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Param page query int false "Page to refetch"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page := queryInt(c, "page", 0)
	if err := h.courses.Delete(c.Request.Context(), store(c), id); err != nil {
		if appErrors.IsUnauthorized(err) || response.WantsJSON(c) {
			fail(c, err)
			return
		}
		redirectWithFlash(c, withQuery("/courses", "page", int64(page)), state.FlashError, "Error deleting course. Please try again.")
		return
	}
	h.refetched(c, page, http.StatusOK, "Course deleted successfully!")
}

// refetched completes a write: browsers are redirected to the list page that
// refetches, JSON clients get the refetched list inline.
func (h *CourseHandler) refetched(c *gin.Context, page, status int, message string) {
	if !response.WantsJSON(c) {
		redirectWithFlash(c, withQuery("/courses", "page", int64(page)), state.FlashSuccess, message)
		return
	}
	s := store(c)
	s.PushFlash(state.FlashSuccess, message)
	if err := h.courses.Fetch(c.Request.Context(), s, page); err != nil {
		fail(c, err)
		return
	}
	h.renderList(c, status, s)
}

func (h *CourseHandler) renderForm(c *gin.Context, status int, view formView) {
	render(c, status, tmplCourseForm, view.Heading, view, nil)
}

type rosterView struct {
	Course      models.Course            `json:"course"`
	Enrollments state.EnrollmentSnapshot `json:"enrollments"`
}

// Roster godoc
// @Summary Enrollments of one course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollments [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	s := store(c)
	if err := h.enrollments.FetchRoster(c.Request.Context(), s, id); err != nil && appErrors.IsUnauthorized(err) {
		fail(c, err)
		return
	}
	render(c, http.StatusOK, tmplCourseRoster, course.Code+" roster", rosterView{Course: *course, Enrollments: s.Enrollments.Snapshot()}, nil)
}
