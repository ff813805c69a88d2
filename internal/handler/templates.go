package handler

// Template names registered by the views package.
const (
	tmplError          = "error.html"
	tmplConfirm        = "confirm.html"
	tmplLogin          = "login.html"
	tmplSignup         = "signup.html"
	tmplCourseList     = "courses/list.html"
	tmplCourseForm     = "courses/form.html"
	tmplCourseRoster   = "courses/roster.html"
	tmplStudentList    = "students/list.html"
	tmplStudentForm    = "students/form.html"
	tmplEnrollments    = "enrollments/index.html"
	tmplGradeForm      = "enrollments/grade.html"
)

// confirmView backs the confirmation step before destructive actions.
type confirmView struct {
	Heading string `json:"heading"`
	Message string `json:"message"`
	Action  string `json:"action"`
	Cancel  string `json:"cancel"`
}

// formView backs add/edit dialogs.
type formView struct {
	Heading string            `json:"heading"`
	Action  string            `json:"action"`
	Cancel  string            `json:"cancel"`
	Form    interface{}       `json:"form"`
	Errors  map[string]string `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
	Editing bool              `json:"editing"`
}
