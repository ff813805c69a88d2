// Package dto holds the form payloads accepted by the console views. Each
// form binds from both urlencoded bodies and JSON.
package dto

import (
	"strings"

	"github.com/noah-isme/course-console/internal/models"
)

// CourseForm is the add/edit course dialog.
type CourseForm struct {
	Code     string `form:"code" json:"code" validate:"required"`
	Title    string `form:"title" json:"title" validate:"required"`
	Credits  int    `form:"credits" json:"credits"`
	Capacity int    `form:"capacity" json:"capacity"`
}

// NewCourseForm returns the add dialog with its default credits and capacity.
func NewCourseForm() CourseForm {
	return CourseForm{Credits: 2, Capacity: 50}
}

// CourseFormFrom pre-fills the edit dialog.
func CourseFormFrom(c models.Course) CourseForm {
	return CourseForm{Code: c.Code, Title: c.Title, Credits: c.Credits, Capacity: c.Capacity}
}

// Model converts the form into the backend payload.
func (f CourseForm) Model() models.Course {
	return models.Course{
		Code:     strings.TrimSpace(f.Code),
		Title:    strings.TrimSpace(f.Title),
		Credits:  f.Credits,
		Capacity: f.Capacity,
	}
}

// StudentForm is the add/edit student dialog.
type StudentForm struct {
	IndexNumber string `form:"indexNumber" json:"indexNumber" validate:"required"`
	FirstName   string `form:"firstName" json:"firstName" validate:"required"`
	LastName    string `form:"lastName" json:"lastName" validate:"required"`
	Email       string `form:"email" json:"email" validate:"required"`
}

// StudentFormFrom pre-fills the edit dialog.
func StudentFormFrom(s models.Student) StudentForm {
	return StudentForm{IndexNumber: s.IndexNumber, FirstName: s.FirstName, LastName: s.LastName, Email: s.Email}
}

// Model converts the form into the backend payload.
func (f StudentForm) Model() models.Student {
	return models.Student{
		IndexNumber: strings.TrimSpace(f.IndexNumber),
		FirstName:   strings.TrimSpace(f.FirstName),
		LastName:    strings.TrimSpace(f.LastName),
		Email:       strings.TrimSpace(f.Email),
	}
}

// EnrollForm is the new-enrollment dialog.
type EnrollForm struct {
	StudentID int64 `form:"studentId" json:"studentId" validate:"required"`
	CourseID  int64 `form:"courseId" json:"courseId" validate:"required"`
}

// GradeForm is the grade dialog.
type GradeForm struct {
	StudentID int64        `form:"studentId" json:"studentId"`
	Grade     models.Grade `form:"grade" json:"grade" validate:"required"`
}

// DropForm confirms dropping an enrollment.
type DropForm struct {
	StudentID int64 `form:"studentId" json:"studentId"`
}

// LoginForm is the login page.
type LoginForm struct {
	Username string `form:"username" json:"username" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Request converts the form into the backend payload.
func (f LoginForm) Request() models.LoginRequest {
	return models.LoginRequest{Username: strings.TrimSpace(f.Username), Password: f.Password}
}

// SignupForm is the signup page.
type SignupForm struct {
	Username        string      `form:"username" json:"username" validate:"required"`
	Email           string      `form:"email" json:"email" validate:"required"`
	Password        string      `form:"password" json:"password" validate:"required"`
	ConfirmPassword string      `form:"confirmPassword" json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            models.Role `form:"role" json:"role" validate:"required"`
}

// Request converts the form into the backend payload.
func (f SignupForm) Request() models.SignupRequest {
	return models.SignupRequest{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		Role:     f.Role,
	}
}
