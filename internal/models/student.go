package models

import "strings"

// Student mirrors a student record served by the backend.
type Student struct {
	ID          int64  `json:"id"`
	IndexNumber string `json:"indexNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
}

// Key returns the record identifier.
func (s Student) Key() int64 { return s.ID }

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
