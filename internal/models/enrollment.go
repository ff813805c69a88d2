package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Grade is the backend's enumerated grade code.
type Grade string

// Grade codes accepted by the backend, best first.
const (
	GradeAPlus  Grade = "A_PLUS"
	GradeA      Grade = "A"
	GradeAMinus Grade = "A_MINUS"
	GradeBPlus  Grade = "B_PLUS"
	GradeB      Grade = "B"
	GradeBMinus Grade = "B_MINUS"
	GradeCPlus  Grade = "C_PLUS"
	GradeC      Grade = "C"
	GradeCMinus Grade = "C_MINUS"
	GradeDPlus  Grade = "D_PLUS"
	GradeD      Grade = "D"
	GradeE      Grade = "E"
)

// Grades lists every grade in display order.
var Grades = []Grade{
	GradeAPlus, GradeA, GradeAMinus,
	GradeBPlus, GradeB, GradeBMinus,
	GradeCPlus, GradeC, GradeCMinus,
	GradeDPlus, GradeD, GradeE,
}

// NotGradedLabel is shown for enrollments without a grade.
const NotGradedLabel = "Not graded"

var gradeLabels = strings.NewReplacer("_PLUS", " +", "_MINUS", " -")

// Valid reports whether g is one of the enumerated codes.
func (g Grade) Valid() bool {
	for _, candidate := range Grades {
		if g == candidate {
			return true
		}
	}
	return false
}

// Label renders the grade for display, e.g. B_PLUS -> "B +".
func (g Grade) Label() string {
	if g == "" {
		return NotGradedLabel
	}
	return gradeLabels.Replace(string(g))
}

// Enrollment links one student to one course.
type Enrollment struct {
	ID         int64     `json:"id"`
	Student    Student   `json:"student"`
	Course     Course    `json:"course"`
	EnrolledAt Timestamp `json:"enrolledAt"`
	Grade      Grade     `json:"grade,omitempty"`
}

// Key returns the record identifier.
func (e Enrollment) Key() int64 { return e.ID }

// Graded reports whether a grade has been assigned.
func (e Enrollment) Graded() bool { return e.Grade != "" }

// Timestamp accepts both zoned and zone-less ISO-8601 values; the backend emits
// local date-times without an offset.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		if string(data) == "null" {
			t.Time = time.Time{}
			return nil
		}
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// Display formats the timestamp for tables.
func (t Timestamp) Display() string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
