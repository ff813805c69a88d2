package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/pkg/backend"
	appErrors "github.com/noah-isme/course-console/pkg/errors"
)

// EnrollmentRepository binds the backend /enrollments actions.
type EnrollmentRepository struct {
	client *backend.Client
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(client *backend.Client) *EnrollmentRepository {
	return &EnrollmentRepository{client: client}
}

// Enroll registers studentID in courseID.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	query := url.Values{}
	query.Set("studentId", strconv.FormatInt(studentID, 10))
	query.Set("courseId", strconv.FormatInt(courseID, 10))

	var result models.Enrollment
	if err := r.client.Post(ctx, "/enrollments/enroll", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Grade sets the grade of enrollment id.
func (r *EnrollmentRepository) Grade(ctx context.Context, id int64, grade models.Grade) (*models.Enrollment, error) {
	query := url.Values{}
	query.Set("grade", string(grade))

	var result models.Enrollment
	if err := r.client.Patch(ctx, fmt.Sprintf("/enrollments/%d/grade", id), query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ByStudent lists the enrollments of one student.
func (r *EnrollmentRepository) ByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error) {
	return r.list(ctx, fmt.Sprintf("/enrollments/by-student/%d", studentID))
}

// ByCourse lists the enrollments of one course.
func (r *EnrollmentRepository) ByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error) {
	return r.list(ctx, fmt.Sprintf("/enrollments/by-course/%d", courseID))
}

// Drop removes enrollment id.
func (r *EnrollmentRepository) Drop(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, fmt.Sprintf("/enrollments/%d", id))
}

// GPA returns the backend-computed grade-point average. Both a bare number and
// an object with a gpa field are accepted.
func (r *EnrollmentRepository) GPA(ctx context.Context, studentID int64) (float64, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, fmt.Sprintf("/enrollments/gpa/%d", studentID), nil, &raw); err != nil {
		return 0, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err == nil {
		return value, nil
	}
	var wrapped struct {
		GPA *float64 `json:"gpa"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.GPA == nil {
		return 0, appErrors.Clone(appErrors.ErrBackend, "unexpected GPA response")
	}
	return *wrapped.GPA, nil
}

func (r *EnrollmentRepository) list(ctx context.Context, path string) ([]models.Enrollment, error) {
	var result []models.Enrollment
	if err := r.client.Get(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = []models.Enrollment{}
	}
	return result, nil
}
