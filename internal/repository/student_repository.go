package repository

import (
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/pkg/backend"
)

// StudentRepository binds the backend /students resource.
type StudentRepository struct {
	resourceRepository[models.Student]
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(client *backend.Client) *StudentRepository {
	return &StudentRepository{resourceRepository[models.Student]{client: client, path: "/students"}}
}
