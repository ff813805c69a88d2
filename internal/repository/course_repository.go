package repository

import (
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/pkg/backend"
)

// CourseRepository binds the backend /courses resource.
type CourseRepository struct {
	resourceRepository[models.Course]
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(client *backend.Client) *CourseRepository {
	return &CourseRepository{resourceRepository[models.Course]{client: client, path: "/courses"}}
}
