package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/state"
)

// CourseService handles course use-cases.
type CourseService struct {
	core      resourceService[models.Course]
	validator *dto.Validator
}

// NewCourseService constructs the course service.
func NewCourseService(repo resourceRepository[models.Course], pageSize int, validate *dto.Validator, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{
		core:      resourceService[models.Course]{repo: repo, pageSize: pageSize, noun: "course", logger: logger},
		validator: validate,
	}
}

// Fetch loads one page into the course slice.
func (s *CourseService) Fetch(ctx context.Context, store *state.Store, page int) error {
	return s.core.fetch(ctx, store.Courses, page, 0)
}

// FetchLookup loads the first page at size for selectors.
func (s *CourseService) FetchLookup(ctx context.Context, store *state.Store, size int) error {
	return s.core.fetch(ctx, store.Courses, 0, size)
}

// Get loads one course.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	return s.core.repo.Get(ctx, id)
}

// Create validates and creates a course.
func (s *CourseService) Create(ctx context.Context, store *state.Store, form dto.CourseForm) (*models.Course, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, validationError(err)
	}
	return s.core.create(ctx, store.Courses, form.Model())
}

// Update validates and replaces course id.
func (s *CourseService) Update(ctx context.Context, store *state.Store, id int64, form dto.CourseForm) (*models.Course, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, validationError(err)
	}
	course := form.Model()
	course.ID = id
	return s.core.update(ctx, store.Courses, id, course)
}

// Delete removes course id.
func (s *CourseService) Delete(ctx context.Context, store *state.Store, id int64) error {
	return s.core.remove(ctx, store.Courses, id)
}
