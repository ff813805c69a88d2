package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/course-console/internal/dto"
	"github.com/noah-isme/course-console/internal/models"
	"github.com/noah-isme/course-console/internal/state"
)

// StudentService handles student use-cases.
type StudentService struct {
	core      resourceService[models.Student]
	validator *dto.Validator
}

// NewStudentService constructs the student service.
func NewStudentService(repo resourceRepository[models.Student], pageSize int, validate *dto.Validator, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		core:      resourceService[models.Student]{repo: repo, pageSize: pageSize, noun: "student", logger: logger},
		validator: validate,
	}
}

// Fetch loads one page into the student slice.
func (s *StudentService) Fetch(ctx context.Context, store *state.Store, page int) error {
	return s.core.fetch(ctx, store.Students, page, 0)
}

// FetchLookup loads the first page at size for selectors.
func (s *StudentService) FetchLookup(ctx context.Context, store *state.Store, size int) error {
	return s.core.fetch(ctx, store.Students, 0, size)
}

// Get loads one student.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	return s.core.repo.Get(ctx, id)
}

// Create validates and creates a student.
func (s *StudentService) Create(ctx context.Context, store *state.Store, form dto.StudentForm) (*models.Student, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, validationError(err)
	}
	return s.core.create(ctx, store.Students, form.Model())
}

// Update validates and replaces student id.
func (s *StudentService) Update(ctx context.Context, store *state.Store, id int64, form dto.StudentForm) (*models.Student, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, validationError(err)
	}
	student := form.Model()
	student.ID = id
	return s.core.update(ctx, store.Students, id, student)
}

// Delete removes student id.
func (s *StudentService) Delete(ctx context.Context, store *state.Store, id int64) error {
	return s.core.remove(ctx, store.Students, id)
}
