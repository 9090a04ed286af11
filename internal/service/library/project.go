package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scriptorium/internal/config"
	"scriptorium/internal/domain"
	models "scriptorium/internal/domain/models/library"
	libraryRepo "scriptorium/internal/domain/repositories/library"
	librarySvc "scriptorium/internal/domain/services/library"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// projectService implements the ProjectService interface
type projectService struct {
	projectRepo libraryRepo.ProjectRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo libraryRepo.ProjectRepository,
	logger *slog.Logger,
) librarySvc.ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateProject creates a new project
func (s *projectService) CreateProject(ctx context.Context, req *librarySvc.CreateProjectRequest) (*models.Project, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	now := s.now()
	project := &models.Project{
		OwnerID:     req.OwnerID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Coauthors:   normalizeCoauthors(req.Coauthors),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
		"owner_id", req.OwnerID,
	)

	return project, nil
}

// GetProject retrieves a project by ID
func (s *projectService) GetProject(ctx context.Context, id, ownerID string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id, ownerID)
}

// ListProjects retrieves all projects for an owner
func (s *projectService) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	return s.projectRepo.List(ctx, ownerID)
}

// UpdateProject updates a project's name, description and coauthors
func (s *projectService) UpdateProject(ctx context.Context, id, ownerID string, req *librarySvc.UpdateProjectRequest) (*models.Project, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	project, err := s.projectRepo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.Coauthors != nil {
		project.Coauthors = normalizeCoauthors(*req.Coauthors)
	}
	project.UpdatedAt = s.now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project updated",
		"id", project.ID,
		"name", project.Name,
		"owner_id", ownerID,
	)

	return project, nil
}

// DeleteProject deletes a project. Documents in it are detached and
// reference tags dropped; the references themselves stay.
func (s *projectService) DeleteProject(ctx context.Context, id, ownerID string) error {
	if err := s.projectRepo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.logger.Info("project deleted",
		"id", id,
		"owner_id", ownerID,
	)

	return nil
}

// validateCreateRequest validates a create project request
func (s *projectService) validateCreateRequest(req *librarySvc.CreateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxProjectNameLength),
			validation.By(validateProjectName),
		),
	)
}

// validateUpdateRequest validates an update project request
func (s *projectService) validateUpdateRequest(req *librarySvc.UpdateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxProjectNameLength),
			validation.By(validateProjectName),
		),
	)
}

// validateProjectName rejects names that are only whitespace
func validateProjectName(value interface{}) error {
	var name string
	switch v := value.(type) {
	case string:
		name = v
	case *string:
		if v == nil {
			return nil
		}
		name = *v
	default:
		return fmt.Errorf("name must be a string")
	}

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	return nil
}

// normalizeCoauthors trims entries and drops blanks
func normalizeCoauthors(coauthors []string) []string {
	result := make([]string, 0, len(coauthors))
	for _, c := range coauthors {
		if c = strings.TrimSpace(c); c != "" {
			result = append(result, c)
		}
	}
	return result
}
