package library

import (
	"context"
	"fmt"

	libraryRepo "scriptorium/internal/domain/repositories/library"
)

// ProjectValidator checks that project tags on a request name projects the
// actor owns before anything is written
type ProjectValidator struct {
	projectRepo libraryRepo.ProjectRepository
}

// NewProjectValidator creates a new project validator
func NewProjectValidator(projectRepo libraryRepo.ProjectRepository) *ProjectValidator {
	return &ProjectValidator{projectRepo: projectRepo}
}

// ValidateProject ensures a project exists and belongs to the owner.
// Returns domain.ErrNotFound otherwise.
func (v *ProjectValidator) ValidateProject(ctx context.Context, projectID, ownerID string) error {
	if _, err := v.projectRepo.GetByID(ctx, projectID, ownerID); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}
	return nil
}

// ValidateProjects validates each project ID in turn
func (v *ProjectValidator) ValidateProjects(ctx context.Context, projectIDs []string, ownerID string) error {
	for _, id := range projectIDs {
		if err := v.ValidateProject(ctx, id, ownerID); err != nil {
			return err
		}
	}
	return nil
}
