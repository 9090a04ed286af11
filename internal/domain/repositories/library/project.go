package library

import (
	"context"

	"scriptorium/internal/domain/models/library"
)

// ProjectRepository defines data access operations for projects
type ProjectRepository interface {
	// Create creates a new project and returns it with generated ID and timestamps
	Create(ctx context.Context, project *library.Project) error

	// GetByID retrieves a project by ID
	GetByID(ctx context.Context, id, ownerID string) (*library.Project, error)

	// List retrieves all projects for an owner, ordered by updated_at DESC
	List(ctx context.Context, ownerID string) ([]library.Project, error)

	// Update updates a project's name, description and coauthors
	Update(ctx context.Context, project *library.Project) error

	// Delete removes a project; documents are detached and reference tags dropped
	Delete(ctx context.Context, id, ownerID string) error
}
