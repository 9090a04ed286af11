package library

import (
	"context"

	"scriptorium/internal/domain/models/library"
)

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	OwnerID     string   `json:"-"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Coauthors   []string `json:"coauthors"`
}

// UpdateProjectRequest represents a request to update a project
type UpdateProjectRequest struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Coauthors   *[]string `json:"coauthors,omitempty"`
}

// ProjectService defines business logic operations for projects
type ProjectService interface {
	// CreateProject creates a new project
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*library.Project, error)

	// GetProject retrieves a project by ID
	GetProject(ctx context.Context, id, ownerID string) (*library.Project, error)

	// ListProjects retrieves all projects for an owner
	ListProjects(ctx context.Context, ownerID string) ([]library.Project, error)

	// UpdateProject updates a project
	UpdateProject(ctx context.Context, id, ownerID string, req *UpdateProjectRequest) (*library.Project, error)

	// DeleteProject deletes a project
	DeleteProject(ctx context.Context, id, ownerID string) error
}
