package library

import (
	"context"

	"scriptorium/internal/domain/models/library"
)

// ReferenceFilter narrows an owner's reference listing
type ReferenceFilter struct {
	// Search matches case-insensitively against title, authors, journal and year
	Search string
	// ProjectID restricts results to references tagged with the project
	ProjectID string
}

// ReferenceRepository defines data access operations for references
type ReferenceRepository interface {
	// Create inserts a reference with its payload.
	// Returns *domain.ConflictError carrying the existing ID when another
	// reference already holds the same digest.
	Create(ctx context.Context, ref *library.Reference) error

	// GetByID retrieves a reference without its payload
	GetByID(ctx context.Context, id string) (*library.Reference, error)

	// GetByDigest retrieves the reference holding the given content digest
	GetByDigest(ctx context.Context, digest string) (*library.Reference, error)

	// GetByExternalID retrieves the oldest reference linked to an external identifier
	GetByExternalID(ctx context.Context, externalID string) (*library.Reference, error)

	// GetOwnedByExternalID retrieves the oldest reference linked to an external
	// identifier that ownerID holds an edge to
	GetOwnedByExternalID(ctx context.Context, ownerID, externalID string) (*library.Reference, error)

	// Lock takes a row lock on the reference for the rest of the transaction.
	// Returns domain.ErrNotFound if the reference no longer exists.
	Lock(ctx context.Context, id string) error

	// Update writes metadata fields and updated_at
	Update(ctx context.Context, ref *library.Reference) error

	// Delete removes the reference, its payload and its links
	Delete(ctx context.Context, id string) error

	// GetFile returns the stored payload.
	// Returns domain.ErrNotFound when the reference has no payload.
	GetFile(ctx context.Context, id string) (*library.File, error)

	// ListByOwner returns the references an owner holds an edge to, oldest first
	ListByOwner(ctx context.Context, ownerID string, filter *ReferenceFilter) ([]library.Reference, error)

	// LinkProjects tags a reference with projects, ignoring existing tags
	LinkProjects(ctx context.Context, referenceID string, projectIDs []string) error
}

// OwnershipRepository manages reference ownership edges
type OwnershipRepository interface {
	// Add records ownerID as an owner; adding an existing edge is a no-op
	Add(ctx context.Context, referenceID, ownerID string) error

	// Exists reports whether ownerID owns the reference
	Exists(ctx context.Context, referenceID, ownerID string) (bool, error)

	// Remove deletes the edge and reports whether one existed
	Remove(ctx context.Context, referenceID, ownerID string) (bool, error)

	// Count returns the number of owners of the reference
	Count(ctx context.Context, referenceID string) (int, error)
}
