package library

import (
	"context"

	"scriptorium/internal/domain/models/library"
)

// CreateOutcome says how a create request was satisfied
type CreateOutcome string

const (
	// OutcomeCreated means a new reference was stored
	OutcomeCreated CreateOutcome = "created"
	// OutcomeShared means the actor was attached to an existing reference
	OutcomeShared CreateOutcome = "shared"
	// OutcomeEnriched means an existing reference gained imported metadata
	OutcomeEnriched CreateOutcome = "enriched"
)

// RevokeOutcome says what revoking an actor's access did to the reference
type RevokeOutcome string

const (
	// OutcomeUnshared means other owners remain and the reference survives
	OutcomeUnshared RevokeOutcome = "unshared"
	// OutcomeDeleted means the last owner left and the reference was removed
	OutcomeDeleted RevokeOutcome = "deleted"
)

// CreateReferenceRequest represents a reference creation request
type CreateReferenceRequest struct {
	ActorID string `json:"-"`
	// Query seeds the metadata lookup; it becomes the title if the lookup degrades
	Query   string `json:"query"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Journal string `json:"journal"`
	Year    string `json:"year"`
	// File is the optional uploaded payload
	File       *library.File `json:"-"`
	ProjectIDs []string      `json:"project_ids"`
}

// ImportReferenceRequest imports a record from the external bibliographic source
type ImportReferenceRequest struct {
	ActorID    string `json:"-"`
	ExternalID string `json:"external_id"`
	// LinkToReferenceID enriches an existing reference the actor owns instead of creating one
	LinkToReferenceID *string  `json:"link_to_reference_id,omitempty"`
	ProjectIDs        []string `json:"project_ids"`
}

// ListReferencesRequest filters and orders a reference listing
type ListReferencesRequest struct {
	Search string `json:"search"`
	// Sort names a field; a leading "-" reverses the order
	Sort      string `json:"sort"`
	ProjectID string `json:"project_id"`
}

// UpdateReferenceRequest edits reference metadata; nil fields are left unchanged
type UpdateReferenceRequest struct {
	Title   *string `json:"title,omitempty"`
	Authors *string `json:"authors,omitempty"`
	Journal *string `json:"journal,omitempty"`
	Year    *string `json:"year,omitempty"`
}

// CreateReferenceResult is a stored or shared reference
type CreateReferenceResult struct {
	Reference *library.Reference `json:"reference"`
	Outcome   CreateOutcome      `json:"outcome"`
}

// RevokeResult reports the effect of deleting a reference from an actor's library
type RevokeResult struct {
	Outcome RevokeOutcome `json:"outcome"`
}

// ReferenceService orchestrates the shared, content-addressed reference library
type ReferenceService interface {
	// CreateReference stores a new reference or shares an existing one with identical content
	CreateReference(ctx context.Context, req *CreateReferenceRequest) (*CreateReferenceResult, error)

	// ImportReference creates, shares or enriches a reference from an external record
	ImportReference(ctx context.Context, req *ImportReferenceRequest) (*CreateReferenceResult, error)

	// GetReference retrieves a reference the actor owns
	GetReference(ctx context.Context, id, actorID string) (*library.Reference, error)

	// ListReferences retrieves the actor's references
	ListReferences(ctx context.Context, actorID string, req *ListReferencesRequest) ([]library.Reference, error)

	// UpdateReference edits metadata; changes are visible to every owner
	UpdateReference(ctx context.Context, id, actorID string, req *UpdateReferenceRequest) (*library.Reference, error)

	// DeleteReference revokes the actor's access, deleting the reference once unowned
	DeleteReference(ctx context.Context, id, actorID string) (*RevokeResult, error)

	// GetReferenceFile returns the payload with a resolved filename and media type
	GetReferenceFile(ctx context.Context, id, actorID string) (*library.File, error)
}

// MetadataLookup fetches bibliographic metadata for a free-text query or identifier
type MetadataLookup interface {
	FetchMetadata(ctx context.Context, query string) (*library.LookupRecord, error)
}
