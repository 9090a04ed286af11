package library

import (
	"context"

	"scriptorium/internal/domain/models/library"
)

// OptionalText tracks tri-state semantics for text updates (RFC 7396 PATCH).
// This is transport-agnostic - handlers map from httputil.OptionalString.
//   - Present=false: field absent from request (don't change)
//   - Present=true, Value=nil: field is null (clear)
//   - Present=true, Value non-nil: set
type OptionalText struct {
	Present bool
	Value   *string
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	OwnerID     string  `json:"-"`
	ProjectID   *string `json:"project_id,omitempty"`
	Text        *string `json:"text,omitempty"`
	Label       *string `json:"label,omitempty"`
	Description *string `json:"description,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	Position    int     `json:"position"`
	PDF         []byte  `json:"-"`
	Image       []byte  `json:"-"`
}

// UpdateDocumentRequest represents a document update request.
// Pointer fields are left unchanged when nil.
type UpdateDocumentRequest struct {
	Text        OptionalText
	Label       *string
	Description *string
	Notes       *string
	Position    *int
	ProjectID   OptionalText
}

// PatchResult is a document after a patch, with hunks that could not be placed
type PatchResult struct {
	Document    *library.Document `json:"document"`
	FailedHunks []int             `json:"failed_hunks"`
}

// DocumentService handles document business logic
type DocumentService interface {
	// CreateDocument creates a new document
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*library.Document, error)

	// GetDocument retrieves a document the owner holds
	GetDocument(ctx context.Context, id, ownerID string) (*library.Document, error)

	// ListDocuments retrieves the owner's documents, optionally for one project
	ListDocuments(ctx context.Context, ownerID string, projectID *string) ([]library.Document, error)

	// UpdateDocument updates metadata and, through the revision ledger, text
	UpdateDocument(ctx context.Context, id, ownerID string, req *UpdateDocumentRequest) (*library.Document, error)

	// PatchDocument applies a diff-match-patch patch to the document text
	PatchDocument(ctx context.Context, id, ownerID, patchText string) (*PatchResult, error)

	// DeleteDocument deletes a document and its revisions
	DeleteDocument(ctx context.Context, id, ownerID string) error

	// ListRevisions returns the document's revisions, oldest first
	ListRevisions(ctx context.Context, id, ownerID string) ([]library.Revision, error)

	// RestoreRevision sets the document text back to a revision's text
	RestoreRevision(ctx context.Context, id, revisionID, ownerID string) (*library.Document, error)

	// GetAttachment returns a side payload of the document
	GetAttachment(ctx context.Context, id, ownerID string, kind library.AttachmentKind) (*library.File, error)
}
