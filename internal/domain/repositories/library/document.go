package library

import (
	"context"
	"time"

	"scriptorium/internal/domain/models/library"
)

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create inserts a document with its optional side payloads
	Create(ctx context.Context, doc *library.Document) error

	// GetByID retrieves a document owned by ownerID
	GetByID(ctx context.Context, id, ownerID string) (*library.Document, error)

	// Lock takes a row lock on the document for the rest of the transaction.
	// Returns domain.ErrNotFound if the owner holds no such document.
	Lock(ctx context.Context, id, ownerID string) error

	// List retrieves an owner's documents ordered by position, then creation.
	// A non-nil projectID restricts the result to that project.
	List(ctx context.Context, ownerID string, projectID *string) ([]library.Document, error)

	// Update writes label, description, notes, position, project and updated_at
	Update(ctx context.Context, doc *library.Document) error

	// UpdateText replaces the document text
	UpdateText(ctx context.Context, id string, text *string, updatedAt time.Time) error

	// Delete removes the document; revisions go with it
	Delete(ctx context.Context, id, ownerID string) error

	// GetAttachment returns a side payload.
	// Returns domain.ErrNotFound when the document has none of that kind.
	GetAttachment(ctx context.Context, id, ownerID string, kind library.AttachmentKind) ([]byte, error)
}

// RevisionRepository defines data access operations for document revisions
type RevisionRepository interface {
	// Create appends a revision, assigning ID and Seq
	Create(ctx context.Context, rev *library.Revision) error

	// ListByDocument returns revisions oldest first
	ListByDocument(ctx context.Context, documentID string) ([]library.Revision, error)

	// GetByID retrieves a revision belonging to documentID
	GetByID(ctx context.Context, id, documentID string) (*library.Revision, error)

	// Trim deletes all but the newest keep revisions and returns how many were removed
	Trim(ctx context.Context, documentID string, keep int) (int64, error)
}
