package library

import (
	"time"
)

// AttachmentKind names a side payload stored with a document
type AttachmentKind string

const (
	AttachmentPDF   AttachmentKind = "pdf"
	AttachmentImage AttachmentKind = "image"
)

// Document is a mutable, single-owner text document with revision history
type Document struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	ProjectID   *string   `json:"project_id,omitempty"`
	Text        *string   `json:"text"`
	Label       *string   `json:"label,omitempty"`
	Description *string   `json:"description,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	Position    int       `json:"position"`
	HasPDF      bool      `json:"has_pdf"`
	HasImage    bool      `json:"has_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Side payloads, populated on create only
	PDF   []byte `json:"-"`
	Image []byte `json:"-"`
}

// CurrentText returns the document text, treating absent text as empty
func (d *Document) CurrentText() string {
	if d.Text == nil {
		return ""
	}
	return *d.Text
}

// Revision is a snapshot of a document's text taken before a change
type Revision struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`

	// Seq orders revisions created within the same timestamp
	Seq int64 `json:"-"`
}
