package library

import (
	"time"
)

// Reference is a bibliographic artifact, optionally carrying a binary payload.
// References with a payload are content-addressed: at most one reference
// exists per digest, shared by every owner that uploaded the same bytes.
type Reference struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Journal string `json:"journal"`
	Year    string `json:"year"`

	Filename  *string `json:"filename,omitempty"`
	MediaType *string `json:"media_type,omitempty"`
	Digest    *string `json:"digest,omitempty"`
	Size      int64   `json:"size"`

	ExternalID      *string  `json:"external_id,omitempty"`
	DOI             *string  `json:"doi,omitempty"`
	Abstract        *string  `json:"abstract,omitempty"`
	Keywords        []string `json:"keywords"`
	PublicationDate *string  `json:"publication_date,omitempty"`
	URL             *string  `json:"url,omitempty"`
	Citation        *string  `json:"citation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Payload is only populated on create; reads go through the file accessor.
	Payload []byte `json:"-"`
}

// HasFile reports whether the reference carries a binary payload
func (r *Reference) HasFile() bool {
	return r.Digest != nil
}

// Metadata is the user-editable descriptive part of a reference
type Metadata struct {
	Title   string
	Authors string
	Journal string
	Year    string
}

// Apply copies non-empty fields of m onto the reference
func (m Metadata) Apply(ref *Reference) {
	if m.Title != "" {
		ref.Title = m.Title
	}
	if m.Authors != "" {
		ref.Authors = m.Authors
	}
	if m.Journal != "" {
		ref.Journal = m.Journal
	}
	if m.Year != "" {
		ref.Year = m.Year
	}
}

// Merge returns m with every non-empty field of over taking precedence
func (m Metadata) Merge(over Metadata) Metadata {
	if over.Title != "" {
		m.Title = over.Title
	}
	if over.Authors != "" {
		m.Authors = over.Authors
	}
	if over.Journal != "" {
		m.Journal = over.Journal
	}
	if over.Year != "" {
		m.Year = over.Year
	}
	return m
}

// File is a binary payload together with its presentation tags
type File struct {
	Name      string
	MediaType string
	Data      []byte
}
