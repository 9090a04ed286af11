package library

import (
	"strings"
)

// LookupRecord is bibliographic metadata returned by an external lookup.
// A degraded record carries only the query as its title.
type LookupRecord struct {
	Title   string
	Authors string
	Journal string
	Year    string

	ExternalID      *string
	DOI             *string
	Abstract        *string
	Keywords        []string
	PublicationDate *string
	URL             *string
	Citation        *string

	Degraded bool
}

// DegradedRecord is the record stored when no lookup result is available
func DegradedRecord(query string) *LookupRecord {
	return &LookupRecord{
		Title:    query,
		Degraded: true,
	}
}

// Metadata returns the descriptive fields of the record
func (r *LookupRecord) Metadata() Metadata {
	return Metadata{
		Title:   r.Title,
		Authors: r.Authors,
		Journal: r.Journal,
		Year:    r.YearOrPublished(),
	}
}

// YearOrPublished returns Year, falling back to the leading year of the publication date
func (r *LookupRecord) YearOrPublished() string {
	if r.Year != "" {
		return r.Year
	}
	if r.PublicationDate == nil {
		return ""
	}
	date := strings.TrimSpace(*r.PublicationDate)
	if len(date) >= 4 && isDigits(date[:4]) {
		return date[:4]
	}
	return ""
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
