package library

import (
	"testing"
	"time"

	models "scriptorium/internal/domain/models/library"

	"github.com/stretchr/testify/assert"
)

func TestSortReferences(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fixture := func() []models.Reference {
		return []models.Reference{
			{ID: "1", Title: "b", Authors: "Zed", Year: "2001", CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base},
			{ID: "2", Title: "A", Authors: "amy", Year: "1999", CreatedAt: base, UpdatedAt: base.Add(time.Hour)},
			{ID: "3", Title: "c", Authors: "Bob", Year: "2001", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
		}
	}

	tests := []struct {
		name    string
		field   string
		applied bool
		want    []string
	}{
		{"empty keeps order", "", false, []string{"1", "2", "3"}},
		{"unknown keeps order", "colour", false, []string{"1", "2", "3"}},
		{"title ignores case", "title", true, []string{"2", "1", "3"}},
		{"title descending", "-title", true, []string{"3", "1", "2"}},
		{"authors", "authors", true, []string{"2", "3", "1"}},
		{"year is stable", "year", true, []string{"2", "1", "3"}},
		{"created_at", "created_at", true, []string{"2", "3", "1"}},
		{"updated_at descending", "-updated_at", true, []string{"3", "2", "1"}},
		{"field name case", "Title", true, []string{"2", "1", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := fixture()
			assert.Equal(t, tt.applied, sortReferences(refs, tt.field))

			ids := make([]string, len(refs))
			for i, ref := range refs {
				ids[i] = ref.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
