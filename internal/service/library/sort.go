package library

import (
	"slices"
	"strings"

	models "scriptorium/internal/domain/models/library"
)

type referenceOrdering func(a, b *models.Reference) int

// referenceOrderings lists the fields a reference listing can be sorted by.
// Names outside this table leave the listing in insertion order.
var referenceOrderings = map[string]referenceOrdering{
	"title":   foldOrdering(func(r *models.Reference) string { return r.Title }),
	"authors": foldOrdering(func(r *models.Reference) string { return r.Authors }),
	"journal": foldOrdering(func(r *models.Reference) string { return r.Journal }),
	"year":    foldOrdering(func(r *models.Reference) string { return r.Year }),
	"created_at": func(a, b *models.Reference) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	},
	"updated_at": func(a, b *models.Reference) int {
		return a.UpdatedAt.Compare(b.UpdatedAt)
	},
}

func foldOrdering(field func(*models.Reference) string) referenceOrdering {
	return func(a, b *models.Reference) int {
		return strings.Compare(strings.ToLower(field(a)), strings.ToLower(field(b)))
	}
}

// sortReferences orders refs in place by a field name, descending when the
// name starts with "-". Reports whether the name was recognised.
func sortReferences(refs []models.Reference, field string) bool {
	field = strings.TrimSpace(field)
	descending := strings.HasPrefix(field, "-")
	field = strings.TrimPrefix(field, "-")

	ordering, ok := referenceOrderings[strings.ToLower(field)]
	if !ok {
		return false
	}

	slices.SortStableFunc(refs, func(a, b models.Reference) int {
		if descending {
			return ordering(&b, &a)
		}
		return ordering(&a, &b)
	})
	return true
}
