package httputil

import (
	"bytes"
	"encoding/json"
)

// Optional tracks presence and value of a JSON field for merge-patch
// semantics (RFC 7396), which a plain pointer cannot express:
//   - Present=false: field absent (leave unchanged)
//   - Present=true, Value=nil: field is null (clear)
//   - Present=true, Value non-nil: set
type Optional[T any] struct {
	Present bool
	Value   *T
}

// UnmarshalJSON implements json.Unmarshaler.
// It is only called when the field appears in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// OptionalString is the common string case of Optional
type OptionalString = Optional[string]
