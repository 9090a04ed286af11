package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// MaxJSONBytes caps JSON request bodies
const MaxJSONBytes = 10 << 20

// ErrNoFile is returned by FormFile when the named part is absent
var ErrNoFile = errors.New("no file in request")

// ParseJSON decodes a JSON request body into dest.
// The body is limited to MaxJSONBytes; w is needed for the 413 response.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// IsMultipart reports whether the request carries a multipart/form-data body
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// ParseMultipart parses a multipart/form-data body of at most maxBytes
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	// Parts beyond 32 MiB spill to temporary files
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return fmt.Errorf("invalid multipart form: %w", err)
	}
	return nil
}

// UploadedFile is a multipart file part read into memory
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// FormFile reads the first present part among names. Returns ErrNoFile when none is present.
func FormFile(r *http.Request, names ...string) (*UploadedFile, error) {
	for _, name := range names {
		file, header, err := r.FormFile(name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		return &UploadedFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}
	return nil, ErrNoFile
}

// FormList returns the values of a repeated form field. Comma-separated
// values are split, and blanks are dropped.
func FormList(r *http.Request, name string) []string {
	values := r.Form[name]
	if r.Form == nil {
		values = r.URL.Query()[name]
	}

	var out []string
	for _, raw := range values {
		out = appendSplit(out, raw)
	}
	return out
}

func appendSplit(out []string, raw string) []string {
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
