// Package mediatypes maps stored media types to file extensions and
// Content-Type headers using an embedded YAML table.
package mediatypes

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// TypeInfo describes one media type
type TypeInfo struct {
	Extensions []string `yaml:"extensions"`
	Charset    string   `yaml:"charset"`
}

type table struct {
	Default string              `yaml:"default"`
	Types   map[string]TypeInfo `yaml:"types"`
}

// Registry resolves media types, extensions and Content-Type headers
type Registry struct {
	defaultType string
	types       map[string]TypeInfo
	byExtension map[string]string
	mu          sync.RWMutex
}

// NewRegistry creates a registry from the embedded media type table
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/media_types.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read media types: %w", err)
	}
	return Parse(data)
}

// Parse creates a registry from YAML table data
func Parse(data []byte) (*Registry, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal media types: %w", err)
	}
	if t.Default == "" {
		return nil, fmt.Errorf("media type table has no default")
	}

	r := &Registry{
		defaultType: t.Default,
		types:       make(map[string]TypeInfo, len(t.Types)),
		byExtension: make(map[string]string),
	}
	for name, info := range t.Types {
		name = normalize(name)
		r.types[name] = info
		for _, ext := range info.Extensions {
			r.byExtension[strings.ToLower(ext)] = name
		}
	}

	return r, nil
}

// Default returns the media type used for untagged payloads
func (r *Registry) Default() string {
	return r.defaultType
}

// Extension returns the preferred extension for a media type, or ""
func (r *Registry) Extension(mediaType string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.types[normalize(mediaType)]
	if !ok || len(info.Extensions) == 0 {
		return ""
	}
	return info.Extensions[0]
}

// Detect guesses a media type from a filename's extension.
// Returns "" when the extension is unknown.
func (r *Registry) Detect(filename string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byExtension[strings.ToLower(filepath.Ext(filename))]
}

// ContentType returns the Content-Type header value for a stored media type.
// Empty input yields the default type; known text types gain their charset.
func (r *Registry) ContentType(mediaType string) string {
	if strings.TrimSpace(mediaType) == "" {
		return r.defaultType
	}
	if strings.Contains(mediaType, ";") {
		return mediaType
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if info, ok := r.types[normalize(mediaType)]; ok && info.Charset != "" {
		return mediaType + "; charset=" + info.Charset
	}
	return mediaType
}

// Register adds or replaces a media type at runtime
func (r *Registry) Register(mediaType string, info TypeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := normalize(mediaType)
	r.types[name] = info
	for _, ext := range info.Extensions {
		r.byExtension[strings.ToLower(ext)] = name
	}
}

func normalize(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
