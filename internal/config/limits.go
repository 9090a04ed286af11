package config

const (
	// DefaultRevisionLimit is how many revisions a document keeps when
	// REVISION_LIMIT is unset or invalid.
	DefaultRevisionLimit = 20

	// DefaultMaxUploadBytes caps multipart uploads (50 MiB).
	DefaultMaxUploadBytes = 50 << 20

	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxProjectNameLength = 255

	// MaxTitleLength bounds reference titles. Titles come from external
	// lookups and pasted queries, so they are allowed to be long.
	MaxTitleLength = 2000

	// MaxPatchLength bounds a single patch body (1 MiB).
	MaxPatchLength = 1 << 20
)
