package storage

import (
	"context"
	"io"
)

// ArtifactStore is the archival destination for generated artifacts,
// their metadata siblings, and batch reports.
type ArtifactStore interface {
	// Upload stores an object under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// UploadFile stores a local file under key, deriving the content
	// type from the file extension.
	UploadFile(ctx context.Context, key, path string) error

	// Exists reports whether an object is already stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the public URL for a stored object.
	GetURL(key string) string
}
