package shared

import (
	"context"
	"errors"
	"io"
	"time"
)

// Artifact store errors
var (
	ErrArtifactNotFound   = errors.New("artifact: not found")
	ErrInvalidArtifactKey = errors.New("artifact: invalid key")
)

// ArtifactInfo describes a stored artifact
type ArtifactInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// ArtifactStore persists upload files and dump archives under slash-separated keys.
type ArtifactStore interface {
	// Put writes the object and returns a location string suitable for logs and API responses.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)

	// Open returns ErrArtifactNotFound when the key does not exist.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every artifact whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]ArtifactInfo, error)
}
