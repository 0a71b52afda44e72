// Package storage provides artifact store implementations for uploads and dump archives.
package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/supplysync/backend/internal/domain/shared"
)

// cleanKey normalizes a slash-separated key and rejects keys that escape the store root.
func cleanKey(key string) (string, error) {
	k := strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimLeft(k, "/")
	if k == "" {
		return "", fmt.Errorf("%w: key is required", shared.ErrInvalidArtifactKey)
	}
	k = path.Clean(k)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidArtifactKey, key)
	}
	return k, nil
}

// cleanPrefix is like cleanKey but allows an empty prefix and keeps a trailing slash.
func cleanPrefix(prefix string) (string, error) {
	p := strings.TrimSpace(strings.ReplaceAll(prefix, "\\", "/"))
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", nil
	}
	trailing := strings.HasSuffix(p, "/")
	k, err := cleanKey(p)
	if err != nil {
		return "", err
	}
	if trailing {
		k += "/"
	}
	return k, nil
}
