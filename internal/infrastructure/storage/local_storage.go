package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/supplysync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var _ shared.ArtifactStore = (*LocalArtifactStore)(nil)

// LocalArtifactStore keeps artifacts as files under a root directory.
type LocalArtifactStore struct {
	root   string
	logger *zap.Logger
}

// NewLocalArtifactStore creates the root directory if needed.
func NewLocalArtifactStore(root string, logger *zap.Logger) (*LocalArtifactStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("storage root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalArtifactStore{root: abs, logger: logger}, nil
}

// Root returns the absolute root directory
func (s *LocalArtifactStore) Root() string {
	return s.root
}

func (s *LocalArtifactStore) path(key string) (string, string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return k, filepath.Join(s.root, filepath.FromSlash(k)), nil
}

// Put writes to a temp file in the target directory and renames it into place.
func (s *LocalArtifactStore) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	k, full, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", k, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", k, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", k, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to store %s: %w", k, err)
	}

	s.logger.Debug("Artifact stored", zap.String("key", k), zap.String("path", full))
	return full, nil
}

// Open opens the artifact for reading
func (s *LocalArtifactStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	k, full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", shared.ErrArtifactNotFound, k)
		}
		return nil, fmt.Errorf("failed to open %s: %w", k, err)
	}
	return f, nil
}

// Delete removes the artifact file
func (s *LocalArtifactStore) Delete(_ context.Context, key string) error {
	k, full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", k, err)
	}
	return nil
}

// List walks the root and returns regular files whose key has the given prefix.
func (s *LocalArtifactStore) List(ctx context.Context, prefix string) ([]shared.ArtifactInfo, error) {
	p, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	var out []shared.ArtifactInfo
	err = filepath.WalkDir(s.root, func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, full)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, shared.ArtifactInfo{Key: key, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
