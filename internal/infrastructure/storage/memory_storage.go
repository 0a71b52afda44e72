package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/supplysync/backend/internal/domain/shared"
)

var _ shared.ArtifactStore = (*MemoryArtifactStore)(nil)

type memoryObject struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// MemoryArtifactStore keeps artifacts in process memory.
// Use it for tests and one-shot CLI runs; nothing survives a restart.
type MemoryArtifactStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

// NewMemoryArtifactStore creates an empty store
func NewMemoryArtifactStore() *MemoryArtifactStore {
	return &MemoryArtifactStore{
		objects: make(map[string]memoryObject),
		now:     time.Now,
	}
}

// Put stores a copy of the body
func (s *MemoryArtifactStore) Put(_ context.Context, key string, r io.Reader, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read artifact body: %w", err)
	}

	s.mu.Lock()
	s.objects[k] = memoryObject{data: data, contentType: contentType, modTime: s.now()}
	s.mu.Unlock()

	return "mem://" + k, nil
}

// Open returns a reader over a snapshot of the stored bytes
func (s *MemoryArtifactStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	obj, ok := s.objects[k]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrArtifactNotFound, k)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes the key
func (s *MemoryArtifactStore) Delete(_ context.Context, key string) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, k)
	s.mu.Unlock()
	return nil
}

// List returns the keys under prefix
func (s *MemoryArtifactStore) List(_ context.Context, prefix string) ([]shared.ArtifactInfo, error) {
	p, err := cleanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]shared.ArtifactInfo, 0, len(s.objects))
	for k, obj := range s.objects {
		if strings.HasPrefix(k, p) {
			out = append(out, shared.ArtifactInfo{Key: k, Size: int64(len(obj.data)), ModTime: obj.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ContentType reports the content type recorded for key
func (s *MemoryArtifactStore) ContentType(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key].contentType
}

// SetModTime backdates an artifact, for exercising age-based cleanup.
func (s *MemoryArtifactStore) SetModTime(key string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj, ok := s.objects[key]; ok {
		obj.modTime = t
		s.objects[key] = obj
	}
}
