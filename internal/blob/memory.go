package blob

import (
	"context"
	"sync"
	"time"

	"datashelf/internal/domain"
)

var _ domain.FileStore = (*MemoryStore)(nil)

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// MemoryStore is an in-memory FileStore for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Get returns the object bytes for key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrNotFound("object %s not found", key)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, nil
}

// Put stores the object bytes under key.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[key] = memoryObject{
		data:         stored,
		contentType:  contentType,
		lastModified: time.Now().UTC(),
	}
	return nil
}

// Delete removes the object under key. Absent keys succeed, matching S3.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Metadata returns the stored object's metadata.
func (s *MemoryStore) Metadata(_ context.Context, key string) (*domain.BlobMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrNotFound("object %s not found", key)
	}
	return &domain.BlobMetadata{
		LastModified: obj.lastModified,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
	}, nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
