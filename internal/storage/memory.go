package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps objects in memory. It backs the daemon's dry-run mode and
// lets tests inject upload failures.
type MemoryStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures []error
	puts     int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// FailNextPuts makes the next n calls to Put return err without storing anything.
func (s *MemoryStore) FailNextPuts(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures = append(s.failures, err)
	}
}

// EnsureContainer implements Store.EnsureContainer.
func (s *MemoryStore) EnsureContainer(ctx context.Context) error {
	return nil
}

// Put implements Store.Put.
func (s *MemoryStore) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	s.puts++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %q: %w", name, err)
	}

	s.mu.Lock()
	s.objects[name] = data
	s.mu.Unlock()
	return nil
}

// List implements Store.List.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.objects))
	for name := range s.objects {
		names = append(names, name)
	}
	return names, nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", name, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Object returns a copy of the stored bytes for name.
func (s *MemoryStore) Object(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// PutCalls returns how many times Put was called, failed calls included.
func (s *MemoryStore) PutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
