package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage keeps objects in a map. It backs tests and the "memory"
// storage type, where nothing outlives the process.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// FailWrites makes every Write return an error. Tests use it to
	// exercise save-failure paths.
	FailWrites bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

func normalize(path string) string {
	return strings.Trim(path, "/")
}

func (s *MemoryStorage) Read(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.objects[normalize(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStorage) Write(_ context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites {
		return errors.New("memory storage: writes disabled")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[normalize(path)] = buf
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(path)
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := normalize(prefix)
	var paths []string
	for key := range s.objects {
		rest := key
		if dir != "" {
			if !strings.HasPrefix(key, dir+"/") {
				continue
			}
			rest = strings.TrimPrefix(key, dir+"/")
		}
		if strings.Contains(rest, "/") {
			continue
		}
		paths = append(paths, key)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *MemoryStorage) Exists(_ context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.objects[normalize(path)]
	return ok, nil
}
