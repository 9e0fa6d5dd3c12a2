package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested path does not exist in storage.
var ErrNotFound = errors.New("not found")

// Storage provides an abstraction over key-value style file storage.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Clear deletes every object listed under prefix and returns how many were
// removed. Objects that vanish between List and Delete are not counted.
func Clear(ctx context.Context, s Storage, prefix string) (int, error) {
	paths, err := s.List(ctx, prefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if err := s.Delete(ctx, p); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("failed to clear %s: %w", prefix, err)
		}
		removed++
	}
	return removed, nil
}
