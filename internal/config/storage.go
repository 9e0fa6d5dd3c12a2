package config

import (
	"context"
	"fmt"

	"github.com/kazz187/taskboard/pkg/storage"
)

// OpenStorage builds the backend selected by Type. The returned close
// function is never nil.
func (e *StorageEnv) OpenStorage(ctx context.Context) (storage.Storage, func() error, error) {
	noop := func() error { return nil }
	switch e.Type {
	case StorageTypeS3:
		s, err := storage.NewS3Storage(ctx, e.S3Bucket, e.S3Prefix, e.S3Region)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return s, noop, nil
	case StorageTypeRedis:
		s, err := storage.NewRedisStorage(e.RedisURL, namespace)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create redis storage: %w", err)
		}
		return s, s.Close, nil
	case StorageTypeMemory:
		return storage.NewMemoryStorage(), noop, nil
	case StorageTypeLocal, "":
		s, err := storage.NewLocalStorage(e.BaseDir)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create local storage: %w", err)
		}
		return s, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown storage type %q", e.Type)
}
