package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStorage implements Storage on top of plain Redis string keys.
// Every path maps to one key under the configured namespace.
type RedisStorage struct {
	client    *redis.Client
	namespace string
}

// NewRedisStorage connects using a redis:// URL.
func NewRedisStorage(url, namespace string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStorageFromClient(redis.NewClient(opts), namespace), nil
}

func NewRedisStorageFromClient(client *redis.Client, namespace string) *RedisStorage {
	return &RedisStorage{
		client:    client,
		namespace: strings.TrimSuffix(namespace, ":"),
	}
}

func (s *RedisStorage) key(path string) string {
	return s.namespace + ":" + strings.TrimPrefix(path, "/")
}

func (s *RedisStorage) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(path)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read redis key %s: %w", s.key(path), err)
	}
	return data, nil
}

func (s *RedisStorage) Write(ctx context.Context, path string, data []byte) error {
	if err := s.client.Set(ctx, s.key(path), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write redis key %s: %w", s.key(path), err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, path string) error {
	n, err := s.client.Del(ctx, s.key(path)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete redis key %s: %w", s.key(path), err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return nil
}

// List returns the direct children of prefix, mirroring the directory
// semantics of LocalStorage.
func (s *RedisStorage) List(ctx context.Context, prefix string) ([]string, error) {
	dir := strings.Trim(prefix, "/")
	match := s.namespace + ":*"
	if dir != "" {
		match = s.key(dir) + "/*"
	}

	var paths []string
	iter := s.client.Scan(ctx, 0, match, 100).Iterator()
	for iter.Next(ctx) {
		rel := strings.TrimPrefix(iter.Val(), s.namespace+":")
		rest := rel
		if dir != "" {
			rest = strings.TrimPrefix(rel, dir+"/")
		}
		if strings.Contains(rest, "/") {
			continue
		}
		paths = append(paths, rel)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list redis keys %s: %w", match, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *RedisStorage) Exists(ctx context.Context, path string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(path)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check redis key %s: %w", s.key(path), err)
	}
	return n > 0, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
