package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the delay after an fsnotify event before the
// file checksum is compared.
const DefaultDebounceInterval = 100 * time.Millisecond

// Watcher reports content changes of a single LocalStorage key made by other
// processes (another server instance, the CLI, a manual edit).
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(ctx context.Context)

	mu       sync.Mutex
	lastHash [sha256.Size]byte
}

// NewWatcher watches key inside s and calls onChange whenever its checksum
// changes.
func NewWatcher(s *LocalStorage, key string, onChange func(ctx context.Context)) *Watcher {
	return &Watcher{
		path:     s.Path(key),
		debounce: DefaultDebounceInterval,
		onChange: onChange,
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched rather
// than the file because LocalStorage replaces files by rename, which changes
// the inode.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	if h, err := HashFile(w.path); err == nil {
		w.setHash(h)
	}
	slog.InfoContext(ctx, "watching storage file", "path", w.path)

	name := filepath.Base(w.path)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.check(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	h, err := HashFile(w.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.WarnContext(ctx, "failed to hash storage file", "path", w.path, "error", err)
		return
	}
	w.mu.Lock()
	changed := h != w.lastHash
	w.lastHash = h
	w.mu.Unlock()
	if !changed {
		return
	}
	slog.DebugContext(ctx, "storage file changed", "path", w.path)
	w.onChange(ctx)
}

func (w *Watcher) setHash(h [sha256.Size]byte) {
	w.mu.Lock()
	w.lastHash = h
	w.mu.Unlock()
}

// HashFile computes the SHA256 hash of the file at the given path.
func HashFile(path string) ([sha256.Size]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [sha256.Size]byte{}, fmt.Errorf("read %s: %w", path, err)
	}
	return sha256.Sum256(data), nil
}
