package board

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/pkg/storage"
)

const (
	FormatVersion = 1

	ErrMsgSaveFailed = "Failed to save tasks"
)

type persistedState struct {
	Tasks   []*Task   `json:"tasks"`
	Version int       `json:"version"`
	SavedAt time.Time `json:"savedAt"`
}

// save writes the collection through to storage. Failures only set the
// error message. Callers hold the write lock.
func (s *Store) save(ctx context.Context) {
	tasks := s.tasks
	if tasks == nil {
		tasks = []*Task{}
	}
	data, err := json.Marshal(persistedState{
		Tasks:   tasks,
		Version: FormatVersion,
		SavedAt: s.now().UTC(),
	})
	if err == nil {
		err = s.storage.Write(ctx, s.key, data)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to save tasks", "key", s.key, "error", err)
		s.errMsg = ErrMsgSaveFailed
		// storage no longer matches memory; the next load must not be skipped
		s.syncedHash = [sha256.Size]byte{}
		return
	}
	s.syncedHash = sha256.Sum256(data)
}

var (
	errUnsupportedVersion = errors.New("unsupported version")
	errTasksNotArray      = errors.New("tasks is not an array")
)

// decodeState parses a persisted blob. Unknown statuses are normalized to
// todo rather than rejecting the whole blob.
func decodeState(ctx context.Context, data []byte) ([]*Task, error) {
	var raw struct {
		Version json.RawMessage `json:"version"`
		Tasks   json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if !isFormatVersion(raw.Version) {
		return nil, errUnsupportedVersion
	}
	if !isJSONArray(raw.Tasks) {
		return nil, errTasksNotArray
	}
	var tasks []*Task
	if err := json.Unmarshal(raw.Tasks, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	out := tasks[:0]
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if !t.Status.Valid() {
			slog.WarnContext(ctx, "stored task has unknown status, using todo", "task_id", t.ID, "status", t.Status)
			t.Status = StatusTodo
		}
		out = append(out, t)
	}
	return out, nil
}

// isFormatVersion reports whether raw is a JSON number equal to
// FormatVersion. 1, 1.0 and 1e0 all qualify; the string "1" does not.
func isFormatVersion(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return false
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return false
	}
	f, err := n.Float64()
	return err == nil && f == FormatVersion
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// LoadFromStorage replaces the collection with the persisted one and reports
// whether it did. Absent, unreadable and malformed blobs are ignored and the
// collection keeps its value. A blob identical to the last one this store
// wrote or loaded is skipped.
func (s *Store) LoadFromStorage(ctx context.Context) bool {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	data, err := s.storage.Read(ctx, s.key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "failed to read stored tasks", "key", s.key, "error", err)
		}
		return false
	}
	hash := sha256.Sum256(data)
	if hash == s.syncedHash {
		return false
	}
	tasks, err := decodeState(ctx, data)
	if err != nil {
		slog.WarnContext(ctx, "ignoring stored tasks", "key", s.key, "error", err)
		return false
	}
	s.tasks = tasks
	s.syncedHash = hash
	s.invalidate()

	s.bus.PublishNew(eventbus.TypeBoardReloaded, "", map[string]string{"count": fmt.Sprint(len(tasks))})
	return true
}
