package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kazz187/taskboard/internal/eventbus"
)

const ErrMsgInvalidImport = "Invalid import data format"

type ExportPayload struct {
	Version    int        `json:"version" yaml:"version"`
	ExportedAt time.Time  `json:"exportedAt" yaml:"exported_at"`
	Board      Board      `json:"board" yaml:"board"`
	Statistics Statistics `json:"statistics" yaml:"statistics"`
}

func (s *Store) ExportData() ExportPayload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ExportPayload{
		Version:    FormatVersion,
		ExportedAt: s.now().UTC(),
		Board:      s.boardLocked(),
		Statistics: s.derived().stats,
	}
}

// ImportResult is the typed outcome of ImportData. Reason is empty on success.
type ImportResult struct {
	OK       bool   `json:"ok"`
	Reason   string `json:"reason,omitempty"`
	Imported int    `json:"imported"`
}

var (
	ErrImportNotObject   = errors.New("payload is not a JSON object")
	ErrImportVersion     = errors.New("unsupported export version")
	ErrImportMissingTask = errors.New("board.tasks is missing or not an array")
	ErrImportInvalidTask = errors.New("invalid task")
)

type importTask struct {
	ID          string          `json:"id"`
	Title       json.RawMessage `json:"title"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Priority    Priority        `json:"priority"`
	Tags        []string        `json:"tags"`
	AIGenerated bool            `json:"aiGenerated"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

// ParseImport validates an export payload and returns its tasks. Dates are
// rehydrated from their serialized form.
func ParseImport(data []byte) ([]*Task, error) {
	var payload struct {
		Version json.RawMessage `json:"version"`
		Board   *struct {
			Tasks json.RawMessage `json:"tasks"`
		} `json:"board"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImportNotObject, err)
	}
	if !isFormatVersion(payload.Version) {
		return nil, ErrImportVersion
	}
	if payload.Board == nil || !isJSONArray(payload.Board.Tasks) {
		return nil, ErrImportMissingTask
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(payload.Board.Tasks, &raws); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImportMissingTask, err)
	}

	tasks := make([]*Task, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for i, raw := range raws {
		t, err := parseImportTask(raw)
		if err != nil {
			return nil, fmt.Errorf("%w at index %d: %w", ErrImportInvalidTask, i, err)
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("%w at index %d: duplicate id %q", ErrImportInvalidTask, i, t.ID)
		}
		seen[t.ID] = struct{}{}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func parseImportTask(raw json.RawMessage) (*Task, error) {
	var it importTask
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, err
	}
	if it.ID == "" {
		return nil, errors.New("missing id")
	}
	var title string
	if err := json.Unmarshal(it.Title, &title); err != nil {
		return nil, errors.New("title must be a string")
	}
	if !it.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q", it.Status)
	}
	if !it.Priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q", it.Priority)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updatedAt: %w", err)
	}
	var tags []string
	if len(it.Tags) > 0 {
		tags = it.Tags
	}
	return &Task{
		ID:          it.ID,
		Title:       title,
		Description: it.Description,
		Status:      it.Status,
		Priority:    it.Priority,
		Tags:        tags,
		AIGenerated: it.AIGenerated,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// ImportData replaces the whole collection with the payload's tasks. A
// rejected payload sets the fixed error message and changes nothing else.
func (s *Store) ImportData(ctx context.Context, data []byte) ImportResult {
	tasks, err := ParseImport(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.errMsg = ErrMsgInvalidImport
		return ImportResult{Reason: err.Error()}
	}
	s.tasks = tasks
	s.selected = nil
	s.errMsg = ""
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeBoardImported, "", map[string]string{"count": fmt.Sprint(len(tasks))})
	return ImportResult{OK: true, Imported: len(tasks)}
}
