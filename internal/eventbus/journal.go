package eventbus

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Journal appends every published event to a daily NDJSON file.
type Journal struct {
	dir string
	mu  sync.Mutex
}

type journalEntry struct {
	*Event
	LoggedAt time.Time `json:"loggedAt"`
}

func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &Journal{dir: dir}, nil
}

func (j *Journal) path(day time.Time) string {
	return filepath.Join(j.dir, fmt.Sprintf("events_%s.ndjson", day.UTC().Format("2006-01-02")))
}

func (j *Journal) Append(event *Event) error {
	data, err := json.Marshal(journalEntry{Event: event, LoggedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	f, err := os.OpenFile(j.path(event.CreatedAt), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write event %s: %w", event.ID, err)
	}
	return nil
}

// Run records events from bus until ctx is done.
func (j *Journal) Run(ctx context.Context, bus *Bus) error {
	id, ch := bus.Subscribe(256)
	defer bus.Unsubscribe(id)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			if err := j.Append(event); err != nil {
				slog.ErrorContext(ctx, "failed to journal event", "event_id", event.ID, "error", err)
			}
		}
	}
}

// ReadDay returns the events journaled on day, oldest first. Lines that do
// not decode are skipped.
func (j *Journal) ReadDay(day time.Time) ([]*Event, error) {
	f, err := os.Open(j.path(day))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var events []*Event
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var entry journalEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil || entry.Event == nil {
			slog.Warn("skipping malformed journal line", "file", f.Name())
			continue
		}
		events = append(events, entry.Event)
	}
	if err := sc.Err(); err != nil {
		return events, fmt.Errorf("failed to read journal: %w", err)
	}
	return events, nil
}
