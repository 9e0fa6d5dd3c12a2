package board

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/pkg/storage"
)

// StorageKey is where the task collection is persisted.
const StorageKey = "kanban-tasks"

// Store owns the authoritative task collection. Every mutation writes the
// whole collection through to storage before returning.
type Store struct {
	mu       sync.RWMutex
	storage  storage.Storage
	key      string
	bus      *eventbus.Bus
	now      func() time.Time
	tasks    []*Task
	selected *Task
	loading  bool
	errMsg   string
	// hash of the last blob written or loaded, used to skip no-op reloads
	syncedHash [sha256.Size]byte

	view atomic.Pointer[derivedView]
}

type Option func(*Store)

func WithEventBus(bus *eventbus.Bus) Option {
	return func(s *Store) { s.bus = bus }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithStorageKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func NewStore(st storage.Storage, opts ...Option) *Store {
	s := &Store{
		storage: st,
		key:     StorageKey,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) StorageKey() string {
	return s.key
}

// stamp returns the current time, forced strictly after prev.
func (s *Store) stamp(prev time.Time) time.Time {
	now := s.now().Round(0)
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

// invalidate drops memoized derived data. Callers hold the write lock.
func (s *Store) invalidate() {
	s.view.Store(nil)
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.tasks, func(t *Task) bool { return t.ID == id })
}

func (s *Store) newTask(ctx context.Context, in TaskInput, now time.Time) *Task {
	status := in.Status
	if status == "" {
		status = StatusTodo
	} else if !status.Valid() {
		slog.WarnContext(ctx, "unknown task status, using todo", "status", status)
		status = StatusTodo
	}
	priority := in.Priority
	if !priority.Valid() {
		slog.WarnContext(ctx, "unknown task priority, ignoring", "priority", priority)
		priority = ""
	}
	var tags []string
	if len(in.Tags) > 0 {
		tags = slices.Clone(in.Tags)
	}
	return &Task{
		ID:          ulid.Make().String(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		Tags:        tags,
		AIGenerated: in.AIGenerated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *Store) AddTask(ctx context.Context, in TaskInput) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.newTask(ctx, in, s.stamp(time.Time{}))
	s.tasks = append(s.tasks, t)
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeTaskCreated, t.ID, map[string]string{"status": string(t.Status)})
	return t.clone()
}

// AddTasks appends every input with its own ID and persists once.
func (s *Store) AddTasks(ctx context.Context, ins []TaskInput) []Task {
	if len(ins) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp(time.Time{})
	out := make([]Task, 0, len(ins))
	for _, in := range ins {
		t := s.newTask(ctx, in, now)
		s.tasks = append(s.tasks, t)
		out = append(out, t.clone())
	}
	s.invalidate()
	s.save(ctx)

	for _, t := range out {
		s.bus.PublishNew(eventbus.TypeTaskCreated, t.ID, map[string]string{"status": string(t.Status)})
	}
	return out
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch TaskPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		slog.WarnContext(ctx, "task not found", "task_id", id)
		return false
	}
	if patch.Status != nil && !patch.Status.Valid() {
		slog.WarnContext(ctx, "rejecting update with unknown status", "task_id", id, "status", *patch.Status)
		return false
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		slog.WarnContext(ctx, "rejecting update with unknown priority", "task_id", id, "priority", *patch.Priority)
		return false
	}
	t := s.tasks[i]
	patch.apply(t)
	t.UpdatedAt = s.stamp(t.UpdatedAt)
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeTaskUpdated, id, nil)
	return true
}

func (s *Store) DeleteTask(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		slog.WarnContext(ctx, "task not found", "task_id", id)
		return false
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
	}
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeTaskDeleted, id, nil)
	return true
}

// MoveTask changes a task's status. Unknown statuses are rejected.
func (s *Store) MoveTask(ctx context.Context, id string, status Status) bool {
	if !status.Valid() {
		slog.WarnContext(ctx, "unknown task status", "task_id", id, "status", status)
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		slog.WarnContext(ctx, "task not found", "task_id", id)
		return false
	}
	t := s.tasks[i]
	from := t.Status
	t.Status = status
	t.UpdatedAt = s.stamp(t.UpdatedAt)
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeTaskMoved, id, map[string]string{"from": string(from), "to": string(status)})
	return true
}

// SelectTask sets the selected task; nil clears the selection. Any task may
// be selected, including one that is not in the collection.
func (s *Store) SelectTask(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t == nil {
		s.selected = nil
		return
	}
	c := t.clone()
	s.selected = &c
}

func (s *Store) SelectTaskByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	c := s.tasks[i].clone()
	s.selected = &c
	return true
}

// SelectedTask returns the selection, refreshed from the collection when the
// task is still present.
func (s *Store) SelectedTask() (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.selected == nil {
		return Task{}, false
	}
	if i := s.indexOf(s.selected.ID); i >= 0 {
		return s.tasks[i].clone(), true
	}
	return s.selected.clone(), true
}

// ClearCompletedTasks removes every done task and returns how many went.
func (s *Store) ClearCompletedTasks(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	s.tasks = slices.DeleteFunc(s.tasks, func(t *Task) bool {
		if t.Status != StatusDone {
			return false
		}
		if s.selected != nil && s.selected.ID == t.ID {
			s.selected = nil
		}
		removed++
		return true
	})
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeTasksCleared, "", map[string]string{"scope": "completed"})
	return removed
}

func (s *Store) ClearAllTasks(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.tasks)
	s.tasks = nil
	s.selected = nil
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeTasksCleared, "", map[string]string{"scope": "all"})
	return removed
}

// Reset empties the board and clears every transient flag.
func (s *Store) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	s.selected = nil
	s.loading = false
	s.errMsg = ""
	s.invalidate()
	s.save(ctx)

	s.bus.PublishNew(eventbus.TypeBoardReset, "", nil)
}

func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.derived().tasks)
}

func (s *Store) Task(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Task{}, false
	}
	return s.tasks[i].clone(), true
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *Store) ClearError() {
	s.SetError("")
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
