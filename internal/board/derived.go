package board

import (
	"strings"
)

// derivedView is computed lazily from the collection and dropped on every
// mutation. It is immutable once built.
type derivedView struct {
	tasks    []Task
	byStatus map[Status][]Task
	stats    Statistics
}

// derived returns the memoized view. Callers hold at least the read lock;
// concurrent readers may both build it and the first stored wins.
func (s *Store) derived() *derivedView {
	if v := s.view.Load(); v != nil {
		return v
	}
	v := buildView(s.tasks)
	s.view.CompareAndSwap(nil, v)
	return v
}

func buildView(tasks []*Task) *derivedView {
	v := &derivedView{
		tasks:    make([]Task, 0, len(tasks)),
		byStatus: make(map[Status][]Task, len(Statuses)),
	}
	for _, t := range tasks {
		c := t.clone()
		v.tasks = append(v.tasks, c)
		v.byStatus[c.Status] = append(v.byStatus[c.Status], c)
		if c.AIGenerated {
			v.stats.AIGeneratedCount++
		}
	}
	v.stats.TotalTasks = len(tasks)
	v.stats.TodoCount = len(v.byStatus[StatusTodo])
	v.stats.InProgressCount = len(v.byStatus[StatusInProgress])
	v.stats.TestingCount = len(v.byStatus[StatusTesting])
	v.stats.DoneCount = len(v.byStatus[StatusDone])
	v.stats.CompletedTasks = v.stats.DoneCount
	v.stats.CompletionRate = CompletionRate(v.stats.DoneCount, v.stats.TotalTasks)
	return v
}

func cloneTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].clone()
	}
	return out
}

func (s *Store) TasksByStatus(status Status) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.derived().byStatus[status])
}

func (s *Store) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.derived().stats
}

func (s *Store) CompletionRate() int {
	return s.Statistics().CompletionRate
}

// Columns returns the four fixed columns populated with their tasks.
func (s *Store) Columns() []ColumnView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.columnsLocked()
}

func (s *Store) columnsLocked() []ColumnView {
	v := s.derived()
	cols := make([]ColumnView, 0, len(Columns))
	for _, c := range Columns {
		tasks := cloneTasks(v.byStatus[c.ID])
		cols = append(cols, ColumnView{
			Column:    c,
			Tasks:     tasks,
			OverLimit: c.WIPLimit > 0 && len(tasks) > c.WIPLimit,
		})
	}
	return cols
}

func (s *Store) Board() Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.boardLocked()
}

func (s *Store) boardLocked() Board {
	return Board{
		ID:      BoardID,
		Title:   BoardTitle,
		Columns: s.columnsLocked(),
		Tasks:   cloneTasks(s.derived().tasks),
	}
}

// SearchTasks matches query case-insensitively against title, description
// and tags. An empty query matches every task.
func (s *Store) SearchTasks(query string) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []Task
	for _, t := range s.derived().tasks {
		if matches(&t, q) {
			out = append(out, t.clone())
		}
	}
	return out
}

func matches(t *Task, q string) bool {
	if strings.Contains(strings.ToLower(t.Title), q) || strings.Contains(strings.ToLower(t.Description), q) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
