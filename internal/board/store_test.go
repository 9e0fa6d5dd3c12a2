package board

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/pkg/storage"
)

// countingStorage counts writes to the wrapped memory storage.
type countingStorage struct {
	*storage.MemoryStorage
	mu     sync.Mutex
	writes int
}

func (c *countingStorage) Write(ctx context.Context, path string, data []byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryStorage.Write(ctx, path, data)
}

func (c *countingStorage) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *storage.MemoryStorage) {
	t.Helper()
	st := storage.NewMemoryStorage()
	return NewStore(st, opts...), st
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()
	s, st := newTestStore(t)

	task := s.AddTask(ctx, TaskInput{
		Title:    "Write docs",
		Priority: PriorityHigh,
		Tags:     []string{"docs", "api"},
	})

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, StatusTodo, task.Status)
	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, []string{"docs", "api"}, task.Tags)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)

	got, ok := s.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, task, got)

	exists, err := st.Exists(ctx, StorageKey)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAddTask_EmptyTitleAccepted(t *testing.T) {
	s, _ := newTestStore(t)
	task := s.AddTask(context.Background(), TaskInput{})
	assert.Empty(t, task.Title)
	assert.Len(t, s.Tasks(), 1)
}

func TestAddTask_UnknownStatusFallsBackToTodo(t *testing.T) {
	s, _ := newTestStore(t)
	task := s.AddTask(context.Background(), TaskInput{Title: "x", Status: "blocked", Priority: "urgent"})
	assert.Equal(t, StatusTodo, task.Status)
	assert.Empty(t, task.Priority)
}

func TestAddTask_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore(t)
	task := s.AddTask(context.Background(), TaskInput{Title: "x", Tags: []string{"a"}})
	task.Tags[0] = "mutated"
	task.Title = "mutated"

	got, _ := s.Task(task.ID)
	assert.Equal(t, "x", got.Title)
	assert.Equal(t, []string{"a"}, got.Tags)
}

func TestAddTasks_SingleWrite(t *testing.T) {
	ctx := context.Background()
	st := &countingStorage{MemoryStorage: storage.NewMemoryStorage()}
	s := NewStore(st)

	tasks := s.AddTasks(ctx, []TaskInput{
		{Title: "a"},
		{Title: "b", Status: StatusTesting},
		{Title: "c", AIGenerated: true},
	})

	require.Len(t, tasks, 3)
	assert.Equal(t, 1, st.Writes())
	ids := map[string]bool{}
	for _, task := range tasks {
		ids[task.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, 1, s.Statistics().AIGeneratedCount)

	assert.Nil(t, s.AddTasks(ctx, nil))
	assert.Equal(t, 1, st.Writes())
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task := s.AddTask(ctx, TaskInput{Title: "old", Description: "keep"})

	title := "new"
	tags := []string{"x"}
	require.True(t, s.UpdateTask(ctx, task.ID, TaskPatch{Title: &title, Tags: &tags}))

	got, _ := s.Task(task.ID)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, "keep", got.Description)
	assert.Equal(t, []string{"x"}, got.Tags)
	assert.True(t, got.UpdatedAt.After(task.UpdatedAt))
	assert.Equal(t, task.CreatedAt, got.CreatedAt)
}

func TestUpdateTask_NotFoundLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.AddTask(ctx, TaskInput{Title: "a"})
	before := s.Tasks()

	title := "b"
	assert.False(t, s.UpdateTask(ctx, "missing", TaskPatch{Title: &title}))
	assert.Equal(t, before, s.Tasks())
}

func TestUpdateTask_RejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task := s.AddTask(ctx, TaskInput{Title: "a"})

	bogus := Status("archived")
	title := "changed"
	assert.False(t, s.UpdateTask(ctx, task.ID, TaskPatch{Title: &title, Status: &bogus}))

	got, _ := s.Task(task.ID)
	assert.Equal(t, "a", got.Title)
	assert.Equal(t, StatusTodo, got.Status)
}

func TestAddThenDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.AddTask(ctx, TaskInput{Title: "existing", Status: StatusDone})
	before := s.Tasks()

	task := s.AddTask(ctx, TaskInput{Title: "temp"})
	require.True(t, s.DeleteTask(ctx, task.ID))

	assert.Equal(t, before, s.Tasks())
	assert.False(t, s.DeleteTask(ctx, task.ID))
}

func TestDeleteTask_ClearsSelection(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := s.AddTask(ctx, TaskInput{Title: "a"})
	b := s.AddTask(ctx, TaskInput{Title: "b"})

	require.True(t, s.SelectTaskByID(a.ID))
	require.True(t, s.DeleteTask(ctx, b.ID))
	_, ok := s.SelectedTask()
	assert.True(t, ok)

	require.True(t, s.DeleteTask(ctx, a.ID))
	_, ok = s.SelectedTask()
	assert.False(t, ok)
}

func TestMoveTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task := s.AddTask(ctx, TaskInput{Title: "t1"})
	before := s.Statistics()

	require.True(t, s.MoveTask(ctx, task.ID, StatusInProgress))

	after := s.Statistics()
	assert.Equal(t, before.TodoCount-1, after.TodoCount)
	assert.Equal(t, before.InProgressCount+1, after.InProgressCount)
	got, _ := s.Task(task.ID)
	assert.Equal(t, StatusInProgress, got.Status)
	assert.True(t, got.UpdatedAt.After(task.UpdatedAt))
}

func TestMoveTask_UpdatedAtAdvancesWithFrozenClock(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, WithClock(func() time.Time { return frozen }))
	task := s.AddTask(ctx, TaskInput{Title: "t1"})

	require.True(t, s.MoveTask(ctx, task.ID, StatusTesting))
	first, _ := s.Task(task.ID)
	require.True(t, s.MoveTask(ctx, task.ID, StatusDone))
	second, _ := s.Task(task.ID)

	assert.True(t, first.UpdatedAt.After(task.UpdatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestMoveTask_Failures(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task := s.AddTask(ctx, TaskInput{Title: "t1"})

	assert.False(t, s.MoveTask(ctx, "missing", StatusDone))
	assert.False(t, s.MoveTask(ctx, task.ID, "blocked"))

	got, _ := s.Task(task.ID)
	assert.Equal(t, StatusTodo, got.Status)
	assert.Equal(t, task.UpdatedAt, got.UpdatedAt)
}

func TestSelectTask(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task := s.AddTask(ctx, TaskInput{Title: "a"})

	s.SelectTask(&task)
	require.True(t, s.MoveTask(ctx, task.ID, StatusDone))
	got, ok := s.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, StatusDone, got.Status)

	// Tasks outside the collection can still be selected.
	s.SelectTask(&Task{ID: "detached", Title: "preview"})
	got, ok = s.SelectedTask()
	require.True(t, ok)
	assert.Equal(t, "preview", got.Title)

	s.SelectTask(nil)
	_, ok = s.SelectedTask()
	assert.False(t, ok)

	assert.False(t, s.SelectTaskByID("missing"))
}

func TestClearCompletedTasks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.AddTask(ctx, TaskInput{Title: "a"})
	done := s.AddTask(ctx, TaskInput{Title: "b", Status: StatusDone})
	s.AddTask(ctx, TaskInput{Title: "c", Status: StatusDone})
	s.SelectTaskByID(done.ID)

	assert.Equal(t, 2, s.ClearCompletedTasks(ctx))
	assert.Len(t, s.Tasks(), 1)
	_, ok := s.SelectedTask()
	assert.False(t, ok)
	assert.Equal(t, 0, s.ClearCompletedTasks(ctx))
}

func TestClearAllTasks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := s.AddTask(ctx, TaskInput{Title: "a"})
	s.AddTask(ctx, TaskInput{Title: "b"})
	s.SelectTaskByID(a.ID)

	assert.Equal(t, 2, s.ClearAllTasks(ctx))
	assert.Empty(t, s.Tasks())
	_, ok := s.SelectedTask()
	assert.False(t, ok)
}

func TestStatistics_Scenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.AddTask(ctx, TaskInput{Title: "a", Status: StatusTodo})
	s.AddTask(ctx, TaskInput{Title: "b", Status: StatusTodo})
	s.AddTask(ctx, TaskInput{Title: "c", Status: StatusDone})

	stats := s.Statistics()
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 33, stats.CompletionRate)
	assert.Equal(t, 2, stats.TodoCount)
	assert.Equal(t, 1, stats.DoneCount)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, 33, s.CompletionRate())
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0, CompletionRate(0, 0))
	assert.Equal(t, 0, CompletionRate(0, 5))
	assert.Equal(t, 33, CompletionRate(1, 3))
	assert.Equal(t, 67, CompletionRate(2, 3))
	assert.Equal(t, 50, CompletionRate(1, 2))
	assert.Equal(t, 13, CompletionRate(1, 8)) // 12.5 rounds up
	assert.Equal(t, 100, CompletionRate(4, 4))
}

func TestDerivedViewsInvalidateOnMutation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	task := s.AddTask(ctx, TaskInput{Title: "a"})

	assert.Len(t, s.TasksByStatus(StatusTodo), 1)
	assert.Empty(t, s.TasksByStatus(StatusDone))

	s.MoveTask(ctx, task.ID, StatusDone)
	assert.Empty(t, s.TasksByStatus(StatusTodo))
	assert.Len(t, s.TasksByStatus(StatusDone), 1)
	assert.Equal(t, 100, s.CompletionRate())
}

func TestColumns(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for range 4 {
		s.AddTask(ctx, TaskInput{Title: "t", Status: StatusTesting})
	}

	cols := s.Columns()
	require.Len(t, cols, 4)
	assert.Equal(t, StatusTodo, cols[0].ID)
	assert.Equal(t, "To Do", cols[0].Title)
	assert.Equal(t, StatusTesting, cols[2].ID)
	assert.Len(t, cols[2].Tasks, 4)
	assert.True(t, cols[2].OverLimit)
	assert.False(t, cols[1].OverLimit)
	assert.NotNil(t, cols[3].Tasks)

	b := s.Board()
	assert.Equal(t, BoardID, b.ID)
	assert.Equal(t, BoardTitle, b.Title)
	assert.Len(t, b.Tasks, 4)
}

func TestSearchTasks(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.AddTask(ctx, TaskInput{Title: "Fix Login bug"})
	s.AddTask(ctx, TaskInput{Title: "Docs", Description: "explain LOGIN flow"})
	s.AddTask(ctx, TaskInput{Title: "Deploy", Tags: []string{"Infra"}})

	assert.Len(t, s.SearchTasks("login"), 2)
	assert.Len(t, s.SearchTasks("infra"), 1)
	assert.Empty(t, s.SearchTasks("nothing"))
	assert.Len(t, s.SearchTasks(""), 3)
}

func TestSaveFailureSetsError(t *testing.T) {
	ctx := context.Background()
	s, st := newTestStore(t)
	st.FailWrites = true

	task := s.AddTask(ctx, TaskInput{Title: "a"})
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, ErrMsgSaveFailed, s.Error())
	assert.Len(t, s.Tasks(), 1)

	s.ClearError()
	assert.Empty(t, s.Error())

	st.FailWrites = false
	s.SetError("stale")
	s.Reset(ctx)
	assert.Empty(t, s.Error())
	assert.Empty(t, s.Tasks())
	assert.False(t, s.Loading())
}

func TestMutationsPublishEvents(t *testing.T) {
	ctx := context.Background()
	bus := eventbus.New()
	_, ch := bus.Subscribe(16)
	s, _ := newTestStore(t, WithEventBus(bus))

	task := s.AddTask(ctx, TaskInput{Title: "a"})
	s.MoveTask(ctx, task.ID, StatusDone)
	s.DeleteTask(ctx, task.ID)

	var types []eventbus.Type
	for range 3 {
		types = append(types, (<-ch).Type)
	}
	assert.Equal(t, []eventbus.Type{eventbus.TypeTaskCreated, eventbus.TypeTaskMoved, eventbus.TypeTaskDeleted}, types)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := s.AddTask(ctx, TaskInput{Title: "t"})
			s.MoveTask(ctx, task.ID, Statuses[i%len(Statuses)])
			_ = s.Statistics()
			_ = s.Board()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, s.Statistics().TotalTasks)
}
