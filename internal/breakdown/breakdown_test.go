package breakdown

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	claudeagent "github.com/kazz187/claude-agent-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/pkg/cerr"
	"github.com/kazz187/taskboard/pkg/storage"
)

func TestParseTasks(t *testing.T) {
	reply := "Here you go:\n```json\n[" +
		`{"title":"Design schema","description":"Tables [users]","priority":"High","tags":["db"," "]},` +
		`{"title":"  ","description":"dropped"},` +
		`{"title":"Write tests","priority":"urgent"}` +
		"]\n```"

	tasks, err := ParseTasks(reply)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Design schema", tasks[0].Title)
	assert.Equal(t, "Tables [users]", tasks[0].Description)
	assert.Equal(t, board.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, []string{"db"}, tasks[0].Tags)
	assert.Empty(t, tasks[1].Priority)
	for _, task := range tasks {
		assert.True(t, task.AIGenerated)
		assert.Equal(t, board.StatusTodo, task.Status)
	}
}

func TestParseTasks_Errors(t *testing.T) {
	_, err := ParseTasks("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoTasks)

	_, err = ParseTasks("[]")
	assert.ErrorIs(t, err, ErrNoTasks)

	_, err = ParseTasks(`[1, 2]`)
	assert.Error(t, err)
}

func TestFirstJSONArray(t *testing.T) {
	got, ok := firstJSONArray(`see [not json] then [{"title":"a ] b"}] end`)
	require.True(t, ok)
	assert.Equal(t, `[{"title":"a ] b"}]`, got)

	_, ok = firstJSONArray(`[unterminated`)
	assert.False(t, ok)
}

func TestClaude_Breakdown(t *testing.T) {
	var gotPrompt string
	var gotOpts *claudeagent.ClaudeAgentOptions
	c := NewClaude("/work", WithTimeout(time.Second), WithQueryFunc(
		func(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			gotPrompt, gotOpts = prompt, opts
			return `[{"title":"a"}]`, nil
		}))

	tasks, err := c.Breakdown(context.Background(), "launch the beta")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Contains(t, gotPrompt, "launch the beta")
	assert.Equal(t, "/work", gotOpts.Cwd)
	require.NotNil(t, gotOpts.MaxTurns)
	assert.Equal(t, 1, *gotOpts.MaxTurns)
}

type stubBreakdowner struct {
	tasks []board.TaskInput
	err   error
}

func (s stubBreakdowner) Breakdown(context.Context, string) ([]board.TaskInput, error) {
	return s.tasks, s.err
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()
	store := board.NewStore(storage.NewMemoryStorage())
	store.AddTask(ctx, board.TaskInput{Title: "existing"})

	svc := NewService(store, stubBreakdowner{tasks: []board.TaskInput{{Title: "a"}, {Title: "b"}}})
	tasks, err := svc.Generate(ctx, "plan")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.True(t, task.AIGenerated)
	}
	stats := store.Statistics()
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 2, stats.AIGeneratedCount)
}

func TestService_GenerateErrors(t *testing.T) {
	ctx := context.Background()
	store := board.NewStore(storage.NewMemoryStorage())

	_, err := NewService(store, stubBreakdowner{}).Generate(ctx, "   ")
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))

	_, err = NewService(store, stubBreakdowner{err: errors.New("rate limited")}).Generate(ctx, "x")
	assert.True(t, cerr.IsCode(err, cerr.Unavailable))

	_, err = NewService(store, stubBreakdowner{err: context.DeadlineExceeded}).Generate(ctx, "x")
	assert.True(t, cerr.IsCode(err, cerr.DeadlineExceeded))

	_, err = NewService(store, stubBreakdowner{err: ErrNoTasks}).Generate(ctx, "x")
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))

	assert.Empty(t, store.Tasks())
}

func TestServer_Generate(t *testing.T) {
	store := board.NewStore(storage.NewMemoryStorage())
	srv := NewServer(NewService(store, stubBreakdowner{tasks: []board.TaskInput{{Title: "a"}}}))
	r := chi.NewRouter()
	r.Use(cerr.NewConvertConnectErrorChiMiddleware())
	srv.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/breakdown", strings.NewReader(`{"text":"plan"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, store.Tasks(), 1)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/breakdown", strings.NewReader(`{"text":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
