package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskboard/internal/board"
)

func TestFormatTask(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	got := formatTask(board.Task{
		ID:          "t1",
		Title:       "Write docs",
		Status:      board.StatusInProgress,
		Priority:    board.PriorityHigh,
		Tags:        []string{"docs", "api"},
		AIGenerated: true,
	})
	assert.Equal(t, "t1  [in-progress] Write docs (high) #docs #api ai", got)

	got = formatTask(board.Task{ID: "t2", Title: "Plain", Status: board.StatusTodo})
	assert.Equal(t, "t2  [todo] Plain", got)
}

func TestRenderTasks_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderTasks(&buf, nil)
	assert.Equal(t, "no tasks\n", buf.String())
}

func TestRenderBoard(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	renderBoard(&buf, board.Board{
		ID:    board.BoardID,
		Title: board.BoardTitle,
		Columns: []board.ColumnView{
			{Column: board.Column{ID: board.StatusTodo, Title: "To Do"}, Tasks: []board.Task{{ID: "a", Title: "first"}}},
			{Column: board.Column{ID: board.StatusInProgress, Title: "In Progress", WIPLimit: 1}, Tasks: []board.Task{{ID: "b", Title: "x"}, {ID: "c", Title: "y"}}, OverLimit: true},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Kanban Board\n")
	assert.Contains(t, out, "To Do (1)\n  a  first\n")
	assert.Contains(t, out, "In Progress (2/1) over WIP limit\n")
}

func TestRenderStats(t *testing.T) {
	var buf bytes.Buffer
	renderStats(&buf, board.Statistics{TotalTasks: 4, TodoCount: 2, DoneCount: 2, CompletedTasks: 2, AIGeneratedCount: 1, CompletionRate: 50})

	out := buf.String()
	assert.Contains(t, out, "total:        4\n")
	assert.Contains(t, out, "done:         2\n")
	assert.Contains(t, out, "completion:   50%\n")
}

func TestImportDiff(t *testing.T) {
	now := time.Now()
	current := []board.Task{
		{ID: "b", Title: "keep", Status: board.StatusTodo, CreatedAt: now},
		{ID: "a", Title: "old title", Status: board.StatusTodo, CreatedAt: now},
	}

	diff, err := importDiff(current, current, "same.json")
	require.NoError(t, err)
	assert.Empty(t, diff)

	incoming := []board.Task{
		{ID: "a", Title: "new title", Status: board.StatusDone},
		{ID: "b", Title: "keep", Status: board.StatusTodo},
	}
	diff, err = importDiff(current, incoming, "backup.json")
	require.NoError(t, err)
	assert.Contains(t, diff, "--- board\n+++ backup.json\n")
	assert.Contains(t, diff, "-a todo        old title\n")
	assert.Contains(t, diff, "+a done        new title\n")
	assert.NotContains(t, diff, "-b ")
}
