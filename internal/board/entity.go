package board

import (
	"slices"
	"time"
)

type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusTesting    Status = "testing"
	StatusDone       Status = "done"
)

// Statuses lists the known statuses in column order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusTesting, StatusDone}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority. The empty priority is valid.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Status      Status    `json:"status" yaml:"status"`
	Priority    Priority  `json:"priority,omitempty" yaml:"priority,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	AIGenerated bool      `json:"aiGenerated,omitempty" yaml:"ai_generated,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updated_at"`
}

func (t *Task) clone() Task {
	c := *t
	c.Tags = slices.Clone(t.Tags)
	return c
}

// TaskInput carries the caller-supplied fields of a new task.
type TaskInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	AIGenerated bool     `json:"aiGenerated,omitempty"`
}

// TaskPatch is a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	AIGenerated *bool     `json:"aiGenerated,omitempty"`
}

func (p TaskPatch) apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		t.Tags = slices.Clone(*p.Tags)
	}
	if p.AIGenerated != nil {
		t.AIGenerated = *p.AIGenerated
	}
}

// Column is a fixed display grouping. WIPLimit is informational only.
type Column struct {
	ID       Status `json:"id"`
	Title    string `json:"title"`
	Color    string `json:"color"`
	WIPLimit int    `json:"wipLimit,omitempty"`
}

var Columns = []Column{
	{ID: StatusTodo, Title: "To Do", Color: "#6b7280"},
	{ID: StatusInProgress, Title: "In Progress", Color: "#3b82f6", WIPLimit: 5},
	{ID: StatusTesting, Title: "Testing", Color: "#f59e0b", WIPLimit: 3},
	{ID: StatusDone, Title: "Done", Color: "#10b981"},
}

func ColumnFor(s Status) (Column, bool) {
	for _, c := range Columns {
		if c.ID == s {
			return c, true
		}
	}
	return Column{}, false
}

type ColumnView struct {
	Column
	Tasks     []Task `json:"tasks"`
	OverLimit bool   `json:"overLimit"`
}

const (
	BoardID    = "main"
	BoardTitle = "Kanban Board"
)

// Board is rebuilt from the task collection on every access.
type Board struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Columns []ColumnView `json:"columns"`
	Tasks   []Task       `json:"tasks"`
}

type Statistics struct {
	TotalTasks       int `json:"totalTasks"`
	TodoCount        int `json:"todoCount"`
	InProgressCount  int `json:"inProgressCount"`
	TestingCount     int `json:"testingCount"`
	DoneCount        int `json:"doneCount"`
	CompletedTasks   int `json:"completedTasks"`
	AIGeneratedCount int `json:"aiGeneratedCount"`
	CompletionRate   int `json:"completionRate"`
}

// CompletionRate returns round(100*done/total), or 0 for an empty board.
func CompletionRate(done, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*done + total) / (2 * total)
}

func (s Statistics) Count(status Status) int {
	switch status {
	case StatusTodo:
		return s.TodoCount
	case StatusInProgress:
		return s.InProgressCount
	case StatusTesting:
		return s.TestingCount
	case StatusDone:
		return s.DoneCount
	}
	return 0
}
