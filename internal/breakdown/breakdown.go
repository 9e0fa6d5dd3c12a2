package breakdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	claudeagent "github.com/kazz187/claude-agent-sdk-go"

	"github.com/kazz187/taskboard/internal/board"
)

// Breakdowner turns free text into task-shaped inputs. It does not touch the
// store.
type Breakdowner interface {
	Breakdown(ctx context.Context, text string) ([]board.TaskInput, error)
}

const systemPrompt = `You split a piece of work into small, actionable Kanban tasks.
Respond with ONLY a JSON array. Each element is an object with the keys
"title" (short imperative sentence), "description" (one or two sentences),
"priority" (one of "low", "medium", "high") and "tags" (array of short lowercase labels).
Do not wrap the array in prose or code fences.`

// QueryFunc runs a single prompt and returns the model's final text.
type QueryFunc func(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error)

// RunQuery is the QueryFunc backed by the Claude agent SDK.
func RunQuery(ctx context.Context, prompt string, opts *claudeagent.ClaudeAgentOptions) (string, error) {
	result, err := claudeagent.RunQuerySync(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	if result.Result == nil {
		return "", errors.New("empty result")
	}
	if result.Result.IsError {
		msg := result.Result.Result
		if msg == "" {
			msg = "unknown error"
		}
		return "", fmt.Errorf("query failed: %s", msg)
	}
	return result.Result.Result, nil
}

type Claude struct {
	workDir string
	timeout time.Duration
	query   QueryFunc
}

type ClaudeOption func(*Claude)

func WithQueryFunc(q QueryFunc) ClaudeOption {
	return func(c *Claude) { c.query = q }
}

func WithTimeout(d time.Duration) ClaudeOption {
	return func(c *Claude) { c.timeout = d }
}

func NewClaude(workDir string, opts ...ClaudeOption) *Claude {
	c := &Claude{
		workDir: workDir,
		timeout: 2 * time.Minute,
		query:   RunQuery,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Breakdowner = (*Claude)(nil)

func (c *Claude) Breakdown(ctx context.Context, text string) ([]board.TaskInput, error) {
	maxTurns := 1
	opts := &claudeagent.ClaudeAgentOptions{
		SystemPrompt: systemPrompt,
		Cwd:          c.workDir,
		MaxTurns:     &maxTurns,
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := "Break the following work down into tasks:\n\n" + text
	started := time.Now()
	raw, err := c.query(timeoutCtx, prompt, opts)
	if err != nil {
		return nil, fmt.Errorf("breakdown query: %w", err)
	}
	slog.DebugContext(ctx, "breakdown query finished", "duration", time.Since(started), "bytes", len(raw))
	return ParseTasks(raw)
}

type generatedTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

var ErrNoTasks = errors.New("no tasks in response")

// ParseTasks extracts the first JSON array from a model reply. Items without
// a title are dropped and unknown priorities are cleared. Every task is
// marked AI-generated and starts in todo.
func ParseTasks(reply string) ([]board.TaskInput, error) {
	arr, ok := firstJSONArray(reply)
	if !ok {
		return nil, ErrNoTasks
	}
	var items []generatedTask
	if err := json.Unmarshal([]byte(arr), &items); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	var out []board.TaskInput
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		priority := board.Priority(strings.ToLower(strings.TrimSpace(it.Priority)))
		if !priority.Valid() {
			priority = ""
		}
		var tags []string
		for _, tag := range it.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		out = append(out, board.TaskInput{
			Title:       title,
			Description: strings.TrimSpace(it.Description),
			Status:      board.StatusTodo,
			Priority:    priority,
			Tags:        tags,
			AIGenerated: true,
		})
	}
	if len(out) == 0 {
		return nil, ErrNoTasks
	}
	return out, nil
}

// firstJSONArray returns the first balanced, valid [...] span.
func firstJSONArray(s string) (string, bool) {
	for start := strings.IndexByte(s, '['); start >= 0; {
		if end, ok := closingBracket(s, start); ok && json.Valid([]byte(s[start:end+1])) {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '[')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// closingBracket finds the ']' matching s[start], skipping string literals.
func closingBracket(s string, start int) (int, bool) {
	depth, inString, escaped := 0, false, false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '[':
			depth++
		case ch == ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
