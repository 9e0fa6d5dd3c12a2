package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/pkg/color"
)

func statusLabel(s board.Status) string {
	col, ok := board.ColumnFor(s)
	if !ok {
		return string(s)
	}
	return color.Colorize(string(s), color.FromHex(col.Color))
}

func formatTask(t board.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  [%s] %s", t.ID, statusLabel(t.Status), t.Title)
	if t.Priority != "" {
		fmt.Fprintf(&b, " (%s)", t.Priority)
	}
	for _, tag := range t.Tags {
		b.WriteString(" " + color.Colorize("#"+tag, color.TagColor(tag)))
	}
	if t.AIGenerated {
		b.WriteString(" " + color.Colorize("ai", color.Dim))
	}
	return b.String()
}

func renderTasks(w io.Writer, tasks []board.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(w, formatTask(t))
	}
}

func renderTaskDetail(w io.Writer, t board.Task) {
	fmt.Fprintln(w, formatTask(t))
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n\n", t.Description)
	}
	fmt.Fprintf(w, "created %s, updated %s\n", t.CreatedAt.Local().Format("2006-01-02 15:04"), t.UpdatedAt.Local().Format("2006-01-02 15:04"))
}

func renderBoard(w io.Writer, b board.Board) {
	fmt.Fprintln(w, color.Colorize(b.Title, color.Bold))
	for _, col := range b.Columns {
		count := fmt.Sprintf("%d", len(col.Tasks))
		if col.WIPLimit > 0 {
			count = fmt.Sprintf("%d/%d", len(col.Tasks), col.WIPLimit)
		}
		header := fmt.Sprintf("%s (%s)", col.Title, count)
		if col.OverLimit {
			header += " over WIP limit"
		}
		fmt.Fprintf(w, "\n%s\n", color.Colorize(header, color.FromHex(col.Color)))
		for _, t := range col.Tasks {
			fmt.Fprintf(w, "  %s  %s\n", t.ID, t.Title)
		}
	}
}

func renderStats(w io.Writer, s board.Statistics) {
	fmt.Fprintf(w, "total:        %d\n", s.TotalTasks)
	for _, col := range board.Columns {
		fmt.Fprintf(w, "%-13s %d\n", string(col.ID)+":", s.Count(col.ID))
	}
	fmt.Fprintf(w, "ai generated: %d\n", s.AIGeneratedCount)
	fmt.Fprintf(w, "completion:   %d%%\n", s.CompletionRate)
}

// taskLines renders tasks one per line, ordered by id, for diffing.
func taskLines(tasks []board.Task) string {
	sorted := slices.Clone(tasks)
	slices.SortFunc(sorted, func(a, b board.Task) int { return strings.Compare(a.ID, b.ID) })
	var b strings.Builder
	for _, t := range sorted {
		fmt.Fprintf(&b, "%s %-11s %s", t.ID, t.Status, t.Title)
		if t.Priority != "" {
			fmt.Fprintf(&b, " (%s)", t.Priority)
		}
		if len(t.Tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(t.Tags, ","))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// importDiff returns a unified diff from the current tasks to the incoming
// ones. An empty string means the import changes nothing visible.
func importDiff(current, incoming []board.Task, source string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(taskLines(current)),
		B:        difflib.SplitLines(taskLines(incoming)),
		FromFile: "board",
		ToFile:   source,
		Context:  1,
	})
}
