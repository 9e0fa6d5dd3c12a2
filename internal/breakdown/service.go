package breakdown

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// Service appends breakdown results to the board in one batch.
type Service struct {
	store       *board.Store
	breakdowner Breakdowner
}

func NewService(store *board.Store, b Breakdowner) *Service {
	return &Service{store: store, breakdowner: b}
}

func (s *Service) Generate(ctx context.Context, text string) ([]board.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "text is required", nil)
	}
	inputs, err := s.breakdowner.Breakdown(ctx, text)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, cerr.NewError(cerr.DeadlineExceeded, "task breakdown timed out", err)
		case errors.Is(err, context.Canceled):
			return nil, err
		case errors.Is(err, ErrNoTasks):
			return nil, cerr.NewError(cerr.FailedPrecondition, "no tasks could be generated", err)
		}
		return nil, cerr.NewError(cerr.Unavailable, "task breakdown failed", err)
	}
	for i := range inputs {
		inputs[i].AIGenerated = true
	}
	tasks := s.store.AddTasks(ctx, inputs)
	slog.InfoContext(ctx, "generated tasks", "count", len(tasks))
	return tasks, nil
}
