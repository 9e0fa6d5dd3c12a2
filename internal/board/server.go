package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskboard/internal/eventbus"
	"github.com/kazz187/taskboard/pkg/cerr"
)

// maxImportBytes bounds request bodies for import; larger bodies are
// rejected rather than truncated.
var maxImportBytes int64 = 8 << 20

type Server struct {
	store     *Store
	snapshots *SnapshotService
	eventBus  *eventbus.Bus
}

func NewServer(store *Store, snapshots *SnapshotService, eventBus *eventbus.Bus) *Server {
	return &Server{
		store:     store,
		snapshots: snapshots,
		eventBus:  eventBus,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Get("/board", s.GetBoard)
	r.Get("/statistics", s.GetStatistics)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.ListTasks)
		r.Post("/", s.CreateTask)
		r.Delete("/", s.ClearAllTasks)
		r.Post("/batch", s.CreateTasks)
		r.Post("/clear-completed", s.ClearCompletedTasks)
		r.Get("/{id}", s.GetTask)
		r.Patch("/{id}", s.UpdateTask)
		r.Delete("/{id}", s.DeleteTask)
		r.Post("/{id}/move", s.MoveTask)
		r.Post("/{id}/select", s.SelectTask)
	})

	r.Get("/selection", s.GetSelection)
	r.Delete("/selection", s.ClearSelection)

	r.Get("/export", s.Export)
	r.Post("/import", s.Import)
	r.Post("/reload", s.Reload)
	r.Post("/reset", s.Reset)
	r.Get("/error", s.GetError)
	r.Delete("/error", s.ClearError)

	r.Route("/exports", func(r chi.Router) {
		r.Get("/", s.ListSnapshots)
		r.Post("/", s.CreateSnapshot)
		r.Delete("/", s.ClearSnapshots)
		r.Get("/{id}", s.GetSnapshot)
		r.Post("/{id}/restore", s.RestoreSnapshot)
	})

	r.Get("/events", s.StreamEvents)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

func (s *Server) GetBoard(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.store.Board())
}

func (s *Server) GetStatistics(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.store.Statistics())
}

type listTasksResponse struct {
	Tasks []Task `json:"tasks"`
	Total int    `json:"total"`
}

// ListTasks supports ?status= and ?q= filters; q takes precedence.
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var tasks []Task
	switch q, status := r.URL.Query().Get("q"), Status(r.URL.Query().Get("status")); {
	case q != "":
		tasks = s.store.SearchTasks(q)
	case status != "":
		if !status.Valid() {
			cerr.SetJSONError(ctx, cerr.NewError(cerr.InvalidArgument, "invalid status", nil).
				AddDetailMessage(fmt.Sprintf("status: %q", status)))
			return
		}
		tasks = s.store.TasksByStatus(status)
	default:
		tasks = s.store.Tasks()
	}
	if tasks == nil {
		tasks = []Task{}
	}
	cerr.SetJSONResponse(ctx, listTasksResponse{Tasks: tasks, Total: len(tasks)})
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in TaskInput
	if err := decodeBody(r, &in); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t := s.store.AddTask(ctx, in)
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

type createTasksRequest struct {
	Tasks []TaskInput `json:"tasks"`
}

func (s *Server) CreateTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTasksRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	tasks := s.store.AddTasks(ctx, req.Tasks)
	if tasks == nil {
		tasks = []Task{}
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, listTasksResponse{Tasks: tasks, Total: len(tasks)})
}

func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := s.store.Task(chi.URLParam(r, "id"))
	if !ok {
		cerr.SetNewJSONError(r.Context(), cerr.NotFound, "task not found", nil)
		return
	}
	cerr.SetJSONResponse(r.Context(), t)
}

func (s *Server) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	var patch TaskPatch
	if err := decodeBody(r, &patch); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid status", nil)
		return
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid priority", nil)
		return
	}
	if !s.store.UpdateTask(ctx, id, patch) {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	t, _ := s.store.Task(id)
	cerr.SetJSONResponse(ctx, t)
}

type removedResponse struct {
	Removed int `json:"removed"`
}

func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.store.DeleteTask(ctx, chi.URLParam(r, "id")) {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, removedResponse{Removed: 1})
}

type moveTaskRequest struct {
	Status Status `json:"status"`
}

func (s *Server) MoveTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	var req moveTaskRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !req.Status.Valid() {
		cerr.SetJSONError(ctx, cerr.NewError(cerr.InvalidArgument, "invalid status", nil).
			AddDetailMessage(fmt.Sprintf("status: %q", req.Status)))
		return
	}
	if !s.store.MoveTask(ctx, id, req.Status) {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	t, _ := s.store.Task(id)
	cerr.SetJSONResponse(ctx, t)
}

func (s *Server) SelectTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.store.SelectTaskByID(chi.URLParam(r, "id")) {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	s.GetSelection(w, r)
}

type selectionResponse struct {
	Task *Task `json:"task"`
}

func (s *Server) GetSelection(w http.ResponseWriter, r *http.Request) {
	var resp selectionResponse
	if t, ok := s.store.SelectedTask(); ok {
		resp.Task = &t
	}
	cerr.SetJSONResponse(r.Context(), resp)
}

func (s *Server) ClearSelection(w http.ResponseWriter, r *http.Request) {
	s.store.SelectTask(nil)
	cerr.SetJSONResponse(r.Context(), selectionResponse{})
}

func (s *Server) ClearCompletedTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cerr.SetJSONResponse(ctx, removedResponse{Removed: s.store.ClearCompletedTasks(ctx)})
}

func (s *Server) ClearAllTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cerr.SetJSONResponse(ctx, removedResponse{Removed: s.store.ClearAllTasks(ctx)})
}

func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.store.ExportData())
}

func (s *Server) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			cerr.SetJSONError(ctx, cerr.NewError(cerr.ResourceExhausted, "import payload too large", err).
				AddDetailMessage(fmt.Sprintf("limit: %d bytes", maxErr.Limit)))
			return
		}
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	res := s.store.ImportData(ctx, data)
	if !res.OK {
		cerr.SetJSONError(ctx, cerr.NewError(cerr.InvalidArgument, ErrMsgInvalidImport, nil).AddDetailMessage(res.Reason))
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

type reloadResponse struct {
	Reloaded bool   `json:"reloaded"`
	Error    string `json:"error,omitempty"`
}

// Reload re-reads the persisted collection, the "try again" path after a
// failed load.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.store.ClearError()
	reloaded := s.store.LoadFromStorage(ctx)
	cerr.SetJSONResponse(ctx, reloadResponse{Reloaded: reloaded, Error: s.store.Error()})
}

func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s.store.Reset(ctx)
	cerr.SetJSONResponse(ctx, s.store.Board())
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) GetError(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), errorResponse{Error: s.store.Error()})
}

func (s *Server) ClearError(w http.ResponseWriter, r *http.Request) {
	s.store.ClearError()
	cerr.SetJSONResponse(r.Context(), errorResponse{})
}

type listSnapshotsResponse struct {
	Exports []*Snapshot `json:"exports"`
}

func (s *Server) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snaps, err := s.snapshots.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if snaps == nil {
		snaps = []*Snapshot{}
	}
	cerr.SetJSONResponse(ctx, listSnapshotsResponse{Exports: snaps})
}

func (s *Server) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := s.snapshots.Create(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, snap)
}

func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := s.snapshots.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, payload)
}

func (s *Server) RestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.snapshots.Restore(ctx, chi.URLParam(r, "id"))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !res.OK {
		cerr.SetJSONError(ctx, cerr.NewError(cerr.FailedPrecondition, ErrMsgInvalidImport, nil).AddDetailMessage(res.Reason))
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

func (s *Server) ClearSnapshots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := s.snapshots.Clear(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, removedResponse{Removed: n})
}

// StreamEvents relays event bus traffic as server-sent events until the
// client goes away.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok || s.eventBus == nil {
		cerr.SetNewJSONError(ctx, cerr.Unimplemented, "streaming not supported", nil)
		return
	}
	cerr.Handled(ctx)

	subID, ch := s.eventBus.Subscribe(64)
	defer s.eventBus.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				slog.ErrorContext(ctx, "failed to marshal event", "event_id", ev.ID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
