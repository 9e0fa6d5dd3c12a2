package navigation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskboard/pkg/cerr"
)

type Server struct {
	store *Store
}

func NewServer(store *Store) *Server {
	return &Server{store: store}
}

func (s *Server) Routes(r chi.Router) {
	r.Route("/navigation", func(r chi.Router) {
		r.Get("/", s.GetState)
		r.Post("/items", s.AddItem)
		r.Patch("/items/{id}", s.UpdateItem)
		r.Delete("/items/{id}", s.RemoveItem)
		r.Put("/active", s.SetActive)
		r.Post("/next", s.Next)
		r.Post("/previous", s.Previous)
		r.Post("/sidebar/toggle", s.ToggleSidebar)
		r.Put("/sidebar", s.SetSidebar)
		r.Post("/reset", s.Reset)
	})
}

type stateResponse struct {
	Items            []Item `json:"items"`
	ActiveItem       *Item  `json:"activeItem"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
}

func (s *Server) state() stateResponse {
	resp := stateResponse{
		Items:            s.store.Items(),
		SidebarCollapsed: s.store.SidebarCollapsed(),
	}
	if it, ok := s.store.ActiveItem(); ok {
		resp.ActiveItem = &it
	}
	return resp
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return cerr.NewError(cerr.InvalidArgument, "invalid request body", err)
	}
	return nil
}

func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	cerr.SetJSONResponse(r.Context(), s.state())
}

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var it Item
	if err := decodeBody(r, &it); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if it.ID == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "id is required", nil)
		return
	}
	if !s.store.AddNavigationItem(ctx, it) {
		cerr.SetNewJSONError(ctx, cerr.AlreadyExists, "navigation item already exists", nil)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, s.state())
}

func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var patch ItemPatch
	if err := decodeBody(r, &patch); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	id := chi.URLParam(r, "id")
	if id == DefaultItemID && patch.Disabled != nil && *patch.Disabled {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "default navigation item cannot be disabled", nil)
		return
	}
	if !s.store.UpdateNavigationItem(ctx, id, patch) {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "navigation item not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, s.state())
}

func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == DefaultItemID {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "default navigation item cannot be removed", nil)
		return
	}
	if !s.store.RemoveNavigationItem(ctx, id) {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "navigation item not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, s.state())
}

type setActiveRequest struct {
	ID string `json:"id"`
}

func (s *Server) SetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setActiveRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if !s.store.SetActiveItem(ctx, req.ID) {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "navigation item is unknown or disabled", nil)
		return
	}
	cerr.SetJSONResponse(ctx, s.state())
}

func (s *Server) Next(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.store.NavigateNext(ctx) {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "no enabled navigation items", nil)
		return
	}
	cerr.SetJSONResponse(ctx, s.state())
}

func (s *Server) Previous(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !s.store.NavigatePrevious(ctx) {
		cerr.SetNewJSONError(ctx, cerr.FailedPrecondition, "no enabled navigation items", nil)
		return
	}
	cerr.SetJSONResponse(ctx, s.state())
}

func (s *Server) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	s.store.ToggleSidebar()
	cerr.SetJSONResponse(r.Context(), s.state())
}

type setSidebarRequest struct {
	Collapsed bool `json:"collapsed"`
}

func (s *Server) SetSidebar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req setSidebarRequest
	if err := decodeBody(r, &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.store.SetSidebarCollapsed(req.Collapsed)
	cerr.SetJSONResponse(ctx, s.state())
}

func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.store.Reset()
	cerr.SetJSONResponse(r.Context(), s.state())
}
