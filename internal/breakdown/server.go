package breakdown

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskboard/internal/board"
	"github.com/kazz187/taskboard/pkg/cerr"
)

type Server struct {
	service *Service
}

func NewServer(service *Service) *Server {
	return &Server{service: service}
}

func (s *Server) Routes(r chi.Router) {
	r.Post("/breakdown", s.Generate)
}

type generateRequest struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Tasks []board.Task `json:"tasks"`
}

func (s *Server) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	tasks, err := s.service.Generate(ctx, req.Text)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, generateResponse{Tasks: tasks})
}
