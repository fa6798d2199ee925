package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/history"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server exposes a session.Manager over HTTP.
type Server struct {
	Sessions *session.Manager
	Registry *registry.Registry
	Streams  *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// CommandResponse is the body returned by allow, execute, undo and redo.
type CommandResponse struct {
	Type       domain.ResultType  `json:"type"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

// CreateRequest is the body of POST /diagrams.
type CreateRequest struct {
	ID string `json:"id"`
}

// Event is broadcast to diagram subscribers after every change.
type Event struct {
	DiagramID string            `json:"diagram_id"`
	Op        string            `json:"op"`
	Command   string            `json:"command,omitempty"`
	Result    domain.ResultType `json:"result"`
}

// NewHandler creates the HTTP handler. A nil registry means registry.Default().
func NewHandler(sessions *session.Manager, reg *registry.Registry, opts ...Option) http.Handler {
	if reg == nil {
		reg = registry.Default()
	}
	s := &Server{
		Sessions: sessions,
		Registry: reg,
		Streams:  NewStreamManager(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/commands", s.ListCommands)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/diagrams", func(r chi.Router) {
		r.Get("/", s.ListDiagrams)
		r.Post("/", s.CreateDiagram)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetDiagram)
			r.Put("/", s.ImportDiagram)
			r.Delete("/", s.DeleteDiagram)
			r.Post("/allow", s.Allow)
			r.Post("/commands", s.Execute)
			r.Post("/undo", s.Undo)
			r.Post("/redo", s.Redo)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "espalier-http",
		"version": strings.TrimSpace(espalier.Version),
	})
}

// ListCommands handles GET /commands.
func (s *Server) ListCommands(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Registry.Names())
}

// ListDiagrams handles GET /diagrams.
func (s *Server) ListDiagrams(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, "list", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// CreateDiagram handles POST /diagrams.
func (s *Server) CreateDiagram(w http.ResponseWriter, r *http.Request) {
	var body CreateRequest
	if err := s.decode(r, &body); err != nil {
		s.writeError(w, "create", err)
		return
	}
	snap, err := s.Sessions.Create(r.Context(), body.ID)
	if err != nil {
		s.writeError(w, "create", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, snap)
}

// GetDiagram handles GET /diagrams/{id}.
func (s *Server) GetDiagram(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, "snapshot", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// ImportDiagram handles PUT /diagrams/{id}, replacing the diagram with the body snapshot.
func (s *Server) ImportDiagram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var snap domain.Snapshot
	if err := s.decode(r, &snap); err != nil {
		s.writeError(w, "import", err)
		return
	}
	if snap.DiagramID == "" {
		snap.DiagramID = id
	}
	if snap.DiagramID != id {
		s.writeError(w, "import", fmt.Errorf("%w: body diagram %q does not match path %q",
			domain.ErrInvalidArgument, snap.DiagramID, id))
		return
	}
	if err := s.Sessions.Import(r.Context(), &snap); err != nil {
		s.writeError(w, "import", err)
		return
	}
	s.Streams.Broadcast(id, Event{DiagramID: id, Op: "import", Result: domain.ResultSuccess})
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDiagram handles DELETE /diagrams/{id}.
func (s *Server) DeleteDiagram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, "delete", err)
		return
	}
	s.Streams.Broadcast(id, Event{DiagramID: id, Op: "delete", Result: domain.ResultSuccess})
	w.WriteHeader(http.StatusNoContent)
}

// Allow handles POST /diagrams/{id}/allow.
func (s *Server) Allow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var spec registry.Spec
	if err := s.decode(r, &spec); err != nil {
		s.writeError(w, "allow", err)
		return
	}
	cmd, err := s.Registry.Build(spec)
	if err != nil {
		s.writeError(w, "allow", err)
		return
	}
	res, err := s.Sessions.Allow(r.Context(), id, cmd)
	if err != nil {
		s.writeError(w, "allow", err)
		return
	}
	s.writeResult(w, res)
}

// Execute handles POST /diagrams/{id}/commands.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var spec registry.Spec
	if err := s.decode(r, &spec); err != nil {
		s.writeError(w, "execute", err)
		return
	}
	cmd, err := s.Registry.Build(spec)
	if err != nil {
		s.writeError(w, "execute", err)
		return
	}
	res, err := s.Sessions.Execute(r.Context(), id, cmd)
	if err != nil {
		s.writeError(w, "execute", err)
		return
	}
	if !res.HasError() {
		s.Streams.Broadcast(id, Event{DiagramID: id, Op: "execute", Command: cmd.String(), Result: res.Type()})
	}
	s.writeResult(w, res)
}

// Undo handles POST /diagrams/{id}/undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.Sessions.Undo(r.Context(), id)
	if err != nil {
		s.writeError(w, "undo", err)
		return
	}
	if !res.HasError() {
		s.Streams.Broadcast(id, Event{DiagramID: id, Op: "undo", Result: res.Type()})
	}
	s.writeResult(w, res)
}

// Redo handles POST /diagrams/{id}/redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.Sessions.Redo(r.Context(), id)
	if err != nil {
		s.writeError(w, "redo", err)
		return
	}
	if !res.HasError() {
		s.Streams.Broadcast(id, Event{DiagramID: id, Op: "redo", Result: res.Type()})
	}
	s.writeResult(w, res)
}

// SubscribeEvents handles GET /diagrams/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("streaming not supported")
		return
	}
	id := chi.URLParam(r, "id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.logger.Info("sse subscribed", "diagram", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("sse client disconnected", "diagram", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) decode(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// writeResult answers 409 when the result carries an ERROR violation.
func (s *Server) writeResult(w http.ResponseWriter, res *domain.Result) {
	status := http.StatusOK
	if res.HasError() {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, CommandResponse{Type: res.Type(), Violations: res.Violations})
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "op", op, "error", err)
	} else {
		s.logger.Debug("request rejected", "op", op, "status", status, "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// StatusFor maps an error returned by the session layer to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDiagramNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, history.ErrNothingToUndo),
		errors.Is(err, history.ErrNothingToRedo):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
