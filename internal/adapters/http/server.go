// Package http exposes the engine over a REST API with server-sent
// event streaming.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/ports"
	"github.com/latticelabs/lattice/pkg/registry"
)

//go:embed openapi.yaml
var openapiSpec []byte

// ValidateSpec parses and validates the embedded OpenAPI document.
// Called at server startup so a malformed spec fails fast instead of
// serving garbage from /openapi.yaml.
func ValidateSpec(ctx context.Context) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("invalid openapi spec: %w", err)
	}
	return nil
}

// Server handles the REST API.
type Server struct {
	executor   *engine.Executor
	registry   *registry.Registry
	graphs     ports.GraphStore
	executions ports.ExecutionStore
	events     ports.EventSink
	logger     *slog.Logger
}

// Options configure optional collaborators.
type Option func(*Server)

// WithEventSink forwards streaming events to an external sink in
// addition to the SSE response.
func WithEventSink(sink ports.EventSink) Option {
	return func(s *Server) { s.events = sink }
}

// NewServer creates the API server.
func NewServer(x *engine.Executor, reg *registry.Registry, graphs ports.GraphStore, executions ports.ExecutionStore, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		executor:   x,
		registry:   reg,
		graphs:     graphs,
		executions: executions,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/openapi.yaml", s.handleSpec)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/nodes", s.handleListNodes)

		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", s.handleListGraphs)
			r.Post("/", s.handleSaveGraph)
			r.Get("/{id}", s.handleGetGraph)
			r.Delete("/{id}", s.handleDeleteGraph)
			r.Post("/{id}/validate", s.handleValidateGraph)
		})

		r.Route("/executions", func(r chi.Router) {
			r.Post("/", s.handleExecute)
			r.Post("/stream", s.handleExecuteStream)
			r.Get("/{id}", s.handleGetExecution)
		})
	})

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(openapiSpec)
}

func (s *Server) handleListNodes(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.Specs())
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.graphs.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, graphs)
}

func (s *Server) handleSaveGraph(w http.ResponseWriter, r *http.Request) {
	var g graph.Graph
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if g.ID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("graph_id is required"))
		return
	}

	if valid, problems := graph.Validate(&g); !valid {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "errors": problems})
		return
	}

	if err := s.graphs.Save(r.Context(), &g); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, &g)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.graphs.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	if err := s.graphs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleValidateGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.graphs.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	valid, problems := graph.Validate(g)
	s.writeJSON(w, http.StatusOK, map[string]any{"valid": valid, "errors": problems})
}

// ExecutionRequest is the body of POST /api/executions.
type ExecutionRequest struct {
	GraphID string         `json:"graph_id"`
	Inputs  map[string]any `json:"inputs"`
	Mode    string         `json:"mode,omitempty"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	req, g, ok := s.decodeExecution(w, r)
	if !ok {
		return
	}

	var run *engine.Execution
	var err error
	if req.Mode == "parallel" {
		run, err = s.executor.ExecuteBatches(r.Context(), g, req.Inputs)
	} else {
		run, err = s.executor.Execute(r.Context(), g, req.Inputs)
	}

	result := run.Result()
	if err != nil {
		var verr *graph.ValidationError
		if errors.As(err, &verr) {
			s.writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "errors": verr.Problems})
			return
		}
		// Node failures still return the partial result; the per-node
		// errors field carries the cause.
	}

	if recErr := s.executions.Record(r.Context(), result); recErr != nil {
		s.logger.Error("failed to record execution", "execution_id", result.ExecutionID, "err", recErr)
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	result, err := s.executions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExecuteStream(w http.ResponseWriter, r *http.Request) {
	req, g, ok := s.decodeExecution(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.executor.ExecuteStreaming(r.Context(), g, req.Inputs)
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("failed to marshal event", "err", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()

		if s.events != nil {
			_ = s.events.Publish(r.Context(), req.GraphID, ev)
		}
	}
}

// decodeExecution parses the request body and resolves the target
// graph, writing the error response itself on failure.
func (s *Server) decodeExecution(w http.ResponseWriter, r *http.Request) (ExecutionRequest, *graph.Graph, bool) {
	var req ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return req, nil, false
	}
	if req.GraphID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("graph_id is required"))
		return req, nil, false
	}

	g, err := s.graphs.Resolve(r.Context(), req.GraphID)
	if err != nil {
		s.writeStoreError(w, err)
		return req, nil, false
	}
	return req, g, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrGraphNotFound),
		errors.Is(err, ports.ErrExecutionNotFound),
		errors.Is(err, ports.ErrInstanceNotFound):
		s.writeError(w, http.StatusNotFound, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}
