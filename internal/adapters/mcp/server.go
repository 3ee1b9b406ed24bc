// Package mcp exposes the engine as a Model Context Protocol server so
// LLM agents can execute and inspect graphs as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/latticelabs/lattice"
	"github.com/latticelabs/lattice/pkg/engine"
	"github.com/latticelabs/lattice/pkg/graph"
	"github.com/latticelabs/lattice/pkg/ports"
	"github.com/latticelabs/lattice/pkg/registry"
)

// ExecuteResponse aligns with the OpenAPI ExecutionResult schema so MCP
// clients and REST clients see the same shape.
type ExecuteResponse struct {
	ExecutionID string                      `json:"execution_id" jsonschema_description:"Unique ID of this run"`
	GraphID     string                      `json:"graph_id"`
	Outputs     map[string]map[string]any   `json:"node_outputs" jsonschema_description:"Outputs keyed by node ID, then port name"`
	Status      map[string]graph.NodeStatus `json:"node_status"`
	Errors      map[string]string           `json:"errors,omitempty"`
}

// ValidateResponse reports structural validation of a graph.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty" jsonschema_description:"Problems found, empty when valid"`
}

// Server wraps the executor and exposes it as an MCP server.
type Server struct {
	executor  *engine.Executor
	registry  *registry.Registry
	graphs    ports.GraphStore
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance.
func NewServer(x *engine.Executor, reg *registry.Registry, graphs ports.GraphStore) *Server {
	s := &Server{
		executor:  x,
		registry:  reg,
		graphs:    graphs,
		mcpServer: server.NewMCPServer("lattice-mcp", strings.TrimSpace(lattice.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: execute_graph
	executeTool := mcp.NewTool("execute_graph",
		mcp.WithDescription("Execute a stored graph and return per-node outputs and statuses."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph ID or name")),
		mcp.WithString("inputs", mcp.Description("JSON object of execution inputs, keyed by input label (optional)")),
		mcp.WithString("mode", mcp.Description("Execution mode: sequential (default) or parallel")),
		mcp.WithOutputSchema[ExecuteResponse](),
	)
	s.mcpServer.AddTool(executeTool, mcp.NewStructuredToolHandler(s.handleExecute))

	// TOOL: validate_graph
	validateTool := mcp.NewTool("validate_graph",
		mcp.WithDescription("Validate a graph definition without executing it. Pass either a stored graph_id or an inline graph JSON."),
		mcp.WithString("graph_id", mcp.Description("ID or name of a stored graph")),
		mcp.WithString("graph", mcp.Description("Inline graph definition as JSON (used when graph_id is omitted)")),
		mcp.WithOutputSchema[ValidateResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidate))

	// TOOL: list_node_types
	s.mcpServer.AddTool(mcp.NewTool("list_node_types",
		mcp.WithDescription("List the registered node types with their port and parameter specifications."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.registry.Specs())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get a stored graph definition for introspection."),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("Graph ID or name")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("graph_id", "")
		g, err := s.graphs.Resolve(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("graph %q: %v", id, err)), nil
		}
		jsonBytes, _ := json.Marshal(g)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ExecuteResponse, error) {
	graphID, _ := args["graph_id"].(string)

	g, err := s.graphs.Resolve(ctx, graphID)
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("graph %q: %w", graphID, err)
	}

	inputs := map[string]any{}
	if inputsStr, ok := args["inputs"].(string); ok && inputsStr != "" {
		if err := json.Unmarshal([]byte(inputsStr), &inputs); err != nil {
			return ExecuteResponse{}, fmt.Errorf("invalid inputs JSON: %w", err)
		}
	}

	mode, _ := args["mode"].(string)

	var run *engine.Execution
	if mode == "parallel" {
		run, err = s.executor.ExecuteBatches(ctx, g, inputs)
	} else {
		run, err = s.executor.Execute(ctx, g, inputs)
	}
	if err != nil {
		var verr *graph.ValidationError
		if errors.As(err, &verr) {
			return ExecuteResponse{}, fmt.Errorf("invalid graph: %s", strings.Join(verr.Problems, "; "))
		}
		// Node failures still return the partial result; the errors
		// map carries the cause per node.
	}

	result := run.Result()
	return ExecuteResponse{
		ExecutionID: result.ExecutionID,
		GraphID:     result.GraphID,
		Outputs:     result.Outputs,
		Status:      result.Status,
		Errors:      result.Errors,
	}, nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	var g *graph.Graph

	if graphID, ok := args["graph_id"].(string); ok && graphID != "" {
		stored, err := s.graphs.Resolve(ctx, graphID)
		if err != nil {
			return ValidateResponse{}, fmt.Errorf("graph %q: %w", graphID, err)
		}
		g = stored
	} else if inline, ok := args["graph"].(string); ok && inline != "" {
		var parsed graph.Graph
		if err := json.Unmarshal([]byte(inline), &parsed); err != nil {
			return ValidateResponse{}, fmt.Errorf("invalid graph JSON: %w", err)
		}
		g = &parsed
	} else {
		return ValidateResponse{}, fmt.Errorf("either graph_id or graph is required")
	}

	valid, problems := graph.Validate(g)
	return ValidateResponse{Valid: valid, Errors: problems}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: lattice://nodes
	s.mcpServer.AddResource(mcp.NewResource("lattice://nodes", "Registered Node Types",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.registry.Specs())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal node specs: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "lattice://nodes",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
