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

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/registry"
	"github.com/aretw0/espalier/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const diagramsURI = "espalier://diagrams"

// CommandResult aligns with the HTTP CommandResponse so both adapters answer alike.
type CommandResult struct {
	Type       domain.ResultType  `json:"type" jsonschema_description:"Most severe violation class, or success"`
	Violations []domain.Violation `json:"violations,omitempty" jsonschema_description:"Rule violations, in evaluation order"`
}

// CommandInput is the argument object of execute_command and allow_command.
type CommandInput struct {
	Diagram string         `json:"diagram" jsonschema:"required" jsonschema_description:"Diagram ID"`
	Type    string         `json:"type" jsonschema:"required" jsonschema_description:"Command type, e.g. dock, undock, connect, batch"`
	Params  map[string]any `json:"params,omitempty" jsonschema_description:"Command parameters"`
}

// DiagramInput is the argument object of tools addressing a single diagram.
type DiagramInput struct {
	Diagram string `json:"diagram"`
}

// Server exposes a session.Manager as an MCP server.
type Server struct {
	sessions  *session.Manager
	registry  *registry.Registry
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance. A nil registry means registry.Default().
func NewServer(sessions *session.Manager, reg *registry.Registry, opts ...Option) *Server {
	if reg == nil {
		reg = registry.Default()
	}
	s := &Server{
		sessions:  sessions,
		registry:  reg,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("espalier-mcp", strings.TrimSpace(espalier.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
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
	s.mcpServer.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Execute a command against a diagram. ERROR violations reject the command and leave the diagram unchanged."),
		mcp.WithInputSchema[CommandInput](),
		mcp.WithOutputSchema[CommandResult](),
	), s.HandleExecute)

	s.mcpServer.AddTool(mcp.NewTool("allow_command",
		mcp.WithDescription("Check whether a command would be accepted, without changing the diagram."),
		mcp.WithInputSchema[CommandInput](),
		mcp.WithOutputSchema[CommandResult](),
	), s.HandleAllow)

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last command executed on a diagram."),
		mcp.WithString("diagram", mcp.Required(), mcp.Description("Diagram ID")),
		mcp.WithOutputSchema[CommandResult](),
	), s.HandleUndo)

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Re-execute the last undone command on a diagram."),
		mcp.WithString("diagram", mcp.Required(), mcp.Description("Diagram ID")),
		mcp.WithOutputSchema[CommandResult](),
	), s.HandleRedo)

	s.mcpServer.AddTool(mcp.NewTool("get_diagram",
		mcp.WithDescription("Get the nodes and edges of a diagram."),
		mcp.WithString("diagram", mcp.Required(), mcp.Description("Diagram ID")),
	), s.HandleGetDiagram)

	s.mcpServer.AddTool(mcp.NewTool("create_diagram",
		mcp.WithDescription("Create an empty diagram."),
		mcp.WithString("diagram", mcp.Required(), mcp.Description("Diagram ID")),
	), s.HandleCreateDiagram)

	s.mcpServer.AddTool(mcp.NewTool("list_diagrams",
		mcp.WithDescription("List the IDs of every stored diagram."),
	), s.HandleListDiagrams)

	s.mcpServer.AddTool(mcp.NewTool("list_commands",
		mcp.WithDescription("List the command types accepted by execute_command."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(s.registry.Names())
	})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(diagramsURI, "Stored Diagrams",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list diagrams: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      diagramsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// HandleExecute handles the execute_command tool.
func (s *Server) HandleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CommandInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	cmd, err := s.registry.Build(registry.Spec{Type: input.Type, Params: input.Params})
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid command", err), nil
	}
	res, err := s.sessions.Execute(ctx, input.Diagram, cmd)
	if err != nil {
		s.logger.Debug("mcp execute failed", "diagram", input.Diagram, "command", cmd.String(), "err", err)
		return mcp.NewToolResultErrorFromErr("execute failed", err), nil
	}
	return commandResult(res), nil
}

// HandleAllow handles the allow_command tool.
func (s *Server) HandleAllow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input CommandInput
	if err := request.BindArguments(&input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	cmd, err := s.registry.Build(registry.Spec{Type: input.Type, Params: input.Params})
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid command", err), nil
	}
	res, err := s.sessions.Allow(ctx, input.Diagram, cmd)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("allow failed", err), nil
	}
	return commandResult(res), nil
}

// HandleUndo handles the undo tool.
func (s *Server) HandleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := diagramArg(request)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	res, err := s.sessions.Undo(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("undo failed", err), nil
	}
	return commandResult(res), nil
}

// HandleRedo handles the redo tool.
func (s *Server) HandleRedo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := diagramArg(request)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	res, err := s.sessions.Redo(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("redo failed", err), nil
	}
	return commandResult(res), nil
}

// HandleGetDiagram handles the get_diagram tool.
func (s *Server) HandleGetDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := diagramArg(request)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	snap, err := s.sessions.Snapshot(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get diagram failed", err), nil
	}
	return jsonResult(snap)
}

// HandleCreateDiagram handles the create_diagram tool.
func (s *Server) HandleCreateDiagram(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := diagramArg(request)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	snap, err := s.sessions.Create(ctx, id)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("create diagram failed", err), nil
	}
	return jsonResult(snap)
}

// HandleListDiagrams handles the list_diagrams tool.
func (s *Server) HandleListDiagrams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.sessions.List(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list diagrams failed", err), nil
	}
	if ids == nil {
		ids = []string{}
	}
	return jsonResult(ids)
}

func diagramArg(request mcp.CallToolRequest) (string, error) {
	var input DiagramInput
	if err := request.BindArguments(&input); err != nil {
		return "", err
	}
	if input.Diagram == "" {
		return "", errors.New("diagram is required")
	}
	return input.Diagram, nil
}

// commandResult reports ERROR results as tool errors so clients see the rejection.
func commandResult(res *domain.Result) *mcp.CallToolResult {
	if res.HasError() {
		lines := make([]string, 0, len(res.Errors()))
		for _, v := range res.Errors() {
			lines = append(lines, v.String())
		}
		return mcp.NewToolResultError("command rejected: " + strings.Join(lines, "; "))
	}
	return mcp.NewToolResultStructuredOnly(CommandResult{Type: res.Type(), Violations: res.Violations})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
