package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/internal/store"
	"github.com/rendis/flowedit/internal/streaming"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/pkg/schema"
)

// FloweditServerDeps holds the dependencies for creating a FloweditServer.
type FloweditServerDeps struct {
	Store        store.Store
	Hub          streaming.EventHub // optional
	Logger       *slog.Logger
	MinNodeWidth float64 // resize floor used by flowedit.edit
	Version      string
}

// FloweditServer wraps an MCP server with the document tool handlers.
type FloweditServer struct {
	store     store.Store
	hub       streaming.EventHub
	logger    *slog.Logger
	validator *validation.ProjectValidator
	jq        *expressions.GoJQEngine
	minWidth  float64
	sessions  *SessionRegistry
	notifier  WatchNotifier
	mcpServer *server.MCPServer
}

// NewFloweditServer creates a FloweditServer with all 6 tools registered.
func NewFloweditServer(deps FloweditServerDeps) (*FloweditServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	minWidth := deps.MinNodeWidth
	if minWidth <= 0 {
		minWidth = schema.MinNodeWidth
	}

	exprs, err := expressions.NewSet()
	if err != nil {
		return nil, err
	}

	s := &FloweditServer{
		store:     deps.Store,
		hub:       deps.Hub,
		logger:    logger,
		validator: validation.NewProjectValidator(exprs),
		jq:        exprs.JQ,
		minWidth:  minWidth,
		sessions:  NewSessionRegistry(),
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		s.sessions.Remove(session.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"flowedit",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("Flowedit stores and edits XPDL business-process diagrams. Use flowedit.import to store a document, flowedit.export to read it as xpdl, json or yaml, flowedit.validate to check it, flowedit.query to run jq over it, flowedit.edit to change a process and flowedit.history to list revisions."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.sessions)
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FloweditServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FloweditServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// SetNotifier replaces the document watch notifier.
func (s *FloweditServer) SetNotifier(n WatchNotifier) {
	s.notifier = n
}

// tools returns the 6 registered MCP tools as ServerTool entries.
func (s *FloweditServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: importTool(), Handler: s.handleImport},
		{Tool: exportTool(), Handler: s.handleExport},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: editTool(), Handler: s.handleEdit},
		{Tool: historyTool(), Handler: s.handleHistory},
	}
}

// --- Tool definitions ---

func importTool() mcp.Tool {
	return mcp.NewTool("flowedit.import",
		mcp.WithDescription("Store an XPDL document as a new document or a new revision"),
		mcp.WithString("content", mcp.Required(), mcp.Description("XPDL document text")),
		mcp.WithString("document_id", mcp.Description("Existing document to append a revision to (default: create a new document)")),
		mcp.WithString("name", mcp.Description("Document name")),
		mcp.WithString("message", mcp.Description("Revision message")),
		mcp.WithString("agent_id", mcp.Description("ID of the calling agent")),
	)
}

func exportTool() mcp.Tool {
	return mcp.NewTool("flowedit.export",
		mcp.WithDescription("Export a stored document"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document to export")),
		mcp.WithString("format",
			mcp.Enum("xpdl", "json", "yaml"),
			mcp.Description("Output format (default: xpdl)"),
		),
		mcp.WithNumber("revision", mcp.Description("Revision sequence (default: latest)")),
		mcp.WithString("agent_id", mcp.Description("ID of the calling agent")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("flowedit.validate",
		mcp.WithDescription("Validate XPDL text or a stored document"),
		mcp.WithString("content", mcp.Description("XPDL document text")),
		mcp.WithString("document_id", mcp.Description("Stored document to validate when content is empty")),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("flowedit.query",
		mcp.WithDescription("Run a jq expression over a stored document"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document to query")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("jq expression evaluated over the project snapshot")),
		mcp.WithString("agent_id", mcp.Description("ID of the calling agent")),
	)
}

func editTool() mcp.Tool {
	return mcp.NewTool("flowedit.edit",
		mcp.WithDescription("Apply edit operations to a process of a stored document and save a revision"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document to edit")),
		mcp.WithNumber("process_id", mcp.Description("Process to edit (default: first process)")),
		mcp.WithArray("operations", mcp.Required(),
			mcp.Description("Operations applied in order: add_node{kind,x,y}, add_edge{kind,from,to}, remove_node{node_id}, remove_edge{edge_id}, move{node_id,dx,dy}, resize{node_id,side,delta}"),
			mcp.Items(map[string]any{"type": "object"}),
		),
		mcp.WithString("message", mcp.Description("Revision message")),
		mcp.WithString("agent_id", mcp.Description("ID of the calling agent")),
	)
}

func historyTool() mcp.Tool {
	return mcp.NewTool("flowedit.history",
		mcp.WithDescription("List the revisions of a stored document"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document whose history to list")),
		mcp.WithNumber("since", mcp.Description("Only revisions after this sequence")),
	)
}
