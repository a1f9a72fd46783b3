package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowedit/pkg/schema"
)

// DocumentChange is a saved revision as reported to the agents watching
// the document.
type DocumentChange struct {
	DocumentID string
	Revision   int64
	Author     string // agent that saved it, may be empty
}

// Params renders the change as the params of an MCP notifications/message,
// the logging notification clients already surface to their users.
func (c DocumentChange) Params() map[string]any {
	return map[string]any{
		"level":  mcp.LoggingLevelInfo,
		"logger": "flowedit",
		"data": map[string]any{
			"event":       schema.EventDocumentSaved,
			"document_id": c.DocumentID,
			"revision":    c.Revision,
			"author":      c.Author,
		},
	}
}

// WatchNotifier tells an agent watching a document that it changed.
type WatchNotifier interface {
	DocumentSaved(ctx context.Context, agentID string, change DocumentChange) error
}

// MCPNotifier delivers document changes to the MCP session an agent last
// called a tool from.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
}

// NewMCPNotifier creates a notifier bound to mcpServer's sessions.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions}
}

// DocumentSaved sends the change to agentID. An agent without a live
// session is skipped; one whose session is gone is dropped from the
// registry along with its watches.
func (n *MCPNotifier) DocumentSaved(_ context.Context, agentID string, change DocumentChange) error {
	sessionID, ok := n.sessions.SessionFor(agentID)
	if !ok {
		return nil
	}
	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/message", change.Params())
	switch {
	case errors.Is(err, server.ErrSessionNotFound):
		n.sessions.Remove(sessionID)
		return nil
	case errors.Is(err, server.ErrSessionNotInitialized):
		return nil
	}
	return err
}
