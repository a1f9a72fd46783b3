package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/internal/snapshot"
	"github.com/rendis/flowedit/internal/store"
	"github.com/rendis/flowedit/internal/streaming"
	"github.com/rendis/flowedit/internal/xpdl"
	"github.com/rendis/flowedit/pkg/schema"
)

// handleImport decodes XPDL text and stores it as a revision.
func (s *FloweditServer) handleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content is required"), nil
	}
	agentID := req.GetString("agent_id", "")
	s.captureSession(ctx, agentID)

	p, err := xpdl.Import(content)
	if err != nil {
		return toolError("import rejected", err), nil
	}

	doc := &store.Document{
		ID:      req.GetString("document_id", ""),
		Name:    req.GetString("name", ""),
		Message: req.GetString("message", ""),
		Author:  agentID,
	}
	rev, err := s.saveProject(ctx, doc, p)
	if err != nil {
		return toolError("save failed", err), nil
	}

	return marshalResult(map[string]any{
		"document_id": doc.ID,
		"revision":    rev.Sequence,
		"checksum":    rev.Checksum,
		"processes":   len(p.Processes),
	})
}

// handleExport renders a stored document in the requested format.
func (s *FloweditServer) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id is required"), nil
	}
	format, err := snapshot.ParseFormat(req.GetString("format", string(snapshot.FormatXPDL)))
	if err != nil {
		return toolError("invalid format", err), nil
	}
	agentID := req.GetString("agent_id", "")
	s.captureSession(ctx, agentID)
	s.watch(docID, agentID)

	p, err := s.loadProject(ctx, docID, int64(req.GetInt("revision", 0)))
	if err != nil {
		return toolError("load failed", err), nil
	}
	data, err := snapshot.Marshal(p, format)
	if err != nil {
		return toolError("export failed", err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleValidate runs the full validation over XPDL text or a stored
// document. A document that cannot be decoded is reported as invalid rather
// than as a tool error.
func (s *FloweditServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	docID := req.GetString("document_id", "")

	var p *schema.Project
	var err error
	switch {
	case content != "":
		p, err = xpdl.Import(content)
	case docID != "":
		p, err = s.loadProject(ctx, docID, 0)
		if schema.IsCode(err, schema.ErrCodeNotFound) {
			return toolError("load failed", err), nil
		}
	default:
		return mcp.NewToolResultError("content or document_id is required"), nil
	}

	if err != nil {
		issue := schema.ValidationIssue{Path: "/", Code: schema.ErrorCode(err), Message: err.Error(), Severity: schema.SeverityError}
		var fe *schema.FlowError
		if errors.As(err, &fe) {
			issue.Message = fe.Message
		}
		return marshalResult(map[string]any{
			"valid":  false,
			"errors": []schema.ValidationIssue{issue},
		})
	}

	result := s.validator.ValidateProject(p)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

// handleQuery evaluates a jq expression over a document snapshot.
func (s *FloweditServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id is required"), nil
	}
	expression, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}
	agentID := req.GetString("agent_id", "")
	s.captureSession(ctx, agentID)
	s.watch(docID, agentID)

	p, err := s.loadProject(ctx, docID, 0)
	if err != nil {
		return toolError("load failed", err), nil
	}
	results, err := snapshot.Query(ctx, s.jq, p, expression)
	if err != nil {
		return toolError("query failed", err), nil
	}
	return marshalResult(map[string]any{"results": results})
}

// handleEdit applies operations to one process of the latest revision and
// saves the outcome. Nothing is saved when any operation fails.
func (s *FloweditServer) handleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id is required"), nil
	}
	raw, ok := req.GetArguments()["operations"]
	if !ok || raw == nil {
		return mcp.NewToolResultError("operations is required"), nil
	}
	// Marshal then unmarshal the operations to get typed EditOps.
	opBytes, marshalErr := json.Marshal(raw)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid operations: %v", marshalErr)), nil
	}
	var ops []EditOp
	if unmarshalErr := json.Unmarshal(opBytes, &ops); unmarshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid operations: %v", unmarshalErr)), nil
	}
	if len(ops) == 0 {
		return mcp.NewToolResultError("operations must not be empty"), nil
	}

	agentID := req.GetString("agent_id", "")
	s.captureSession(ctx, agentID)

	doc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		return toolError("load failed", err), nil
	}
	p, err := xpdl.Import(doc.Content)
	if err != nil {
		return toolError("stored document is invalid", err), nil
	}

	proc := p.Processes[0]
	if id := req.GetInt("process_id", 0); id != 0 {
		if proc = p.Process(id); proc == nil {
			return toolError("load failed", schema.NewErrorf(schema.ErrCodeNotFound, "process %d not found", id)), nil
		}
	}
	ctx = logging.WithProcessID(logging.WithDocumentID(ctx, docID), proc.ID)

	g := graph.NewStore(s.minWidth)
	g.Load(proc)
	results, err := applyEdits(g, ops)
	if err != nil {
		s.logger.InfoContext(ctx, "edit rejected", slog.String("error", err.Error()))
		return toolError("edit rejected", err), nil
	}
	g.Save(proc)

	doc.Message = req.GetString("message", "")
	doc.Author = agentID
	rev, err := s.saveProject(ctx, doc, p)
	if err != nil {
		return toolError("save failed", err), nil
	}

	return marshalResult(map[string]any{
		"document_id": doc.ID,
		"process_id":  proc.ID,
		"revision":    rev.Sequence,
		"results":     results,
	})
}

// handleHistory lists revision metadata and checks the history's integrity.
func (s *FloweditServer) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError("document_id is required"), nil
	}
	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		return toolError("load failed", err), nil
	}

	revs, err := s.store.ListRevisions(ctx, docID, int64(req.GetInt("since", 0)))
	if err != nil {
		return toolError("history failed", err), nil
	}
	entries := make([]map[string]any, 0, len(revs))
	for _, r := range revs {
		entries = append(entries, map[string]any{
			"sequence":   r.Sequence,
			"checksum":   r.Checksum,
			"message":    r.Message,
			"author":     r.Author,
			"created_at": r.CreatedAt,
		})
	}

	out := map[string]any{"document_id": docID, "revisions": entries, "verified": true}
	if _, verr := store.NewRevisionLog(s.store).Verify(ctx, docID); verr != nil {
		out["verified"] = false
		out["verify_error"] = verr.Error()
	}
	return marshalResult(out)
}

// --- Internal helpers ---

func (s *FloweditServer) loadProject(ctx context.Context, docID string, sequence int64) (*schema.Project, error) {
	var content string
	if sequence > 0 {
		rev, err := s.store.GetRevision(ctx, docID, sequence)
		if err != nil {
			return nil, err
		}
		content = rev.Content
	} else {
		doc, err := s.store.GetDocument(ctx, docID)
		if err != nil {
			return nil, err
		}
		content = doc.Content
	}
	return xpdl.Import(content)
}

// saveProject encodes p into doc and appends a revision. A revision of an
// existing document without a name keeps the stored name.
func (s *FloweditServer) saveProject(ctx context.Context, doc *store.Document, p *schema.Project) (*store.Revision, error) {
	text, err := xpdl.Export(p)
	if err != nil {
		return nil, err
	}
	if doc.ID != "" && doc.Name == "" {
		existing, err := s.store.GetDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		doc.Name = existing.Name
	}
	doc.Content = text
	doc.ProcessCount = len(p.Processes)

	rev, err := s.store.SaveDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	s.afterSave(logging.WithDocumentID(ctx, doc.ID), doc, rev)
	return rev, nil
}

// afterSave publishes document.saved and notifies every other agent that
// touched the document.
func (s *FloweditServer) afterSave(ctx context.Context, doc *store.Document, rev *store.Revision) {
	s.logger.InfoContext(ctx, "document saved",
		slog.Int64("revision", rev.Sequence), slog.String("author", rev.Author))

	if s.hub != nil {
		_ = s.hub.Publish(ctx, streaming.EditorEvent{
			DocumentID: doc.ID,
			EventType:  schema.EventDocumentSaved,
			Payload:    map[string]any{"revision": rev.Sequence, "author": rev.Author},
		})
	}

	change := DocumentChange{DocumentID: doc.ID, Revision: rev.Sequence, Author: rev.Author}
	for _, agentID := range s.sessions.Watchers(doc.ID) {
		if agentID == rev.Author {
			continue
		}
		if err := s.notifier.DocumentSaved(ctx, agentID, change); err != nil {
			s.logger.WarnContext(ctx, "notify failed",
				slog.String("agent_id", agentID), slog.String("error", err.Error()))
		}
	}
	s.watch(doc.ID, rev.Author)
}

func (s *FloweditServer) watch(docID, agentID string) {
	if agentID != "" {
		s.sessions.Watch(docID, agentID)
	}
}

// captureSession maps the agent ID to its current MCP session for notifications.
func (s *FloweditServer) captureSession(ctx context.Context, agentID string) {
	if agentID == "" {
		return
	}
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Register(agentID, session.SessionID())
	}
}

// toolError renders err as a tool error result, keeping the FlowError code
// visible to the agent.
func toolError(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
