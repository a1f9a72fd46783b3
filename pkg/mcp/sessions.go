package mcp

import (
	"slices"
	"sync"
)

// SessionRegistry maps agent IDs to MCP session IDs and remembers which
// agents have touched which documents.
// Populated automatically when agents call any tool that includes agent_id.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]string          // agentID → sessionID
	watchers map[string]map[string]bool // documentID → agentIDs
}

// NewSessionRegistry creates a new empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]string),
		watchers: make(map[string]map[string]bool),
	}
}

// Register associates an agent ID with a session ID.
// If the agent already has a session, it is overwritten (reconnect).
func (r *SessionRegistry) Register(agentID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[agentID] = sessionID
}

// SessionFor returns the session ID for the given agent, if connected.
func (r *SessionRegistry) SessionFor(agentID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.sessions[agentID]
	return sid, ok
}

// Watch records that agentID has read or written documentID.
func (r *SessionRegistry) Watch(documentID, agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.watchers[documentID]
	if set == nil {
		set = make(map[string]bool)
		r.watchers[documentID] = set
	}
	set[agentID] = true
}

// Watchers returns the agents that touched documentID, sorted.
func (r *SessionRegistry) Watchers(documentID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.watchers[documentID]))
	for aid := range r.watchers[documentID] {
		out = append(out, aid)
	}
	slices.Sort(out)
	return out
}

// Forget drops every watch on documentID.
func (r *SessionRegistry) Forget(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.watchers, documentID)
}

// Remove deletes all agent mappings for the given session ID.
// Called when a session disconnects.
func (r *SessionRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for aid, sid := range r.sessions {
		if sid == sessionID {
			delete(r.sessions, aid)
			for _, set := range r.watchers {
				delete(set, aid)
			}
		}
	}
}
