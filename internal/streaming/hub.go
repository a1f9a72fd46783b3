// Package streaming fans editor change events out to in-process subscribers.
package streaming

import "context"

// EditorEvent is a change notification emitted by the editor or the store.
type EditorEvent struct {
	DocumentID string `json:"document_id,omitempty"`
	ProcessID  int    `json:"process_id,omitempty"`
	EventType  string `json:"event_type"`
	NodeID     int    `json:"node_id,omitempty"`
	EdgeID     int    `json:"edge_id,omitempty"`
	Payload    any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
// Zero-valued fields match everything.
type EventFilter struct {
	DocumentID string   `json:"document_id,omitempty"`
	ProcessID  int      `json:"process_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub provides pub/sub for editor change events.
type EventHub interface {
	Publish(ctx context.Context, event EditorEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan EditorEvent, func(), error)
}
