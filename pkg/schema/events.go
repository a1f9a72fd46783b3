package schema

// Event type constants for editor change notifications.
const (
	EventNodeAdded   = "node.added"
	EventNodeRemoved = "node.removed"
	EventNodeMoved   = "node.moved"
	EventNodeResized = "node.resized"
	EventNodeUpdated = "node.updated"

	EventEdgeAdded   = "edge.added"
	EventEdgeRemoved = "edge.removed"
	EventEdgeUpdated = "edge.updated"

	EventActorAdded   = "actor.added"
	EventActorUpdated = "actor.updated"
	EventActorRemoved = "actor.removed"

	EventSelectionChanged = "selection.changed"
	EventTopologyChanged  = "topology.changed"

	EventGestureStarted   = "gesture.started"
	EventGestureEnded     = "gesture.ended"
	EventGestureCancelled = "gesture.cancelled"

	EventProcessChanged = "process.changed"
	EventProcessAdded   = "process.added"
	EventProcessRemoved = "process.removed"
	EventProcessUpdated = "process.updated"

	EventViewportChanged     = "viewport.changed"
	EventPropertiesRequested = "properties.requested"

	EventDocumentLoaded   = "document.loaded"
	EventDocumentImported = "document.imported"
	EventDocumentSaved    = "document.saved"
)
