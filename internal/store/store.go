package store

import "context"

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Documents
	SaveDocument(ctx context.Context, doc *Document) (*Revision, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error)
	DeleteDocument(ctx context.Context, id string) error

	// Revisions (append-only)
	ListRevisions(ctx context.Context, documentID string, since int64) ([]*Revision, error)
	GetRevision(ctx context.Context, documentID string, sequence int64) (*Revision, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
