package store

import (
	"context"
	"fmt"

	"github.com/rendis/flowedit/pkg/schema"
)

// RevisionLog provides history operations on top of a Store.
type RevisionLog struct {
	store Store
}

// NewRevisionLog wraps a Store to provide history operations.
func NewRevisionLog(s Store) *RevisionLog {
	return &RevisionLog{store: s}
}

// Verify checks a document's history: sequences must run 1..n without gaps,
// every checksum must match its content, and the document must point at
// the last revision. Returns the number of revisions checked.
func (rl *RevisionLog) Verify(ctx context.Context, documentID string) (int, error) {
	doc, err := rl.store.GetDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	revs, err := rl.store.ListRevisions(ctx, documentID, 0)
	if err != nil {
		return 0, fmt.Errorf("get revisions for verify: %w", err)
	}

	for i, r := range revs {
		expected := int64(i + 1)
		if r.Sequence != expected {
			return i, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in document %s: expected %d, got %d", documentID, expected, r.Sequence)
		}
		if Checksum(r.Content) != r.Checksum {
			return i, schema.NewErrorf(schema.ErrCodeStore,
				"checksum mismatch in document %s at revision %d", documentID, r.Sequence)
		}
	}
	if doc.Revision != int64(len(revs)) {
		return len(revs), schema.NewErrorf(schema.ErrCodeStore,
			"document %s points at revision %d but history has %d", documentID, doc.Revision, len(revs))
	}
	return len(revs), nil
}
