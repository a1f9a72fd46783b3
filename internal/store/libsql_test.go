package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func seedDocument(t *testing.T, s *LibSQLStore, name, content string) *Document {
	t.Helper()
	doc := &Document{Name: name, Content: content, ProcessCount: 1}
	_, err := s.SaveDocument(context.Background(), doc)
	require.NoError(t, err)
	return doc
}

// --- Document Tests ---

func TestSaveAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := &Document{Name: "orders", Content: "<Package/>", ProcessCount: 2, Message: "first", Author: "ana"}
	rev, err := s.SaveDocument(ctx, doc)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, int64(1), rev.Sequence)
	assert.Equal(t, int64(1), doc.Revision)
	assert.Equal(t, Checksum("<Package/>"), rev.Checksum)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "orders", got.Name)
	assert.Equal(t, FormatXPDL, got.Format)
	assert.Equal(t, "<Package/>", got.Content)
	assert.Equal(t, 2, got.ProcessCount)
	assert.Equal(t, int64(1), got.Revision)
}

func TestSaveDocument_AppendsRevisions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "orders", "v1")

	doc.Content = "v2"
	doc.Message = "second"
	rev, err := s.SaveDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev.Sequence)

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
	assert.Equal(t, int64(2), got.Revision)

	revs, err := s.ListRevisions(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "v1", revs[0].Content)
	assert.Equal(t, "v2", revs[1].Content)
	assert.Equal(t, "second", revs[1].Message)

	revs, err = s.ListRevisions(ctx, doc.ID, 1)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, int64(2), revs[0].Sequence)
}

func TestSaveDocument_EmptyContent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveDocument(context.Background(), &Document{Name: "empty"})
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestSaveDocument_ConcurrentSequences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "shared", "v0")

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.SaveDocument(ctx, &Document{ID: doc.ID, Name: "shared", Content: fmt.Sprintf("v%d", i+1)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	revs, err := s.ListRevisions(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Len(t, revs, writers+1)
	for i, r := range revs {
		assert.Equal(t, int64(i+1), r.Sequence)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDocument(context.Background(), "nonexistent")
	require.Error(t, err)
	flowErr, ok := err.(*schema.FlowError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeNotFound, flowErr.Code)
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedDocument(t, s, "orders", "a")
	seedDocument(t, s, "refunds", "b")
	seedDocument(t, s, "orders-archive", "c")

	list, err := s.ListDocuments(ctx, DocumentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, d := range list {
		assert.Empty(t, d.Content)
	}

	list, err = s.ListDocuments(ctx, DocumentFilter{Name: "orders"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.ListDocuments(ctx, DocumentFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "orders", "v1")

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	_, err := s.GetDocument(ctx, doc.ID)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
	revs, err := s.ListRevisions(ctx, doc.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, revs)

	assert.True(t, schema.IsCode(s.DeleteDocument(ctx, doc.ID), schema.ErrCodeNotFound))
}

// --- Revision Tests ---

func TestGetRevision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doc := seedDocument(t, s, "orders", "v1")

	rev, err := s.GetRevision(ctx, doc.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", rev.Content)

	_, err = s.GetRevision(ctx, doc.ID, 2)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestVacuum(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Vacuum(context.Background()))
}
