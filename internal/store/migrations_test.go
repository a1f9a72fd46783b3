package store

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/pkg/schema"
)

func openRawStore(t *testing.T) *LibSQLStore {
	t.Helper()
	s, err := NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "raw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustLoad(t *testing.T, fsys fstest.MapFS) []migration {
	t.Helper()
	ms, err := loadMigrations(fsys)
	require.NoError(t, err)
	return ms
}

func TestLoadMigrations_Embedded(t *testing.T) {
	embedded, err := loadMigrations(migrationFiles)
	require.NoError(t, err)
	require.NotEmpty(t, embedded)
	assert.Equal(t, 1, embedded[0].Version)
	assert.Equal(t, "initial_schema", embedded[0].Name)
	assert.Equal(t, Checksum(embedded[0].SQL), embedded[0].Checksum)
}

func TestLoadMigrations_Ordering(t *testing.T) {
	ms := mustLoad(t, fstest.MapFS{
		"migrations/010_tags.sql":    {Data: []byte("CREATE TABLE tags (id TEXT)")},
		"migrations/002_notes.sql":   {Data: []byte("CREATE TABLE notes (id TEXT)")},
		"migrations/001_initial.sql": {Data: []byte("CREATE TABLE a (id TEXT)")},
		"migrations/README.md":       {Data: []byte("ignored")},
	})
	require.Len(t, ms, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{ms[0].Version, ms[1].Version, ms[2].Version})
	assert.Equal(t, "tags", ms[2].Name)
}

func TestLoadMigrations_BadFiles(t *testing.T) {
	tests := []struct {
		name string
		fsys fstest.MapFS
	}{
		{"no version", fstest.MapFS{"migrations/initial.sql": {Data: []byte("SELECT 1")}}},
		{"zero version", fstest.MapFS{"migrations/000_initial.sql": {Data: []byte("SELECT 1")}}},
		{"no name", fstest.MapFS{"migrations/001_.sql": {Data: []byte("SELECT 1")}}},
		{"duplicate version", fstest.MapFS{
			"migrations/001_a.sql": {Data: []byte("SELECT 1")},
			"migrations/1_b.sql":   {Data: []byte("SELECT 1")},
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadMigrations(tc.fsys)
			assert.True(t, schema.IsCode(err, schema.ErrCodeStore), "got %v", err)
		})
	}
}

func TestRunMigrations_RecordsChecksums(t *testing.T) {
	s := openRawStore(t)
	ctx := context.Background()
	ms := mustLoad(t, fstest.MapFS{
		"migrations/001_initial.sql": {Data: []byte("-- notes\nCREATE TABLE notes (id TEXT PRIMARY KEY);\nCREATE INDEX idx_notes ON notes(id);\n")},
	})

	require.NoError(t, runMigrations(ctx, s.DB(), ms))
	require.NoError(t, runMigrations(ctx, s.DB(), ms), "second run is a no-op")

	var name, sum string
	require.NoError(t, s.DB().QueryRowContext(ctx,
		`SELECT name, checksum FROM schema_migrations WHERE version = 1`).Scan(&name, &sum))
	assert.Equal(t, "initial", name)
	assert.Equal(t, ms[0].Checksum, sum)

	_, err := s.DB().ExecContext(ctx, `INSERT INTO notes (id) VALUES ('n1')`)
	assert.NoError(t, err)
}

func TestRunMigrations_ChangedAfterApply(t *testing.T) {
	s := openRawStore(t)
	ctx := context.Background()
	require.NoError(t, runMigrations(ctx, s.DB(), mustLoad(t, fstest.MapFS{
		"migrations/001_initial.sql": {Data: []byte("CREATE TABLE notes (id TEXT)")},
	})))

	err := runMigrations(ctx, s.DB(), mustLoad(t, fstest.MapFS{
		"migrations/001_initial.sql": {Data: []byte("CREATE TABLE notes (id TEXT, body TEXT)")},
	}))
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeStore))
	assert.Contains(t, err.Error(), "changed after it was applied")
}

func TestRunMigrations_DatabaseAhead(t *testing.T) {
	s := openRawStore(t)
	ctx := context.Background()
	first := fstest.MapFS{"migrations/001_initial.sql": {Data: []byte("CREATE TABLE notes (id TEXT)")}}
	both := fstest.MapFS{
		"migrations/001_initial.sql": first["migrations/001_initial.sql"],
		"migrations/002_tags.sql":    {Data: []byte("CREATE TABLE tags (id TEXT)")},
	}
	require.NoError(t, runMigrations(ctx, s.DB(), mustLoad(t, both)))

	err := runMigrations(ctx, s.DB(), mustLoad(t, first))
	assert.True(t, schema.IsCode(err, schema.ErrCodeStore), "got %v", err)
}

func TestRunMigrations_FailureRollsBack(t *testing.T) {
	s := openRawStore(t)
	ctx := context.Background()
	ms := mustLoad(t, fstest.MapFS{
		"migrations/001_broken.sql": {Data: []byte("CREATE TABLE notes (id TEXT); NOT SQL")},
	})
	require.Error(t, runMigrations(ctx, s.DB(), ms))

	var n int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestStatements(t *testing.T) {
	script := `-- header; with a semicolon
CREATE TABLE a (id TEXT);

  -- indented comment
CREATE INDEX idx_a ON a(id);
`
	assert.Equal(t, []string{
		"CREATE TABLE a (id TEXT)",
		"CREATE INDEX idx_a ON a(id)",
	}, statements(script))
	assert.Empty(t, statements("-- only a comment\n"))
}
