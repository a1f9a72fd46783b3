package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/flowedit/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/flowedit.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. the revision log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate applies the embedded schema files not yet recorded in the database.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	ms, err := loadMigrations(migrationFiles)
	if err != nil {
		return err
	}
	return runMigrations(ctx, s.db, ms)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Documents ---

// SaveDocument upserts doc and appends a revision holding its content. A
// document without an ID gets a fresh uuid. The revision sequence is
// contiguous per document, starting at 1.
func (s *LibSQLStore) SaveDocument(ctx context.Context, doc *Document) (*Revision, error) {
	if doc == nil || doc.Content == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "document content is empty")
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Name == "" {
		doc.Name = "untitled"
	}
	if doc.Format == "" {
		doc.Format = FormatXPDL
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save tx: %w", err)
	}
	defer tx.Rollback()

	if err := lockWrites(ctx, tx); err != nil {
		return nil, err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM revisions WHERE document_id = ?`, doc.ID,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("get next sequence: %w", err)
	}

	now := time.Now().UTC()
	created := timeOrNow(doc.CreatedAt)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, format, content, process_count, revision, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, format=excluded.format, content=excluded.content,
		   process_count=excluded.process_count, revision=excluded.revision, updated_at=excluded.updated_at`,
		doc.ID, doc.Name, doc.Format, doc.Content, doc.ProcessCount, seq, created, now,
	); err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	rev := &Revision{
		DocumentID: doc.ID,
		Sequence:   seq,
		Content:    doc.Content,
		Checksum:   Checksum(doc.Content),
		Message:    doc.Message,
		Author:     doc.Author,
		CreatedAt:  now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (document_id, sequence, content, checksum, message, author, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rev.DocumentID, rev.Sequence, rev.Content, rev.Checksum, nullStr(rev.Message), nullStr(rev.Author), rev.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save: %w", err)
	}
	doc.Revision = seq
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = created
	}
	return rev, nil
}

// lockWrites forces the transaction to take the write lock before the
// sequence is read. In WAL mode BeginTx alone may start a deferred
// transaction, so concurrent savers could read the same MAX(sequence).
func lockWrites(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}
	return nil
}

func (s *LibSQLStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, format, content, process_count, revision, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.Format, &d.Content, &d.ProcessCount, &d.Revision, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("document", id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDocuments returns document metadata, most recently updated first.
// Content is left empty; use GetDocument to read it.
func (s *LibSQLStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*Document, error) {
	query := `SELECT id, name, format, process_count, revision, created_at, updated_at FROM documents`
	var where []string
	var args []any

	if filter.Name != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Since != nil {
		where = append(where, "updated_at >= ?")
		args = append(args, *filter.Since)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, name"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d := &Document{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Format, &d.ProcessCount, &d.Revision, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its whole history.
func (s *LibSQLStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res, "document", id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Revisions ---

// ListRevisions returns revisions with sequence > since, ordered by sequence ASC.
func (s *LibSQLStore) ListRevisions(ctx context.Context, documentID string, since int64) ([]*Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, sequence, content, checksum, message, author, created_at
		 FROM revisions WHERE document_id = ? AND sequence > ? ORDER BY sequence ASC`,
		documentID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []*Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

func (s *LibSQLStore) GetRevision(ctx context.Context, documentID string, sequence int64) (*Revision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, sequence, content, checksum, message, author, created_at
		 FROM revisions WHERE document_id = ? AND sequence = ?`, documentID, sequence,
	)
	r, err := scanRevision(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("revision", fmt.Sprintf("%s@%d", documentID, sequence))
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(sc scanner) (*Revision, error) {
	r := &Revision{}
	var message, author sql.NullString
	if err := sc.Scan(&r.DocumentID, &r.Sequence, &r.Content, &r.Checksum, &message, &author, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Message = message.String
	r.Author = author.String
	return r, nil
}

// --- Helpers ---

// Checksum returns the hex sha256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func storeNotFound(resource, id string) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*LibSQLStore)(nil)
