package store

import "time"

// FormatXPDL is the only content format documents are stored in.
const FormatXPDL = "xpdl"

// Document is the latest saved state of a project.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Format       string    `json:"format"`
	Content      string    `json:"content,omitempty"` // empty in listings
	ProcessCount int       `json:"process_count"`
	Revision     int64     `json:"revision"` // sequence of the latest revision
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Message and Author annotate the revision SaveDocument appends.
	Message string `json:"-"`
	Author  string `json:"-"`
}

// Revision is an immutable entry in a document's history.
type Revision struct {
	DocumentID string    `json:"document_id"`
	Sequence   int64     `json:"sequence"`
	Content    string    `json:"content"`
	Checksum   string    `json:"checksum"` // hex sha256 of Content
	Message    string    `json:"message,omitempty"`
	Author     string    `json:"author,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentFilter specifies criteria for listing documents.
type DocumentFilter struct {
	Name   string     `json:"name,omitempty"` // substring match
	Since  *time.Time `json:"since,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}
