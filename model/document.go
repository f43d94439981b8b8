package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Document represents one source PDF and its hierarchy placement.
//
// The identifier is the filename stem (spec.md §3): stable across
// re-ingestion so that replace_document_chunks can target it atomically.
type Document struct {
	ID              string   `json:"id"`
	Filename        string   `json:"filename"`
	PageCount       int      `json:"page_count"`
	Title           string   `json:"title,omitempty"`
	SurfaceCategory string   `json:"surface_category,omitempty"`
	Division        string   `json:"division,omitempty"`
	Category        string   `json:"category,omitempty"`
	Products        []string `json:"products,omitempty"`
	Metadata        Metadata `json:"metadata,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentID derives the stable identifier for a document from its
// filename, stripping extension and lowercasing so "Foo.PDF" and
// "foo.pdf" resolve to the same document.
func DocumentID(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(stem)
}

// InventoryEntry is one row of the ingest input (spec.md §6 "Ingest input").
type InventoryEntry struct {
	Path            string   `json:"path" yaml:"path"`
	Filename        string   `json:"filename" yaml:"filename"`
	SurfaceCategory string   `json:"surface_category,omitempty" yaml:"surface_category,omitempty"`
	SourceURL       string   `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Metadata        Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
