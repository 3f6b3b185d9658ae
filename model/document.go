package model

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Document types with special handling in context analysis.
const (
	DocTypePatent  = "patent"
	DocTypePaper   = "paper"
	DocTypeArxiv   = "arxiv"
	DocTypePress   = "press"
	DocTypeArticle = "article"
)

// Metadata keys for structured identifier fields.
const (
	MetadataInventors    = "inventors"
	MetadataAssignees    = "assignees"
	MetadataAuthors      = "authors"
	MetadataPatentNumber = "patent_number"
	MetadataDOI          = "doi"
	MetadataArxivID      = "arxiv_id"
	MetadataPublishedAt  = "published_at"
)

// Document represents a source document. Content is only carried through
// processing, the chunk store holds the text.
type Document struct {
	ID        int64     `json:"id"`
	RID       uuid.UUID `json:"rid"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	DocType   string    `json:"doc_type,omitempty"`
	Content   string    `json:"content,omitempty" db:"-"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Inventors returns the structured inventor names, if any.
func (d *Document) Inventors() []string {
	return d.Metadata.StringSlice(MetadataInventors)
}

// Assignees returns the structured assignee names, if any.
func (d *Document) Assignees() []string {
	return d.Metadata.StringSlice(MetadataAssignees)
}

// Authors returns the structured author names, if any.
func (d *Document) Authors() []string {
	return d.Metadata.StringSlice(MetadataAuthors)
}

// Identifier returns the first structured identifier attached to the document
// (patent number, DOI or arXiv id), or "".
func (d *Document) Identifier() string {
	for _, key := range []string{MetadataPatentNumber, MetadataDOI, MetadataArxivID} {
		if v := d.Metadata.String(key); v != "" {
			return v
		}
	}
	return ""
}

// HasStructuredMetadata reports whether any identifier or people/organization
// field is present, which makes the metadata extractor worth running.
func (d *Document) HasStructuredMetadata() bool {
	return d.Identifier() != "" ||
		len(d.Inventors()) > 0 ||
		len(d.Assignees()) > 0 ||
		len(d.Authors()) > 0
}

// NewDocumentFromFile reads a file and creates a Document with the file content.
// The title defaults to the filename, and source to the file path.
func NewDocumentFromFile(filePath string, metadata Metadata) (*Document, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	// Get filename without extension for default title
	filename := filepath.Base(filePath)
	title := filename[:len(filename)-len(filepath.Ext(filename))]
	if title == "" {
		title = filename
	}

	return &Document{
		Title:    title,
		Source:   filePath,
		Content:  string(content),
		Metadata: metadata,
	}, nil
}
