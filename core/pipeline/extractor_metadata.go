package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dfattal/kgraph/model"
)

// Metadata authority scores. Structured fields are never inferred from free
// text, so they carry the highest trust in the pipeline.
const (
	authorityDocument = 0.95
	authorityInventor = 0.95
	authorityAssignee = 0.9
	authorityAuthor   = 0.9
)

// MetadataExtractor emits candidates from structured document fields only:
// the document itself, inventors, assignees and authors, with their
// relationships to the document.
type MetadataExtractor struct{}

// NewMetadataExtractor creates a metadata extractor.
func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{}
}

// Name implements Extractor.
func (e *MetadataExtractor) Name() string {
	return "metadata"
}

// Extract reads the structured fields. Documents without structured metadata
// yield an empty extraction.
func (e *MetadataExtractor) Extract(ctx context.Context, in *Input) (*model.Extraction, error) {
	extraction := &model.Extraction{}
	doc := in.Document
	if doc == nil || !doc.HasStructuredMetadata() {
		return extraction, nil
	}

	counter := 0
	nextTempID := func() string {
		counter++
		return fmt.Sprintf("m%d", counter)
	}

	docTempID := nextTempID()
	extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
		TempID:         docTempID,
		Name:           doc.Title,
		Kind:           model.EntityKindDocument,
		Evidence:       doc.Identifier(),
		AuthorityScore: authorityDocument,
		MentionCount:   1,
		Source:         e.Name(),
	})

	// A person may appear as both inventor and author; the first mention
	// wins and later edges reference the existing temp id.
	persons := map[string]string{}
	organizations := map[string]string{}

	for _, inventor := range doc.Inventors() {
		name := strings.TrimSpace(inventor)
		if name == "" {
			continue
		}
		normalized := model.NormalizeEntityName(name)
		tempID, ok := persons[normalized]
		if !ok {
			tempID = nextTempID()
			persons[normalized] = tempID
			extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
				TempID:         tempID,
				Name:           name,
				Kind:           model.EntityKindPerson,
				AuthorityScore: authorityInventor,
				MentionCount:   1,
				Source:         e.Name(),
			})
		}
		extraction.Edges = append(extraction.Edges, &model.CandidateEdge{
			SrcTempID:  tempID,
			DstTempID:  docTempID,
			Relation:   model.RelationInventorOf,
			Confidence: authorityInventor,
			Evidence:   doc.Identifier(),
		})
	}

	for _, assignee := range doc.Assignees() {
		name := strings.TrimSpace(assignee)
		if name == "" {
			continue
		}
		normalized := model.NormalizeEntityName(name)
		tempID, ok := organizations[normalized]
		if !ok {
			tempID = nextTempID()
			organizations[normalized] = tempID
			extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
				TempID:         tempID,
				Name:           name,
				Kind:           model.EntityKindOrganization,
				AuthorityScore: authorityAssignee,
				MentionCount:   1,
				Source:         e.Name(),
			})
		}
		extraction.Edges = append(extraction.Edges, &model.CandidateEdge{
			SrcTempID:  tempID,
			DstTempID:  docTempID,
			Relation:   model.RelationAssigneeOf,
			Confidence: authorityAssignee,
			Evidence:   doc.Identifier(),
		})
	}

	for _, author := range doc.Authors() {
		name := strings.TrimSpace(author)
		if name == "" {
			continue
		}
		normalized := model.NormalizeEntityName(name)
		tempID, ok := persons[normalized]
		if !ok {
			tempID = nextTempID()
			persons[normalized] = tempID
			extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
				TempID:         tempID,
				Name:           name,
				Kind:           model.EntityKindPerson,
				AuthorityScore: authorityAuthor,
				MentionCount:   1,
				Source:         e.Name(),
			})
		}
		extraction.Edges = append(extraction.Edges, &model.CandidateEdge{
			SrcTempID:  docTempID,
			DstTempID:  tempID,
			Relation:   model.RelationAuthoredBy,
			Confidence: authorityAuthor,
			Evidence:   doc.Identifier(),
		})
	}

	return extraction, nil
}
