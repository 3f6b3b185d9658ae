package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityKind is the closed set of node types in the knowledge graph.
type EntityKind string

const (
	EntityKindPerson       EntityKind = "person"
	EntityKindOrganization EntityKind = "organization"
	EntityKindTechnology   EntityKind = "technology"
	EntityKindProduct      EntityKind = "product"
	EntityKindComponent    EntityKind = "component"
	EntityKindDocument     EntityKind = "document"
	EntityKindDataset      EntityKind = "dataset"
)

// AllEntityKinds returns every valid entity kind in a stable order.
func AllEntityKinds() []EntityKind {
	return []EntityKind{
		EntityKindPerson,
		EntityKindOrganization,
		EntityKindTechnology,
		EntityKindProduct,
		EntityKindComponent,
		EntityKindDocument,
		EntityKindDataset,
	}
}

// ParseEntityKind validates a raw kind string (as returned by an LLM).
func ParseEntityKind(raw string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case EntityKindPerson, EntityKindOrganization, EntityKindTechnology,
		EntityKindProduct, EntityKindComponent, EntityKindDocument, EntityKindDataset:
		return kind, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", raw)
}

// Entity represents a persisted, typed node in the knowledge graph.
type Entity struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Kind           EntityKind `json:"kind"`
	Description    string     `json:"description,omitempty"`
	AuthorityScore float64    `json:"authority_score"`
	MentionCount   int        `json:"mention_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CandidateEntity is an extracted entity before consolidation. The TempID is
// batch scoped and only used to wire candidate edges until real identifiers
// exist.
type CandidateEntity struct {
	TempID         string     `json:"tempId"`
	Name           string     `json:"name"`
	Kind           EntityKind `json:"kind"`
	Description    string     `json:"description,omitempty"`
	Aliases        []string   `json:"aliases,omitempty"`
	Evidence       string     `json:"evidence,omitempty"`
	AuthorityScore float64    `json:"authority_score"`
	MentionCount   int        `json:"mention_count"`
	Source         string     `json:"source,omitempty"`
}

// Entity converts the candidate to its persistable form.
func (c *CandidateEntity) Entity() *Entity {
	mentions := c.MentionCount
	if mentions < 1 {
		mentions = 1
	}
	return &Entity{
		Name:           strings.TrimSpace(c.Name),
		Kind:           c.Kind,
		Description:    c.Description,
		AuthorityScore: c.AuthorityScore,
		MentionCount:   mentions,
	}
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeEntityName lowercases, collapses whitespace and strips surrounding
// punctuation. The same normalization runs in SQL (normalize_entity_name) so
// the (normalized_name, kind) constraint and Go-side comparisons agree.
func NormalizeEntityName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = whitespaceRegex.ReplaceAllString(normalized, " ")
	normalized = strings.Trim(normalized, "\"'.,;:!?()[]{}")
	return strings.TrimSpace(normalized)
}
