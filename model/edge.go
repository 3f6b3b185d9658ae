package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Relation is the closed set of relationship types between entities.
type Relation string

const (
	RelationAffiliatedWith Relation = "affiliated_with"
	RelationMadeBy         Relation = "made_by"
	RelationCreatedBy      Relation = "created_by"
	RelationDevelopedBy    Relation = "developed_by"
	RelationAuthoredBy     Relation = "authored_by"
	RelationImplements     Relation = "implements"
	RelationUsesComponent  Relation = "uses_component"
	RelationSuppliedBy     Relation = "supplied_by"
	RelationRelatedTo      Relation = "related_to"
	RelationBasedOn        Relation = "based_on"
	RelationInventorOf     Relation = "inventor_of"
	RelationAssigneeOf     Relation = "assignee_of"
)

// ParseRelation validates a raw relation string (as returned by an LLM).
func ParseRelation(raw string) (Relation, error) {
	relation := Relation(strings.ToLower(strings.TrimSpace(raw)))
	switch relation {
	case RelationAffiliatedWith, RelationMadeBy, RelationCreatedBy,
		RelationDevelopedBy, RelationAuthoredBy, RelationImplements,
		RelationUsesComponent, RelationSuppliedBy, RelationRelatedTo,
		RelationBasedOn, RelationInventorOf, RelationAssigneeOf:
		return relation, nil
	}
	return "", fmt.Errorf("unknown relation %q", raw)
}

// RelationConstraint is one allowed (relation, source kind, destination kind)
// triple of the relation type matrix.
type RelationConstraint struct {
	Relation        Relation   `json:"relation"`
	SourceKind      EntityKind `json:"source_kind"`
	DestinationKind EntityKind `json:"destination_kind"`
}

// relationMatrix is the full table of allowed triples. related_to is a
// wildcard (any kind to any kind) and is handled in ValidRelation instead of
// being enumerated.
var relationMatrix = []RelationConstraint{
	{RelationAffiliatedWith, EntityKindPerson, EntityKindOrganization},
	{RelationMadeBy, EntityKindProduct, EntityKindOrganization},
	{RelationCreatedBy, EntityKindTechnology, EntityKindOrganization},
	{RelationCreatedBy, EntityKindTechnology, EntityKindPerson},
	{RelationCreatedBy, EntityKindDataset, EntityKindOrganization},
	{RelationCreatedBy, EntityKindDataset, EntityKindPerson},
	{RelationDevelopedBy, EntityKindTechnology, EntityKindOrganization},
	{RelationDevelopedBy, EntityKindProduct, EntityKindOrganization},
	{RelationDevelopedBy, EntityKindComponent, EntityKindOrganization},
	{RelationAuthoredBy, EntityKindDocument, EntityKindPerson},
	{RelationAuthoredBy, EntityKindDocument, EntityKindOrganization},
	{RelationImplements, EntityKindProduct, EntityKindTechnology},
	{RelationImplements, EntityKindComponent, EntityKindTechnology},
	{RelationUsesComponent, EntityKindProduct, EntityKindComponent},
	{RelationUsesComponent, EntityKindTechnology, EntityKindComponent},
	{RelationSuppliedBy, EntityKindComponent, EntityKindOrganization},
	{RelationBasedOn, EntityKindTechnology, EntityKindTechnology},
	{RelationBasedOn, EntityKindProduct, EntityKindProduct},
	{RelationBasedOn, EntityKindProduct, EntityKindTechnology},
	{RelationBasedOn, EntityKindDocument, EntityKindDocument},
	{RelationInventorOf, EntityKindPerson, EntityKindDocument},
	{RelationAssigneeOf, EntityKindOrganization, EntityKindDocument},
}

var validTriples = func() map[RelationConstraint]struct{} {
	triples := make(map[RelationConstraint]struct{}, len(relationMatrix))
	for _, c := range relationMatrix {
		triples[c] = struct{}{}
	}
	return triples
}()

// ValidRelation reports whether (relation, srcKind, dstKind) is an allowed
// triple of the relation type matrix.
func ValidRelation(relation Relation, srcKind EntityKind, dstKind EntityKind) bool {
	if relation == RelationRelatedTo {
		return srcKind != "" && dstKind != ""
	}
	_, ok := validTriples[RelationConstraint{relation, srcKind, dstKind}]
	return ok
}

// RelationConstraints returns the enumerated matrix triples in a stable order.
// related_to (any to any) is not included.
func RelationConstraints() []RelationConstraint {
	constraints := make([]RelationConstraint, len(relationMatrix))
	copy(constraints, relationMatrix)
	return constraints
}

// Edge represents a typed, evidence backed relationship between two persisted
// entities. Weight carries the extraction confidence.
type Edge struct {
	ID                  uuid.UUID  `json:"id"`
	SourceEntityID      uuid.UUID  `json:"source_entity_id"`
	SourceKind          EntityKind `json:"source_kind"`
	Relation            Relation   `json:"relation"`
	DestinationEntityID uuid.UUID  `json:"destination_entity_id"`
	DestinationKind     EntityKind `json:"destination_kind"`
	Weight              float64    `json:"weight"`
	EvidenceText        string     `json:"evidence_text,omitempty"`
	EvidenceDocumentID  *uuid.UUID `json:"evidence_document_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CandidateEdge is an extracted relationship referencing candidate entities by
// their batch scoped temp ids.
type CandidateEdge struct {
	SrcTempID  string   `json:"srcTempId"`
	DstTempID  string   `json:"dstTempId"`
	Relation   Relation `json:"relation"`
	Confidence float64  `json:"confidence"`
	Evidence   string   `json:"evidence,omitempty"`
}

// TraversalNode is one entity reached during a graph traversal.
type TraversalNode struct {
	EntityID uuid.UUID   `json:"entity_id"`
	Depth    int         `json:"depth"`
	Path     []uuid.UUID `json:"path"`
}
