package model

import "github.com/google/uuid"

// DedupAction is the consolidation decision for one candidate entity.
type DedupAction string

const (
	DedupActionCreate DedupAction = "create"
	DedupActionMerge  DedupAction = "merge"
	DedupActionReject DedupAction = "reject"
)

// DedupResult explains what the consolidator decided for a candidate.
// NeedsReview marks the medium similarity band: a suspected duplicate that
// was neither created nor merged.
type DedupResult struct {
	Action      DedupAction `json:"action"`
	Canonical   *Entity     `json:"canonical,omitempty"`
	Similarity  float64     `json:"similarity"`
	Explanation string      `json:"explanation"`
	NeedsReview bool        `json:"needs_review,omitempty"`
}

// Extraction is the combined extractor output for one document.
type Extraction struct {
	Entities []*CandidateEntity `json:"entities"`
	Edges    []*CandidateEdge   `json:"edges"`
}

// EntityTally counts consolidation outcomes for operator reporting.
type EntityTally struct {
	Created     int `json:"created"`
	Merged      int `json:"merged"`
	Rejected    int `json:"rejected"`
	NeedsReview int `json:"needs_review"`
}

// Add accumulates another tally into t.
func (t *EntityTally) Add(other EntityTally) {
	t.Created += other.Created
	t.Merged += other.Merged
	t.Rejected += other.Rejected
	t.NeedsReview += other.NeedsReview
}

// EdgeTally counts relationship resolution outcomes.
type EdgeTally struct {
	Saved     int `json:"saved"`
	Refreshed int `json:"refreshed"`
	Skipped   int `json:"skipped"`
}

// Add accumulates another tally into t.
func (t *EdgeTally) Add(other EdgeTally) {
	t.Saved += other.Saved
	t.Refreshed += other.Refreshed
	t.Skipped += other.Skipped
}

// DocumentDigest summarizes one processed document.
type DocumentDigest struct {
	DocumentRID    uuid.UUID              `json:"document_rid"`
	Title          string                 `json:"title"`
	Strategy       string                 `json:"strategy"`
	Classification *ContentClassification `json:"classification,omitempty"`
	Chunks         int                    `json:"chunks"`
	Candidates     int                    `json:"candidates"`
	Entities       EntityTally            `json:"entities"`
	Edges          EdgeTally              `json:"edges"`
	Err            string                 `json:"error,omitempty"`
}

// BatchDigest summarizes a batch run across documents.
type BatchDigest struct {
	Documents   int               `json:"documents"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Entities    EntityTally       `json:"entities"`
	Edges       EdgeTally         `json:"edges"`
	PerDocument []*DocumentDigest `json:"per_document"`
}
