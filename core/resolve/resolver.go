// Package resolve wires candidate relationships to persisted entities. It is
// the second phase of ingestion, running only after the consolidator has
// persisted the document's entities, and is idempotent so it can be retried
// independently of extraction.
package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dfattal/kgraph/model"
)

// EntityLookup resolves candidate names against persisted entities.
type EntityLookup interface {
	SelectEntityByName(name string, kind model.EntityKind) (*model.Entity, error)
	SelectEntityByAlias(alias string, kind model.EntityKind) (*model.Entity, error)
}

// EdgeStore persists resolved edges.
type EdgeStore interface {
	UpsertEdge(edge *model.Edge) (bool, error)
}

// Resolver maps temp ids to persisted entity ids, validates candidate edges
// against the relation type matrix and upserts the survivors.
type Resolver struct {
	entities EntityLookup
	edges    EdgeStore
	log      *slog.Logger
}

// NewResolver creates a relationship resolver over the given stores.
func NewResolver(entities EntityLookup, edges EdgeStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		entities: entities,
		edges:    edges,
		log:      logger,
	}
}

// Resolve persists the extraction's candidate edges for one document. Edges
// whose temp ids cannot be mapped, whose triple is not in the relation type
// matrix or that loop back onto their own source are skipped with a logged
// reason; everything else is upserted keyed by (src, relation, dst), so
// re-running the same document refreshes rows instead of duplicating them.
func (r *Resolver) Resolve(ctx context.Context, docRID uuid.UUID, extraction *model.Extraction) (*model.EdgeTally, error) {
	tally := &model.EdgeTally{}
	if extraction == nil || len(extraction.Edges) == 0 {
		return tally, nil
	}

	resolved, err := r.resolveTempIDs(extraction.Entities)
	if err != nil {
		return tally, err
	}

	for _, cand := range extraction.Edges {
		if err := ctx.Err(); err != nil {
			return tally, err
		}

		src, srcOk := resolved[cand.SrcTempID]
		dst, dstOk := resolved[cand.DstTempID]
		if !srcOk || !dstOk {
			r.log.Debug("Skipped edge with unmapped temp id",
				"src", cand.SrcTempID, "dst", cand.DstTempID, "relation", cand.Relation, "document", docRID)
			tally.Skipped++
			continue
		}

		if src.ID == dst.ID {
			r.log.Debug("Skipped self loop",
				"entity", src.Name, "relation", cand.Relation, "document", docRID)
			tally.Skipped++
			continue
		}

		if !model.ValidRelation(cand.Relation, src.Kind, dst.Kind) {
			r.log.Debug("Skipped edge outside relation type matrix",
				"relation", cand.Relation, "srcKind", src.Kind, "dstKind", dst.Kind, "document", docRID)
			tally.Skipped++
			continue
		}

		edge := &model.Edge{
			SourceEntityID:      src.ID,
			SourceKind:          src.Kind,
			Relation:            cand.Relation,
			DestinationEntityID: dst.ID,
			DestinationKind:     dst.Kind,
			Weight:              clampUnit(cand.Confidence),
			EvidenceText:        cand.Evidence,
		}
		if docRID != uuid.Nil {
			rid := docRID
			edge.EvidenceDocumentID = &rid
		}

		created, err := r.edges.UpsertEdge(edge)
		if err != nil {
			return tally, fmt.Errorf("upserting edge %s -[%s]-> %s: %w", src.Name, cand.Relation, dst.Name, err)
		}
		if created {
			tally.Saved++
		} else {
			tally.Refreshed++
		}
	}

	return tally, nil
}

// resolveTempIDs re-resolves every candidate's (name, kind) against the
// store: normalized name first, stored alias as fallback. Candidates the
// consolidator rejected simply miss here, which drops their edges.
func (r *Resolver) resolveTempIDs(candidates []*model.CandidateEntity) (map[string]*model.Entity, error) {
	resolved := make(map[string]*model.Entity, len(candidates))
	for _, cand := range candidates {
		if cand.TempID == "" {
			continue
		}

		entity, err := r.entities.SelectEntityByName(cand.Name, cand.Kind)
		if err != nil {
			return nil, fmt.Errorf("resolving %q by name: %w", cand.Name, err)
		}
		if entity == nil {
			entity, err = r.entities.SelectEntityByAlias(cand.Name, cand.Kind)
			if err != nil {
				return nil, fmt.Errorf("resolving %q by alias: %w", cand.Name, err)
			}
		}
		if entity == nil {
			r.log.Debug("Candidate did not resolve to a persisted entity", "name", cand.Name, "kind", cand.Kind)
			continue
		}

		resolved[cand.TempID] = entity
	}
	return resolved, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
