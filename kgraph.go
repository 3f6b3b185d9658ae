package kgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/dfattal/kgraph/core/dedup"
	"github.com/dfattal/kgraph/core/graph"
	"github.com/dfattal/kgraph/core/pipeline"
	"github.com/dfattal/kgraph/core/resolve"
	"github.com/dfattal/kgraph/database"
	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/llm"
	"github.com/dfattal/kgraph/model"
	loadSql "github.com/dfattal/kgraph/sql"
	"github.com/dfattal/kgraph/vocab"
)

// existingPoolLimit bounds the per-kind entity pool handed to extractors so
// the LLM prompt stays small on large graphs.
const existingPoolLimit = 20

// KGraph provides a unified interface to the extraction pipeline and all
// database handlers
type KGraph struct {
	DB           *helper.Database
	Documents    *database.DocumentsDBHandler
	Chunks       *database.ChunksDBHandler
	Entities     *database.EntitiesDBHandler
	Edges        *database.EdgesDBHandler
	Pipeline     *pipeline.Pipeline
	Consolidator *dedup.Consolidator
	Resolver     *resolve.Resolver
	Vocabulary   *vocab.Config
	// Logging
	log *slog.Logger
}

// NewKGraph creates a new KGraph instance with all handlers and pipeline
// stages initialized. The pipeline starts with pattern extraction only;
// use SetLLMClient and SetRecognizer to enable the richer extractors.
func NewKGraph(config *helper.DatabaseConfiguration, embeddingDim int) (*KGraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("kgraph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers in the correct order (documents first, then chunks)
	// force=false to not reload if functions already exist
	documents, err := database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	edges, err := database.NewEdgesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create edges handler", err)
	}

	vocabulary := vocab.Default()

	return &KGraph{
		DB:           db,
		Documents:    documents,
		Chunks:       chunks,
		Entities:     entities,
		Edges:        edges,
		Pipeline:     pipeline.NewPipeline(vocabulary, logger),
		Consolidator: dedup.NewConsolidator(entities, vocabulary, logger),
		Resolver:     resolve.NewResolver(entities, edges, logger),
		Vocabulary:   vocabulary,
		log:          logger,
	}, nil
}

// Close closes the database connection
func (k *KGraph) Close() error {
	if k.DB != nil && k.DB.Instance != nil {
		return k.DB.Instance.Close()
	}
	return nil
}

// SetLLMClient enables LLM extraction with pattern fallback.
func (k *KGraph) SetLLMClient(client llm.Client) {
	k.Pipeline.SetLLMClient(client)
}

// SetRecognizer enables a local NER extractor as an additional stage.
func (k *KGraph) SetRecognizer(recognizer pipeline.Extractor) {
	k.Pipeline.SetRecognizer(recognizer)
}

// IngestDocument runs one document through the full pipeline:
// 1. Persisting the document metadata and its pre-chunked content
// 2. Context analysis, strategy selection, extraction and quality filtering
// 3. Consolidating accepted candidates into the entity store
// 4. Resolving candidate edges against the persisted entities
// Chunking and embedding generation happen in the caller; chunks are
// persisted as given and their text is concatenated for extraction.
// The document's Content field is never stored.
func (k *KGraph) IngestDocument(ctx context.Context, doc *model.Document, chunks []*model.Chunk) (*model.DocumentDigest, error) {
	if doc == nil {
		return nil, helper.NewError("ingest document", fmt.Errorf("document is nil"))
	}
	if len(chunks) == 0 {
		return nil, helper.NewError("ingest document", fmt.Errorf("document has no chunks"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Content lives in the chunks table only
	doc.Content = ""
	if err := k.Documents.InsertDocument(doc); err != nil {
		return nil, helper.NewError("insert document", err)
	}

	var content strings.Builder
	for i, chunk := range chunks {
		chunk.DocumentID = doc.ID
		chunk.DocumentRID = doc.RID
		chunk.ChunkIndex = i
		if err := k.Chunks.InsertChunk(chunk); err != nil {
			return nil, helper.NewError(fmt.Sprintf("insert chunk %d", i), err)
		}
		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(chunk.Content)
	}

	k.log.Info("Inserted document",
		slog.String("document_rid", doc.RID.String()),
		slog.String("title", doc.Title),
		slog.Int("chunks", len(chunks)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, err := k.existingEntities()
	if err != nil {
		return nil, helper.NewError("load existing entities", err)
	}

	result, err := k.Pipeline.Run(ctx, doc, content.String(), existing)
	if err != nil {
		return nil, helper.NewError("run extraction pipeline", err)
	}

	digest := &model.DocumentDigest{
		DocumentRID:    doc.RID,
		Title:          doc.Title,
		Strategy:       result.Strategy.Name,
		Classification: result.Classification,
		Chunks:         len(chunks),
		Candidates:     result.Candidates,
	}
	digest.Entities.Rejected = len(result.Rejections)

	// Abandon cleanly before anything from this document is persisted to
	// the graph. Past this point partial state is tolerated, the resolver
	// is an idempotent second phase.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, candidate := range result.Extraction.Entities {
		decision, err := k.Consolidator.Consolidate(candidate, doc.RID)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("consolidate entity %q", candidate.Name), err)
		}

		switch decision.Action {
		case model.DedupActionCreate:
			digest.Entities.Created++
		case model.DedupActionMerge:
			digest.Entities.Merged++
		case model.DedupActionReject:
			digest.Entities.Rejected++
			if decision.NeedsReview {
				digest.Entities.NeedsReview++
			}
		}
	}

	tally, err := k.Resolver.Resolve(ctx, doc.RID, result.Extraction)
	if err != nil {
		return nil, helper.NewError("resolve relationships", err)
	}
	digest.Edges = *tally

	k.log.Info("Ingested document",
		slog.String("document_rid", doc.RID.String()),
		slog.String("strategy", digest.Strategy),
		slog.Int("entities_created", digest.Entities.Created),
		slog.Int("entities_merged", digest.Entities.Merged),
		slog.Int("entities_rejected", digest.Entities.Rejected),
		slog.Int("edges_saved", digest.Edges.Saved))

	return digest, nil
}

// existingEntities loads a bounded per-kind entity pool for extractor
// context, so the LLM reuses canonical names instead of inventing variants.
func (k *KGraph) existingEntities() (map[model.EntityKind][]*model.Entity, error) {
	existing := make(map[model.EntityKind][]*model.Entity)
	for _, kind := range model.AllEntityKinds() {
		entities, err := k.Entities.SelectEntitiesByKind(kind, existingPoolLimit)
		if err != nil {
			return nil, err
		}
		if len(entities) > 0 {
			existing[kind] = entities
		}
	}
	return existing, nil
}

// GraphStats summarizes the persisted graph for operator reporting.
type GraphStats struct {
	Entities map[model.EntityKind]int `json:"entities"`
	Edges    map[model.Relation]int   `json:"edges"`
}

// Stats returns entity counts per kind and edge counts per relation.
func (k *KGraph) Stats() (*GraphStats, error) {
	entities, err := k.Entities.SelectEntityKindCounts()
	if err != nil {
		return nil, helper.NewError("count entities", err)
	}

	edges, err := k.Edges.SelectEdgeRelationCounts()
	if err != nil {
		return nil, helper.NewError("count edges", err)
	}

	return &GraphStats{Entities: entities, Edges: edges}, nil
}

// SearchEntities performs a fuzzy name/alias search over persisted entities.
func (k *KGraph) SearchEntities(searchTerm string, limit int) ([]*model.Entity, error) {
	return k.Entities.SelectEntitiesBySearch(searchTerm, limit)
}

// BFSTraversal performs breadth-first search from an entity
func (k *KGraph) BFSTraversal(ctx context.Context, sourceID uuid.UUID, maxHops int, relations []model.Relation, followReverse bool) ([]*graph.TraversalResult, error) {
	return graph.BFS(ctx, k.graphStore(), sourceID, maxHops, relations, followReverse)
}

// DFSTraversal performs depth-first search from an entity
func (k *KGraph) DFSTraversal(ctx context.Context, sourceID uuid.UUID, maxHops int, relations []model.Relation, followReverse bool) ([]*graph.TraversalResult, error) {
	return graph.DFS(ctx, k.graphStore(), sourceID, maxHops, relations, followReverse)
}

// Neighbors returns the entities directly connected to an entity.
func (k *KGraph) Neighbors(ctx context.Context, entityID uuid.UUID, relations []model.Relation, followReverse bool) ([]*model.Entity, error) {
	return graph.GetNeighbors(ctx, k.graphStore(), entityID, relations, followReverse)
}

// ChangeIndexType changes the vector index type between HNSW and IVFFlat
func (k *KGraph) ChangeIndexType(ctx context.Context, indexType string, opts *database.VectorIndexOptions) error {
	return k.Chunks.ChangeIndexType(ctx, indexType, opts)
}

func (k *KGraph) graphStore() graph.GraphStore {
	return &graphStore{entities: k.Entities, edges: k.Edges}
}

// graphStore adapts the entity and edge handlers to the traversal interface.
// The handlers manage their own query timeouts, so the context is unused.
type graphStore struct {
	entities *database.EntitiesDBHandler
	edges    *database.EdgesDBHandler
}

func (s *graphStore) GetEntity(_ context.Context, id uuid.UUID) (*model.Entity, error) {
	return s.entities.SelectEntity(id)
}

func (s *graphStore) GetEdgesFromEntity(_ context.Context, entityID uuid.UUID, relations []model.Relation, followReverse bool) ([]*model.Edge, error) {
	edges, err := s.edges.SelectEdgesFromEntity(entityID)
	if err != nil {
		return nil, err
	}

	if followReverse {
		incoming, err := s.edges.SelectEdgesToEntity(entityID)
		if err != nil {
			return nil, err
		}
		edges = append(edges, incoming...)
	}

	if len(relations) == 0 {
		return edges, nil
	}

	allowed := make(map[model.Relation]bool, len(relations))
	for _, relation := range relations {
		allowed[relation] = true
	}

	var filtered []*model.Edge
	for _, edge := range edges {
		if allowed[edge.Relation] {
			filtered = append(filtered, edge)
		}
	}
	return filtered, nil
}
