package database

import (
	"context"
	"fmt"
	"time"

	"github.com/dfattal/kgraph/helper"
)

// VectorIndexOptions tunes vector index creation. Zero values fall back to
// the pgvector defaults.
type VectorIndexOptions struct {
	M              int // hnsw graph degree, default 16
	EfConstruction int // hnsw build-time candidate list size, default 64
	Lists          int // ivfflat cluster count, default 100
}

// ChangeIndexType swaps the vector index on chunks.embedding between HNSW
// and IVFFlat. HNSW gives better recall, IVFFlat builds faster on large
// tables.
func (h *ChunksDBHandler) ChangeIndexType(ctx context.Context, indexType string, opts *VectorIndexOptions) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if opts == nil {
		opts = &VectorIndexOptions{}
	}

	// Drop existing index
	_, err := h.db.Instance.ExecContext(ctx, `DROP INDEX IF EXISTS idx_chunks_embedding;`)
	if err != nil {
		return helper.NewError("drop index", err)
	}

	h.db.Logger.Info("Dropped existing vector index")

	// Create new index based on type
	var createIndexSQL string

	switch indexType {
	case "hnsw":
		m := opts.M
		if m <= 0 {
			m = 16
		}
		efConstruction := opts.EfConstruction
		if efConstruction <= 0 {
			efConstruction = 64
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d);`,
			m, efConstruction,
		)

	case "ivfflat":
		lists := opts.Lists
		if lists <= 0 {
			lists = 100
		}

		createIndexSQL = fmt.Sprintf(
			`CREATE INDEX idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d);`,
			lists,
		)

	default:
		return helper.NewError("change index type", fmt.Errorf("unsupported index type: %s (use 'hnsw' or 'ivfflat')", indexType))
	}

	// Create the new index
	_, err = h.db.Instance.ExecContext(ctx, createIndexSQL)
	if err != nil {
		return helper.NewError("create index", err)
	}

	h.db.Logger.Info(fmt.Sprintf("Created %s vector index", indexType))

	return nil
}
