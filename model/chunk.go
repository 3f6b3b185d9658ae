package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk represents one content chunk of a document. Chunking and embedding
// generation happen in the surrounding application; this store persists what
// it is given and serves it back in order.
type Chunk struct {
	ID          int64     `json:"id"`
	DocumentID  int64     `json:"document_id"`
	DocumentRID uuid.UUID `json:"document_rid"`
	ChunkIndex  int       `json:"chunk_index"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
