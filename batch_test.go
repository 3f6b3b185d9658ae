package kgraph

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfattal/kgraph/model"
)

func pressInput(title, organization, product string) *DocumentInput {
	return &DocumentInput{
		Document: &model.Document{Title: title, Source: "press", DocType: model.DocTypePress},
		Chunks: []*model.Chunk{
			{Content: organization + " today announced the " + product + ", its flagship line. " +
				"Pricing and retail availability were unveiled at the launch event."},
		},
	}
}

func TestProcessDocuments(t *testing.T) {
	k := initKGraph(t)
	ctx := context.Background()

	t.Run("Batch ingests every document", func(t *testing.T) {
		inputs := []*DocumentInput{
			pressInput("Brell Arc 2 Announcement", "Brell Optics Inc", "Brell Arc 2"),
			pressInput("Corvid Note 5 Announcement", "Corvid Systems Inc", "Corvid Note 5"),
		}

		batch, err := k.ProcessDocuments(ctx, inputs, 2)

		require.NoError(t, err, "Expected ProcessDocuments to not return an error")
		require.NotNil(t, batch)
		assert.Equal(t, 2, batch.Documents)
		assert.Equal(t, 2, batch.Succeeded)
		assert.Equal(t, 0, batch.Failed)
		require.Len(t, batch.PerDocument, 2, "Expected a digest for every document")

		var created int
		for _, digest := range batch.PerDocument {
			assert.Empty(t, digest.Err, "Expected no per-document error")
			created += digest.Entities.Created
		}
		assert.Equal(t, created, batch.Entities.Created, "Expected batch totals to match per-document digests")
		assert.GreaterOrEqual(t, batch.Entities.Created, 2, "Expected entities from both documents")
	})

	t.Run("One bad document does not halt the batch", func(t *testing.T) {
		inputs := []*DocumentInput{
			pressInput("Quill Mark 3 Announcement", "Quill Devices Inc", "Quill Mark 3"),
			{Document: &model.Document{Title: "Broken Document", Source: "press"}},
			pressInput("Tessel Loop 8 Announcement", "Tessel Works Inc", "Tessel Loop 8"),
		}

		batch, err := k.ProcessDocuments(ctx, inputs, 2)

		require.NoError(t, err, "Expected the batch itself to not fail")
		assert.Equal(t, 3, batch.Documents)
		assert.Equal(t, 2, batch.Succeeded)
		assert.Equal(t, 1, batch.Failed)

		var failed *model.DocumentDigest
		for _, digest := range batch.PerDocument {
			if digest.Err != "" {
				failed = digest
			}
		}
		require.NotNil(t, failed, "Expected exactly one failed digest")
		assert.Equal(t, "Broken Document", failed.Title, "Expected the failed digest to identify the document")
		assert.Contains(t, failed.Err, "no chunks")
	})

	t.Run("Empty input returns an empty digest", func(t *testing.T) {
		batch, err := k.ProcessDocuments(ctx, nil, 2)

		require.NoError(t, err)
		assert.Equal(t, 0, batch.Documents)
		assert.Equal(t, 0, batch.Succeeded)
		assert.Empty(t, batch.PerDocument)
	})

	t.Run("Cancelled context marks documents as failed", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		inputs := []*DocumentInput{
			pressInput("Never Processed A", "Aldan Instruments Inc", "Aldan Core 6"),
			pressInput("Never Processed B", "Morrow Imaging Inc", "Morrow Scope 2"),
		}

		batch, err := k.ProcessDocuments(cancelled, inputs, 2)

		require.NoError(t, err, "Expected a digest even under cancellation")
		assert.Equal(t, 2, batch.Documents)
		assert.Equal(t, 0, batch.Succeeded)
		assert.Equal(t, 2, batch.Failed)
		for _, digest := range batch.PerDocument {
			assert.NotEmpty(t, digest.Err, "Expected every document to carry the cancellation error")
		}
	})
}

func TestWorkerPool(t *testing.T) {
	t.Run("Runs every submitted job", func(t *testing.T) {
		pool := newWorkerPool(4, 16)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		var ran int32
		for i := 0; i < 50; i++ {
			err := pool.Submit(func(ctx context.Context) {
				atomic.AddInt32(&ran, 1)
			})
			require.NoError(t, err, "Expected Submit to succeed while the pool is open")
		}
		pool.Close()

		assert.Equal(t, int32(50), atomic.LoadInt32(&ran), "Expected all jobs to run before Close returns")
	})

	t.Run("Submit after Close fails", func(t *testing.T) {
		pool := newWorkerPool(1, 2)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)
		pool.Close()

		err := pool.Submit(func(ctx context.Context) {})

		assert.ErrorIs(t, err, errPoolClosed, "Expected submission to a closed pool to fail")
	})

	t.Run("Close twice is safe", func(t *testing.T) {
		pool := newWorkerPool(1, 2)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		pool.Close()
		pool.Close()
	})

	t.Run("Defaults apply for non-positive sizes", func(t *testing.T) {
		pool := newWorkerPool(0, 0)

		assert.Equal(t, defaultBatchWorkers, pool.workers, "Expected the default worker count")
		assert.Equal(t, defaultBatchWorkers*2, cap(pool.jobs), "Expected the queue to scale with the workers")
	})
}
