package kgraph

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/dfattal/kgraph/model"
)

// defaultBatchWorkers is used when ProcessDocuments is called with a
// non-positive worker count. Ingestion is dominated by LLM and database
// round trips, so a small fixed pool is enough.
const defaultBatchWorkers = 4

// DocumentInput bundles a document with its pre-chunked content for batch
// ingestion.
type DocumentInput struct {
	Document *model.Document
	Chunks   []*model.Chunk
}

// ProcessDocuments ingests documents through a bounded worker pool. The
// returned digest covers every input: a failed document carries its error
// in the per-document digest and never halts the batch. Cancelling the
// context stops dispatch; documents that never ran are marked failed with
// the context error.
func (k *KGraph) ProcessDocuments(ctx context.Context, inputs []*DocumentInput, workers int) (*model.BatchDigest, error) {
	batch := &model.BatchDigest{Documents: len(inputs)}
	if len(inputs) == 0 {
		return batch, nil
	}

	// Queue sized to the batch so Submit never blocks after workers stop.
	pool := newWorkerPool(workers, len(inputs))
	pool.Start(ctx)

	digests := make([]*model.DocumentDigest, len(inputs))
	for i, input := range inputs {
		i, input := i, input
		err := pool.Submit(func(ctx context.Context) {
			digests[i] = k.ingestOne(ctx, input)
		})
		if err != nil {
			digests[i] = failedDigest(input, err)
		}
	}
	pool.Close()

	for i, digest := range digests {
		if digest == nil {
			// Dispatch stopped before this document ran
			digest = failedDigest(inputs[i], ctx.Err())
			digests[i] = digest
		}
		if digest.Err == "" {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
		batch.Entities.Add(digest.Entities)
		batch.Edges.Add(digest.Edges)
	}
	batch.PerDocument = digests

	k.log.Info("Processed document batch",
		slog.Int("documents", batch.Documents),
		slog.Int("succeeded", batch.Succeeded),
		slog.Int("failed", batch.Failed),
		slog.Int("entities_created", batch.Entities.Created),
		slog.Int("entities_merged", batch.Entities.Merged),
		slog.Int("edges_saved", batch.Edges.Saved))

	return batch, nil
}

// ingestOne wraps IngestDocument for batch use, converting an error into a
// failed per-document digest.
func (k *KGraph) ingestOne(ctx context.Context, input *DocumentInput) *model.DocumentDigest {
	digest, err := k.IngestDocument(ctx, input.Document, input.Chunks)
	if err != nil {
		k.log.Error("Document ingestion failed",
			slog.String("title", inputTitle(input)),
			slog.String("error", err.Error()))
		return failedDigest(input, err)
	}
	return digest
}

func failedDigest(input *DocumentInput, err error) *model.DocumentDigest {
	digest := &model.DocumentDigest{}
	if input != nil && input.Document != nil {
		digest.DocumentRID = input.Document.RID
		digest.Title = input.Document.Title
	}
	if err != nil {
		digest.Err = err.Error()
	} else {
		digest.Err = "not processed"
	}
	return digest
}

func inputTitle(input *DocumentInput) string {
	if input == nil || input.Document == nil {
		return ""
	}
	return input.Document.Title
}

// errPoolClosed is returned by Submit after Close.
var errPoolClosed = errors.New("worker pool closed")

// batchJob is one unit of batch work. Results are reported through state
// captured by the closure, not through the pool.
type batchJob func(ctx context.Context)

// workerPool runs jobs on a fixed number of goroutines with a buffered
// queue. Start launches the workers, Close stops intake and drains.
type workerPool struct {
	jobs    chan batchJob
	wg      sync.WaitGroup
	workers int
	mu      sync.Mutex
	closed  bool
}

func newWorkerPool(workers, queue int) *workerPool {
	if workers <= 0 {
		workers = defaultBatchWorkers
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &workerPool{
		jobs:    make(chan batchJob, queue),
		workers: workers,
	}
}

// Start begins the worker goroutines. Workers exit when the context is
// cancelled or the queue is closed and drained.
func (p *workerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					job(ctx)
				}
			}
		}()
	}
}

// Submit enqueues a job. It fails after Close and blocks when the queue is
// full.
func (p *workerPool) Submit(job batchJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPoolClosed
	}
	p.jobs <- job
	return nil
}

// Close stops accepting new jobs and waits for the workers to finish.
func (p *workerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
