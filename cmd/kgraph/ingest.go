package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfattal/kgraph"
	"github.com/dfattal/kgraph/model"
)

// documentFile is the ingest file format: one document object or a JSON
// array of them. Chunking happens upstream, the file carries the chunks.
type documentFile struct {
	Title    string         `json:"title"`
	Source   string         `json:"source,omitempty"`
	DocType  string         `json:"doc_type,omitempty"`
	Metadata model.Metadata `json:"metadata,omitempty"`
	Chunks   []string       `json:"chunks"`
}

type ingestFlags struct {
	workers int
}

func newIngestCmd() *cobra.Command {
	var flags ingestFlags

	cmd := &cobra.Command{
		Use:   "ingest <file.json>",
		Short: "Extract entities and relationships from pre-chunked documents",
		Long: `Reads a JSON file holding one document or an array of documents, each with
its ordered content chunks, runs the extraction pipeline and persists the
resulting entities and edges.

Example file:
  {"title": "Product Launch", "doc_type": "press",
   "chunks": ["First chunk of text.", "Second chunk of text."]}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, flags)
		},
	}

	cmd.Flags().IntVar(&flags.workers, "workers", 4, "Parallel documents (1-16)")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string, flags ingestFlags) error {
	ctx := cmd.Context()
	filePath := args[0]

	if flags.workers < 1 || flags.workers > 16 {
		return fmt.Errorf("workers must be between 1 and 16")
	}

	documents, err := readDocumentFile(filePath)
	if err != nil {
		return err
	}

	inputs := make([]*kgraph.DocumentInput, 0, len(documents))
	for _, document := range documents {
		title := document.Title
		if title == "" {
			title = filepath.Base(filePath)
		}
		chunks := make([]*model.Chunk, 0, len(document.Chunks))
		for _, content := range document.Chunks {
			chunks = append(chunks, &model.Chunk{Content: content})
		}
		inputs = append(inputs, &kgraph.DocumentInput{
			Document: &model.Document{
				Title:    title,
				Source:   document.Source,
				DocType:  document.DocType,
				Metadata: document.Metadata,
			},
			Chunks: chunks,
		})
	}

	fmt.Printf("Ingesting %d document(s) from %s...\n", len(inputs), filePath)

	return withKGraph(func(k *kgraph.KGraph) error {
		batch, err := k.ProcessDocuments(ctx, inputs, flags.workers)
		if err != nil {
			return fmt.Errorf("processing documents: %w", err)
		}

		printBatch(batch)
		return nil
	})
}

func readDocumentFile(filePath string) ([]documentFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var documents []documentFile
		if err := json.Unmarshal(data, &documents); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filePath, err)
		}
		return documents, nil
	}

	var document documentFile
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return []documentFile{document}, nil
}

func printBatch(batch *model.BatchDigest) {
	for _, digest := range batch.PerDocument {
		if digest.Err != "" {
			fmt.Printf("  failed  %s: %s\n", digest.Title, digest.Err)
			continue
		}
		fmt.Printf("  ok      %s [%s]: %d created, %d merged, %d rejected, %d edges\n",
			digest.Title, digest.Strategy,
			digest.Entities.Created, digest.Entities.Merged, digest.Entities.Rejected,
			digest.Edges.Saved+digest.Edges.Refreshed)
	}

	fmt.Printf("Documents: %d succeeded, %d failed\n", batch.Succeeded, batch.Failed)
	fmt.Printf("Entities:  %d created, %d merged, %d rejected (%d need review)\n",
		batch.Entities.Created, batch.Entities.Merged, batch.Entities.Rejected, batch.Entities.NeedsReview)
	fmt.Printf("Edges:     %d saved, %d refreshed, %d skipped\n",
		batch.Edges.Saved, batch.Edges.Refreshed, batch.Edges.Skipped)
}
