package main

import (
	"context"
	"fmt"
	"log"

	"github.com/dfattal/kgraph"
	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/model"
)

// A small mixed corpus: press releases, a patent with structured metadata and
// an FAQ page. Each shape selects a different extraction strategy, so the
// batch digest shows the pipeline adapting per document.
type corpusDocument struct {
	title    string
	docType  string
	metadata model.Metadata
	chunks   []string
}

var corpus = []corpusDocument{
	{
		title:   "Northlight Announces the Beacon X1",
		docType: model.DocTypePress,
		chunks: []string{
			`Northlight Photonics Inc today announced the Beacon X1, its flagship
holographic projector. Pricing starts at 2499 dollars, with retail
availability planned for the spring.`,
		},
	},
	{
		title:   "Mirelle Systems Partners with Northlight",
		docType: model.DocTypePress,
		chunks: []string{
			`Mirelle Systems Inc unveiled a strategic partnership with Northlight
Photonics Inc at its annual launch event. The companies announced joint
pricing for enterprise customers.`,
		},
	},
	{
		title:   "Multibeam Diffraction Grating-Based Display",
		docType: model.DocTypePatent,
		metadata: model.Metadata{
			model.MetadataPatentNumber: "US 9,459,461 B2",
			model.MetadataInventors:    []string{"David Fattal"},
			model.MetadataAssignees:    []string{"Leia Inc"},
		},
		chunks: []string{
			`A display system comprises a plate light guide and a multibeam
diffraction grating configured to couple guided light out as a plurality
of beams with different principal angular directions.`,
		},
	},
	{
		title:   "Beacon X1 Frequently Asked Questions",
		docType: model.DocTypeArticle,
		chunks: []string{
			`What resolution does the Beacon X1 support?
The projector renders at 4K per eye with full depth mapping.

Does the Beacon X1 require special glasses?
No, the display is fully autostereoscopic.

How do I update the firmware?
Updates install automatically when the device is idle.`,
		},
	},
	{
		title:   "Company History",
		docType: model.DocTypeArticle,
		chunks: []string{
			`Northlight Photonics Inc was founded in 2019 by a group of optics
researchers. The company is headquartered in Rotterdam.`,
		},
	},
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	k, err := kgraph.NewKGraph(dbConfig, 384)
	if err != nil {
		log.Fatalf("Failed to create kgraph: %v", err)
	}
	defer k.Close()

	inputs := make([]*kgraph.DocumentInput, 0, len(corpus))
	for _, cd := range corpus {
		chunks := make([]*model.Chunk, 0, len(cd.chunks))
		for _, content := range cd.chunks {
			chunks = append(chunks, &model.Chunk{Content: content})
		}
		inputs = append(inputs, &kgraph.DocumentInput{
			Document: &model.Document{
				Title:    cd.title,
				Source:   "batch_example",
				DocType:  cd.docType,
				Metadata: cd.metadata,
			},
			Chunks: chunks,
		})
	}

	fmt.Printf("Ingesting %d documents with 4 workers...\n\n", len(inputs))
	batch, err := k.ProcessDocuments(context.Background(), inputs, 4)
	if err != nil {
		log.Fatalf("Batch processing failed: %v", err)
	}

	for _, digest := range batch.PerDocument {
		if digest.Err != "" {
			fmt.Printf("  failed  %s: %s\n", digest.Title, digest.Err)
			continue
		}
		fmt.Printf("  ok      %s [%s]: %d created, %d merged, %d edge(s)\n",
			digest.Title, digest.Strategy,
			digest.Entities.Created, digest.Entities.Merged, digest.Edges.Saved)
	}

	fmt.Printf("\nDocuments: %d processed, %d succeeded, %d failed\n",
		batch.Documents, batch.Succeeded, batch.Failed)
	fmt.Printf("Entities:  %d created, %d merged, %d rejected\n",
		batch.Entities.Created, batch.Entities.Merged, batch.Entities.Rejected)
	fmt.Printf("Edges:     %d saved, %d refreshed, %d skipped\n",
		batch.Edges.Saved, batch.Edges.Refreshed, batch.Edges.Skipped)

	// The same organizations appear across documents, deduplication folds
	// them into single entities with accumulated mentions.
	stats, err := k.Stats()
	if err != nil {
		log.Fatalf("Failed to collect stats: %v", err)
	}
	fmt.Println("\nEntities by kind:")
	for kind, count := range stats.Entities {
		fmt.Printf("  %-14s %d\n", kind, count)
	}

	org, err := k.SearchEntities("Northlight", 1)
	if err != nil || len(org) == 0 {
		log.Fatalf("Failed to find deduplicated organization: %v", err)
	}
	fmt.Printf("\n%q appears in multiple documents: %d mention(s), authority %.2f\n",
		org[0].Name, org[0].MentionCount, org[0].AuthorityScore)

	fmt.Println("\nBatch example completed successfully!")
}
