package main

import (
	"context"
	"fmt"
	"log"

	"github.com/dfattal/kgraph"
	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/model"
)

// Press release style content, pre-chunked the way an ingestion frontend
// would deliver it. Pattern extraction alone is enough for this shape of
// text, no LLM key required.
var pressChunks = []string{
	`Leia Inc today announced the Lume Pad 2, its flagship glasses-free 3D tablet
for creative professionals. Pricing starts at 1099 dollars, with retail
availability planned for this fall.`,

	`The Lume Pad 2 was unveiled alongside a new suite of creator tools.
David Fattal, CEO of Leia Inc, said the launch brings lightfield imaging
to a much wider audience.`,
}

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	doc := &model.Document{
		Title:   "Leia Announces the Lume Pad 2",
		Source:  "basic_example",
		DocType: model.DocTypePress,
	}
	chunks := make([]*model.Chunk, 0, len(pressChunks))
	for _, content := range pressChunks {
		chunks = append(chunks, &model.Chunk{Content: content})
	}

	fmt.Println("Ingesting document...")
	digest, err := k.IngestDocument(context.Background(), doc, chunks)
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}

	fmt.Printf("Document inserted with ID: %s\n", doc.RID)
	fmt.Printf("Strategy: %s\n", digest.Strategy)
	fmt.Printf("Candidates: %d\n", digest.Candidates)
	fmt.Printf("Entities: %d created, %d merged, %d rejected\n",
		digest.Entities.Created, digest.Entities.Merged, digest.Entities.Rejected)

	// Look at what landed in the graph
	stats, err := k.Stats()
	if err != nil {
		log.Fatalf("Failed to collect stats: %v", err)
	}
	fmt.Println("\nEntities by kind:")
	for kind, count := range stats.Entities {
		fmt.Printf("  %-14s %d\n", kind, count)
	}

	results, err := k.SearchEntities("Leia", 5)
	if err != nil {
		log.Fatalf("Failed to search entities: %v", err)
	}
	fmt.Println("\nSearch results for \"Leia\":")
	for _, entity := range results {
		fmt.Printf("  %s (%s), authority %.2f, %d mention(s)\n",
			entity.Name, entity.Kind, entity.AuthorityScore, entity.MentionCount)
	}

	fmt.Println("\nBasic example completed successfully!")
}
