package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dfattal/kgraph"
	"github.com/dfattal/kgraph/core/pipeline"
	"github.com/dfattal/kgraph/database"
	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/llm"
	"github.com/dfattal/kgraph/model"
)

const patentBody = `A display system comprises a plate light guide configured to guide
collimated light and a multibeam diffraction grating at a surface of the plate
light guide. The multibeam grating couples out a portion of the guided light as
a plurality of light beams having different principal angular directions.

The coupled-out light beams form a lightfield corresponding to a set of views
of a three dimensional scene, providing an autostereoscopic presentation
without eyewear.`

const pressBody = `Leia Inc today announced a major expansion of its lightfield display
business. The flagship Lume Pad 2 is now shipping, with pricing announced for
enterprise customers and retail availability planned worldwide.

David Fattal, CEO of Leia Inc, said the launch builds directly on the
company's patented multibeam grating research.`

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

	// Optional LLM extraction. The pattern extractor stays wired as the
	// fallback, so the example works without a key.
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		client, err := llm.NewAnthropicClient(llm.AnthropicConfig{})
		if err != nil {
			log.Fatalf("Failed to create LLM client: %v", err)
		}
		k.SetLLMClient(client)
		fmt.Println("LLM extraction enabled (Anthropic)")
	} else {
		fmt.Println("ANTHROPIC_API_KEY not set, using pattern extraction")
	}

	// Optional local NER. Downloads an ONNX model on first use, skip
	// gracefully when that is not possible.
	recognizer, err := pipeline.NewNERExtractor(nil)
	if err != nil {
		log.Printf("NER extractor unavailable, continuing without it: %v", err)
	} else {
		defer recognizer.Close()
		k.SetRecognizer(recognizer)
		fmt.Println("Local NER extraction enabled")
	}

	ctx := context.Background()

	// === Ingesting Documents ===
	fmt.Println("\n=== Ingesting Documents ===")

	patent := &model.Document{
		Title:   "Multibeam Diffraction Grating-Based Display",
		Source:  "advanced_example",
		DocType: model.DocTypePatent,
		Metadata: model.Metadata{
			model.MetadataPatentNumber: "US 9,459,461 B2",
			model.MetadataInventors:    []string{"David Fattal"},
			model.MetadataAssignees:    []string{"Leia Inc"},
		},
	}
	patentDigest, err := k.IngestDocument(ctx, patent, []*model.Chunk{{Content: patentBody}})
	if err != nil {
		log.Fatalf("Failed to ingest patent: %v", err)
	}
	printDigest(patentDigest)

	press := &model.Document{
		Title:   "Leia Expands Lightfield Display Business",
		Source:  "advanced_example",
		DocType: model.DocTypePress,
	}
	pressDigest, err := k.IngestDocument(ctx, press, []*model.Chunk{{Content: pressBody}})
	if err != nil {
		log.Fatalf("Failed to ingest press release: %v", err)
	}
	printDigest(pressDigest)

	// 1. Graph statistics
	fmt.Println("\n=== 1. Graph Statistics ===")
	stats, err := k.Stats()
	if err != nil {
		log.Fatalf("Failed to collect stats: %v", err)
	}
	fmt.Println("Entities by kind:")
	for kind, count := range stats.Entities {
		fmt.Printf("  %-14s %d\n", kind, count)
	}
	fmt.Println("Edges by relation:")
	for relation, count := range stats.Edges {
		fmt.Printf("  %-14s %d\n", relation, count)
	}

	// 2. Entity search
	fmt.Println("\n=== 2. Entity Search ===")
	matches, err := k.SearchEntities("Leia", 5)
	if err != nil {
		log.Fatalf("Entity search failed: %v", err)
	}
	for _, entity := range matches {
		fmt.Printf("  %s (%s), authority %.2f, %d mention(s)\n",
			entity.Name, entity.Kind, entity.AuthorityScore, entity.MentionCount)
	}
	if len(matches) == 0 {
		log.Fatal("Expected the assignee entity to exist after ingestion")
	}
	org := matches[0]

	// 3. BFS traversal from the organization
	fmt.Println("\n=== 3. Graph Traversal (BFS) ===")
	fmt.Printf("Starting BFS from: %s\n", org.Name)
	traversal, err := k.BFSTraversal(ctx, org.ID, 2, nil, true)
	if err != nil {
		log.Fatalf("BFS traversal failed: %v", err)
	}
	for _, tr := range traversal {
		if tr.Via == nil {
			fmt.Printf("  distance 0: %s (source)\n", tr.Entity.Name)
			continue
		}
		fmt.Printf("  distance %d: %s (%s) via %s, path length %d\n",
			tr.Distance, tr.Entity.Name, tr.Entity.Kind, tr.Via.Relation, len(tr.Path))
	}

	// 4. Immediate neighbors, restricted to one relation
	fmt.Println("\n=== 4. Neighbors (assignee_of only) ===")
	neighbors, err := k.Neighbors(ctx, org.ID, []model.Relation{model.RelationAssigneeOf}, true)
	if err != nil {
		log.Fatalf("Neighbor lookup failed: %v", err)
	}
	for _, neighbor := range neighbors {
		fmt.Printf("  %s (%s)\n", neighbor.Name, neighbor.Kind)
	}

	// 5. Demonstrate index type switching
	fmt.Println("\n=== 5. Changing Index Type ===")
	fmt.Println("Switching to IVFFlat index...")
	err = k.ChangeIndexType(ctx, "ivfflat", &database.VectorIndexOptions{Lists: 100})
	if err != nil {
		log.Printf("Warning: Index change failed (this is okay for small datasets): %v", err)
	} else {
		fmt.Println("Successfully switched to IVFFlat index")
	}

	fmt.Println("Switching back to HNSW index...")
	err = k.ChangeIndexType(ctx, "hnsw", &database.VectorIndexOptions{M: 16, EfConstruction: 64})
	if err != nil {
		log.Printf("Warning: Index change failed: %v", err)
	} else {
		fmt.Println("Successfully switched to HNSW index")
	}

	fmt.Println("\n=== Advanced Example Completed Successfully! ===")
	fmt.Println("\nKey features demonstrated:")
	fmt.Println("✓ Metadata extraction (inventors, assignees, evidence-backed edges)")
	fmt.Println("✓ Cross-document deduplication (same org in patent and press text)")
	fmt.Println("✓ Optional LLM and local NER extraction")
	fmt.Println("✓ Graph statistics and entity search")
	fmt.Println("✓ BFS traversal and relation-filtered neighbors")
	fmt.Println("✓ Index type switching (HNSW ↔ IVFFlat)")
}

func printDigest(digest *model.DocumentDigest) {
	fmt.Printf("'%s' [%s]: %d chunk(s), %d candidate(s)\n",
		digest.Title, digest.Strategy, digest.Chunks, digest.Candidates)
	fmt.Printf("  entities: %d created, %d merged, %d rejected, %d flagged for review\n",
		digest.Entities.Created, digest.Entities.Merged, digest.Entities.Rejected, digest.Entities.NeedsReview)
	fmt.Printf("  edges:    %d saved, %d refreshed, %d skipped\n",
		digest.Edges.Saved, digest.Edges.Refreshed, digest.Edges.Skipped)
}
