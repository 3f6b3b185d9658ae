package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dfattal/kgraph"
	"github.com/dfattal/kgraph/model"
)

type statsFlags struct {
	asJSON bool
}

func newStatsCmd() *cobra.Command {
	var flags statsFlags

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show entity and relationship counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(flags)
		},
	}

	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Output as JSON")

	return cmd
}

func runStats(flags statsFlags) error {
	return withKGraph(func(k *kgraph.KGraph) error {
		stats, err := k.Stats()
		if err != nil {
			return fmt.Errorf("collecting stats: %w", err)
		}

		if flags.asJSON {
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		printStats(stats)
		return nil
	})
}

func printStats(stats *kgraph.GraphStats) {
	entityTotal := 0
	entityKinds := make([]string, 0, len(stats.Entities))
	for kind, count := range stats.Entities {
		entityKinds = append(entityKinds, string(kind))
		entityTotal += count
	}
	sort.Strings(entityKinds)

	fmt.Printf("Entities (%d):\n", entityTotal)
	for _, kind := range entityKinds {
		fmt.Printf("  %-14s %d\n", kind, stats.Entities[model.EntityKind(kind)])
	}

	edgeTotal := 0
	relations := make([]string, 0, len(stats.Edges))
	for relation, count := range stats.Edges {
		relations = append(relations, string(relation))
		edgeTotal += count
	}
	sort.Strings(relations)

	fmt.Printf("Edges (%d):\n", edgeTotal)
	for _, relation := range relations {
		fmt.Printf("  %-14s %d\n", relation, stats.Edges[model.Relation(relation)])
	}
}
