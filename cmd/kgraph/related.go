package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dfattal/kgraph"
	"github.com/dfattal/kgraph/core/graph"
	"github.com/dfattal/kgraph/model"
)

type relatedFlags struct {
	kind     string
	relation string
	depth    int
	asJSON   bool
}

func newRelatedCmd() *cobra.Command {
	var flags relatedFlags

	cmd := &cobra.Command{
		Use:   "related <entity-name>",
		Short: "Show entities connected to an entity",
		Long: `Walks the entity graph breadth-first from the named entity, following
edges in both directions.

Examples:
  kgraph related "Lume Pad 2"
  kgraph related "Leia Inc" --kind organization --depth 3
  kgraph related "Lume Pad 2" --relation made_by --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelated(cmd, args, flags)
		},
	}

	cmd.Flags().StringVar(&flags.kind, "kind", "", "Entity kind for exact lookup (person, organization, ...)")
	cmd.Flags().StringVar(&flags.relation, "relation", "", "Only follow this relation")
	cmd.Flags().IntVar(&flags.depth, "depth", 2, "Traversal depth (1-5)")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Output as JSON")

	return cmd
}

func runRelated(cmd *cobra.Command, args []string, flags relatedFlags) error {
	ctx := cmd.Context()
	entityName := args[0]

	if flags.depth < 1 || flags.depth > 5 {
		return errors.New("depth must be between 1 and 5")
	}

	var relations []model.Relation
	if flags.relation != "" {
		relation, err := model.ParseRelation(flags.relation)
		if err != nil {
			return err
		}
		relations = []model.Relation{relation}
	}

	return withKGraph(func(k *kgraph.KGraph) error {
		entity, err := lookupEntity(k, entityName, flags.kind)
		if err != nil {
			return err
		}

		results, err := k.BFSTraversal(ctx, entity.ID, flags.depth, relations, true)
		if err != nil {
			return fmt.Errorf("traversing graph: %w", err)
		}

		if flags.asJSON {
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Println(string(data))
			return nil
		}

		printRelated(entity, results)
		return nil
	})
}

// lookupEntity resolves a name to a persisted entity: exact name match when
// a kind is given, fuzzy search otherwise.
func lookupEntity(k *kgraph.KGraph, name, rawKind string) (*model.Entity, error) {
	if rawKind != "" {
		kind, err := model.ParseEntityKind(rawKind)
		if err != nil {
			return nil, err
		}
		entity, err := k.Entities.SelectEntityByName(name, kind)
		if err != nil {
			return nil, fmt.Errorf("looking up %s %q: %w", kind, name, err)
		}
		if entity == nil {
			return nil, fmt.Errorf("no %s named %q", kind, name)
		}
		return entity, nil
	}

	matches, err := k.SearchEntities(name, 1)
	if err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no entity found for %q", name)
	}
	return matches[0], nil
}

func printRelated(source *model.Entity, results []*graph.TraversalResult) {
	fmt.Printf("Entities related to %s (%s):\n", source.Name, source.Kind)

	if len(results) <= 1 {
		fmt.Println("  none")
		return
	}

	lastDistance := 0
	for _, result := range results {
		if result.Distance == 0 {
			continue
		}
		if result.Distance != lastDistance {
			fmt.Printf("  %d hop(s):\n", result.Distance)
			lastDistance = result.Distance
		}

		via := ""
		if result.Via != nil {
			via = fmt.Sprintf(" via %s", result.Via.Relation)
		}
		fmt.Printf("    %s (%s)%s\n", result.Entity.Name, result.Entity.Kind, via)
	}
}
