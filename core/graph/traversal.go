package graph

import (
	"context"

	"github.com/google/uuid"

	"github.com/dfattal/kgraph/model"
)

// GraphStore defines the interface for entity graph operations
type GraphStore interface {
	GetEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error)
	GetEdgesFromEntity(ctx context.Context, entityID uuid.UUID, relations []model.Relation, followReverse bool) ([]*model.Edge, error)
}

// TraversalResult contains an entity and its distance from the source
type TraversalResult struct {
	Entity   *model.Entity
	Distance int
	Path     []uuid.UUID // Path from source to this entity
	Via      *model.Edge // Edge that reached this entity, nil for the source
}

// BFS performs breadth-first search from a source entity
func BFS(ctx context.Context, db GraphStore, sourceID uuid.UUID, maxHops int, relations []model.Relation, followReverse bool) ([]*TraversalResult, error) {
	visited := make(map[uuid.UUID]bool)
	queue := []TraversalResult{{
		Entity:   nil,
		Distance: 0,
		Path:     []uuid.UUID{sourceID},
	}}

	// Get source entity
	sourceEntity, err := db.GetEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	queue[0].Entity = sourceEntity

	var results []*TraversalResult
	visited[sourceID] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if current.Distance >= maxHops {
			continue
		}

		// Get edges touching the current entity
		edges, err := db.GetEdgesFromEntity(ctx, current.Entity.ID, relations, followReverse)
		if err != nil {
			return nil, err
		}

		// Process each edge
		for _, edge := range edges {
			targetID, ok := otherEndpoint(edge, current.Entity.ID, followReverse)
			if !ok {
				continue
			}

			// Skip if already visited
			if visited[targetID] {
				continue
			}

			// Get target entity
			targetEntity, err := db.GetEntity(ctx, targetID)
			if err != nil {
				continue // Skip if entity not found
			}

			visited[targetID] = true

			// Create new path
			newPath := make([]uuid.UUID, len(current.Path))
			copy(newPath, current.Path)
			newPath = append(newPath, targetID)

			queue = append(queue, TraversalResult{
				Entity:   targetEntity,
				Distance: current.Distance + 1,
				Path:     newPath,
				Via:      edge,
			})
		}
	}

	return results, nil
}

// DFS performs depth-first search from a source entity
func DFS(ctx context.Context, db GraphStore, sourceID uuid.UUID, maxHops int, relations []model.Relation, followReverse bool) ([]*TraversalResult, error) {
	visited := make(map[uuid.UUID]bool)
	var results []*TraversalResult

	// Get source entity
	sourceEntity, err := db.GetEntity(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	// Start recursive DFS
	dfsRecursive(ctx, db, sourceEntity, nil, 0, maxHops, []uuid.UUID{sourceID}, relations, followReverse, visited, &results)

	return results, nil
}

// dfsRecursive is the recursive helper for DFS
func dfsRecursive(
	ctx context.Context,
	db GraphStore,
	current *model.Entity,
	via *model.Edge,
	distance int,
	maxHops int,
	path []uuid.UUID,
	relations []model.Relation,
	followReverse bool,
	visited map[uuid.UUID]bool,
	results *[]*TraversalResult,
) {
	// Mark as visited
	visited[current.ID] = true

	// Add to results
	pathCopy := make([]uuid.UUID, len(path))
	copy(pathCopy, path)
	*results = append(*results, &TraversalResult{
		Entity:   current,
		Distance: distance,
		Path:     pathCopy,
		Via:      via,
	})

	// Stop if we've reached max hops
	if distance >= maxHops {
		return
	}

	// Get edges touching the current entity
	edges, err := db.GetEdgesFromEntity(ctx, current.ID, relations, followReverse)
	if err != nil {
		return
	}

	// Process each edge
	for _, edge := range edges {
		targetID, ok := otherEndpoint(edge, current.ID, followReverse)
		if !ok {
			continue
		}

		// Skip if already visited
		if visited[targetID] {
			continue
		}

		// Get target entity
		targetEntity, err := db.GetEntity(ctx, targetID)
		if err != nil {
			continue // Skip if entity not found
		}

		// Create new path
		newPath := make([]uuid.UUID, len(path))
		copy(newPath, path)
		newPath = append(newPath, targetID)

		// Recurse
		dfsRecursive(ctx, db, targetEntity, edge, distance+1, maxHops, newPath, relations, followReverse, visited, results)
	}
}

// GetNeighbors retrieves immediate neighbors (1-hop) of an entity
func GetNeighbors(ctx context.Context, db GraphStore, entityID uuid.UUID, relations []model.Relation, followReverse bool) ([]*model.Entity, error) {
	results, err := BFS(ctx, db, entityID, 1, relations, followReverse)
	if err != nil {
		return nil, err
	}

	// Skip the source entity itself (first result)
	neighbors := make([]*model.Entity, 0, len(results)-1)
	for i := 1; i < len(results); i++ {
		neighbors = append(neighbors, results[i].Entity)
	}

	return neighbors, nil
}

// otherEndpoint returns the far end of an edge relative to the current
// entity. Edges are directed, the reverse direction is only followed when
// requested.
func otherEndpoint(edge *model.Edge, currentID uuid.UUID, followReverse bool) (uuid.UUID, bool) {
	if edge.SourceEntityID == currentID {
		return edge.DestinationEntityID, true
	}
	if followReverse && edge.DestinationEntityID == currentID {
		return edge.SourceEntityID, true
	}
	return uuid.Nil, false
}
