package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfattal/kgraph/model"
)

// MockGraphStore is a mock implementation of GraphStore for testing
type MockGraphStore struct {
	entities map[uuid.UUID]*model.Entity
	edges    []*model.Edge
}

func NewMockGraphStore() *MockGraphStore {
	return &MockGraphStore{
		entities: make(map[uuid.UUID]*model.Entity),
	}
}

func (m *MockGraphStore) addEntity(name string, kind model.EntityKind) *model.Entity {
	entity := &model.Entity{ID: uuid.New(), Name: name, Kind: kind}
	m.entities[entity.ID] = entity
	return entity
}

func (m *MockGraphStore) addEdge(src *model.Entity, relation model.Relation, dst *model.Entity) *model.Edge {
	edge := &model.Edge{
		ID:                  uuid.New(),
		SourceEntityID:      src.ID,
		SourceKind:          src.Kind,
		Relation:            relation,
		DestinationEntityID: dst.ID,
		DestinationKind:     dst.Kind,
		Weight:              0.8,
	}
	m.edges = append(m.edges, edge)
	return edge
}

func (m *MockGraphStore) GetEntity(ctx context.Context, id uuid.UUID) (*model.Entity, error) {
	entity, ok := m.entities[id]
	if !ok {
		return nil, assert.AnError
	}
	return entity, nil
}

func (m *MockGraphStore) GetEdgesFromEntity(ctx context.Context, entityID uuid.UUID, relations []model.Relation, followReverse bool) ([]*model.Edge, error) {
	wanted := make(map[model.Relation]bool, len(relations))
	for _, relation := range relations {
		wanted[relation] = true
	}

	var edges []*model.Edge
	for _, edge := range m.edges {
		if edge.SourceEntityID != entityID && !(followReverse && edge.DestinationEntityID == entityID) {
			continue
		}
		if len(wanted) > 0 && !wanted[edge.Relation] {
			continue
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// testGraph builds: LumePad -made_by-> Leia, LumePad -implements-> DLB,
// DLB -developed_by-> Leia, David -affiliated_with-> Leia
func testGraph() (*MockGraphStore, map[string]*model.Entity) {
	mockDB := NewMockGraphStore()

	lumePad := mockDB.addEntity("Lume Pad 2", model.EntityKindProduct)
	leia := mockDB.addEntity("Leia Inc", model.EntityKindOrganization)
	dlb := mockDB.addEntity("Diffractive Lightfield Backlighting", model.EntityKindTechnology)
	david := mockDB.addEntity("David Fattal", model.EntityKindPerson)

	mockDB.addEdge(lumePad, model.RelationMadeBy, leia)
	mockDB.addEdge(lumePad, model.RelationImplements, dlb)
	mockDB.addEdge(dlb, model.RelationDevelopedBy, leia)
	mockDB.addEdge(david, model.RelationAffiliatedWith, leia)

	return mockDB, map[string]*model.Entity{
		"lumePad": lumePad,
		"leia":    leia,
		"dlb":     dlb,
		"david":   david,
	}
}

func TestBFS(t *testing.T) {
	mockDB, entities := testGraph()

	t.Run("BFS from source with max hops 1", func(t *testing.T) {
		results, err := BFS(context.Background(), mockDB, entities["lumePad"].ID, 1, []model.Relation{}, false)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.NotEmpty(t, results, "Expected results")
		assert.Equal(t, entities["lumePad"].ID, results[0].Entity.ID, "Expected first result to be source")
		assert.Equal(t, 0, results[0].Distance, "Expected source distance to be 0")

		// Should include LumePad, Leia, and DLB (1-hop neighbors)
		assert.Len(t, results, 3, "Expected source plus two neighbors")
	})

	t.Run("BFS respects edge direction without reverse", func(t *testing.T) {
		// all edges point at Leia, nothing leaves it
		results, err := BFS(context.Background(), mockDB, entities["leia"].ID, 2, []model.Relation{}, false)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 1, "Expected only the source")
	})

	t.Run("BFS follows reverse edges when requested", func(t *testing.T) {
		results, err := BFS(context.Background(), mockDB, entities["leia"].ID, 1, []model.Relation{}, true)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 4, "Expected everything pointing at Leia plus Leia")

		for _, result := range results[1:] {
			assert.Equal(t, 1, result.Distance, "Expected direct neighbors at distance 1")
			require.NotNil(t, result.Via, "Expected the reaching edge to be recorded")
		}
	})

	t.Run("BFS with relation filter", func(t *testing.T) {
		results, err := BFS(context.Background(), mockDB, entities["lumePad"].ID, 1, []model.Relation{model.RelationMadeBy}, false)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 2, "Expected source and the made_by neighbor only")
		assert.Equal(t, entities["leia"].ID, results[1].Entity.ID)
		assert.Equal(t, model.RelationMadeBy, results[1].Via.Relation)
	})

	t.Run("BFS from isolated node", func(t *testing.T) {
		isolated := mockDB.addEntity("Isolated", model.EntityKindDataset)

		results, err := BFS(context.Background(), mockDB, isolated.ID, 2, []model.Relation{}, false)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 1, "Expected only source node for isolated entity")
		assert.Equal(t, isolated.ID, results[0].Entity.ID)
		assert.Equal(t, 0, results[0].Distance)
	})

	t.Run("BFS with max hops 0", func(t *testing.T) {
		results, err := BFS(context.Background(), mockDB, entities["lumePad"].ID, 0, []model.Relation{}, false)

		assert.NoError(t, err, "Expected BFS to not return an error")
		require.Len(t, results, 1, "Expected only source node for max hops 0")
		assert.Equal(t, entities["lumePad"].ID, results[0].Entity.ID)
	})

	t.Run("BFS paths lead back to the source", func(t *testing.T) {
		results, err := BFS(context.Background(), mockDB, entities["lumePad"].ID, 2, []model.Relation{}, true)

		assert.NoError(t, err, "Expected BFS to not return an error")
		for _, result := range results {
			require.NotEmpty(t, result.Path)
			assert.Equal(t, entities["lumePad"].ID, result.Path[0], "Expected every path to start at the source")
			assert.Equal(t, result.Entity.ID, result.Path[len(result.Path)-1], "Expected every path to end at the entity")
			assert.Len(t, result.Path, result.Distance+1)
		}
	})

	t.Run("BFS with unknown source returns error", func(t *testing.T) {
		_, err := BFS(context.Background(), mockDB, uuid.New(), 1, []model.Relation{}, false)

		assert.Error(t, err, "Expected an error for an unknown source entity")
	})
}

func TestDFS(t *testing.T) {
	mockDB, entities := testGraph()

	t.Run("DFS visits reachable entities once", func(t *testing.T) {
		results, err := DFS(context.Background(), mockDB, entities["lumePad"].ID, 3, []model.Relation{}, false)

		assert.NoError(t, err, "Expected DFS to not return an error")
		require.NotEmpty(t, results)
		assert.Equal(t, entities["lumePad"].ID, results[0].Entity.ID, "Expected first result to be source")

		seen := map[uuid.UUID]int{}
		for _, result := range results {
			seen[result.Entity.ID]++
		}
		for id, count := range seen {
			assert.Equal(t, 1, count, "Expected entity %s to be visited once", id)
		}

		// LumePad, Leia, DLB reachable forward
		assert.Len(t, results, 3)
	})

	t.Run("DFS with max hops 0", func(t *testing.T) {
		results, err := DFS(context.Background(), mockDB, entities["lumePad"].ID, 0, []model.Relation{}, false)

		assert.NoError(t, err, "Expected DFS to not return an error")
		require.Len(t, results, 1, "Expected only the source")
	})

	t.Run("DFS records the reaching edge", func(t *testing.T) {
		results, err := DFS(context.Background(), mockDB, entities["lumePad"].ID, 2, []model.Relation{}, false)

		assert.NoError(t, err, "Expected DFS to not return an error")
		assert.Nil(t, results[0].Via, "Expected no reaching edge for the source")
		for _, result := range results[1:] {
			assert.NotNil(t, result.Via)
		}
	})

	t.Run("DFS with unknown source returns error", func(t *testing.T) {
		_, err := DFS(context.Background(), mockDB, uuid.New(), 1, []model.Relation{}, false)

		assert.Error(t, err, "Expected an error for an unknown source entity")
	})
}

func TestGetNeighbors(t *testing.T) {
	mockDB, entities := testGraph()

	t.Run("Neighbors exclude the source entity", func(t *testing.T) {
		neighbors, err := GetNeighbors(context.Background(), mockDB, entities["lumePad"].ID, []model.Relation{}, false)

		assert.NoError(t, err, "Expected GetNeighbors to not return an error")
		require.Len(t, neighbors, 2)
		for _, neighbor := range neighbors {
			assert.NotEqual(t, entities["lumePad"].ID, neighbor.ID, "Expected the source to be excluded")
		}
	})

	t.Run("Reverse neighbors of a hub", func(t *testing.T) {
		neighbors, err := GetNeighbors(context.Background(), mockDB, entities["leia"].ID, []model.Relation{}, true)

		assert.NoError(t, err, "Expected GetNeighbors to not return an error")
		assert.Len(t, neighbors, 3, "Expected everything pointing at Leia")
	})

	t.Run("No neighbors without reverse for a sink", func(t *testing.T) {
		neighbors, err := GetNeighbors(context.Background(), mockDB, entities["leia"].ID, []model.Relation{}, false)

		assert.NoError(t, err, "Expected GetNeighbors to not return an error")
		assert.Empty(t, neighbors)
	})
}
