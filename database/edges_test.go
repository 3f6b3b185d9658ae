package database

import (
	"testing"

	"github.com/dfattal/kgraph/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdgesNewEdgesDBHandler(t *testing.T) {
	database := initDB(t)

	t.Run("Valid call NewEdgesDBHandler", func(t *testing.T) {
		// Entities and documents tables must exist first (foreign keys).
		_, err := NewDocumentsDBHandler(database, true)
		require.NoError(t, err, "Expected NewDocumentsDBHandler to not return an error")
		_, err = NewEntitiesDBHandler(database, true)
		require.NoError(t, err, "Expected NewEntitiesDBHandler to not return an error")

		edgesDbHandler, err := NewEdgesDBHandler(database, true)
		assert.NoError(t, err, "Expected NewEdgesDBHandler to not return an error")
		require.NotNil(t, edgesDbHandler, "Expected NewEdgesDBHandler to return a non-nil instance")
		require.NotNil(t, edgesDbHandler.db, "Expected NewEdgesDBHandler to have a non-nil database instance")
		require.NotNil(t, edgesDbHandler.db.Instance, "Expected NewEdgesDBHandler to have a non-nil database connection instance")
	})

	t.Run("Invalid call NewEdgesDBHandler with nil database", func(t *testing.T) {
		_, err := NewEdgesDBHandler(nil, false)
		assert.Error(t, err, "Expected error when creating EdgesDBHandler with nil database")
		assert.Contains(t, err.Error(), "database connection is nil", "Expected specific error message for nil database connection")
	})
}

// edgeTestEntities inserts one product and one organization to hang edges on.
func edgeTestEntities(t *testing.T, entitiesDbHandler *EntitiesDBHandler, suffix string) (*model.Entity, *model.Entity) {
	t.Helper()

	product := &model.Entity{
		Name:         "Edge Test Product " + suffix,
		Kind:         model.EntityKindProduct,
		MentionCount: 1,
	}
	_, err := entitiesDbHandler.InsertEntity(product)
	require.NoError(t, err, "Expected InsertEntity to not return an error")

	organization := &model.Entity{
		Name:         "Edge Test Organization " + suffix,
		Kind:         model.EntityKindOrganization,
		MentionCount: 1,
	}
	_, err = entitiesDbHandler.InsertEntity(organization)
	require.NoError(t, err, "Expected InsertEntity to not return an error")

	return product, organization
}

func TestEdgesUpsert(t *testing.T) {
	documentsDbHandler, _, entitiesDbHandler, edgesDbHandler := initHandlers(t)

	product, organization := edgeTestEntities(t, entitiesDbHandler, "Upsert")

	document := &model.Document{Title: "Edge evidence document", DocType: model.DocTypePress}
	err := documentsDbHandler.InsertDocument(document)
	require.NoError(t, err, "Expected InsertDocument to not return an error")

	t.Run("Upsert new edge", func(t *testing.T) {
		edge := &model.Edge{
			SourceEntityID:      product.ID,
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationMadeBy,
			DestinationEntityID: organization.ID,
			DestinationKind:     model.EntityKindOrganization,
			Weight:              0.7,
			EvidenceText:        "The product is made by the organization.",
			EvidenceDocumentID:  &document.RID,
		}
		created, err := edgesDbHandler.UpsertEdge(edge)
		assert.NoError(t, err, "Expected UpsertEdge to not return an error")
		assert.True(t, created, "Expected the first upsert to create the edge")
		assert.NotEqual(t, uuid.Nil, edge.ID, "Expected the upserted edge to have an ID")
		require.NotNil(t, edge.EvidenceDocumentID, "Expected the evidence document to be kept")
		assert.Equal(t, document.RID, *edge.EvidenceDocumentID, "Expected the evidence document RID to match")
	})

	t.Run("Upsert existing edge keeps highest weight", func(t *testing.T) {
		weaker := &model.Edge{
			SourceEntityID:      product.ID,
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationMadeBy,
			DestinationEntityID: organization.ID,
			DestinationKind:     model.EntityKindOrganization,
			Weight:              0.4,
		}
		created, err := edgesDbHandler.UpsertEdge(weaker)
		assert.NoError(t, err, "Expected UpsertEdge to not return an error")
		assert.False(t, created, "Expected the second upsert to refresh the existing edge")
		assert.Equal(t, 0.7, weaker.Weight, "Expected the higher weight to be kept")
		assert.Equal(t, "The product is made by the organization.", weaker.EvidenceText, "Expected existing evidence text to be kept")
		require.NotNil(t, weaker.EvidenceDocumentID, "Expected the evidence document to be kept")
		assert.Equal(t, document.RID, *weaker.EvidenceDocumentID, "Expected the evidence document RID to be kept")

		stronger := &model.Edge{
			SourceEntityID:      product.ID,
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationMadeBy,
			DestinationEntityID: organization.ID,
			DestinationKind:     model.EntityKindOrganization,
			Weight:              0.9,
		}
		created, err = edgesDbHandler.UpsertEdge(stronger)
		assert.NoError(t, err, "Expected UpsertEdge to not return an error")
		assert.False(t, created, "Expected the third upsert to refresh the existing edge")
		assert.Equal(t, 0.9, stronger.Weight, "Expected the weight to be raised")
	})

	t.Run("Upsert edge without evidence document", func(t *testing.T) {
		edge := &model.Edge{
			SourceEntityID:      product.ID,
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationDevelopedBy,
			DestinationEntityID: organization.ID,
			DestinationKind:     model.EntityKindOrganization,
			Weight:              0.5,
		}
		created, err := edgesDbHandler.UpsertEdge(edge)
		assert.NoError(t, err, "Expected UpsertEdge without evidence document to not return an error")
		assert.True(t, created, "Expected a different relation to create a new edge")
		assert.Nil(t, edge.EvidenceDocumentID, "Expected no evidence document on the edge")
	})

	t.Run("Upsert self loop", func(t *testing.T) {
		edge := &model.Edge{
			SourceEntityID:      product.ID,
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationRelatedTo,
			DestinationEntityID: product.ID,
			DestinationKind:     model.EntityKindProduct,
			Weight:              0.5,
		}
		_, err := edgesDbHandler.UpsertEdge(edge)
		assert.Error(t, err, "Expected error when upserting a self loop")
	})

	t.Run("Upsert edge with missing entity", func(t *testing.T) {
		edge := &model.Edge{
			SourceEntityID:      uuid.New(),
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationMadeBy,
			DestinationEntityID: organization.ID,
			DestinationKind:     model.EntityKindOrganization,
			Weight:              0.5,
		}
		_, err := edgesDbHandler.UpsertEdge(edge)
		assert.Error(t, err, "Expected error when upserting an edge for a non-existing entity")
	})

	// Cleanup
	entitiesDbHandler.DeleteEntity(product.ID)
	entitiesDbHandler.DeleteEntity(organization.ID)
	documentsDbHandler.DeleteDocument(document.RID)
}

func TestEdgesGet(t *testing.T) {
	documentsDbHandler, _, entitiesDbHandler, edgesDbHandler := initHandlers(t)

	product, organization := edgeTestEntities(t, entitiesDbHandler, "Get")

	document := &model.Document{Title: "Edge get evidence document", DocType: model.DocTypePress}
	err := documentsDbHandler.InsertDocument(document)
	require.NoError(t, err, "Expected InsertDocument to not return an error")

	edge := &model.Edge{
		SourceEntityID:      product.ID,
		SourceKind:          model.EntityKindProduct,
		Relation:            model.RelationMadeBy,
		DestinationEntityID: organization.ID,
		DestinationKind:     model.EntityKindOrganization,
		Weight:              0.8,
		EvidenceText:        "Made by, with evidence.",
		EvidenceDocumentID:  &document.RID,
	}
	_, err = edgesDbHandler.UpsertEdge(edge)
	require.NoError(t, err, "Expected UpsertEdge to not return an error")

	t.Run("Get edge by ID", func(t *testing.T) {
		retrieved, err := edgesDbHandler.SelectEdge(edge.ID)
		assert.NoError(t, err, "Expected SelectEdge to not return an error")
		require.NotNil(t, retrieved, "Expected SelectEdge to return a non-nil edge")
		assert.Equal(t, edge.SourceEntityID, retrieved.SourceEntityID, "Expected retrieved source to match")
		assert.Equal(t, edge.Relation, retrieved.Relation, "Expected retrieved relation to match")
		assert.Equal(t, edge.Weight, retrieved.Weight, "Expected retrieved weight to match")
	})

	t.Run("Get edge with missing ID", func(t *testing.T) {
		_, err := edgesDbHandler.SelectEdge(uuid.New())
		assert.Error(t, err, "Expected error when getting a non-existing edge")
	})

	t.Run("Get edges from entity", func(t *testing.T) {
		edges, err := edgesDbHandler.SelectEdgesFromEntity(product.ID)
		assert.NoError(t, err, "Expected SelectEdgesFromEntity to not return an error")
		require.Len(t, edges, 1, "Expected exactly one outgoing edge")
		assert.Equal(t, edge.ID, edges[0].ID, "Expected the outgoing edge to match")
	})

	t.Run("Get edges to entity", func(t *testing.T) {
		edges, err := edgesDbHandler.SelectEdgesToEntity(organization.ID)
		assert.NoError(t, err, "Expected SelectEdgesToEntity to not return an error")
		require.Len(t, edges, 1, "Expected exactly one incoming edge")
		assert.Equal(t, edge.ID, edges[0].ID, "Expected the incoming edge to match")
	})

	t.Run("Get edges by document", func(t *testing.T) {
		edges, err := edgesDbHandler.SelectEdgesByDocument(document.RID)
		assert.NoError(t, err, "Expected SelectEdgesByDocument to not return an error")
		require.Len(t, edges, 1, "Expected exactly one edge with this evidence document")
		assert.Equal(t, edge.ID, edges[0].ID, "Expected the evidence backed edge to match")
	})

	t.Run("Get all edges", func(t *testing.T) {
		edges, err := edgesDbHandler.SelectAllEdges(0, 0)
		assert.NoError(t, err, "Expected SelectAllEdges to not return an error")
		assert.GreaterOrEqual(t, len(edges), 1, "Expected at least the inserted edge")
	})

	t.Run("Get edge relation counts", func(t *testing.T) {
		counts, err := edgesDbHandler.SelectEdgeRelationCounts()
		assert.NoError(t, err, "Expected SelectEdgeRelationCounts to not return an error")
		assert.GreaterOrEqual(t, counts[model.RelationMadeBy], 1, "Expected the made_by count to cover the inserted edge")
	})

	t.Run("Edge survives evidence document deletion", func(t *testing.T) {
		err := documentsDbHandler.DeleteDocument(document.RID)
		require.NoError(t, err, "Expected DeleteDocument to not return an error")

		retrieved, err := edgesDbHandler.SelectEdge(edge.ID)
		assert.NoError(t, err, "Expected SelectEdge to not return an error after the document was deleted")
		require.NotNil(t, retrieved, "Expected the edge to survive the document deletion")
		assert.Nil(t, retrieved.EvidenceDocumentID, "Expected the evidence document reference to be cleared")
	})

	// Cleanup
	edgesDbHandler.DeleteEdge(edge.ID)
	entitiesDbHandler.DeleteEntity(product.ID)
	entitiesDbHandler.DeleteEntity(organization.ID)
}

func TestEdgesTraverse(t *testing.T) {
	_, _, entitiesDbHandler, edgesDbHandler := initHandlers(t)

	// Chain: product -> implements -> technology -> developed_by -> organization.
	product := &model.Entity{Name: "Traverse Test Product", Kind: model.EntityKindProduct}
	technology := &model.Entity{Name: "Traverse Test Technology", Kind: model.EntityKindTechnology}
	organization := &model.Entity{Name: "Traverse Test Organization", Kind: model.EntityKindOrganization}
	for _, entity := range []*model.Entity{product, technology, organization} {
		_, err := entitiesDbHandler.InsertEntity(entity)
		require.NoError(t, err, "Expected InsertEntity to not return an error")
	}

	first := &model.Edge{
		SourceEntityID:      product.ID,
		SourceKind:          model.EntityKindProduct,
		Relation:            model.RelationImplements,
		DestinationEntityID: technology.ID,
		DestinationKind:     model.EntityKindTechnology,
		Weight:              0.9,
	}
	second := &model.Edge{
		SourceEntityID:      technology.ID,
		SourceKind:          model.EntityKindTechnology,
		Relation:            model.RelationDevelopedBy,
		DestinationEntityID: organization.ID,
		DestinationKind:     model.EntityKindOrganization,
		Weight:              0.8,
	}
	for _, edge := range []*model.Edge{first, second} {
		_, err := edgesDbHandler.UpsertEdge(edge)
		require.NoError(t, err, "Expected UpsertEdge to not return an error")
	}

	t.Run("Traverse full chain", func(t *testing.T) {
		nodes, err := edgesDbHandler.TraverseFromEntity(product.ID, 3)
		assert.NoError(t, err, "Expected TraverseFromEntity to not return an error")
		require.Len(t, nodes, 2, "Expected to reach the technology and the organization")

		depths := map[uuid.UUID]int{}
		paths := map[uuid.UUID][]uuid.UUID{}
		for _, node := range nodes {
			depths[node.EntityID] = node.Depth
			paths[node.EntityID] = node.Path
		}
		assert.Equal(t, 1, depths[technology.ID], "Expected the technology at depth 1")
		assert.Equal(t, 2, depths[organization.ID], "Expected the organization at depth 2")
		assert.Equal(t, []uuid.UUID{product.ID, technology.ID}, paths[technology.ID], "Expected the path to the technology")
		assert.Equal(t, []uuid.UUID{product.ID, technology.ID, organization.ID}, paths[organization.ID], "Expected the path to the organization")
	})

	t.Run("Traverse with depth limit", func(t *testing.T) {
		nodes, err := edgesDbHandler.TraverseFromEntity(product.ID, 1)
		assert.NoError(t, err, "Expected TraverseFromEntity to not return an error")
		require.Len(t, nodes, 1, "Expected the depth limit to stop at the technology")
		assert.Equal(t, technology.ID, nodes[0].EntityID, "Expected only the direct neighbor")
	})

	t.Run("Traverse follows edges in both directions", func(t *testing.T) {
		nodes, err := edgesDbHandler.TraverseFromEntity(organization.ID, 3)
		assert.NoError(t, err, "Expected TraverseFromEntity to not return an error")
		require.Len(t, nodes, 2, "Expected to reach the technology and the product against edge direction")

		depths := map[uuid.UUID]int{}
		for _, node := range nodes {
			depths[node.EntityID] = node.Depth
		}
		assert.Equal(t, 1, depths[technology.ID], "Expected the technology at depth 1")
		assert.Equal(t, 2, depths[product.ID], "Expected the product at depth 2")
	})

	t.Run("Traverse from isolated entity", func(t *testing.T) {
		isolated := &model.Entity{Name: "Traverse Test Isolated", Kind: model.EntityKindComponent}
		_, err := entitiesDbHandler.InsertEntity(isolated)
		require.NoError(t, err, "Expected InsertEntity to not return an error")

		nodes, err := edgesDbHandler.TraverseFromEntity(isolated.ID, 3)
		assert.NoError(t, err, "Expected TraverseFromEntity to not return an error")
		assert.Empty(t, nodes, "Expected no nodes from an entity without edges")

		// Cleanup
		entitiesDbHandler.DeleteEntity(isolated.ID)
	})

	// Cleanup
	edgesDbHandler.DeleteEdge(first.ID)
	edgesDbHandler.DeleteEdge(second.ID)
	entitiesDbHandler.DeleteEntity(product.ID)
	entitiesDbHandler.DeleteEntity(technology.ID)
	entitiesDbHandler.DeleteEntity(organization.ID)
}

func TestEdgesDelete(t *testing.T) {
	_, _, entitiesDbHandler, edgesDbHandler := initHandlers(t)

	product, organization := edgeTestEntities(t, entitiesDbHandler, "Delete")

	t.Run("Delete edge", func(t *testing.T) {
		edge := &model.Edge{
			SourceEntityID:      product.ID,
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationMadeBy,
			DestinationEntityID: organization.ID,
			DestinationKind:     model.EntityKindOrganization,
			Weight:              0.5,
		}
		_, err := edgesDbHandler.UpsertEdge(edge)
		require.NoError(t, err, "Expected UpsertEdge to not return an error")

		err = edgesDbHandler.DeleteEdge(edge.ID)
		assert.NoError(t, err, "Expected DeleteEdge to not return an error")

		_, err = edgesDbHandler.SelectEdge(edge.ID)
		assert.Error(t, err, "Expected error when getting the deleted edge")
	})

	t.Run("Delete entity cascades to edges", func(t *testing.T) {
		edge := &model.Edge{
			SourceEntityID:      product.ID,
			SourceKind:          model.EntityKindProduct,
			Relation:            model.RelationDevelopedBy,
			DestinationEntityID: organization.ID,
			DestinationKind:     model.EntityKindOrganization,
			Weight:              0.5,
		}
		_, err := edgesDbHandler.UpsertEdge(edge)
		require.NoError(t, err, "Expected UpsertEdge to not return an error")

		err = entitiesDbHandler.DeleteEntity(organization.ID)
		require.NoError(t, err, "Expected DeleteEntity to not return an error")

		_, err = edgesDbHandler.SelectEdge(edge.ID)
		assert.Error(t, err, "Expected the edge to be gone after the entity was deleted")
	})

	// Cleanup
	entitiesDbHandler.DeleteEntity(product.ID)
	entitiesDbHandler.DeleteEntity(organization.ID)
}
