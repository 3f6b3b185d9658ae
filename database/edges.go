package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/model"
	loadSql "github.com/dfattal/kgraph/sql"
)

// EdgesDBHandlerFunctions defines the interface for Edges database operations.
type EdgesDBHandlerFunctions interface {
	UpsertEdge(edge *model.Edge) (bool, error)
	SelectEdge(id uuid.UUID) (*model.Edge, error)
	SelectEdgesFromEntity(entityID uuid.UUID) ([]*model.Edge, error)
	SelectEdgesToEntity(entityID uuid.UUID) ([]*model.Edge, error)
	SelectEdgesByDocument(documentRID uuid.UUID) ([]*model.Edge, error)
	SelectAllEdges(limit int, offset int) ([]*model.Edge, error)
	SelectEdgeRelationCounts() (map[model.Relation]int, error)
	TraverseFromEntity(startID uuid.UUID, maxDepth int) ([]*model.TraversalNode, error)
	DeleteEdge(id uuid.UUID) error
}

// EdgesDBHandler handles edge-related database operations
type EdgesDBHandler struct {
	db *helper.Database
}

// NewEdgesDBHandler creates a new edges database handler.
// It initializes the database connection and loads edge-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEdgesDBHandler(db *helper.Database, force bool) (*EdgesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	edgesDbHandler := &EdgesDBHandler{
		db: db,
	}

	err := loadSql.LoadEdgesSql(edgesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load edges sql", err)
	}

	err = edgesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EdgesDBHandler")

	return edgesDbHandler, nil
}

// CreateTable creates the 'edges' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EdgesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_edges();`)
	if err != nil {
		log.Panicf("error initializing edges table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table edges")

	return nil
}

// UpsertEdge inserts an edge or refreshes the existing one with the same
// source, relation and destination. The return value reports whether a new
// row was created.
func (h *EdgesDBHandler) UpsertEdge(edge *model.Edge) (bool, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_edge($1, $2, $3, $4, $5, $6, $7, $8)`,
		edge.SourceEntityID,
		edge.SourceKind,
		edge.Relation,
		edge.DestinationEntityID,
		edge.DestinationKind,
		edge.Weight,
		edge.EvidenceText,
		edge.EvidenceDocumentID,
	)

	var created bool
	err := row.Scan(
		&edge.ID,
		&edge.SourceEntityID,
		&edge.SourceKind,
		&edge.Relation,
		&edge.DestinationEntityID,
		&edge.DestinationKind,
		&edge.Weight,
		&edge.EvidenceText,
		&edge.EvidenceDocumentID,
		&edge.CreatedAt,
		&edge.UpdatedAt,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// SelectEdge retrieves an edge by ID
func (h *EdgesDBHandler) SelectEdge(id uuid.UUID) (*model.Edge, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_edge($1)`,
		id,
	)

	edge, err := scanEdge(row)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return edge, nil
}

// SelectEdgesFromEntity retrieves all edges leaving an entity
func (h *EdgesDBHandler) SelectEdgesFromEntity(entityID uuid.UUID) ([]*model.Edge, error) {
	return h.selectEdges(`SELECT * FROM select_edges_from_entity($1)`, entityID)
}

// SelectEdgesToEntity retrieves all edges pointing at an entity
func (h *EdgesDBHandler) SelectEdgesToEntity(entityID uuid.UUID) ([]*model.Edge, error) {
	return h.selectEdges(`SELECT * FROM select_edges_to_entity($1)`, entityID)
}

// SelectEdgesByDocument retrieves all edges whose evidence came from a
// document
func (h *EdgesDBHandler) SelectEdgesByDocument(documentRID uuid.UUID) ([]*model.Edge, error) {
	return h.selectEdges(`SELECT * FROM select_edges_by_document($1)`, documentRID)
}

// SelectAllEdges retrieves all edges with pagination
func (h *EdgesDBHandler) SelectAllEdges(limit int, offset int) ([]*model.Edge, error) {
	return h.selectEdges(`SELECT * FROM select_all_edges($1, $2)`, limit, offset)
}

func (h *EdgesDBHandler) selectEdges(query string, args ...any) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(query, args...)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge, err := scanEdge(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectEdgeRelationCounts returns the number of edges per relation
func (h *EdgesDBHandler) SelectEdgeRelationCounts() (map[model.Relation]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_edge_relation_counts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[model.Relation]int{}
	for rows.Next() {
		var relation model.Relation
		var count int
		err := rows.Scan(&relation, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		counts[relation] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// TraverseFromEntity walks the graph outward from an entity up to maxDepth
// hops, following edges in both directions. Each reachable entity is
// returned once, at its minimal depth, with the path that reached it.
func (h *EdgesDBHandler) TraverseFromEntity(startID uuid.UUID, maxDepth int) ([]*model.TraversalNode, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM traverse_entities($1, $2)`,
		startID,
		maxDepth,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var nodes []*model.TraversalNode
	for rows.Next() {
		node := &model.TraversalNode{}
		var pathArray []byte
		err := rows.Scan(
			&node.EntityID,
			&node.Depth,
			&pathArray,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		if err := parseUUIDArray(pathArray, &node.Path); err != nil {
			return nil, helper.NewError("parsing path array", err)
		}

		nodes = append(nodes, node)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return nodes, nil
}

// DeleteEdge deletes an edge by ID
func (h *EdgesDBHandler) DeleteEdge(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_edge($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

func scanEdge(s scanner) (*model.Edge, error) {
	edge := &model.Edge{}
	err := s.Scan(
		&edge.ID,
		&edge.SourceEntityID,
		&edge.SourceKind,
		&edge.Relation,
		&edge.DestinationEntityID,
		&edge.DestinationKind,
		&edge.Weight,
		&edge.EvidenceText,
		&edge.EvidenceDocumentID,
		&edge.CreatedAt,
		&edge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// parseUUIDArray parses the PostgreSQL array format {uuid1,uuid2,uuid3}
func parseUUIDArray(data []byte, result *[]uuid.UUID) error {
	str := string(data)
	if len(str) < 2 || str[0] != '{' || str[len(str)-1] != '}' {
		return helper.NewError("invalid array format", fmt.Errorf("%s", str))
	}

	str = str[1 : len(str)-1]
	if str == "" {
		*result = []uuid.UUID{}
		return nil
	}

	parts := strings.Split(str, ",")
	*result = make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.Trim(part, `"`))
		if err != nil {
			return helper.NewError(fmt.Sprintf("parsing UUID %s", part), err)
		}
		*result = append(*result, id)
	}

	return nil
}
