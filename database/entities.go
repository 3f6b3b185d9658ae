package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dfattal/kgraph/helper"
	"github.com/dfattal/kgraph/model"
	loadSql "github.com/dfattal/kgraph/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) (bool, error)
	UpdateEntityMerge(id uuid.UUID, name string, description string, authorityScore float64, mentionCount int) (*model.Entity, error)
	SelectEntity(id uuid.UUID) (*model.Entity, error)
	SelectEntityByName(name string, kind model.EntityKind) (*model.Entity, error)
	SelectEntityByAlias(alias string, kind model.EntityKind) (*model.Entity, error)
	SelectEntitiesByKind(kind model.EntityKind, limit int) ([]*model.Entity, error)
	SelectEntitiesBySearch(searchTerm string, limit int) ([]*model.Entity, error)
	SelectEntityKindCounts() (map[model.EntityKind]int, error)
	InsertEntityAlias(entityID uuid.UUID, alias string) (bool, error)
	SelectEntityAliases(entityID uuid.UUID) ([]string, error)
	DeleteEntity(id uuid.UUID) error
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' and 'entity_aliases' tables in the
// database. If the tables already exist, it does not create them again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Use the SQL init() function to create all tables, triggers, and indexes
	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		log.Panicf("error initializing entities table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity inserts a new entity. If an entity with the same normalized
// name and kind already exists, mention counts are added, the better
// authority score wins and the entity is updated in place. The return value
// reports whether a new row was created.
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) (bool, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3, $4, $5)`,
		entity.Name,
		entity.Kind,
		entity.Description,
		entity.AuthorityScore,
		entity.MentionCount,
	)

	var created bool
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Kind,
		&entity.Description,
		&entity.AuthorityScore,
		&entity.MentionCount,
		&entity.CreatedAt,
		&entity.UpdatedAt,
		&created,
	)
	if err != nil {
		return false, helper.NewError("scan", err)
	}

	return created, nil
}

// UpdateEntityMerge folds a merge result into an existing entity: canonical
// name, description, authority score and summed mention count. If the new
// name would collide with another entity of the same kind the rename is
// skipped and only the counters are updated.
func (h *EntitiesDBHandler) UpdateEntityMerge(id uuid.UUID, name string, description string, authorityScore float64, mentionCount int) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM update_entity_merge($1, $2, $3, $4, $5)`,
		id,
		name,
		description,
		authorityScore,
		mentionCount,
	)

	entity := &model.Entity{}
	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Kind,
		&entity.Description,
		&entity.AuthorityScore,
		&entity.MentionCount,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id uuid.UUID) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	entity, err := scanEntity(row)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByName retrieves an entity by normalized name and kind.
// Returns nil without error when no entity matches.
func (h *EntitiesDBHandler) SelectEntityByName(name string, kind model.EntityKind) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1, $2)`,
		name,
		kind,
	)

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntityByAlias retrieves the entity a stored alias points to, by
// normalized alias and kind. Returns nil without error when no alias matches.
func (h *EntitiesDBHandler) SelectEntityByAlias(alias string, kind model.EntityKind) (*model.Entity, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_alias($1, $2)`,
		alias,
		kind,
	)

	entity, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SelectEntitiesByKind retrieves all entities of a kind, most mentioned
// first. A limit <= 0 returns all.
func (h *EntitiesDBHandler) SelectEntitiesByKind(kind model.EntityKind, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_kind($1, $2)`,
		kind,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntitiesBySearch searches entities by name or alias
func (h *EntitiesDBHandler) SelectEntitiesBySearch(searchTerm string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_entities($1, $2)`,
		searchTerm,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// SelectEntityKindCounts returns the number of entities per kind
func (h *EntitiesDBHandler) SelectEntityKindCounts() (map[model.EntityKind]int, error) {
	rows, err := h.db.Instance.Query(`SELECT * FROM select_entity_kind_counts()`)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := map[model.EntityKind]int{}
	for rows.Next() {
		var kind model.EntityKind
		var count int
		err := rows.Scan(&kind, &count)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		counts[kind] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// InsertEntityAlias stores an alias for an entity. The return value reports
// whether the alias was new. Aliases that normalize to an empty string are
// ignored.
func (h *EntitiesDBHandler) InsertEntityAlias(entityID uuid.UUID, alias string) (bool, error) {
	var created bool
	err := h.db.Instance.QueryRow(
		`SELECT insert_entity_alias($1, $2)`,
		entityID,
		alias,
	).Scan(&created)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return created, nil
}

// SelectEntityAliases retrieves all aliases of an entity
func (h *EntitiesDBHandler) SelectEntityAliases(entityID uuid.UUID) ([]string, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entity_aliases($1)`,
		entityID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var aliases []string
	for rows.Next() {
		var alias string
		err := rows.Scan(&alias)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		aliases = append(aliases, alias)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return aliases, nil
}

// DeleteEntity deletes an entity by ID. Aliases and edges cascade.
func (h *EntitiesDBHandler) DeleteEntity(id uuid.UUID) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// scanner covers sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (*model.Entity, error) {
	entity := &model.Entity{}
	err := s.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Kind,
		&entity.Description,
		&entity.AuthorityScore,
		&entity.MentionCount,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entity, nil
}
