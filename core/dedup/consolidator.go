package dedup

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

// EntityStore is the slice of the entities handler the consolidator needs.
type EntityStore interface {
	InsertEntity(entity *model.Entity) (bool, error)
	UpdateEntityMerge(id uuid.UUID, name string, description string, authorityScore float64, mentionCount int) (*model.Entity, error)
	SelectEntitiesByKind(kind model.EntityKind, limit int) ([]*model.Entity, error)
	InsertEntityAlias(entityID uuid.UUID, alias string) (bool, error)
}

var (
	// $1199, $1,199.99
	priceRegex = regexp.MustCompile(`^\$\d{1,3}(,\d{3})*(\.\d+)?$`)
	// 49-inch, 120hz, 4k, 1600 nits
	specTokenRegex = regexp.MustCompile(`^\d+(\.\d+)?\s*-?\s*(inch(es)?|hz|khz|k|p|nits?|nm|mm|cm|ms|fps|ppi|mah|mp|gb|tb|ghz|mhz|w|wh)$`)
)

// Consolidator decides create, merge or reject for accepted candidates
// against the persisted entity pool and applies the decision to the store.
// Decisions for one kind are serialized so concurrent documents cannot both
// create a row for the same concept; the unique constraint on
// (normalized_name, kind) backstops anything that slips through.
type Consolidator struct {
	store      EntityStore
	scorer     *Scorer
	vocabulary *vocab.Config
	log        *slog.Logger

	mu        sync.Mutex
	kindLocks map[model.EntityKind]*sync.Mutex
}

// NewConsolidator creates a consolidator over the given entity store. A nil
// vocabulary uses the embedded defaults.
func NewConsolidator(store EntityStore, vocabulary *vocab.Config, logger *slog.Logger) *Consolidator {
	if vocabulary == nil {
		vocabulary = vocab.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{
		store:      store,
		scorer:     NewScorer(vocabulary),
		vocabulary: vocabulary,
		log:        logger,
		kindLocks:  map[model.EntityKind]*sync.Mutex{},
	}
}

// Consolidate runs the artifact rejection pass, scores the candidate against
// all persisted same-kind entities and applies the decision. docRID only
// annotates the log lines.
func (c *Consolidator) Consolidate(cand *model.CandidateEntity, docRID uuid.UUID) (*model.DedupResult, error) {
	if reason, rejected := c.artifactReject(cand); rejected {
		c.log.Debug("Rejected extraction artifact", "name", cand.Name, "kind", cand.Kind, "reason", reason, "document", docRID)
		return &model.DedupResult{
			Action:      model.DedupActionReject,
			Explanation: reason,
		}, nil
	}

	lock := c.kindLock(cand.Kind)
	lock.Lock()
	defer lock.Unlock()

	pool, err := c.store.SelectEntitiesByKind(cand.Kind, 0)
	if err != nil {
		return nil, fmt.Errorf("loading %v pool: %w", cand.Kind, err)
	}

	var best *model.Entity
	var bestScore float64
	var bestTrace string
	for _, existing := range pool {
		score, trace := c.scorer.Score(cand.Name, existing.Name, cand.Kind)
		if score > bestScore {
			best, bestScore, bestTrace = existing, score, trace
		}
	}

	switch {
	case best != nil && bestScore >= MergeThreshold:
		return c.merge(cand, best, bestScore, bestTrace, docRID)
	case best != nil && bestScore >= CreateThreshold:
		c.log.Debug("Duplicate suspect needs review",
			"name", cand.Name, "kind", cand.Kind, "against", best.Name, "similarity", bestScore, "document", docRID)
		return &model.DedupResult{
			Action:      model.DedupActionReject,
			Canonical:   best,
			Similarity:  bestScore,
			Explanation: fmt.Sprintf("ambiguous match against %q (%s)", best.Name, bestTrace),
			NeedsReview: true,
		}, nil
	default:
		return c.create(cand, bestScore, docRID)
	}
}

// artifactReject drops extraction noise before any scoring: names whose core
// is a generic term, a price or a bare specification token.
func (c *Consolidator) artifactReject(cand *model.CandidateEntity) (string, bool) {
	normalized := model.NormalizeEntityName(cand.Name)
	if normalized == "" {
		return "empty name", true
	}
	core, _ := c.vocabulary.StripArtifactPrefixes(normalized)

	switch {
	case c.vocabulary.IsGenericTerm(core):
		return fmt.Sprintf("generic term %q", core), true
	case priceRegex.MatchString(core):
		return fmt.Sprintf("price pattern %q", core), true
	case specTokenRegex.MatchString(core):
		return fmt.Sprintf("specification token %q", core), true
	}
	return "", false
}

func (c *Consolidator) kindLock(kind model.EntityKind) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.kindLocks[kind]
	if !ok {
		lock = &sync.Mutex{}
		c.kindLocks[kind] = lock
	}
	return lock
}

// create persists the candidate as a new entity. The store upserts on
// (normalized_name, kind), so a concurrent insert of the same concept comes
// back as a conflict merge and is tallied as such.
func (c *Consolidator) create(cand *model.CandidateEntity, bestScore float64, docRID uuid.UUID) (*model.DedupResult, error) {
	entity := cand.Entity()
	created, err := c.store.InsertEntity(entity)
	if err != nil {
		return nil, fmt.Errorf("inserting entity %q: %w", cand.Name, err)
	}

	c.saveAliases(entity.ID, entity.Name, cand.Aliases)

	if !created {
		c.log.Debug("Entity converged on existing row",
			"name", cand.Name, "kind", cand.Kind, "canonical", entity.Name, "document", docRID)
		return &model.DedupResult{
			Action:      model.DedupActionMerge,
			Canonical:   entity,
			Similarity:  1,
			Explanation: "existing row with same normalized name",
		}, nil
	}

	c.log.Debug("Created entity", "name", entity.Name, "kind", entity.Kind, "document", docRID)
	return &model.DedupResult{
		Action:      model.DedupActionCreate,
		Canonical:   entity,
		Similarity:  bestScore,
		Explanation: "no similar entity",
	}, nil
}

// merge folds the candidate into the best match: canonical name selection,
// max authority, summed mention counts, loser recorded as alias.
func (c *Consolidator) merge(cand *model.CandidateEntity, existing *model.Entity, score float64, trace string, docRID uuid.UUID) (*model.DedupResult, error) {
	winner := c.canonicalName(cand, existing)
	loser := strings.TrimSpace(cand.Name)
	if winner == loser {
		loser = existing.Name
	}

	authority := existing.AuthorityScore
	if cand.AuthorityScore > authority {
		authority = cand.AuthorityScore
	}

	mentions := cand.MentionCount
	if mentions < 1 {
		mentions = 1
	}

	description := existing.Description
	if description == "" {
		description = cand.Description
	}

	merged, err := c.store.UpdateEntityMerge(existing.ID, winner, description, authority, existing.MentionCount+mentions)
	if err != nil {
		return nil, fmt.Errorf("merging entity %q into %q: %w", cand.Name, existing.Name, err)
	}

	if model.NormalizeEntityName(loser) != model.NormalizeEntityName(merged.Name) {
		c.saveAliases(merged.ID, merged.Name, []string{loser})
	}
	c.saveAliases(merged.ID, merged.Name, cand.Aliases)

	c.log.Debug("Merged entity",
		"name", cand.Name, "kind", cand.Kind, "canonical", merged.Name, "similarity", score, "document", docRID)
	return &model.DedupResult{
		Action:      model.DedupActionMerge,
		Canonical:   merged,
		Similarity:  score,
		Explanation: trace,
	}, nil
}

// canonicalName picks the surviving name form: no artifact prefix beats one,
// then the clearly longer name, then the higher authority score.
func (c *Consolidator) canonicalName(cand *model.CandidateEntity, existing *model.Entity) string {
	candName := strings.TrimSpace(cand.Name)
	candArtifact := c.vocabulary.HasArtifactPrefix(model.NormalizeEntityName(candName))
	existingArtifact := c.vocabulary.HasArtifactPrefix(model.NormalizeEntityName(existing.Name))

	if candArtifact != existingArtifact {
		if candArtifact {
			return existing.Name
		}
		return candName
	}

	lengthDiff := len([]rune(candName)) - len([]rune(existing.Name))
	if lengthDiff > 2 {
		return candName
	}
	if lengthDiff < -2 {
		return existing.Name
	}

	if cand.AuthorityScore > existing.AuthorityScore {
		return candName
	}
	return existing.Name
}

// saveAliases records alternate forms, skipping anything that normalizes to
// the canonical name itself. Alias failures are logged, never fatal.
func (c *Consolidator) saveAliases(entityID uuid.UUID, canonical string, aliases []string) {
	canonicalNorm := model.NormalizeEntityName(canonical)
	for _, alias := range aliases {
		if model.NormalizeEntityName(alias) == canonicalNorm {
			continue
		}
		if _, err := c.store.InsertEntityAlias(entityID, alias); err != nil {
			c.log.Warn("Failed to save alias", "alias", alias, "entity", entityID, "error", err)
		}
	}
}
