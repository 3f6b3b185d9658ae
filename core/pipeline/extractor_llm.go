package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dfattal/kgraph/llm"
	"github.com/dfattal/kgraph/model"
)

// existingEntityLimit caps how many known entities per kind are sent to the
// model as de-duplication guidance.
const existingEntityLimit = 30

// LLMExtractor sends the document to a language model and parses the strict
// JSON extraction contract. It is the only extractor producing non-metadata
// relationships at scale. On a failed call or unparseable output it falls
// back to the wrapped pattern extractor, ingestion never fails on the model.
type LLMExtractor struct {
	client   llm.Client
	fallback Extractor
	log      *slog.Logger
}

// NewLLMExtractor creates an LLM extractor with a fallback extractor for
// failed calls.
func NewLLMExtractor(client llm.Client, fallback Extractor, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMExtractor{
		client:   client,
		fallback: fallback,
		log:      logger,
	}
}

// Name implements Extractor.
func (e *LLMExtractor) Name() string {
	return "llm"
}

// Extract builds the extraction request, calls the model and validates the
// reply against the closed kind and relation sets. Entities with unknown
// kinds and edges with unknown relations or dangling temp ids are dropped
// with a logged reason.
func (e *LLMExtractor) Extract(ctx context.Context, in *Input) (*model.Extraction, error) {
	req := &llm.Request{
		Content: llm.TruncateContent(in.Content),
		Kinds:   model.AllEntityKinds(),
	}
	if in.Strategy == nil || in.Strategy.RelationshipExtraction {
		req.Constraints = model.RelationConstraints()
	}
	for _, kind := range model.AllEntityKinds() {
		existing := in.Existing[kind]
		if len(existing) > existingEntityLimit {
			existing = existing[:existingEntityLimit]
		}
		for _, entity := range existing {
			req.Existing = append(req.Existing, llm.ExistingEntity{
				Name: entity.Name,
				Kind: entity.Kind,
			})
		}
	}

	response, err := e.client.Extract(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if e.fallback == nil {
			return nil, err
		}
		e.log.Warn("LLM extraction failed, falling back to pattern extraction",
			slog.String("error", err.Error()))
		return e.fallback.Extract(ctx, in)
	}

	return e.convert(response, in.Content), nil
}

// convert validates the model reply. Temp ids come from the model itself
// (conventionally e1, e2, ...); entities without one get a synthesized id.
func (e *LLMExtractor) convert(response *llm.Response, content string) *model.Extraction {
	extraction := &model.Extraction{}
	known := map[string]bool{}

	for i, raw := range response.Entities {
		kind, err := model.ParseEntityKind(raw.Type)
		if err != nil {
			e.log.Debug("Dropping entity with unknown kind",
				slog.String("name", raw.Name),
				slog.String("type", raw.Type))
			continue
		}

		name := strings.TrimSpace(raw.Name)
		if name == "" {
			continue
		}

		tempID := strings.TrimSpace(raw.TempID)
		if tempID == "" {
			tempID = fmt.Sprintf("e%d", i+1)
		}
		if known[tempID] {
			e.log.Debug("Dropping entity with duplicate temp id",
				slog.String("temp_id", tempID),
				slog.String("name", name))
			continue
		}
		known[tempID] = true

		mentions := strings.Count(content, name)
		if mentions < 1 {
			mentions = 1
		}

		extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
			TempID:         tempID,
			Name:           name,
			Kind:           kind,
			Description:    strings.TrimSpace(raw.Description),
			Aliases:        cleanAliases(raw.Aliases, name),
			Evidence:       truncateWords(raw.Evidence, evidenceWordLimit),
			AuthorityScore: clampUnit(raw.Confidence),
			MentionCount:   mentions,
			Source:         e.Name(),
		})
	}

	for _, raw := range response.Edges {
		relation, err := model.ParseRelation(raw.Relation)
		if err != nil {
			e.log.Debug("Dropping edge with unknown relation",
				slog.String("relation", raw.Relation))
			continue
		}
		if !known[raw.SrcTempID] || !known[raw.DstTempID] {
			e.log.Debug("Dropping edge referencing unknown temp id",
				slog.String("src", raw.SrcTempID),
				slog.String("dst", raw.DstTempID),
				slog.String("relation", string(relation)))
			continue
		}

		extraction.Edges = append(extraction.Edges, &model.CandidateEdge{
			SrcTempID:  raw.SrcTempID,
			DstTempID:  raw.DstTempID,
			Relation:   relation,
			Confidence: clampUnit(raw.Confidence),
			Evidence:   truncateWords(raw.Evidence, evidenceWordLimit),
		})
	}

	return extraction
}

// cleanAliases trims alias strings and drops empties and repeats of the
// entity name itself.
func cleanAliases(aliases []string, name string) []string {
	normalized := model.NormalizeEntityName(name)
	var out []string
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" || model.NormalizeEntityName(alias) == normalized {
			continue
		}
		out = append(out, alias)
	}
	return out
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
