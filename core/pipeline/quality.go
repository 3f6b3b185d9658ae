package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

// Rejection is one filtered-out candidate with the reason it was dropped.
type Rejection struct {
	Candidate *model.CandidateEntity
	Reason    string
}

// Filter is the generic quality gate plus the per-kind strategy thresholds.
// It only ever accepts or rejects, never merges.
type Filter struct {
	Vocabulary *vocab.Config
	log        *slog.Logger
}

// NewFilter creates a quality filter. A nil vocabulary uses the embedded
// defaults.
func NewFilter(vocabulary *vocab.Config, logger *slog.Logger) *Filter {
	if vocabulary == nil {
		vocabulary = vocab.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		Vocabulary: vocabulary,
		log:        logger,
	}
}

// Apply runs every candidate through the gate and the strategy threshold for
// its kind. Rejections are returned with their reason and logged at debug.
func (f *Filter) Apply(candidates []*model.CandidateEntity, strategy *model.Strategy) ([]*model.CandidateEntity, []Rejection) {
	if strategy == nil {
		strategy = model.StrategyByName(model.StrategyComprehensive)
	}

	accepted := make([]*model.CandidateEntity, 0, len(candidates))
	var rejections []Rejection

	for _, candidate := range candidates {
		reason := f.check(candidate, strategy)
		if reason == "" {
			accepted = append(accepted, candidate)
			continue
		}

		rejections = append(rejections, Rejection{Candidate: candidate, Reason: reason})
		f.log.Debug("Rejected candidate",
			slog.String("name", candidate.Name),
			slog.String("kind", string(candidate.Kind)),
			slog.String("extractor", candidate.Source),
			slog.String("reason", reason))
	}

	return accepted, rejections
}

// check returns the rejection reason, or "" when the candidate passes.
func (f *Filter) check(candidate *model.CandidateEntity, strategy *model.Strategy) string {
	name := strings.TrimSpace(candidate.Name)
	length := len([]rune(name))

	if length < 3 {
		return "name shorter than 3 characters"
	}
	if length > 80 {
		return "name longer than 80 characters"
	}
	if alphanumericRatio(name) < 0.6 {
		return "alphanumeric ratio below 0.6"
	}

	normalized := model.NormalizeEntityName(name)
	if f.Vocabulary.IsStopTerm(normalized) {
		return "stop term"
	}

	switch candidate.Kind {
	case model.EntityKindPerson:
		if !validPersonName(name) {
			return "person name must be 1-4 capitalized words"
		}
	case model.EntityKindOrganization:
		if !f.hasSubstantiveToken(normalized) {
			return "organization name has no substantive token"
		}
	}

	if minScore := strategy.MinScoreFor(candidate.Kind); candidate.AuthorityScore < minScore {
		return fmt.Sprintf("authority %.2f below %s threshold %.2f", candidate.AuthorityScore, strategy.Name, minScore)
	}

	return ""
}

// alphanumericRatio is the share of letters and digits among all runes.
func alphanumericRatio(name string) float64 {
	total := 0
	alphanumeric := 0
	for _, r := range name {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alphanumeric++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alphanumeric) / float64(total)
}

// validPersonName requires 1-4 word tokens, each starting with an uppercase
// letter.
func validPersonName(name string) bool {
	tokens := strings.Fields(name)
	if len(tokens) < 1 || len(tokens) > 4 {
		return false
	}
	for _, token := range tokens {
		first := []rune(token)[0]
		if !unicode.IsUpper(first) {
			return false
		}
	}
	return true
}

// hasSubstantiveToken requires at least one token that is neither a stop
// term nor trivially short.
func (f *Filter) hasSubstantiveToken(normalized string) bool {
	for _, token := range strings.Fields(normalized) {
		if len([]rune(token)) > 2 && !f.Vocabulary.IsStopTerm(token) {
			return true
		}
	}
	return false
}
