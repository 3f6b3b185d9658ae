package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

// evidenceWordLimit caps evidence snippets on candidates and edges.
const evidenceWordLimit = 40

// patternBaseAuthority is the per-kind starting score for pattern matches.
// Repeated mentions raise it by 0.05 each, capped at 0.75, which keeps
// pattern candidates below metadata candidates no matter how often they
// appear.
var patternBaseAuthority = map[model.EntityKind]float64{
	model.EntityKindOrganization: 0.6,
	model.EntityKindProduct:      0.6,
	model.EntityKindTechnology:   0.55,
	model.EntityKindPerson:       0.55,
	model.EntityKindComponent:    0.5,
}

// Sections skipped under section-aware strategies. Matching is on the
// heading text, lowercased.
var boilerplateSections = []string{
	"references",
	"bibliography",
	"acknowledgment",
	"acknowledgement",
	"legal notice",
	"disclaimer",
	"forward-looking statements",
}

// PatternExtractor matches the injected pattern set's regex libraries
// against the content, one candidate per distinct (name, kind). There are no
// per-domain extractor copies; the generic and domain behaviors differ only
// by the injected set.
type PatternExtractor struct {
	patterns *vocab.PatternSet
	log      *slog.Logger
}

// NewPatternExtractor creates a pattern extractor over one pattern set.
func NewPatternExtractor(patterns *vocab.PatternSet, logger *slog.Logger) *PatternExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatternExtractor{
		patterns: patterns,
		log:      logger,
	}
}

// Name implements Extractor.
func (e *PatternExtractor) Name() string {
	return "pattern"
}

// Extract runs every pattern of the set over the content. Under a
// section-aware strategy, boilerplate sections are stripped first. Mention
// count is the literal occurrence count in the full content.
func (e *PatternExtractor) Extract(ctx context.Context, in *Input) (*model.Extraction, error) {
	extraction := &model.Extraction{}
	if e.patterns == nil || in.Content == "" {
		return extraction, nil
	}

	content := in.Content
	if in.Strategy != nil && in.Strategy.SectionAware {
		content = stripBoilerplate(content)
	}

	seen := map[string]bool{}
	counter := 0

	for _, kind := range e.patterns.Kinds() {
		for _, pattern := range e.patterns.PatternsFor(kind) {
			for _, match := range pattern.FindAllStringSubmatchIndex(content, -1) {
				start, end := matchGroup(match)
				if start < 0 || end <= start {
					continue
				}

				name := strings.TrimSpace(content[start:end])
				normalized := model.NormalizeEntityName(name)
				if normalized == "" {
					continue
				}

				key := normalized + "|" + string(kind)
				if seen[key] {
					continue
				}
				seen[key] = true

				mentions := strings.Count(in.Content, name)
				if mentions < 1 {
					mentions = 1
				}

				counter++
				extraction.Entities = append(extraction.Entities, &model.CandidateEntity{
					TempID:         fmt.Sprintf("p%d", counter),
					Name:           name,
					Kind:           kind,
					Evidence:       evidenceAround(content, start),
					AuthorityScore: patternAuthority(kind, mentions),
					MentionCount:   mentions,
					Source:         e.Name(),
				})
			}
		}
	}

	e.log.Debug("Pattern extraction finished",
		slog.String("pattern_set", e.patterns.Name),
		slog.Int("candidates", len(extraction.Entities)))

	return extraction, nil
}

// matchGroup returns the first capture group range, or the whole match when
// the pattern has no groups.
func matchGroup(match []int) (int, int) {
	if len(match) >= 4 && match[2] >= 0 {
		return match[2], match[3]
	}
	return match[0], match[1]
}

func patternAuthority(kind model.EntityKind, mentions int) float64 {
	base, ok := patternBaseAuthority[kind]
	if !ok {
		base = 0.5
	}
	authority := base + 0.05*float64(mentions-1)
	if authority > 0.75 {
		authority = 0.75
	}
	return authority
}

// stripBoilerplate removes sections whose heading names reference material
// (references, acknowledgments, legal text) that yields junk candidates.
func stripBoilerplate(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	skipping := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			skipping = isBoilerplateHeading(trimmed)
			if skipping {
				continue
			}
		}
		if !skipping {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}

// isHeading is a heuristic: markdown headings, or short capitalized lines
// without sentence punctuation.
func isHeading(line string) bool {
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, "#") {
		return true
	}
	if len(line) > 60 {
		return false
	}
	words := strings.Fields(line)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") || strings.HasSuffix(line, ";") {
		return false
	}
	return unicode.IsUpper([]rune(words[0])[0])
}

func isBoilerplateHeading(heading string) bool {
	lower := strings.ToLower(strings.TrimLeft(heading, "# "))
	for _, name := range boilerplateSections {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// evidenceAround cuts a window of up to evidenceWordLimit words around a
// match position, trimming word fragments at the window borders.
func evidenceAround(content string, index int) string {
	start := index - 150
	if start < 0 {
		start = 0
	}
	end := index + 250
	if end > len(content) {
		end = len(content)
	}

	window := content[start:end]
	if start > 0 {
		if cut := strings.IndexAny(window, " \t\n"); cut >= 0 {
			window = window[cut+1:]
		}
	}
	if end < len(content) {
		if cut := strings.LastIndexAny(window, " \t\n"); cut >= 0 {
			window = window[:cut]
		}
	}

	return truncateWords(window, evidenceWordLimit)
}

// truncateWords caps a string at limit words, collapsing whitespace.
func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:limit], " ")
}
