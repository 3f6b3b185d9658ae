package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfattal/kgraph/model"
	"github.com/dfattal/kgraph/vocab"
)

func findCandidate(t *testing.T, extraction *model.Extraction, name string) *model.CandidateEntity {
	t.Helper()
	for _, candidate := range extraction.Entities {
		if candidate.Name == name {
			return candidate
		}
	}
	t.Fatalf("candidate %q not found", name)
	return nil
}

func hasCandidateContaining(extraction *model.Extraction, substring string) bool {
	for _, candidate := range extraction.Entities {
		if strings.Contains(candidate.Name, substring) {
			return true
		}
	}
	return false
}

func TestPatternExtractor(t *testing.T) {
	generic := vocab.Default().PatternSet(vocab.PatternSetGeneric)
	ctx := context.Background()

	t.Run("Organization, person and product patterns match press text", func(t *testing.T) {
		content := `Vexar Labs Inc today announced the Vexar Slate 7, its flagship tablet.
Nora Quist, CEO of Vexar Labs Inc, said the launch marks a decade of research.`

		extractor := NewPatternExtractor(generic, nil)
		extraction, err := extractor.Extract(ctx, &Input{Content: content})
		require.NoError(t, err, "Expected Extract to not return an error")
		require.Len(t, extraction.Entities, 3, "Expected the organization, the person and the product")
		assert.Empty(t, extraction.Edges, "Expected pattern extraction to produce no edges")

		organization := findCandidate(t, extraction, "Vexar Labs Inc")
		assert.Equal(t, model.EntityKindOrganization, organization.Kind, "Expected an organization kind")
		assert.Equal(t, 2, organization.MentionCount, "Expected both occurrences to be counted")
		assert.InDelta(t, 0.65, organization.AuthorityScore, 0.001, "Expected the base authority plus one mention bonus")
		assert.True(t, strings.HasPrefix(organization.TempID, "p"), "Expected a pattern namespaced temp id")
		assert.Equal(t, "pattern", organization.Source, "Expected the extractor name as source")

		person := findCandidate(t, extraction, "Nora Quist")
		assert.Equal(t, model.EntityKindPerson, person.Kind, "Expected a person kind")
		assert.InDelta(t, 0.55, person.AuthorityScore, 0.001, "Expected the person base authority")

		product := findCandidate(t, extraction, "Vexar Slate 7")
		assert.Equal(t, model.EntityKindProduct, product.Kind, "Expected a product kind")
		assert.InDelta(t, 0.6, product.AuthorityScore, 0.001, "Expected the product base authority")
		assert.Contains(t, product.Evidence, "Vexar Slate 7", "Expected the evidence window to contain the match")
	})

	t.Run("Repeated mentions raise authority up to the cap", func(t *testing.T) {
		content := `Brell Optics Inc announced growth. Brell Optics Inc expanded to Europe.
Brell Optics Inc hired researchers. Brell Optics Inc moved offices. Brell Optics Inc kept going.`

		extractor := NewPatternExtractor(generic, nil)
		extraction, err := extractor.Extract(ctx, &Input{Content: content})
		require.NoError(t, err, "Expected Extract to not return an error")
		require.Len(t, extraction.Entities, 1, "Expected repeated occurrences to collapse into one candidate")

		organization := extraction.Entities[0]
		assert.Equal(t, 5, organization.MentionCount, "Expected all five occurrences to be counted")
		assert.InDelta(t, 0.75, organization.AuthorityScore, 0.001, "Expected the authority to cap at 0.75")
	})

	t.Run("Section aware strategy skips boilerplate sections", func(t *testing.T) {
		content := `Product Overview
Arc Reactor 9 ships this week.

References
1. Acme Devices Inc. Annual filing.`

		extractor := NewPatternExtractor(generic, nil)

		sectionAware, err := extractor.Extract(ctx, &Input{
			Content:  content,
			Strategy: model.StrategyByName(model.StrategyScholarly),
		})
		require.NoError(t, err, "Expected Extract to not return an error")
		assert.False(t, hasCandidateContaining(sectionAware, "Acme"), "Expected the references section to be skipped")
		findCandidate(t, sectionAware, "Arc Reactor 9")

		flat, err := extractor.Extract(ctx, &Input{
			Content:  content,
			Strategy: model.StrategyByName(model.StrategyPress),
		})
		require.NoError(t, err, "Expected Extract to not return an error")
		assert.True(t, hasCandidateContaining(flat, "Acme"), "Expected the references section to be scanned without section awareness")
	})

	t.Run("Domain pattern set matches technology and component names", func(t *testing.T) {
		content := `The panel uses diffractive lightfield backlighting and a microlens array.`

		extractor := NewPatternExtractor(vocab.Default().PatternSet(vocab.PatternSetDomain), nil)
		extraction, err := extractor.Extract(ctx, &Input{Content: content})
		require.NoError(t, err, "Expected Extract to not return an error")

		technology := findCandidate(t, extraction, "diffractive lightfield backlighting")
		assert.Equal(t, model.EntityKindTechnology, technology.Kind, "Expected a technology kind")
		assert.InDelta(t, 0.55, technology.AuthorityScore, 0.001, "Expected the technology base authority")

		component := findCandidate(t, extraction, "microlens array")
		assert.Equal(t, model.EntityKindComponent, component.Kind, "Expected a component kind")
		assert.InDelta(t, 0.5, component.AuthorityScore, 0.001, "Expected the component base authority")
	})

	t.Run("Evidence window caps at forty words", func(t *testing.T) {
		content := strings.Repeat("lorem ipsum dolor sit amet ", 10) +
			"Halcy Prism 4" +
			strings.Repeat(" consectetur adipiscing elit sed do", 10)

		extractor := NewPatternExtractor(generic, nil)
		extraction, err := extractor.Extract(ctx, &Input{Content: content})
		require.NoError(t, err, "Expected Extract to not return an error")

		product := findCandidate(t, extraction, "Halcy Prism 4")
		assert.Contains(t, product.Evidence, "Halcy Prism 4", "Expected the evidence to contain the match")
		assert.LessOrEqual(t, len(strings.Fields(product.Evidence)), 40, "Expected the evidence to be capped at forty words")
	})

	t.Run("Empty content yields no candidates", func(t *testing.T) {
		extractor := NewPatternExtractor(generic, nil)
		extraction, err := extractor.Extract(ctx, &Input{Content: ""})
		require.NoError(t, err, "Expected Extract to not return an error")
		assert.Empty(t, extraction.Entities, "Expected no candidates")
	})

	t.Run("Nil pattern set yields no candidates", func(t *testing.T) {
		extractor := NewPatternExtractor(nil, nil)
		extraction, err := extractor.Extract(ctx, &Input{Content: "Vexar Labs Inc announced something."})
		require.NoError(t, err, "Expected Extract to not return an error")
		assert.Empty(t, extraction.Entities, "Expected no candidates without patterns")
	})
}
