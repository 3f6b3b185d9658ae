package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfattal/kgraph/model"
)

func TestFilterApply(t *testing.T) {
	filter := NewFilter(nil, nil)
	comprehensive := model.StrategyByName(model.StrategyComprehensive)

	candidate := func(name string, kind model.EntityKind, authority float64) *model.CandidateEntity {
		return &model.CandidateEntity{Name: name, Kind: kind, AuthorityScore: authority, MentionCount: 1}
	}

	t.Run("Valid candidate above threshold is accepted", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("Halcyon Optics Inc", model.EntityKindOrganization, 0.8),
		}, comprehensive)
		assert.Len(t, accepted, 1, "Expected the candidate to pass")
		assert.Empty(t, rejections, "Expected no rejections")
	})

	t.Run("Name shorter than three characters is rejected", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("Hq", model.EntityKindOrganization, 0.9),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected the candidate to be rejected")
		require.Len(t, rejections, 1, "Expected one rejection")
		assert.Contains(t, rejections[0].Reason, "shorter than 3", "Expected the length reason")
	})

	t.Run("Name longer than eighty characters is rejected", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate(strings.Repeat("Very Long Name ", 10), model.EntityKindProduct, 0.9),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected the candidate to be rejected")
		require.Len(t, rejections, 1, "Expected one rejection")
		assert.Contains(t, rejections[0].Reason, "longer than 80", "Expected the length reason")
	})

	t.Run("Low alphanumeric ratio is rejected", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("** X **", model.EntityKindProduct, 0.9),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected the candidate to be rejected")
		require.Len(t, rejections, 1, "Expected one rejection")
		assert.Contains(t, rejections[0].Reason, "alphanumeric ratio", "Expected the ratio reason")
	})

	t.Run("Stop term is rejected regardless of authority", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("System", model.EntityKindTechnology, 0.99),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected the stop term to be rejected")
		require.Len(t, rejections, 1, "Expected one rejection")
		assert.Equal(t, "stop term", rejections[0].Reason, "Expected the stop term reason")
	})

	t.Run("Person name must be capitalized words", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("nora quist", model.EntityKindPerson, 0.9),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected the lowercase name to be rejected")
		require.Len(t, rejections, 1, "Expected one rejection")
		assert.Contains(t, rejections[0].Reason, "person name", "Expected the person shape reason")
	})

	t.Run("Person name with five tokens is rejected", func(t *testing.T) {
		accepted, _ := filter.Apply([]*model.CandidateEntity{
			candidate("One Two Three Four Five", model.EntityKindPerson, 0.9),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected a five token person name to be rejected")
	})

	t.Run("Organization without a substantive token is rejected", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("Company Group", model.EntityKindOrganization, 0.9),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected the all-stopword name to be rejected")
		require.Len(t, rejections, 1, "Expected one rejection")
		assert.Contains(t, rejections[0].Reason, "substantive token", "Expected the substantive token reason")
	})

	t.Run("Authority below the strategy threshold is rejected", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("Halcyon Optics Inc", model.EntityKindOrganization, 0.3),
		}, comprehensive)
		assert.Empty(t, accepted, "Expected the low authority candidate to be rejected")
		require.Len(t, rejections, 1, "Expected one rejection")
		assert.Contains(t, rejections[0].Reason, "below comprehensive threshold", "Expected the threshold reason")
	})

	t.Run("Thresholds follow the strategy", func(t *testing.T) {
		borderline := candidate("Halcy Prism 4", model.EntityKindProduct, 0.47)

		accepted, _ := filter.Apply([]*model.CandidateEntity{borderline}, model.StrategyByName(model.StrategyPress))
		assert.Len(t, accepted, 1, "Expected the press product threshold of 0.45 to accept")

		accepted, _ = filter.Apply([]*model.CandidateEntity{borderline}, model.StrategyByName(model.StrategyDomain))
		assert.Empty(t, accepted, "Expected the domain product threshold of 0.65 to reject")
	})

	t.Run("Nil strategy falls back to comprehensive", func(t *testing.T) {
		accepted, _ := filter.Apply([]*model.CandidateEntity{
			candidate("Halcyon Optics Inc", model.EntityKindOrganization, 0.55),
		}, nil)
		assert.Len(t, accepted, 1, "Expected the comprehensive default thresholds")
	})

	t.Run("Mixed batch splits into accepted and rejected", func(t *testing.T) {
		accepted, rejections := filter.Apply([]*model.CandidateEntity{
			candidate("Halcyon Optics Inc", model.EntityKindOrganization, 0.8),
			candidate("System", model.EntityKindTechnology, 0.9),
			candidate("Halcy Prism 4", model.EntityKindProduct, 0.7),
		}, comprehensive)
		assert.Len(t, accepted, 2, "Expected two candidates to pass")
		assert.Len(t, rejections, 1, "Expected one rejection")
	})
}
