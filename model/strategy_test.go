package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyByName(t *testing.T) {
	t.Run("Returns registered strategies", func(t *testing.T) {
		for _, name := range StrategyNames() {
			strategy := StrategyByName(name)
			require.NotNil(t, strategy, "Expected strategy %s to exist", name)
			assert.Equal(t, name, strategy.Name)
		}
	})

	t.Run("Falls back to comprehensive for unknown names", func(t *testing.T) {
		strategy := StrategyByName("nonexistent")
		require.NotNil(t, strategy)
		assert.Equal(t, StrategyComprehensive, strategy.Name)
	})
}

func TestStrategyMinScoreFor(t *testing.T) {
	t.Run("Technical strategy tolerates lower component threshold", func(t *testing.T) {
		technical := StrategyByName(StrategyTechnical)
		comprehensive := StrategyByName(StrategyComprehensive)

		assert.Less(t, technical.MinScoreFor(EntityKindComponent), comprehensive.MinScoreFor(EntityKindComponent),
			"Technical documentation should accept lower scoring components")
	})

	t.Run("Domain strategy demands high thresholds across all kinds", func(t *testing.T) {
		domain := StrategyByName(StrategyDomain)
		for _, kind := range AllEntityKinds() {
			assert.GreaterOrEqual(t, domain.MinScoreFor(kind), 0.65,
				"Domain strategy threshold for %s should be high", kind)
		}
	})

	t.Run("Unknown kind falls back to default", func(t *testing.T) {
		strategy := &Strategy{Name: "test", DefaultMinScore: 0.42}
		assert.Equal(t, 0.42, strategy.MinScoreFor(EntityKindProduct))
	})

	t.Run("Longform disables relationship extraction", func(t *testing.T) {
		assert.False(t, StrategyByName(StrategyLongform).RelationshipExtraction)
		assert.True(t, StrategyByName(StrategyPress).RelationshipExtraction)
	})
}
