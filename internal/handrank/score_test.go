package handrank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/pokeretl/poker"
)

func chenScoreFromStrings(t *testing.T, c1, c2 string) float64 {
	t.Helper()
	card1, err := poker.ParseCard(c1)
	assert.NoError(t, err)
	card2, err := poker.ParseCard(c2)
	assert.NoError(t, err)
	return ChenScore(card1, card2)
}

func TestRiskAdjustment(t *testing.T) {
	t.Parallel()

	adj := RiskAdjustment(100, 100)
	assert.InDelta(t, 0.613, adj, 0.001)

	assert.Equal(t, 1.0, RiskAdjustment(50, 0))
}

func TestFinalScoreMatchesScenarioS6(t *testing.T) {
	t.Parallel()

	adj := RiskAdjustment(100, 100)
	score := FinalScore(0.5, adj)
	assert.InDelta(t, 31.3, score, 0.1)
}

func TestFinalScoreClamps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100.0, FinalScore(2.0, 1.0))
	assert.Equal(t, 1.0, FinalScore(-1.0, 1.0))
}

func TestPreflopTableOrdering(t *testing.T) {
	t.Parallel()

	table := BuildPreflopTable()
	assert.Len(t, table.Hands, 169)

	aa, ok := table.RankScore("AA")
	assert.True(t, ok)
	assert.Equal(t, 1.0, aa, "AA must be the strongest hand in the table")

	worst, ok := table.RankScore("72o")
	assert.True(t, ok)
	assert.Less(t, worst, aa)

	akS, _ := table.RankScore("AKs")
	akO, _ := table.RankScore("AKo")
	assert.Greater(t, akS, akO, "suited should outrank offsuit for the same ranks")
}

func TestChenScoreKnownHands(t *testing.T) {
	t.Parallel()

	// AA should score far above 72o.
	assert.Greater(t, chenScoreFromStrings(t, "As", "Ah"), chenScoreFromStrings(t, "7s", "2h"))
}
