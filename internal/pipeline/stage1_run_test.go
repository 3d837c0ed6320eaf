package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokeretl/internal/model"
)

func TestParsePartialScoresAcceptsScalarAndFullEntries(t *testing.T) {
	raw := []byte(`{
		"x r300 c": 1.5,
		"x x": {"action_score": 0.25, "decision_difficulty": 9.1}
	}`)
	rows, err := parsePartialScores("hand1", raw, false, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byNode := map[string]model.PostflopScoreRow{}
	for _, r := range rows {
		byNode[r.NodeString] = r
	}
	require.Equal(t, 1.5, byNode["x r300 c"].ActionScore)
	require.Equal(t, 0.25, byNode["x x"].ActionScore)
	require.Equal(t, 9.1, byNode["x x"].DecisionDifficulty)
}

func TestParsePartialScoresEmptyInputIsNoop(t *testing.T) {
	rows, err := parsePartialScores("hand1", nil, false, 0)
	require.NoError(t, err)
	require.Nil(t, rows)
}

func TestParsePartialScoresRenormalizesNodeStringsWhenEnabled(t *testing.T) {
	raw := []byte(`{"x r300 c": 1.0}`)
	rows, err := parsePartialScores("hand1", raw, true, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "x r3 c", rows[0].NodeString)
}

func TestRenormalizeNodeRewritesEveryRaiseAmount(t *testing.T) {
	require.Equal(t, "x r300 c", renormalizeNode("x r300 c", 1.0))
	require.Equal(t, "x r3 r9 f", renormalizeNode("x r300 r900 f", 100))
}

func TestStripDigitsRemovesAllDigitsOnly(t *testing.T) {
	require.Equal(t, "x r c", stripDigits("x r300 c"))
	require.Equal(t, "abc", stripDigits("abc"))
}

func TestExpectedNodeStringBuildsRaiseTokenWithAmount(t *testing.T) {
	a := model.ActionRow{StatePrefix: "x ", Action: model.ActionRaise, AmountTo: 300}
	require.Equal(t, "x r300", expectedNodeString(a))

	b := model.ActionRow{StatePrefix: "x r300 ", Action: model.ActionCall}
	require.Equal(t, "x r300 c", expectedNodeString(b))
}

func TestMatchNodeExactMatch(t *testing.T) {
	nodes := []model.PostflopScoreRow{{NodeString: "x r300 c", ActionScore: 1}}
	match := matchNode(nodes, "x r300 c")
	require.Same(t, &nodes[0], match)
}

func TestMatchNodeFallsBackToSuffixMatch(t *testing.T) {
	nodes := []model.PostflopScoreRow{{NodeString: "bb x r300 c", ActionScore: 1}}
	match := matchNode(nodes, "x r300 c")
	require.NotNil(t, match)
	require.Equal(t, "bb x r300 c", match.NodeString)
}

func TestMatchNodeFallsBackToPrefixMatch(t *testing.T) {
	nodes := []model.PostflopScoreRow{{NodeString: "x r300", ActionScore: 1}}
	match := matchNode(nodes, "x r300 c")
	require.NotNil(t, match)
	require.Equal(t, "x r300", match.NodeString)
}

func TestMatchNodeReturnsNilWhenNothingMatches(t *testing.T) {
	nodes := []model.PostflopScoreRow{{NodeString: "totally unrelated", ActionScore: 1}}
	require.Nil(t, matchNode(nodes, "x r300 c"))
}
