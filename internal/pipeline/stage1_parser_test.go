package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokeretl/internal/model"
)

func fourHandedInput(situation string) HandInput {
	return HandInput{
		ID:              "hand-1",
		HandDate:        "2026-01-01",
		SituationString: situation,
		BigBlind:        100,
		SmallBlind:      50,
		Positions: map[string]PositionInput{
			"CO":  {Stub: "p-co", Name: "co", Stack: 10000},
			"BTN": {Stub: "p-btn", Name: "btn", Stack: 10000},
			"SB":  {Stub: "p-sb", Name: "sb", Stack: 10000},
			"BB":  {Stub: "p-bb", Name: "bb", Stack: 10000},
		},
		IsCash: true,
	}
}

// S3 — Preflop parse scenario.
func TestParseHandScenarioS3(t *testing.T) {
	parsed, err := ParseHand(fourHandedInput("rrcc[AhKsQd]xx"))
	require.NoError(t, err)

	require.Len(t, parsed.Actions, 6)
	require.Equal(t, "CO", parsed.Actions[0].Position)
	require.Equal(t, model.ActionRaise, parsed.Actions[0].Action)
	require.Equal(t, model.Preflop, parsed.Actions[0].Street)

	require.Equal(t, model.Flop, parsed.Actions[4].Street)
	require.Equal(t, model.ActionCheck, parsed.Actions[4].Action)
}

func TestParseHandTokenCountMatchesActionsCount(t *testing.T) {
	parsed, err := ParseHand(fourHandedInput("ffrc[2h3h4h]xx[5h]x"))
	require.NoError(t, err)

	streets, err := tokenize("ffrc[2h3h4h]xx[5h]x")
	require.NoError(t, err)
	total := 0
	for _, s := range streets {
		total += len(s.Actions)
	}
	require.Equal(t, total, len(parsed.Actions))
}

func TestParseHandStackAndPotInvariants(t *testing.T) {
	parsed, err := ParseHand(fourHandedInput("rrcc[AhKsQd]xbc"))
	require.NoError(t, err)

	for _, a := range parsed.Actions {
		require.Equal(t, a.StackBefore-a.InvestedThisAction, a.StackAfter)
		require.Equal(t, a.PotBefore+a.InvestedThisAction, a.PotAfter)
	}
}

func TestParseHandPlayersLeftMonotonicallyNonIncreasing(t *testing.T) {
	parsed, err := ParseHand(fourHandedInput("frrc[AhKsQd]xx"))
	require.NoError(t, err)

	prev := parsed.Actions[0].PlayersLeft
	for _, a := range parsed.Actions[1:] {
		require.LessOrEqual(t, a.PlayersLeft, prev)
		prev = a.PlayersLeft
	}
}

func TestParseHandRejectsInvalidToken(t *testing.T) {
	_, err := ParseHand(fourHandedInput("rrccZ"))
	require.Error(t, err)
}
