package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokeretl/internal/model"
)

func TestLetterCodeMapsEachActionKind(t *testing.T) {
	require.Equal(t, "F", letterCode(model.ActionFold))
	require.Equal(t, "C", letterCode(model.ActionCall))
	require.Equal(t, "R", letterCode(model.ActionRaise))
	require.Equal(t, "X", letterCode(model.ActionCheck))
}

func TestMatchPreflopActionSkipsUnrevealedHoleCards(t *testing.T) {
	row, err := matchPreflopAction(nil, nil, model.ActionRow{}, model.PlayerRow{HoleCards: ""}, "")
	require.NoError(t, err)
	require.Nil(t, row)

	row, err = matchPreflopAction(nil, nil, model.ActionRow{}, model.PlayerRow{HoleCards: "Ah"}, "")
	require.NoError(t, err)
	require.Nil(t, row)
}
