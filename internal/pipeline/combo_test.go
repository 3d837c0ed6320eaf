package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokeretl/poker"
)

func TestComboKeySuitedFoldsToSpades(t *testing.T) {
	ah, _ := poker.ParseCard("Ah")
	ks, _ := poker.ParseCard("Ks")
	// Offsuit: high card spades, low card hearts.
	require.Equal(t, "AsKh", comboKey(ah, ks))

	as, _ := poker.ParseCard("As")
	kss, _ := poker.ParseCard("Ks")
	require.Equal(t, "AsKs", comboKey(as, kss))
}

func TestComboKeyOrdersHighCardFirst(t *testing.T) {
	kd, _ := poker.ParseCard("Kd")
	ac, _ := poker.ParseCard("Ac")
	require.Equal(t, "AsKh", comboKey(kd, ac))
}

func TestComboKeyPocketPairUsesDistinctSuits(t *testing.T) {
	qh, _ := poker.ParseCard("Qh")
	qc, _ := poker.ParseCard("Qc")
	require.Equal(t, "QsQh", comboKey(qh, qc))
}

func TestRefPositionAliasesUTGtoLJ(t *testing.T) {
	require.Equal(t, "LJ", refPosition("UTG"))
	require.Equal(t, "BTN", refPosition("BTN"))
}

func TestCompressTrailingFoldsOnlyCompressesTrailingRun(t *testing.T) {
	require.Equal(t, "RCF", compressTrailingFolds("RCFF"))
	require.Equal(t, "RFCF", compressTrailingFolds("RFCFFF"), "earlier fold untouched, trailing run compressed")
	require.Equal(t, "RCF", compressTrailingFolds("RCF"), "single trailing fold is left alone")
	require.Equal(t, "FRC", compressTrailingFolds("FRC"), "leading fold isn't trailing")
	require.Equal(t, "F", compressTrailingFolds("FFFF"))
}
