package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadIntentionTreeEmptyRootIsUsable(t *testing.T) {
	tree, err := LoadIntentionTree("")
	require.NoError(t, err)
	_, ok := tree.Lookup("flop", "bet")
	require.False(t, ok)
}

func TestLoadIntentionTreeReadsAndLooksUpFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "flop"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "flop", "bet.json"), []byte(`{
		"detailed_mappings": {"high": {"small": "value_bet"}},
		"strength_mappings": {"high": {"small": "value"}}
	}`), 0o644))

	tree, err := LoadIntentionTree(root)
	require.NoError(t, err)

	m, ok := tree.Lookup("flop", "bet")
	require.True(t, ok)
	require.Equal(t, "value_bet", m.DetailedMappings["high"]["small"])
}

func TestLoadIntentionTreeFallsBackToRaiseFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "turn"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "turn", "raise.json"), []byte(`{
		"strength_mappings": {"medium": {"medium": "semi_bluff"}}
	}`), 0o644))

	tree, err := LoadIntentionTree(root)
	require.NoError(t, err)

	m, ok := tree.Lookup("turn", "checkraise")
	require.True(t, ok, "checkraise with no own file should fall back to raise.json")
	require.Equal(t, "semi_bluff", m.StrengthMappings["medium"]["medium"])
}

func TestSizeGroupCoarsensBuckets(t *testing.T) {
	require.Equal(t, "small", SizeGroup("tiny"))
	require.Equal(t, "small", SizeGroup("small"))
	require.Equal(t, "medium", SizeGroup("medium"))
	require.Equal(t, "large", SizeGroup("pot"))
	require.Equal(t, "large", SizeGroup("huge"))
}

func TestStrengthBucketThresholds(t *testing.T) {
	require.Equal(t, "low", StrengthBucket(33))
	require.Equal(t, "medium", StrengthBucket(34))
	require.Equal(t, "medium", StrengthBucket(66))
	require.Equal(t, "high", StrengthBucket(67))
}
