package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadLabelRulesFallsBackToDefaultWhenPathEmpty(t *testing.T) {
	set, err := LoadLabelRules("")
	require.NoError(t, err)
	require.Equal(t, DefaultLabelRuleSet(), set)
}

func TestLoadLabelRulesFallsBackToDefaultWhenFileMissing(t *testing.T) {
	set, err := LoadLabelRules("/nonexistent/label_rules.hcl")
	require.NoError(t, err)
	require.Equal(t, DefaultLabelRuleSet(), set)
}

func TestDefaultLabelRuleSetCoversEveryActionKind(t *testing.T) {
	set := DefaultLabelRuleSet()
	names := map[string]bool{}
	for _, r := range set.Rules {
		names[r.Name] = true
	}
	for _, want := range []string{"check", "fold", "call", "checkraise", "donk", "probe", "cont"} {
		require.True(t, names[want], "expected default rule set to contain %q", want)
	}
}
