package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S4 — boundary inclusivity: each bucket's min is inclusive, max is
// exclusive, per spec.md §4.7.
func TestClassifyPostflopBoundaries(t *testing.T) {
	require.Equal(t, "tiny", classify(0.01, postflopBuckets))
	require.Equal(t, "small", classify(0.20, postflopBuckets), "lower bound of next bucket is inclusive")
	require.Equal(t, "small", classify(0.349, postflopBuckets))
	require.Equal(t, "medium", classify(0.35, postflopBuckets))
	require.Equal(t, "huge", classify(1.75, postflopBuckets))
	require.Equal(t, "huge", classify(100, postflopBuckets), "open-ended top bucket has no upper limit")
}

func TestClassifyPreflopBoundaries(t *testing.T) {
	require.Equal(t, "tiny", classify(1.5-0.001, preflopBuckets))
	require.Equal(t, "small", classify(1.5, preflopBuckets))
	require.Equal(t, "huge", classify(6.0, preflopBuckets))
}

func TestClassifyBelowMinimumIsUnknown(t *testing.T) {
	require.Equal(t, "unknown", classify(0, postflopBuckets))
	require.Equal(t, "unknown", classify(0.005, postflopBuckets))
}
