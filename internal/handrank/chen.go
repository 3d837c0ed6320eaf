// Package handrank implements the preflop and postflop hand-strength
// scoring used by Stage 5 (the Hand-Strength Scorer).
package handrank

import "github.com/lox/pokeretl/poker"

// ChenScore implements the Chen formula for two hole cards, returning the
// raw (unnormalized) score. Typical range is roughly -2 through 20.
func ChenScore(c1, c2 poker.Card) float64 {
	r1, r2 := int(c1.Rank()), int(c2.Rank())
	if r1 < r2 {
		r1, r2 = r2, r1
	}

	high := chenBaseValue(r1)

	var score float64
	if r1 == r2 {
		score = high * 2
		if score < 5 {
			score = 5
		}
	} else {
		score = high
	}

	if c1.Suit() == c2.Suit() && r1 != r2 {
		score += 2
	}

	gap := r1 - r2 - 1
	if r1 != r2 {
		score += chenGapPenalty(gap)
	}

	// Straight-forming bonus: connectors and one-gappers with both cards
	// below queen play above their raw gap penalty.
	if r1 != r2 && gap <= 1 && r1 < int(poker.Queen) {
		score += 1
	}

	return roundHalf(score)
}

// chenBaseValue returns the Chen point value of the higher card.
func chenBaseValue(rank int) float64 {
	switch rank {
	case int(poker.Ace):
		return 10
	case int(poker.King):
		return 8
	case int(poker.Queen):
		return 7
	case int(poker.Jack):
		return 6
	default:
		// Ten through Two: point value is half the card's numeric rank (Ten=5 .. Two=1).
		numeric := rank + 2
		return float64(numeric) / 2
	}
}

func chenGapPenalty(gap int) float64 {
	switch {
	case gap <= 0:
		return 0
	case gap == 1:
		return -1
	case gap == 2:
		return -2
	case gap == 3:
		return -4
	default:
		return -5
	}
}

func roundHalf(v float64) float64 {
	return float64(int(v*2+0.5)) / 2
}

// ChenScoreNormalized maps the Chen formula's raw range onto 0..1, clamped.
func ChenScoreNormalized(c1, c2 poker.Card) float64 {
	const (
		minScore = -2.0
		maxScore = 20.0
	)
	raw := ChenScore(c1, c2)
	n := (raw - minScore) / (maxScore - minScore)
	if n < 0 {
		n = 0
	}
	if n > 1 {
		n = 1
	}
	return n
}
