package handrank

import "github.com/lox/pokeretl/poker"

// PostflopPercentile converts hole cards plus the revealed board into a
// value in 0..1 that is linear in the evaluator's HandRank between
// poker.MinHandRank and poker.MaxHandRank: higher is stronger, and 1 is a
// royal flush. The value is not relative to the board, so the best hand
// possible on a given board can score below 1. hole must have exactly two
// cards; board must have 3, 4, or 5.
func PostflopPercentile(hole [2]poker.Card, board []poker.Card) (float64, bool) {
	if len(board) < 3 || len(board) > 5 {
		return 0, false
	}

	hand := poker.NewHand(hole[0], hole[1])
	for _, c := range board {
		hand.AddCard(c)
	}

	rank := poker.EvaluateBest(hand)
	if rank == 0 {
		return 0, false
	}

	span := float64(poker.MaxHandRank - poker.MinHandRank)
	if span <= 0 {
		return 0, false
	}
	percentile := float64(rank-poker.MinHandRank) / span
	if percentile < 0 {
		percentile = 0
	}
	if percentile > 1 {
		percentile = 1
	}
	return percentile, true
}

// ChenFallback is the Stage 5 fallback used when no five-card evaluator
// result is available: Chen score scaled by 0.8, per spec.
func ChenFallback(c1, c2 poker.Card) float64 {
	return ChenScoreNormalized(c1, c2) * 0.8
}
