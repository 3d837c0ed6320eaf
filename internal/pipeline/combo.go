package pipeline

import (
	"fmt"

	"github.com/lox/pokeretl/poker"
)

// comboKey canonicalizes two hole cards into the reference database's
// combo representation: the higher-ranked card first, with suits folded
// down to a single representative suited (both spades) or offsuit
// (spades + hearts) pair, e.g. "AhKs" -> "AsKh".
func comboKey(c1, c2 poker.Card) string {
	r1, s1 := c1.Rank(), c1.Suit()
	r2, s2 := c2.Rank(), c2.Suit()
	if r1 < r2 {
		r1, r2 = r2, r1
	}

	suited := s1 == s2
	highSuit := uint8(poker.Spades)
	lowSuit := uint8(poker.Hearts)
	if suited {
		lowSuit = highSuit
	}
	return fmt.Sprintf("%s%s", poker.NewCard(r1, highSuit), poker.NewCard(r2, lowSuit))
}

// refPosition aliases UTG to LJ for reference-database lookups, per
// spec.md §4.6 ("UTG in the hand matches either UTG or LJ in the
// reference"). The reference is assumed to store LJ; callers needing the
// raw position fall back to the hand's own label when no LJ row matches.
func refPosition(pos string) string {
	if pos == "UTG" {
		return "LJ"
	}
	return pos
}

// compressTrailingFolds collapses a trailing run of two or more fold
// tokens into a single "F", matching the reference database's node-string
// convention (spec.md §4.6). Only a *trailing* run is compressed; folds
// appearing earlier in the sequence, interleaved with other actions, are
// left untouched.
func compressTrailingFolds(seq string) string {
	n := len(seq)
	end := n
	for end > 0 && seq[end-1] == 'F' {
		end--
	}
	trailing := n - end
	if trailing < 2 {
		return seq
	}
	return seq[:end] + "F"
}
