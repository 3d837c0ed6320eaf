package handrank

import (
	"fmt"
	"sort"

	"github.com/lox/pokeretl/poker"
)

// PreflopHand is one of the 169 canonical starting-hand categories.
type PreflopHand struct {
	Category string // "AA", "AKs", "AKo", ...
	HighRank uint8  // 0-12
	LowRank  uint8  // 0-12
	Suited   bool
	Score    float64 // Chen score used to order the table
}

// PreflopTable is the ordered-strongest-first list of all 169 starting
// hands, used by Stage 5 to rank a preflop holding by table position.
type PreflopTable struct {
	Hands []PreflopHand
	rank  map[string]int // category -> index in Hands (0 = strongest)
}

const rankChars = "23456789TJQKA"

// BuildPreflopTable constructs the full 169-hand table, ordered strongest
// first by Chen score. The ordering is deterministic: ties are broken by
// category string so the table is stable across runs.
func BuildPreflopTable() *PreflopTable {
	t := &PreflopTable{
		Hands: make([]PreflopHand, 0, 169),
		rank:  make(map[string]int, 169),
	}

	for high := uint8(12); ; high-- {
		for low := high; ; low-- {
			if high == low {
				t.Hands = append(t.Hands, newPreflopHand(high, low, false))
			} else {
				t.Hands = append(t.Hands, newPreflopHand(high, low, true))
				t.Hands = append(t.Hands, newPreflopHand(high, low, false))
			}
			if low == 0 {
				break
			}
		}
		if high == 0 {
			break
		}
	}

	sort.SliceStable(t.Hands, func(i, j int) bool {
		if t.Hands[i].Score != t.Hands[j].Score {
			return t.Hands[i].Score > t.Hands[j].Score
		}
		return t.Hands[i].Category < t.Hands[j].Category
	})

	for i, h := range t.Hands {
		t.rank[h.Category] = i
	}

	return t
}

func newPreflopHand(high, low uint8, suited bool) PreflopHand {
	suit1, suit2 := uint8(poker.Spades), uint8(poker.Hearts)
	if suited {
		suit2 = suit1
	}
	c1 := poker.NewCard(high, suit1)
	c2 := poker.NewCard(low, suit2)

	return PreflopHand{
		Category: categoryString(high, low, suited),
		HighRank: high,
		LowRank:  low,
		Suited:   suited,
		Score:    ChenScore(c1, c2),
	}
}

func categoryString(high, low uint8, suited bool) string {
	if high == low {
		return fmt.Sprintf("%c%c", rankChars[high], rankChars[low])
	}
	if suited {
		return fmt.Sprintf("%c%cs", rankChars[high], rankChars[low])
	}
	return fmt.Sprintf("%c%co", rankChars[high], rankChars[low])
}

// Category canonicalizes two hole cards into the table's category string.
func Category(c1, c2 poker.Card) string {
	r1, r2 := c1.Rank(), c2.Rank()
	if r1 < r2 {
		r1, r2 = r2, r1
	}
	if r1 == r2 {
		return categoryString(r1, r2, false)
	}
	return categoryString(r1, r2, c1.Suit() == c2.Suit())
}

// RankScore returns a 0..1 score for a category, 1 being the strongest
// possible starting hand (AA) and 0 the weakest (72o). Returns false if the
// category is not one of the 169 canonical categories.
func (t *PreflopTable) RankScore(category string) (float64, bool) {
	idx, ok := t.rank[category]
	if !ok {
		return 0, false
	}
	if len(t.Hands) <= 1 {
		return 1, true
	}
	return 1 - float64(idx)/float64(len(t.Hands)-1), true
}

// ScoreHoleCards looks up the rank score for two hole cards directly,
// falling back to a normalized Chen score for any input that somehow
// fails to canonicalize into one of the 169 categories.
func (t *PreflopTable) ScoreHoleCards(c1, c2 poker.Card) float64 {
	if score, ok := t.RankScore(Category(c1, c2)); ok {
		return score
	}
	return ChenScoreNormalized(c1, c2)
}
