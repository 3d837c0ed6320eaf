package poker

import "math/bits"

// EvaluateBest generalizes Evaluate7Cards to any hand of 5, 6, or 7 cards
// (hole cards plus however much of the board has been revealed). The
// underlying rank/suit-mask analysis in Evaluate7Cards never actually
// depended on having exactly seven cards; only its guard clause did.
func EvaluateBest(hand Hand) HandRank {
	n := hand.CountCards()
	if n < 5 || n > 7 {
		return 0
	}

	bestFlushRank := HandRank(0)
	for suit := range uint8(4) {
		suitMask := hand.GetSuitMask(suit)
		if bits.OnesCount16(suitMask) >= 5 {
			if straightRank := straightHighMask(suitMask); straightRank > 0 {
				rank := StraightFlush | (HandRank(straightRank) << 24)
				if rank > bestFlushRank {
					bestFlushRank = rank
				}
			} else {
				flushCards := Hand(uint64(suitMask) << (suit * 13))
				topCards := getTopCardsOrdered(flushCards, 5)
				rank := Flush | (HandRank(topCards[0]) << 24) | (HandRank(topCards[1]) << 20) |
					(HandRank(topCards[2]) << 16) | (HandRank(topCards[3]) << 12) | (HandRank(topCards[4]) << 8)
				if rank > bestFlushRank {
					bestFlushRank = rank
				}
			}
		}
	}
	if bestFlushRank > 0 {
		return bestFlushRank
	}

	rankCounts, rankMask := countRanks(hand)

	if quad := findNOfAKind(rankCounts, 4); quad >= 0 {
		kicker := findKicker(rankCounts, rankMask, []uint8{uint8(quad)})
		return FourOfAKind | (HandRank(quad) << 24) | (HandRank(kicker) << 20)
	}

	trips := findNOfAKind(rankCounts, 3)
	if trips >= 0 {
		pair := findNOfAKindAtLeast(rankCounts, 2, uint8(trips))
		if pair >= 0 {
			return FullHouse | (HandRank(trips) << 24) | (HandRank(pair) << 20)
		}
	}

	if straightRank := straightHighMask(rankMask); straightRank > 0 {
		return Straight | (HandRank(straightRank) << 24)
	}

	if trips >= 0 {
		kickers := findOrderedKickers(rankCounts, rankMask, []uint8{uint8(trips)}, 2)
		return ThreeOfAKind | (HandRank(trips) << 24) | (HandRank(kickers[0]) << 20) | (HandRank(kickers[1]) << 16)
	}

	pair1 := findNOfAKind(rankCounts, 2)
	if pair1 >= 0 {
		pair2 := findNOfAKindExcept(rankCounts, 2, uint8(pair1))
		if pair2 >= 0 {
			if pair2 > pair1 {
				pair1, pair2 = pair2, pair1
			}
			kicker := findKicker(rankCounts, rankMask, []uint8{uint8(pair1), uint8(pair2)})
			return TwoPair | (HandRank(pair1) << 24) | (HandRank(pair2) << 20) | (HandRank(kicker) << 16)
		}
		kickers := findOrderedKickers(rankCounts, rankMask, []uint8{uint8(pair1)}, 3)
		return Pair | (HandRank(pair1) << 24) | (HandRank(kickers[0]) << 20) | (HandRank(kickers[1]) << 16) | (HandRank(kickers[2]) << 12)
	}

	kickers := findOrderedKickers(rankCounts, rankMask, []uint8{}, 5)
	return HighCard | (HandRank(kickers[0]) << 24) | (HandRank(kickers[1]) << 20) | (HandRank(kickers[2]) << 16) | (HandRank(kickers[3]) << 12) | (HandRank(kickers[4]) << 8)
}

// MaxHandRank is the highest value EvaluateBest/Evaluate7Cards can return
// (royal flush), used to normalize a hand rank onto a 0..1 percentile.
const MaxHandRank = StraightFlush | (HandRank(Ace) << 24)

// MinHandRank is the HighCard type with no rank bits set (0). It lies below
// every value EvaluateBest returns for a valid hand, the weakest of which
// is a seven-high high card.
const MinHandRank = HighCard
