package upstream

import "github.com/lox/pokeretl/internal/pipeline"

// ToHandInput adapts one decoded RawHand into the pipeline's
// replay-ready HandInput. Position keys (UTG, UTG1, UTG2, ...) are passed
// through unchanged; absent optional fields arrive as the zero values
// flexNumber and flexBool decode them to.
func ToHandInput(h RawHand, seq int, normalizeCur bool) pipeline.HandInput {
	positions := make(map[string]pipeline.PositionInput, len(h.Positions))
	for pos, p := range h.Positions {
		positions[pos] = pipeline.PositionInput{
			Stub:      p.Stub,
			Name:      p.Name,
			Stack:     float64(p.Stack),
			HoleCards: p.HoleCards,
			MoneyWon:  float64(p.MoneyWon),
		}
	}

	return pipeline.HandInput{
		ID:              h.Stub,
		Seq:             seq,
		SituationString: h.SituationString,
		Positions:       positions,
		BigBlind:        float64(h.BigBlindAmount),
		SmallBlind:      float64(h.SmallBlindAmount),
		Ante:            float64(h.AnteAmount),
		PotType:         h.PotType,
		IsCash:          bool(h.IsCash),
		IsMTT:           bool(h.IsMTT),
		NormalizeCur:    normalizeCur,
		ChipValue:       float64(h.ChipValue),
	}
}
