package pipeline

import (
	"context"
	"fmt"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/model"
	"github.com/lox/pokeretl/internal/rangesdb"
	"github.com/lox/pokeretl/poker"
)

const preflopScoreBatchSize = 3000
const bestFreqTolerance = 0.01

// PreflopMatcherStage implements Stage 2 (C6): matching each preflop
// actor's play against the prebuilt solver reference database.
type PreflopMatcherStage struct {
	Ranges *rangesdb.Store
}

func (s *PreflopMatcherStage) Name() string { return "preflop_solver_matcher" }

func (s *PreflopMatcherStage) Run(ctx context.Context, db *analyticstore.Store) error {
	handIDs, err := db.ListDistinctHandIDs(ctx, true, 10000)
	if err != nil {
		return fmt.Errorf("preflop matcher: list hands: %w", err)
	}

	var batch []model.PreflopScoreRow
	for _, handID := range handIDs {
		actions, err := db.HandActions(ctx, handID)
		if err != nil {
			return fmt.Errorf("preflop matcher: load actions %s: %w", handID, err)
		}

		var preflop []model.ActionRow
		for _, a := range actions {
			if a.Street == model.Preflop {
				preflop = append(preflop, a)
			}
		}
		if len(preflop) == 0 {
			continue
		}

		var players map[string]model.PlayerRow
		rows, err := playersFor(ctx, db, handID)
		if err != nil {
			return err
		}
		players = rows

		var seq string
		for _, a := range preflop {
			row, err := matchPreflopAction(ctx, s.Ranges, a, players[a.Position], seq)
			if err != nil {
				return fmt.Errorf("preflop matcher: match %s: %w", handID, err)
			}
			if row != nil {
				batch = append(batch, *row)
			}
			seq += letterCode(a.Action)
			seq = compressTrailingFolds(seq)
		}

		if len(batch) >= preflopScoreBatchSize {
			if err := db.WritePreflopScores(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}

	return db.WritePreflopScores(ctx, batch)
}

func letterCode(a model.ActionKind) string {
	switch a {
	case model.ActionFold:
		return "F"
	case model.ActionCall:
		return "C"
	case model.ActionRaise:
		return "R"
	case model.ActionCheck:
		return "X"
	default:
		return "?"
	}
}

func matchPreflopAction(ctx context.Context, ranges *rangesdb.Store, a model.ActionRow, player model.PlayerRow, precedingSeq string) (*model.PreflopScoreRow, error) {
	holeCards := player.HoleCards
	if len(holeCards) < 4 {
		return nil, nil // unrevealed hole cards can't be canonicalized
	}
	c1, err := poker.ParseCard(holeCards[0:2])
	if err != nil {
		return nil, nil
	}
	c2, err := poker.ParseCard(holeCards[2:4])
	if err != nil {
		return nil, nil
	}

	combo := comboKey(c1, c2)
	pos := refPosition(a.Position)
	seq := compressTrailingFolds(precedingSeq)

	freqs, err := ranges.Lookup(ctx, combo, pos, seq, letterCode(a.Action))
	if err != nil {
		return nil, err
	}
	if !freqs.NodeExists && pos != a.Position {
		freqs, err = ranges.Lookup(ctx, combo, a.Position, seq, letterCode(a.Action))
		if err != nil {
			return nil, err
		}
	}

	row := &model.PreflopScoreRow{
		HandID:   a.HandID,
		Position: a.Position,
		Player:   player.Nickname,
		Combo:    combo,
		Seq:      seq,
	}
	if !freqs.NodeExists {
		return row, nil
	}
	row.Freq = freqs.ActionFreq
	if freqs.MaxFreq != nil && row.Freq != nil {
		if *freqs.MaxFreq-*row.Freq <= bestFreqTolerance {
			best := "y"
			row.Best = &best
		} else {
			notBest := "n"
			row.Best = &notBest
		}
	}
	return row, nil
}

func playersFor(ctx context.Context, db *analyticstore.Store, handID string) (map[string]model.PlayerRow, error) {
	rows, err := db.Pool.Query(ctx, `SELECT hand_id, position, nickname, stack0, holecards, money_won FROM players WHERE hand_id = $1`, handID)
	if err != nil {
		return nil, fmt.Errorf("preflop matcher: load players %s: %w", handID, err)
	}
	defer rows.Close()

	out := make(map[string]model.PlayerRow)
	for rows.Next() {
		var p model.PlayerRow
		if err := rows.Scan(&p.HandID, &p.Position, &p.Nickname, &p.Stack0, &p.HoleCards, &p.MoneyWon); err != nil {
			return nil, err
		}
		out[p.Position] = p
	}
	return out, rows.Err()
}
