package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/handrank"
	"github.com/lox/pokeretl/internal/model"
	"github.com/lox/pokeretl/poker"
)

const scoringBatchSize = 5000
const scoringWorkers = 4

// HandStrengthScorerStage implements Stage 5 (C9): j_score for every
// action, preflop via the static 169-hand table, postflop via the 5-7
// card evaluator with risk adjustment.
type HandStrengthScorerStage struct {
	PreflopTable *handrank.PreflopTable
}

func (s *HandStrengthScorerStage) Name() string { return "hand_strength_scorer" }

func (s *HandStrengthScorerStage) Run(ctx context.Context, db *analyticstore.Store) error {
	if s.PreflopTable == nil {
		s.PreflopTable = handrank.BuildPreflopTable()
	}

	handIDs, err := db.HandsNeedingStage(ctx, "j_score", 1<<30)
	if err != nil {
		return fmt.Errorf("hand strength scorer: list hands: %w", err)
	}

	pending := make([]model.ActionRow, 0, scoringBatchSize)
	flushQueue := make(chan []model.ActionRow, scoringWorkers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < scoringWorkers; i++ {
		g.Go(func() error {
			for batch := range flushQueue {
				if err := db.UpdateActionFieldsBatch(gctx, batch); err != nil {
					return err
				}
			}
			return nil
		})
	}

	for _, handID := range handIDs {
		actions, err := db.HandActions(ctx, handID)
		if err != nil {
			close(flushQueue)
			_ = g.Wait()
			return fmt.Errorf("hand strength scorer: load actions %s: %w", handID, err)
		}

		for i := range actions {
			a := &actions[i]
			if a.JScore != nil {
				continue
			}

			board, _ := parseBoard(a.BoardCards)
			score := scoreAction(s.PreflopTable, *a, board)
			a.JScore = &score
			pending = append(pending, *a)
			if len(pending) >= scoringBatchSize {
				flushQueue <- pending
				pending = make([]model.ActionRow, 0, scoringBatchSize)
			}
		}
	}
	if len(pending) > 0 {
		flushQueue <- pending
	}
	close(flushQueue)

	return g.Wait()
}

func parseBoard(board string) ([]poker.Card, error) {
	var cards []poker.Card
	for i := 0; i+1 < len(board); i += 2 {
		c, err := poker.ParseCard(board[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func scoreAction(table *handrank.PreflopTable, a model.ActionRow, board []poker.Card) float64 {
	if len(a.HoleCards) < 4 {
		return roundNoBase(a)
	}
	c1, err1 := poker.ParseCard(a.HoleCards[0:2])
	c2, err2 := poker.ParseCard(a.HoleCards[2:4])
	if err1 != nil || err2 != nil {
		return roundNoBase(a)
	}

	if a.Street == model.Preflop {
		base := table.ScoreHoleCards(c1, c2)
		return handrank.FinalScore(base, 1)
	}

	var base float64
	if len(board) >= 3 {
		hole := [2]poker.Card{c1, c2}
		if pct, ok := handrank.PostflopPercentile(hole, board); ok {
			base = pct
		} else {
			base = handrank.ChenFallback(c1, c2)
		}
	} else {
		base = handrank.ChenFallback(c1, c2)
	}

	adj := handrank.RiskAdjustment(float64(a.InvestedThisAction), float64(a.PotBefore))
	return handrank.FinalScore(base, adj)
}

func roundNoBase(a model.ActionRow) float64 {
	adj := handrank.RiskAdjustment(float64(a.InvestedThisAction), float64(a.PotBefore))
	return handrank.FinalScore(0, adj)
}
