package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/model"
)

// ScoreJoinerStage implements Stage 7 (C11): joining PreflopScores and
// PostflopScores back onto action rows as preflop_score/postflop_score/
// solver_best.
type ScoreJoinerStage struct {
	// Normalize rescales any score column whose observed max is <= 1.0 up
	// to a 0-100 scale, per spec.md §4.11's optional --normalize flag.
	Normalize bool
}

func (s *ScoreJoinerStage) Name() string { return "score_joiner" }

func (s *ScoreJoinerStage) Run(ctx context.Context, db *analyticstore.Store) error {
	handIDs, err := db.HandsNeedingStage(ctx, "preflop_score", 1<<30)
	if err != nil {
		return fmt.Errorf("score joiner: list preflop hands: %w", err)
	}
	if err := s.joinPreflop(ctx, db, handIDs); err != nil {
		return err
	}

	postflopHandIDs, err := db.HandsNeedingStage(ctx, "postflop_score", 1<<30)
	if err != nil {
		return fmt.Errorf("score joiner: list postflop hands: %w", err)
	}
	if err := s.joinPostflop(ctx, db, postflopHandIDs); err != nil {
		return err
	}

	if s.Normalize {
		return s.normalizeScores(ctx, db)
	}
	return nil
}

func (s *ScoreJoinerStage) joinPreflop(ctx context.Context, db *analyticstore.Store, handIDs []string) error {
	var batch []model.ActionRow
	for _, handID := range handIDs {
		has, err := db.HasPreflopScores(ctx, handID)
		if err != nil {
			return err
		}
		if !has {
			continue
		}

		actions, err := db.HandActions(ctx, handID)
		if err != nil {
			return fmt.Errorf("score joiner: load actions %s: %w", handID, err)
		}
		for _, a := range actions {
			if a.Street != model.Preflop || a.PreflopScore != nil {
				continue
			}
			if a.Action != model.ActionRaise && a.Action != model.ActionCall && a.Action != model.ActionFold {
				continue
			}

			row, err := db.PreflopScoreByPosition(ctx, handID, a.Position)
			if err != nil {
				return err
			}
			if row == nil || row.Freq == nil {
				continue
			}
			score := *row.Freq
			a.PreflopScore = &score
			a.SolverBest = row.Best
			batch = append(batch, a)
			if len(batch) >= sizingBatchSize {
				if err := db.UpdateActionFieldsBatch(ctx, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
	}
	return db.UpdateActionFieldsBatch(ctx, batch)
}

func (s *ScoreJoinerStage) joinPostflop(ctx context.Context, db *analyticstore.Store, handIDs []string) error {
	var batch []model.ActionRow
	for _, handID := range handIDs {
		nodes, err := db.HandPostflopNodes(ctx, handID)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			continue
		}

		actions, err := db.HandActions(ctx, handID)
		if err != nil {
			return fmt.Errorf("score joiner: load actions %s: %w", handID, err)
		}
		for _, a := range actions {
			if a.Street == model.Preflop || a.PostflopScore != nil {
				continue
			}
			expected := expectedNodeString(a)
			match := matchNode(nodes, expected)
			if match == nil {
				continue
			}
			score := match.ActionScore
			a.PostflopScore = &score
			batch = append(batch, a)
			if len(batch) >= sizingBatchSize {
				if err := db.UpdateActionFieldsBatch(ctx, batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
	}
	return db.UpdateActionFieldsBatch(ctx, batch)
}

// expectedNodeString builds the node string Stage 1's partial_scores keys
// should match: the action's state prefix plus its own token, raises
// including the amount_to value.
func expectedNodeString(a model.ActionRow) string {
	tok := string(a.Action)
	if a.Action == model.ActionRaise {
		tok = fmt.Sprintf("r%d", a.AmountTo)
	}
	return a.StatePrefix + tok
}

// matchNode finds a stored node exactly, then by suffix, then by prefix,
// per spec.md §4.11.
func matchNode(nodes []model.PostflopScoreRow, expected string) *model.PostflopScoreRow {
	for i := range nodes {
		if nodes[i].NodeString == expected {
			return &nodes[i]
		}
	}
	for i := range nodes {
		if strings.HasSuffix(nodes[i].NodeString, expected) {
			return &nodes[i]
		}
	}
	for i := range nodes {
		if strings.HasPrefix(expected, nodes[i].NodeString) {
			return &nodes[i]
		}
	}
	return nil
}

func (s *ScoreJoinerStage) normalizeScores(ctx context.Context, db *analyticstore.Store) error {
	for _, col := range []string{"preflop_score", "postflop_score"} {
		var maxVal *float64
		query := fmt.Sprintf("SELECT MAX(%s) FROM actions", col)
		if err := db.Pool.QueryRow(ctx, query).Scan(&maxVal); err != nil {
			return fmt.Errorf("score joiner: normalize %s: %w", col, err)
		}
		if maxVal == nil || *maxVal > 1.0 {
			continue
		}
		update := fmt.Sprintf("UPDATE actions SET %s = %s * 100 WHERE %s IS NOT NULL", col, col, col)
		if _, err := db.Pool.Exec(ctx, update); err != nil {
			return fmt.Errorf("score joiner: normalize %s: %w", col, err)
		}
	}
	return nil
}
