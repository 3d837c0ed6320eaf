package pipeline

import (
	"context"
	"fmt"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/model"
)

const sizingBatchSize = 5000

// sizeBucket is one row of the Stage 3 lookup table: a half-open
// fractional range mapping to a named bucket, per spec.md §4.7.
type sizeBucket struct {
	name     string
	min, max float64 // max is exclusive; +Inf for the open-ended top bucket
}

var preflopBuckets = []sizeBucket{
	{"tiny", 0.01, 1.50},
	{"small", 1.50, 2.25},
	{"medium", 2.25, 3.00},
	{"big", 3.00, 3.75},
	{"pot", 3.75, 4.50},
	{"over", 4.50, 6.00},
	{"huge", 6.00, inf},
}

var postflopBuckets = []sizeBucket{
	{"tiny", 0.01, 0.20},
	{"small", 0.20, 0.35},
	{"medium", 0.35, 0.55},
	{"big", 0.55, 0.85},
	{"pot", 0.85, 1.10},
	{"over", 1.10, 1.75},
	{"huge", 1.75, inf},
}

const inf = 1e18

func classify(frac float64, buckets []sizeBucket) string {
	for _, b := range buckets {
		if frac >= b.min && frac < b.max {
			return b.name
		}
	}
	return "unknown"
}

// SizingClassifierStage implements Stage 3 (C7): per-action size_frac and
// size_cat.
type SizingClassifierStage struct{}

func (s *SizingClassifierStage) Name() string { return "sizing_classifier" }

func (s *SizingClassifierStage) Run(ctx context.Context, db *analyticstore.Store) error {
	handIDs, err := db.HandsNeedingStage(ctx, "size_cat", 1<<30)
	if err != nil {
		return fmt.Errorf("sizing classifier: list hands: %w", err)
	}

	var batch []model.ActionRow
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := db.UpdateActionFieldsBatch(ctx, batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for _, handID := range handIDs {
		actions, err := db.HandActions(ctx, handID)
		if err != nil {
			return fmt.Errorf("sizing classifier: load actions %s: %w", handID, err)
		}
		for _, a := range actions {
			if a.SizeCat != nil {
				continue
			}
			if a.Action != model.ActionRaise {
				continue
			}

			var frac float64
			var ok bool
			var buckets []sizeBucket
			if a.Street == model.Preflop {
				buckets = preflopBuckets
				if a.HandID != "" {
					bb := bigBlindFor(ctx, db, a.HandID)
					if bb > 0 {
						frac = float64(a.AmountTo) / bb
						ok = true
					}
				}
			} else {
				buckets = postflopBuckets
				if a.PotBefore > 0 {
					frac = float64(a.InvestedThisAction) / float64(a.PotBefore)
					ok = true
				}
			}
			if !ok {
				continue
			}

			cat := classify(frac, buckets)
			a.SizeFrac = &frac
			a.SizeCat = &cat
			batch = append(batch, a)
			if len(batch) >= sizingBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}

	return flush()
}

func bigBlindFor(ctx context.Context, db *analyticstore.Store, handID string) float64 {
	var bb float64
	_ = db.Pool.QueryRow(ctx, `SELECT big_blind FROM hand_info WHERE hand_id = $1`, handID).Scan(&bb)
	return bb
}
