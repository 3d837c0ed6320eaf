package pipeline

import (
	"context"
	"fmt"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/model"
	"github.com/lox/pokeretl/internal/rules"
)

// IntentionMapperStage implements Stage 6 (C10): intention strings for
// every action whose action_label and j_score are already set.
type IntentionMapperStage struct {
	Tree *rules.IntentionTree
}

func (s *IntentionMapperStage) Name() string { return "intention_mapper" }

func (s *IntentionMapperStage) Run(ctx context.Context, db *analyticstore.Store) error {
	handIDs, err := db.HandsNeedingStage(ctx, "intention", 1<<30)
	if err != nil {
		return fmt.Errorf("intention mapper: list hands: %w", err)
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
			return fmt.Errorf("intention mapper: load actions %s: %w", handID, err)
		}
		for _, a := range actions {
			if a.Intention != nil || a.ActionLabel == nil || a.JScore == nil {
				continue
			}
			intention := mapIntention(s.Tree, a)
			a.Intention = &intention
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

func mapIntention(tree *rules.IntentionTree, a model.ActionRow) string {
	label := *a.ActionLabel
	switch label {
	case "check":
		return "check"
	}

	strength := rules.StrengthBucket(*a.JScore)

	if label == "call" || label == "fold" {
		return fallbackCallFold(label, strength)
	}

	if tree != nil {
		if m, ok := tree.Lookup(string(a.Street), label); ok {
			sizeBucket := "unknown"
			if a.SizeCat != nil {
				sizeBucket = *a.SizeCat
			}
			if byStrength, ok := m.DetailedMappings[strength]; ok {
				if v, ok := byStrength[sizeBucket]; ok {
					return v
				}
			}
			group := rules.SizeGroup(sizeBucket)
			if byStrength, ok := m.StrengthMappings[strength]; ok {
				if v, ok := byStrength[group]; ok {
					return v
				}
			}
		}
	}

	size := "unknown"
	if a.SizeCat != nil {
		size = *a.SizeCat
	}
	return fmt.Sprintf("%s-%s-%s", label, strength, size)
}

func fallbackCallFold(label, strength string) string {
	switch strength {
	case "high":
		return label + "-strong"
	case "medium":
		return label + "-medium"
	default:
		return label + "-weak"
	}
}
