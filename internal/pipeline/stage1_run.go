package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/model"
)

// ProcessHand runs Stage 1 end to end for one hand: replay, persist
// hand_info/streets/players/actions, persist the partial_scores sidecar
// into PostflopScores, then backfill action_score/decision_difficulty on
// postflop action rows by node-string matching.
func ProcessHand(ctx context.Context, db *analyticstore.Store, in HandInput, partialScoresJSON []byte) error {
	already, err := db.HasHandInfo(ctx, in.ID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	parsed, err := ParseHand(in)
	if err != nil {
		return fmt.Errorf("process hand: %w", err)
	}

	nodeRows, err := parsePartialScores(in.ID, partialScoresJSON, in.NormalizeCur, in.ChipValue)
	if err != nil {
		return fmt.Errorf("process hand: parse partial scores: %w", err)
	}

	if err := db.WriteParsedHand(ctx, parsed.HandInfo, parsed.Streets, parsed.Players, parsed.Actions); err != nil {
		return fmt.Errorf("process hand: write: %w", err)
	}
	if err := db.WritePostflopScores(ctx, nodeRows); err != nil {
		return fmt.Errorf("process hand: write partial scores: %w", err)
	}

	return backfillActionScores(ctx, db, in.ID, parsed.Actions, nodeRows)
}

// rawScoreEntry is the permissive shape of one partial_scores value:
// either a bare number or {action_score, decision_difficulty}.
type rawScoreEntry struct {
	scalar *float64
	full   *struct {
		ActionScore        float64 `json:"action_score"`
		DecisionDifficulty float64 `json:"decision_difficulty"`
	}
}

func (e *rawScoreEntry) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		e.scalar = &f
		return nil
	}
	var full struct {
		ActionScore        float64 `json:"action_score"`
		DecisionDifficulty float64 `json:"decision_difficulty"`
	}
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	e.full = &full
	return nil
}

func parsePartialScores(handID string, raw []byte, normalizeCur bool, chipValue float64) ([]model.PostflopScoreRow, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries map[string]rawScoreEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	divisor := 1.0
	if normalizeCur && chipValue != 0 {
		divisor = chipValue
	}

	rows := make([]model.PostflopScoreRow, 0, len(entries))
	for node, e := range entries {
		normalizedNode := renormalizeNode(node, divisor)
		row := model.PostflopScoreRow{HandID: handID, NodeString: normalizedNode}
		switch {
		case e.scalar != nil:
			row.ActionScore = *e.scalar
		case e.full != nil:
			row.ActionScore = e.full.ActionScore
			row.DecisionDifficulty = e.full.DecisionDifficulty
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// renormalizeNode rewrites every raise amount embedded in a node string
// (e.g. "x r300 c") by the same divisor Stage 1 applies to action
// amounts, so node strings remain comparable to state_prefix once
// NORMALIZE_CUR is enabled.
func renormalizeNode(node string, divisor float64) string {
	if divisor == 1.0 {
		return node
	}
	var b strings.Builder
	i := 0
	for i < len(node) {
		c := node[i]
		if c == 'r' {
			b.WriteByte(c)
			i++
			start := i
			for i < len(node) && node[i] >= '0' && node[i] <= '9' {
				i++
			}
			if i > start {
				amt := 0
				for _, d := range node[start:i] {
					amt = amt*10 + int(d-'0')
				}
				fmt.Fprintf(&b, "%d", int(float64(amt)/divisor+0.5))
			}
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}

// backfillActionScores implements spec.md §4.5's second paragraph:
// exact match of state_prefix+action against node strings, then a
// digit-stripped match on both sides.
func backfillActionScores(ctx context.Context, db *analyticstore.Store, handID string, actions []model.ActionRow, nodes []model.PostflopScoreRow) error {
	if len(nodes) == 0 {
		return nil
	}
	for _, a := range actions {
		if a.Street == model.Preflop {
			continue
		}
		expected := expectedNodeString(a)
		var match *model.PostflopScoreRow
		for i := range nodes {
			if nodes[i].NodeString == expected {
				match = &nodes[i]
				break
			}
		}
		if match == nil {
			strippedExpected := stripDigits(expected)
			for i := range nodes {
				if stripDigits(nodes[i].NodeString) == strippedExpected {
					match = &nodes[i]
					break
				}
			}
		}
		if match == nil {
			continue
		}
		score := match.ActionScore
		diff := match.DecisionDifficulty
		if err := db.UpdateActionScore(ctx, handID, a.ActionOrder, &score, &diff); err != nil {
			return err
		}
	}
	return nil
}

func stripDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c < '0' || c > '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
