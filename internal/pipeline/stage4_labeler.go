package pipeline

import (
	"context"
	"fmt"

	"github.com/lox/pokeretl/internal/analyticstore"
	"github.com/lox/pokeretl/internal/model"
	"github.com/lox/pokeretl/internal/rules"
)

// sixMaxOrder is the 6-max seating order named in spec.md §4.8. labelHand
// does not read it: IP/OOP is computed against the hand's own preflop
// order as recovered by preflopOrderOf.
var sixMaxOrder = []string{"UTG", "HJ", "CO", "BTN", "SB", "BB"}

// ActionLabelerStage implements Stage 4 (C8): per-hand replay computing
// action_label and ip_status.
type ActionLabelerStage struct {
	Rules *rules.LabelRuleSet
}

func (s *ActionLabelerStage) Name() string { return "action_labeler" }

func (s *ActionLabelerStage) Run(ctx context.Context, db *analyticstore.Store) error {
	handIDs, err := db.HandsNeedingStage(ctx, "action_label", 1<<30)
	if err != nil {
		return fmt.Errorf("action labeler: list hands: %w", err)
	}

	ruleLabel := labelOverrides(s.Rules)

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
			return fmt.Errorf("action labeler: load actions %s: %w", handID, err)
		}
		labeled := labelHand(actions, ruleLabel)
		batch = append(batch, labeled...)
		if len(batch) >= sizingBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// labelOverrides flattens the rule set's "label" fields (when non-empty)
// by rule name, so a user-supplied HCL file can rename a semantic
// category's text without altering the detection logic.
func labelOverrides(rs *rules.LabelRuleSet) map[string]string {
	out := map[string]string{
		"open": "open", "bet": "bet", "raise": "raise", "checkraise": "checkraise",
		"donk": "donk", "probe": "probe", "cont": "cont", "float": "float",
		"check": "check", "fold": "fold", "call": "call",
	}
	if rs == nil {
		return out
	}
	for _, r := range rs.Rules {
		if r.Label != "" {
			out[r.Name] = r.Label
		}
	}
	return out
}

// streetState carries the per-street bookkeeping the labeler needs.
type streetState struct {
	betCount      int
	raiseOrdinal  int
	firstBettor   string
	checked       map[string]bool
	anyBetOrRaise bool
}

func newStreetState() *streetState {
	return &streetState{checked: make(map[string]bool)}
}

// labelHand replays one hand's actions in order, computing action_label
// and ip_status for every row, per spec.md §4.8.
func labelHand(actions []model.ActionRow, labels map[string]string) []model.ActionRow {
	out := make([]model.ActionRow, len(actions))
	copy(out, actions)
	if len(out) == 0 {
		return out
	}

	btnIndex := 0
	preflopOrder := preflopOrderOf(out)
	if idx := indexOf(preflopOrder, "BTN"); idx >= 0 {
		btnIndex = idx
	}

	var preflopAggressor string
	var prevStreetTwoChecks, prevStreetHadBet bool
	var st *streetState
	var curStreet model.Street

	for i := range out {
		a := &out[i]
		if a.Street != curStreet {
			if st != nil {
				prevStreetHadBet = st.anyBetOrRaise
				prevStreetTwoChecks = len(st.checked) >= 2 && !st.anyBetOrRaise
			}
			curStreet = a.Street
			st = newStreetState()
		}

		ip := computeIPStatus(a.Street, a.Position, btnIndex, preflopOrder)
		a.IPStatus = &ip

		// Raise counters must be updated before classification: the
		// ordinal a raise is classified against is its own position in
		// the street's bet/raise sequence, not the prior action's.
		if a.Action == model.ActionRaise {
			st.raiseOrdinal++
			if st.raiseOrdinal == 1 {
				st.firstBettor = a.Position
			}
			st.anyBetOrRaise = true
		}

		label := classifyAction(a, st, preflopAggressor, prevStreetTwoChecks, prevStreetHadBet, labels)
		a.ActionLabel = &label

		switch a.Action {
		case model.ActionRaise:
			if a.Street == model.Preflop {
				preflopAggressor = a.Position
			}
		case model.ActionCheck:
			st.checked[a.Position] = true
		}
	}

	return out
}

// preflopOrderOf recovers the hand's canonical preflop seating order from
// its action rows (the first appearance of each position, preflop only).
func preflopOrderOf(actions []model.ActionRow) []string {
	seen := map[string]bool{}
	var order []string
	for _, a := range actions {
		if a.Street != model.Preflop {
			continue
		}
		if !seen[a.Position] {
			seen[a.Position] = true
			order = append(order, a.Position)
		}
	}
	return order
}

// computeIPStatus decides IP/OOP for one action. Postflop, it indexes the
// *static* preflop seating order fixed for the whole hand (never the
// shrinking set of players still live on the current street), matching
// PositionTracker.ip_status's idx = self.order.index(pos) against the
// original order/length.
func computeIPStatus(street model.Street, position string, btnIndex int, order []string) model.IPStatus {
	if street == model.Preflop {
		if position == "BTN" {
			return model.IP
		}
		return model.OOP
	}
	if len(order) == 0 {
		return model.OOP
	}
	idx := indexOf(order, position)
	if idx < 0 {
		return model.OOP
	}
	ipIdx := (btnIndex - 1 + len(order)) % len(order)
	if idx == ipIdx {
		return model.IP
	}
	return model.OOP
}

func classifyAction(a *model.ActionRow, st *streetState, preflopAggressor string, prevTwoChecks, prevHadBet bool, labels map[string]string) string {
	switch a.Action {
	case model.ActionCheck:
		return labels["check"]
	case model.ActionFold:
		return labels["fold"]
	case model.ActionCall:
		if a.Street != model.Preflop && *a.IPStatus == model.IP && st.raiseOrdinal == 0 {
			return labels["float"]
		}
		return labels["call"]
	case model.ActionRaise:
		if a.Street == model.Preflop {
			return preflopOrdinalLabel(st.raiseOrdinal, labels)
		}
		return postflopRaiseLabel(a, st, preflopAggressor, prevTwoChecks, prevHadBet, labels)
	default:
		return ""
	}
}

func preflopOrdinalLabel(ordinal int, labels map[string]string) string {
	switch ordinal {
	case 1:
		return labels["open"]
	case 2:
		return "2bet"
	case 3:
		return "3bet"
	case 4:
		return "4bet"
	case 5:
		return "5bet"
	default:
		return fmt.Sprintf("%dbet", ordinal)
	}
}

func postflopRaiseLabel(a *model.ActionRow, st *streetState, preflopAggressor string, prevTwoChecks, prevHadBet bool, labels map[string]string) string {
	if st.raiseOrdinal == 1 {
		// First bet or raise of the street.
		if st.checked[a.Position] {
			return labels["checkraise"]
		}
		if a.Street != model.Preflop && *a.IPStatus == model.OOP && a.Position != preflopAggressor {
			if (a.Street == model.Turn || a.Street == model.River) && prevTwoChecks && !prevHadBet {
				return labels["probe"]
			}
			return labels["donk"]
		}
		if a.Position == preflopAggressor {
			return labels["cont"]
		}
		return labels["bet"]
	}
	if st.checked[a.Position] {
		return labels["checkraise"]
	}
	return preflopOrdinalLabel(st.raiseOrdinal, labels)
}
