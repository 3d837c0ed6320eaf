package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/pokeretl/internal/model"
)

func action(street model.Street, pos string, kind model.ActionKind) model.ActionRow {
	return model.ActionRow{Street: street, Position: pos, Action: kind}
}

var defaultLabels = map[string]string{
	"open": "open", "bet": "bet", "raise": "raise", "checkraise": "checkraise",
	"donk": "donk", "probe": "probe", "cont": "cont", "float": "float",
	"check": "check", "fold": "fold", "call": "call",
}

// S7 — preflop raise ordinals: the first raise is "open", the second
// "2bet", per spec.md §4.8.
func TestLabelHandPreflopOrdinals(t *testing.T) {
	actions := []model.ActionRow{
		action(model.Preflop, "UTG", model.ActionFold),
		action(model.Preflop, "HJ", model.ActionRaise), // open
		action(model.Preflop, "CO", model.ActionRaise), // 2nd raise -> 2bet
		action(model.Preflop, "BTN", model.ActionFold),
		action(model.Preflop, "SB", model.ActionFold),
		action(model.Preflop, "BB", model.ActionFold),
	}
	labeled := labelHand(actions, defaultLabels)

	require.Equal(t, "open", *labeled[1].ActionLabel)
	require.Equal(t, "2bet", *labeled[2].ActionLabel)
}

func TestLabelHandPostflopContinuationBet(t *testing.T) {
	actions := []model.ActionRow{
		action(model.Preflop, "BTN", model.ActionRaise),
		action(model.Preflop, "BB", model.ActionCall),
		action(model.Flop, "BB", model.ActionCheck),
		action(model.Flop, "BTN", model.ActionRaise), // preflop aggressor bets -> cont
	}
	labeled := labelHand(actions, defaultLabels)
	require.Equal(t, "cont", *labeled[3].ActionLabel)
}

func TestLabelHandPostflopDonkBet(t *testing.T) {
	actions := []model.ActionRow{
		action(model.Preflop, "BB", model.ActionRaise),
		action(model.Preflop, "BTN", model.ActionCall),
		action(model.Preflop, "SB", model.ActionFold),
		// BTN (OOP, not the preflop aggressor) bets into the aggressor without a prior check.
		action(model.Flop, "BTN", model.ActionRaise),
	}
	labeled := labelHand(actions, defaultLabels)
	require.Equal(t, model.OOP, *labeled[3].IPStatus)
	require.Equal(t, "donk", *labeled[3].ActionLabel)
}

func TestLabelHandCheckRaise(t *testing.T) {
	actions := []model.ActionRow{
		action(model.Preflop, "BTN", model.ActionRaise),
		action(model.Preflop, "BB", model.ActionCall),
		action(model.Flop, "BB", model.ActionCheck),
		action(model.Flop, "BTN", model.ActionRaise), // cont bet
		action(model.Flop, "BB", model.ActionRaise),  // check then raise -> checkraise
	}
	labeled := labelHand(actions, defaultLabels)
	require.Equal(t, "checkraise", *labeled[4].ActionLabel)
}

func TestLabelHandIPStatusUnaffectedByAnEarlierFold(t *testing.T) {
	actions := []model.ActionRow{
		action(model.Preflop, "BTN", model.ActionRaise),
		action(model.Preflop, "SB", model.ActionFold),
		action(model.Preflop, "BB", model.ActionCall),
		action(model.Flop, "BB", model.ActionCheck),
		action(model.Flop, "BTN", model.ActionRaise),
	}
	labeled := labelHand(actions, defaultLabels)
	// IP/OOP is computed against the static preflop seating order fixed
	// for the whole hand, not the shrinking set of still-live players, so
	// SB's earlier fold does not shift BB's or BTN's postflop status.
	require.Equal(t, model.IP, *labeled[3].IPStatus)
	require.Equal(t, model.OOP, *labeled[4].IPStatus)
}

func TestLabelHandIPStatusUsesStaticOrderEvenWhenItsOccupantFolded(t *testing.T) {
	actions := []model.ActionRow{
		action(model.Preflop, "UTG", model.ActionFold),
		action(model.Preflop, "BTN", model.ActionRaise),
		action(model.Preflop, "SB", model.ActionFold),
		action(model.Preflop, "BB", model.ActionCall),
		action(model.Flop, "BB", model.ActionCheck),
		action(model.Flop, "BTN", model.ActionRaise),
	}
	labeled := labelHand(actions, defaultLabels)
	// The static preflop order is [UTG, BTN, SB, BB]; BTN's in-position
	// seat is one before BTN in that 4-seat order, i.e. UTG's slot. UTG
	// already folded preflop, so nobody occupies the IP slot this hand —
	// both remaining postflop actors are OOP, even the button.
	require.Equal(t, model.OOP, *labeled[4].IPStatus)
	require.Equal(t, model.OOP, *labeled[5].IPStatus)
}
