package pipeline

import (
	"fmt"

	"github.com/lox/pokeretl/internal/model"
)

// PositionInput describes one seat's static data, as consumed from the
// upstream hand JSON's "positions" map.
type PositionInput struct {
	Stub      string
	Name      string
	Stack     float64
	HoleCards string // e.g. "AhKs", empty if not revealed
	MoneyWon  float64
}

// HandInput is everything Stage 1 needs to replay one hand.
type HandInput struct {
	ID              string
	HandDate        string
	Seq             int
	SituationString string
	Positions       map[string]PositionInput
	BigBlind        float64
	SmallBlind      float64
	Ante            float64
	PotType         string
	IsCash          bool
	IsMTT           bool
	NormalizeCur    bool
	ChipValue       float64 // chip_value_in_displayed_currency; divisor when NormalizeCur
}

// ParsedHand is Stage 1's output for one hand: ready-to-insert rows for
// HandInfo, Streets, Players, and Actions.
type ParsedHand struct {
	HandInfo model.HandInfo
	Streets  []model.StreetRow
	Players  []model.PlayerRow
	Actions  []model.ActionRow
}

var streetNames = []model.Street{model.Preflop, model.Flop, model.Turn, model.River}

// ParseHand replays one hand's situation_string into positioned
// per-action rows, per spec §4.5.
func ParseHand(in HandInput) (*ParsedHand, error) {
	streets, err := tokenize(in.SituationString)
	if err != nil {
		return nil, fmt.Errorf("parse hand %s: %w", in.ID, err)
	}
	if len(streets) > len(streetNames) {
		return nil, fmt.Errorf("parse hand %s: too many streets (%d)", in.ID, len(streets))
	}

	divisor := 1.0
	if in.NormalizeCur && in.ChipValue != 0 {
		divisor = in.ChipValue
	}
	norm := func(v float64) int { return int(v/divisor + 0.5) }

	present := make(map[string]bool, len(in.Positions))
	for pos := range in.Positions {
		present[pos] = true
	}
	order := orderedPositions(present)
	if len(order) == 0 {
		return nil, fmt.Errorf("parse hand %s: no known positions present", in.ID)
	}

	stacks := make(map[string]int, len(order))
	for _, pos := range order {
		stacks[pos] = norm(in.Positions[pos].Stack)
	}

	invested := make(map[string]int, len(order))
	potBefore := 0
	if _, ok := in.Positions["SB"]; ok {
		invested["SB"] = norm(in.SmallBlind)
		stacks["SB"] -= invested["SB"]
		potBefore += invested["SB"]
	}
	if _, ok := in.Positions["BB"]; ok {
		invested["BB"] = norm(in.BigBlind)
		stacks["BB"] -= invested["BB"]
		potBefore += invested["BB"]
	}
	if in.Ante > 0 {
		potBefore += norm(in.Ante) * len(order)
	}
	curMax := invested["BB"]

	active := append([]string(nil), order...)
	queue := append([]string(nil), order...)

	result := &ParsedHand{
		HandInfo: model.HandInfo{
			HandID:     in.ID,
			HandDate:   in.HandDate,
			Seq:        in.Seq,
			IsMTT:      in.IsMTT,
			IsCash:     in.IsCash,
			BigBlind:   in.BigBlind / divisor,
			SmallBlind: in.SmallBlind / divisor,
			Ante:       in.Ante / divisor,
			PlayersCnt: len(order),
			PotType:    in.PotType,
		},
		Players: make([]model.PlayerRow, 0, len(order)),
	}
	for _, pos := range order {
		p := in.Positions[pos]
		result.Players = append(result.Players, model.PlayerRow{
			HandID:    in.ID,
			Position:  pos,
			Nickname:  p.Name,
			Stack0:    norm(p.Stack),
			HoleCards: p.HoleCards,
			MoneyWon:  p.MoneyWon / divisor,
		})
	}

	var statePrefix string
	var boardCards string
	actionOrder := 0

	for si, street := range streets {
		streetName := streetNames[si]
		result.Streets = append(result.Streets, model.StreetRow{HandID: in.ID, Street: streetName, Board: street.Board})

		if si > 0 {
			boardCards += street.Board
			statePrefix += "[" + street.Board + "]"
			queue = postflopQueue(active)
			curMax = 0
			for _, pos := range active {
				invested[pos] = 0
			}
		}

		streetIndex := 0
		for _, tok := range street.Actions {
			if len(queue) == 0 {
				return nil, fmt.Errorf("parse hand %s: ran out of active players mid-street", in.ID)
			}
			pos := queue[0]
			prefixBefore := statePrefix

			var amountTo, investedThis int
			kind := model.ActionKind(tok.Kind)

			switch tok.Kind {
			case tokRaise:
				amountTo = norm(float64(tok.Amount))
				investedThis = amountTo - invested[pos]
				if amountTo > curMax {
					curMax = amountTo
				}
			case tokCall:
				investedThis = curMax - invested[pos]
			case tokCheck, tokFold:
				investedThis = 0
			}
			if investedThis < 0 {
				investedThis = 0
			}

			stackBefore := stacks[pos]
			stackAfter := stackBefore - investedThis
			potAfter := potBefore + investedThis
			invested[pos] += investedThis
			stacks[pos] = stackAfter

			if tok.Kind == tokFold {
				active = removePosition(active, pos)
				queue = removePosition(queue, pos)
			} else {
				queue = rotate(queue, 1)
			}

			row := model.ActionRow{
				HandID:             in.ID,
				ActionOrder:        actionOrder,
				Street:             streetName,
				StreetIndex:        streetIndex,
				Position:           pos,
				PlayerID:           in.Positions[pos].Stub,
				Nickname:           in.Positions[pos].Name,
				Action:             kind,
				AmountTo:           amountTo,
				StackBefore:        stackBefore,
				StackAfter:         stackAfter,
				InvestedThisAction: investedThis,
				PotBefore:          potBefore,
				PotAfter:           potAfter,
				PlayersLeft:        len(active),
				IsAllin:            stackAfter == 0,
				StatePrefix:        prefixBefore,
				BoardCards:         boardCards,
				HoleCards:          in.Positions[pos].HoleCards,
			}
			result.Actions = append(result.Actions, row)

			statePrefix += string(tok.Kind)
			if tok.Kind == tokRaise {
				statePrefix += fmt.Sprintf("%d", tok.Amount)
			}
			potBefore = potAfter
			actionOrder++
			streetIndex++
		}
	}

	return result, nil
}
