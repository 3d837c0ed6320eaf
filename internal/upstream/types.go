package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawHand is a permissive model of one upstream hand-history record.
// Unknown fields are ignored when decoding (the decoder does not fill
// Extra); fields that
// occasionally arrive with inconsistent shapes (e.g. "0:83" instead of a
// plain number) are parsed defensively via flexNumber/flexBool.
type RawHand struct {
	Stub              string                    `json:"stub"`
	Positions         map[string]RawPosition    `json:"positions"`
	SituationString   string                    `json:"situation_string"`
	BigBlindAmount    flexNumber                `json:"big_blind_amount"`
	SmallBlindAmount  flexNumber                `json:"small_blind_amount"`
	AnteAmount        flexNumber                `json:"ante_amount"`
	IsMTT             flexBool                  `json:"is_mtt"`
	IsCash            flexBool                  `json:"is_cash"`
	PotType           string                    `json:"pot_type"`
	Blinds            string                    `json:"blinds"`
	EffectiveStack    flexNumber                `json:"effective_stack"`
	ChipValue         flexNumber                `json:"chip_value_in_displayed_currency"`
	PartialScores     map[string]json.RawMessage `json:"partial_scores"`
	Extra             map[string]json.RawMessage `json:"-"`
}

// RawPosition is one seat's static data within a RawHand.
type RawPosition struct {
	Stub      string     `json:"stub"`
	Name      string     `json:"name"`
	Stack     flexNumber `json:"stack"`
	HoleCards string     `json:"hole_cards"`
	MoneyWon  flexNumber `json:"money_won"`
}

// flexNumber accepts a JSON number, a numeric string, or a "a:b" pair
// (per Design Notes: occasionally the upstream sends "0:83" in fields a
// reader expects to be a plain number). In the "a:b" case the first
// component is used.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*n = 0
		return nil
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

// flexBool accepts JSON true/false, 0/1, "0"/"1", or an "a:b" pair,
// treating the first component as the value.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	switch strings.ToLower(s) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

// PageResponse is the upstream hands-for-date pagination envelope.
type PageResponse struct {
	Results []RawHand `json:"results"`
	Next    *string   `json:"next"`
}
