// Package rules loads the declarative, file-based rule sets consulted by
// Stage 4 (action labels) and Stage 6 (intention mappings).
package rules

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// LabelRuleSet is the top-level HCL document: a list of label rules. Stage
// 4 reads only each rule's Name and non-empty Label (see labelOverrides);
// Street, Action, When and Priority are decoded but not evaluated.
type LabelRuleSet struct {
	Rules []LabelRule `hcl:"label,block"`
}

// LabelRule is one named, conditional action-label assignment.
type LabelRule struct {
	Name      string `hcl:"name,label"`
	Street    string `hcl:"street,optional"`    // "", "preflop", "postflop"
	Action    string `hcl:"action,optional"`     // "r", "c", "x", "f"; "" matches any
	When      string `hcl:"when,optional"`       // one of the symbolic conditions below
	Priority  int    `hcl:"priority,optional"`
	Label     string `hcl:"label"`
}

// Recognized symbolic values for LabelRule.When. Stage 4 does not evaluate
// When: the situation each value names is detected by fixed logic in
// labelHand.
const (
	WhenAny               = ""
	WhenFirstPostflopBet  = "first_postflop_bet"
	WhenBetRaise          = "bet_raise"
	WhenCheckRaise        = "checkraise"
	WhenDonk               = "donk"
	WhenProbe             = "probe"
	WhenCont              = "cont"
	WhenFloat             = "float"
	WhenPreflopOrdinal    = "preflop_ordinal"
)

// DefaultLabelRuleSet is consulted when no rule file is configured or the
// file fails to parse; it reproduces spec.md §4.8's mandated fallback
// behavior exactly.
func DefaultLabelRuleSet() *LabelRuleSet {
	return &LabelRuleSet{
		Rules: []LabelRule{
			{Name: "check", Action: "x", When: WhenAny, Priority: 0, Label: "check"},
			{Name: "fold", Action: "f", When: WhenAny, Priority: 0, Label: "fold"},
			{Name: "preflop_ordinal", Street: "preflop", Action: "r", When: WhenPreflopOrdinal, Priority: 10, Label: ""},
			{Name: "checkraise", Action: "r", When: WhenCheckRaise, Priority: 9, Label: "checkraise"},
			{Name: "donk", Action: "r", When: WhenDonk, Priority: 8, Label: "donk"},
			{Name: "probe", Action: "r", When: WhenProbe, Priority: 7, Label: "probe"},
			{Name: "cont", Action: "r", When: WhenCont, Priority: 6, Label: "cont"},
			{Name: "bet_raise", Action: "r", When: WhenBetRaise, Priority: 5, Label: ""},
			{Name: "first_bet", Action: "r", When: WhenFirstPostflopBet, Priority: 4, Label: "bet"},
			{Name: "float", Action: "c", When: WhenFloat, Priority: 3, Label: "float"},
			{Name: "call", Action: "c", When: WhenAny, Priority: 0, Label: "call"},
		},
	}
}

// LoadLabelRules loads a rule file, or the hardcoded default set if path
// is empty or missing, exactly mirroring LoadServerConfig's
// stat-then-parse-then-fall-back-to-defaults shape.
func LoadLabelRules(path string) (*LabelRuleSet, error) {
	if path == "" {
		return DefaultLabelRuleSet(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultLabelRuleSet(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("rules: parse label rules %s: %s", path, diags.Error())
	}

	var set LabelRuleSet
	diags = gohcl.DecodeBody(file.Body, nil, &set)
	if diags.HasErrors() {
		return nil, fmt.Errorf("rules: decode label rules %s: %s", path, diags.Error())
	}
	if len(set.Rules) == 0 {
		return DefaultLabelRuleSet(), nil
	}
	return &set, nil
}
