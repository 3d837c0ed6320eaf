package pipeline

import "fmt"

// tokenKind is the single-character action a token represents.
type tokenKind byte

const (
	tokCheck tokenKind = 'x'
	tokFold  tokenKind = 'f'
	tokCall  tokenKind = 'c'
	tokRaise tokenKind = 'r'
)

// actionToken is one replayed action: a check/fold/call, or a raise with
// its (possibly absent, defaulting to zero) chip-level amount.
type actionToken struct {
	Kind   tokenKind
	Amount int
}

// parsedStreet is one street's worth of replayed tokens plus its board
// text (empty for preflop).
type parsedStreet struct {
	Board   string
	Actions []actionToken
}

// tokenize replays a situation_string into its per-street action tokens.
// Recognized characters: x, f, c (single-token actions), r followed by an
// optional run of digits (a raise's chip-level amount), and [cards]
// segments delimiting streets. Any other character is rejected.
func tokenize(s string) ([]parsedStreet, error) {
	streets := []parsedStreet{{}}
	cur := 0

	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == 'x' || c == 'f' || c == 'c':
			streets[cur].Actions = append(streets[cur].Actions, actionToken{Kind: tokenKind(c)})
			i++
		case c == 'r':
			i++
			start := i
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			amount := 0
			if i > start {
				for _, d := range s[start:i] {
					amount = amount*10 + int(d-'0')
				}
			}
			streets[cur].Actions = append(streets[cur].Actions, actionToken{Kind: tokRaise, Amount: amount})
		case c == '[':
			end := i + 1
			for end < len(s) && s[end] != ']' {
				end++
			}
			if end >= len(s) {
				return nil, fmt.Errorf("pipeline: unterminated board segment in situation string at %d", i)
			}
			board := s[i+1 : end]
			streets = append(streets, parsedStreet{Board: board})
			cur++
			i = end + 1
		default:
			return nil, fmt.Errorf("pipeline: invalid situation string token %q at position %d", c, i)
		}
	}

	return streets, nil
}
