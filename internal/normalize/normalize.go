// Package normalize canonicalizes trade-direction tokens and instrument aliases.
package normalize

import (
	"strings"

	"github.com/rickgao/signalhub/internal/signal"
)

// Command maps a raw command token to BUY, SELL or signal.None.
// Matching is exact after trimming and upper-casing, so "buying" is invalid.
func Command(raw string) signal.Command {
	switch c := signal.Command(strings.ToUpper(strings.TrimSpace(raw))); c {
	case signal.Buy, signal.Sell:
		return c
	default:
		return signal.None
	}
}

// DefaultAliases folds every gold-spot spelling to GOLD.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"GOLD": {"XAUUSD", "XAUUSD#", "XAU/USD", "GOLD"},
	}
}

// Symbols is an immutable alias table.
type Symbols struct {
	aliases map[string]string // upper-cased alias -> canonical
}

// NewSymbols builds a table from canonical -> aliases. The canonical token is
// always an alias of itself so normalization is idempotent.
func NewSymbols(families map[string][]string) *Symbols {
	s := &Symbols{aliases: make(map[string]string)}
	for canonical, aliases := range families {
		canon := strings.ToUpper(strings.TrimSpace(canonical))
		if canon == "" {
			continue
		}
		s.aliases[canon] = canon
		for _, a := range aliases {
			if key := strings.ToUpper(strings.TrimSpace(a)); key != "" {
				s.aliases[key] = canon
			}
		}
	}
	return s
}

// Normalize returns the canonical symbol for raw. Unknown tokens pass through
// trimmed and upper-cased; the caller decides whether they are acceptable.
func (s *Symbols) Normalize(raw string) string {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if canon, ok := s.aliases[key]; ok {
		return canon
	}
	return key
}
