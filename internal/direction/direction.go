// Package direction infers BUY/SELL intent from free text.
//
// Two strategies are available and a channel picks one:
//   - StrictPhrase: direction only when a configured fixed phrase set appears
//   - LooseKeyword: any long-side or short-side keyword, native or Latin script
//
// Ambiguity is never resolved by precedence. Text that matches both sides, or
// neither, yields signal.None.
//
// Matching is plain case-insensitive substring search. A keyword such as "BUY"
// also matches inside longer tokens ("BUYER", "BUYBACK"); the vocabulary is
// tuned empirically and this collision is a known limitation of the heuristic.
package direction

import (
	"strings"

	"github.com/rickgao/signalhub/internal/signal"
)

// Detector decides the direction of a raw text. Implementations are pure.
type Detector interface {
	Detect(text string) signal.Command
}

// Rule asserts Command when every phrase in Phrases appears in the text.
type Rule struct {
	Command signal.Command
	Phrases []string
}

// StrictPhrase asserts a direction only on exact fixed phrases.
type StrictPhrase struct {
	rules []Rule
}

// NewStrictPhrase builds a strict-phrase detector. Rules with an invalid
// command or no phrases are skipped.
func NewStrictPhrase(rules []Rule) *StrictPhrase {
	d := &StrictPhrase{}
	for _, r := range rules {
		phrases := upperAll(r.Phrases)
		if !r.Command.Valid() || len(phrases) == 0 {
			continue
		}
		d.rules = append(d.rules, Rule{Command: r.Command, Phrases: phrases})
	}
	return d
}

// Detect implements Detector.
func (d *StrictPhrase) Detect(text string) signal.Command {
	u := strings.ToUpper(text)

	var isLong, isShort bool
	for _, r := range d.rules {
		if !containsAll(u, r.Phrases) {
			continue
		}
		if r.Command == signal.Buy {
			isLong = true
		} else {
			isShort = true
		}
	}
	return decide(isLong, isShort)
}

// DefaultBuyKeywords is the long-side vocabulary used by LooseKeyword.
func DefaultBuyKeywords() []string {
	return []string{"ロング", "GOLD LONG", "LONG", "BUY", "買い"}
}

// DefaultSellKeywords is the short-side vocabulary used by LooseKeyword.
func DefaultSellKeywords() []string {
	return []string{"ショート", "GOLD SHORT", "SHORT", "SELL", "売り"}
}

// LooseKeyword asserts a direction when any keyword of exactly one side appears.
type LooseKeyword struct {
	buy  []string
	sell []string
}

// NewLooseKeyword builds a loose-keyword detector. Empty lists fall back to
// the default vocabulary.
func NewLooseKeyword(buy, sell []string) *LooseKeyword {
	if len(buy) == 0 {
		buy = DefaultBuyKeywords()
	}
	if len(sell) == 0 {
		sell = DefaultSellKeywords()
	}
	return &LooseKeyword{buy: upperAll(buy), sell: upperAll(sell)}
}

// Detect implements Detector.
func (d *LooseKeyword) Detect(text string) signal.Command {
	u := strings.ToUpper(text)
	return decide(containsAny(u, d.buy), containsAny(u, d.sell))
}

func decide(isLong, isShort bool) signal.Command {
	switch {
	case isLong && !isShort:
		return signal.Buy
	case isShort && !isLong:
		return signal.Sell
	default:
		return signal.None
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAll(s string, subs []string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToUpper(s))
		}
	}
	return out
}
