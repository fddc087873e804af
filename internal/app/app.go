// Package app turns a validated Config into a ready Router.
package app

import (
	"fmt"
	"strings"

	"github.com/rickgao/signalhub/internal/config"
	"github.com/rickgao/signalhub/internal/dedup"
	"github.com/rickgao/signalhub/internal/direction"
	"github.com/rickgao/signalhub/internal/extract"
	"github.com/rickgao/signalhub/internal/normalize"
	"github.com/rickgao/signalhub/internal/router"
	"github.com/rickgao/signalhub/internal/signal"
)

// Build constructs one binding per configured channel, each with its own
// queue and dedup filter, and returns the router over them. A nil clock
// means time.Now.
func Build(cfg *config.Config, now dedup.Clock, opts ...router.Option) (*router.Router, error) {
	bindings := make([]router.Binding, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		b, err := Binding(ch, cfg.Dedup, now)
		if err != nil {
			return nil, fmt.Errorf("channel %q: %w", ch.Name, err)
		}
		bindings = append(bindings, b)
	}

	if now != nil {
		opts = append([]router.Option{router.WithClock(now)}, opts...)
	}
	return router.New(normalize.NewSymbols(cfg.Symbols.Aliases), bindings, opts...)
}

// Binding converts one channel config into a router binding.
func Binding(ch config.ChannelConfig, windows config.DedupConfig, now dedup.Clock) (router.Binding, error) {
	b := router.Binding{
		Name:          ch.Name,
		Authors:       ch.Authors,
		Rooms:         ch.Rooms,
		DefaultSymbol: ch.DefaultSymbol,
		IDPrefix:      ch.IDPrefix,
		Positions:     ch.PositionCount,
	}

	var filter dedup.Filter
	switch ch.Dedup {
	case config.DedupContent:
		b.Key = router.KeyContent
		filter = dedup.NewContentFilter(windows.ContentWindow, windows.ContentPurgeAfter, now)
	default:
		b.Key = router.KeyIdentifier
		filter = dedup.NewIDFilter(windows.IdentifierWindow, now)
	}
	b.Store = router.NewStore(ch.MaxDepth, filter)

	if ch.Kind != config.KindText {
		b.Kind = signal.KindStructured
		return b, nil
	}
	b.Kind = signal.KindText
	b.Detector = detector(ch.Direction)

	if len(ch.Grammars) > 0 {
		table, err := grammars(ch.Grammars, ch.Separators)
		if err != nil {
			return router.Binding{}, err
		}
		b.Grammars = table
	}
	return b, nil
}

func detector(dc config.DirectionConfig) direction.Detector {
	if dc.Mode == config.DirectionStrict {
		rules := make([]direction.Rule, 0, len(dc.Phrases))
		for _, p := range dc.Phrases {
			rules = append(rules, direction.Rule{
				Command: normalize.Command(p.Command),
				Phrases: p.All,
			})
		}
		return direction.NewStrictPhrase(rules)
	}
	return direction.NewLooseKeyword(dc.BuyKeywords, dc.SellKeywords)
}

func grammars(in map[string][]config.PatternConfig, separators []string) (*extract.Table, error) {
	authors := make(map[string][]extract.Pattern, len(in))
	for author, patterns := range in {
		ps := make([]extract.Pattern, 0, len(patterns))
		for _, p := range patterns {
			ps = append(ps, extract.Pattern{
				Field:        extract.Field(strings.ToLower(p.Field)),
				Labels:       p.Labels,
				WordBoundary: p.WordBoundary,
				Optional:     p.Optional,
			})
		}
		authors[author] = ps
	}
	return extract.NewTable(authors, separators)
}
