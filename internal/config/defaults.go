package config

import (
	"strings"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultPort              = 3000
	DefaultMetricsPath       = "/metrics"
	DefaultRequestsPerSecond = 20
	DefaultBurst             = 40
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultStatsSchedule     = "@every 5m"
	DefaultMaxDepth          = 200
	DefaultIdentifierWindow  = 5 * time.Minute
	DefaultContentWindow     = 2 * time.Second
	DefaultContentPurgeAfter = 10 * time.Second
	DefaultSymbol            = "GOLD"
	DefaultPositionCount     = 3
)

// DefaultAliases folds gold-spot spellings to GOLD.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"GOLD": {"XAUUSD", "XAUUSD#", "XAU/USD", "GOLD"},
	}
}

// DefaultChannels returns two generic structured channels and one chat
// channel with per-author grammars.
func DefaultChannels() []ChannelConfig {
	return []ChannelConfig{
		{Name: "a", Kind: KindStructured, Dedup: DedupIdentifier},
		{Name: "b", Kind: KindStructured, Dedup: DedupIdentifier},
		{
			Name:          "c",
			Kind:          KindText,
			Dedup:         DedupContent,
			Direction:     DirectionConfig{Mode: DirectionLoose},
			Authors:       []string{"ゆな", "しおり"},
			DefaultSymbol: DefaultSymbol,
			IDPrefix:      "C",
			PositionCount: DefaultPositionCount,
			Grammars: map[string][]PatternConfig{
				"ゆな": {
					{Field: "entry", Labels: []string{"エントリー"}},
					{Field: "sl", Labels: []string{"損切"}},
				},
				"しおり": {
					{Field: "entry", Labels: []string{"EN", "ENTRY"}, WordBoundary: true},
					{Field: "sl", Labels: []string{"SL"}, WordBoundary: true},
				},
			},
		},
	}
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
	if rl := &c.Server.RateLimit; !rl.Disabled {
		if rl.RequestsPerSecond == 0 {
			rl.RequestsPerSecond = DefaultRequestsPerSecond
		}
		if rl.Burst == 0 {
			rl.Burst = DefaultBurst
		}
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.StatsSchedule == "" {
		c.Log.StatsSchedule = DefaultStatsSchedule
	}

	// Queue and dedup defaults
	if c.Queue.MaxDepth == 0 {
		c.Queue.MaxDepth = DefaultMaxDepth
	}
	if c.Dedup.IdentifierWindow == 0 {
		c.Dedup.IdentifierWindow = DefaultIdentifierWindow
	}
	if c.Dedup.ContentWindow == 0 {
		c.Dedup.ContentWindow = DefaultContentWindow
	}
	if c.Dedup.ContentPurgeAfter == 0 {
		c.Dedup.ContentPurgeAfter = DefaultContentPurgeAfter
	}

	if len(c.Symbols.Aliases) == 0 {
		c.Symbols.Aliases = DefaultAliases()
	}

	if len(c.Channels) == 0 {
		c.Channels = DefaultChannels()
	}
	for i := range c.Channels {
		c.Channels[i].applyDefaults(c.Queue.MaxDepth)
	}
}

func (ch *ChannelConfig) applyDefaults(maxDepth int) {
	if ch.Kind == "" {
		ch.Kind = KindStructured
	}
	if ch.MaxDepth == 0 {
		ch.MaxDepth = maxDepth
	}
	if ch.IDPrefix == "" {
		ch.IDPrefix = strings.ToUpper(ch.Name)
	}

	switch ch.Kind {
	case KindStructured:
		if ch.Dedup == "" {
			ch.Dedup = DedupIdentifier
		}
	case KindText:
		if ch.Dedup == "" {
			ch.Dedup = DedupContent
		}
		if ch.Direction.Mode == "" {
			ch.Direction.Mode = DirectionLoose
		}
		if ch.DefaultSymbol == "" {
			ch.DefaultSymbol = DefaultSymbol
		}
	}
}
