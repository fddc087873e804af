package config

import "time"

// Config is the root configuration for a signalhub instance.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Log      LogConfig       `yaml:"log"`
	Queue    QueueConfig     `yaml:"queue"`
	Dedup    DedupConfig     `yaml:"dedup"`
	Symbols  SymbolsConfig   `yaml:"symbols"`
	Channels []ChannelConfig `yaml:"channels"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	Port        int             `yaml:"port"`
	SecretKey   string          `yaml:"secret_key"` // Compared against the ?key= query parameter
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	MetricsPath string          `yaml:"metrics_path"`
}

// RateLimitConfig holds per-client-IP rate limiting. Zero values take the
// defaults; set Disabled to turn limiting off.
type RateLimitConfig struct {
	Disabled          bool    `yaml:"disabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Enabled reports whether requests should be rate limited.
func (r RateLimitConfig) Enabled() bool {
	return !r.Disabled && r.RequestsPerSecond > 0
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level         string `yaml:"level"`          // debug, info, warn, error
	Format        string `yaml:"format"`         // text, json
	StatsSchedule string `yaml:"stats_schedule"` // Cron spec for channel stats lines, "off" to disable
}

// QueueConfig holds channel queue settings.
type QueueConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// DedupConfig holds dedup retention windows.
type DedupConfig struct {
	IdentifierWindow  time.Duration `yaml:"identifier_window"`
	ContentWindow     time.Duration `yaml:"content_window"`
	ContentPurgeAfter time.Duration `yaml:"content_purge_after"`
}

// SymbolsConfig maps a canonical symbol to its aliases.
type SymbolsConfig struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// ChannelConfig describes one ingestion channel.
type ChannelConfig struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`  // structured, text
	Dedup string `yaml:"dedup"` // identifier, content

	// Text channels only.
	Direction     DirectionConfig            `yaml:"direction"`
	Grammars      map[string][]PatternConfig `yaml:"grammars"` // author -> patterns
	Separators    []string                   `yaml:"separators"`
	Authors       []string                   `yaml:"authors"`
	Rooms         []string                   `yaml:"rooms"`
	DefaultSymbol string                     `yaml:"default_symbol"`
	IDPrefix      string                     `yaml:"id_prefix"`

	PositionCount int `yaml:"position_count"`
	MaxDepth      int `yaml:"max_depth"` // Overrides queue.max_depth
}

// DirectionConfig selects and tunes the direction detector.
type DirectionConfig struct {
	Mode         string         `yaml:"mode"` // strict, loose
	Phrases      []PhraseConfig `yaml:"phrases"`
	BuyKeywords  []string       `yaml:"buy_keywords"`
	SellKeywords []string       `yaml:"sell_keywords"`
}

// PhraseConfig is one strict-phrase rule: Command when every phrase appears.
type PhraseConfig struct {
	Command string   `yaml:"command"`
	All     []string `yaml:"all"`
}

// PatternConfig is one labeled field pattern of an author grammar.
type PatternConfig struct {
	Field        string   `yaml:"field"` // entry, sl, tp
	Labels       []string `yaml:"labels"`
	WordBoundary bool     `yaml:"word_boundary"`
	Optional     bool     `yaml:"optional"`
}

// Channel kinds, dedup disciplines and direction modes.
const (
	KindStructured = "structured"
	KindText       = "text"

	DedupIdentifier = "identifier"
	DedupContent    = "content"

	DirectionStrict = "strict"
	DirectionLoose  = "loose"
)
