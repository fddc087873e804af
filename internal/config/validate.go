package config

import (
	"errors"
	"fmt"
	"strings"
)

// Reserved channel-name suffixes used by the transport for plain-text and
// legacy routes.
var reservedSuffixes = []string{"_plain", "_raw"}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.SecretKey == "" {
		return errors.New("server.secret_key is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 {
		return errors.New("server.rate_limit.requests_per_second must be >= 0")
	}
	if c.Server.RateLimit.Burst < 0 {
		return errors.New("server.rate_limit.burst must be >= 0")
	}
	if !strings.HasPrefix(c.Server.MetricsPath, "/") {
		return fmt.Errorf("server.metrics_path must start with /, got %q", c.Server.MetricsPath)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	if c.Queue.MaxDepth < 1 {
		return errors.New("queue.max_depth must be >= 1")
	}
	if c.Dedup.IdentifierWindow <= 0 {
		return errors.New("dedup.identifier_window must be > 0")
	}
	if c.Dedup.ContentWindow <= 0 {
		return errors.New("dedup.content_window must be > 0")
	}
	if c.Dedup.ContentPurgeAfter < c.Dedup.ContentWindow {
		return fmt.Errorf("dedup.content_purge_after (%v) cannot be shorter than content_window (%v)",
			c.Dedup.ContentPurgeAfter, c.Dedup.ContentWindow)
	}

	if len(c.Channels) == 0 {
		return errors.New("at least one channel is required")
	}
	seen := make(map[string]bool, len(c.Channels))
	for i := range c.Channels {
		ch := &c.Channels[i]
		prefix := fmt.Sprintf("channels[%d]", i)
		if err := ch.validate(prefix); err != nil {
			return err
		}
		if seen[ch.Name] {
			return fmt.Errorf("%s.name %q is duplicated", prefix, ch.Name)
		}
		seen[ch.Name] = true
	}

	return nil
}

func (ch *ChannelConfig) validate(prefix string) error {
	if ch.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if strings.ContainsAny(ch.Name, "/?#% ") {
		return fmt.Errorf("%s.name %q must be URL path safe", prefix, ch.Name)
	}
	for _, suffix := range reservedSuffixes {
		if strings.HasSuffix(ch.Name, suffix) {
			return fmt.Errorf("%s.name %q must not end in %s", prefix, ch.Name, suffix)
		}
	}
	if ch.MaxDepth < 1 {
		return fmt.Errorf("%s.max_depth must be >= 1", prefix)
	}
	if ch.PositionCount < 0 {
		return fmt.Errorf("%s.position_count must be >= 0", prefix)
	}

	switch ch.Dedup {
	case DedupIdentifier, DedupContent:
	default:
		return fmt.Errorf("%s.dedup must be identifier or content, got %q", prefix, ch.Dedup)
	}

	switch ch.Kind {
	case KindStructured:
		if len(ch.Grammars) > 0 {
			return fmt.Errorf("%s: structured channels cannot define grammars", prefix)
		}
		return nil
	case KindText:
	default:
		return fmt.Errorf("%s.kind must be structured or text, got %q", prefix, ch.Kind)
	}

	switch ch.Direction.Mode {
	case DirectionLoose:
	case DirectionStrict:
		if len(ch.Direction.Phrases) == 0 {
			return fmt.Errorf("%s.direction.phrases is required for strict mode", prefix)
		}
		for j, p := range ch.Direction.Phrases {
			switch strings.ToUpper(p.Command) {
			case "BUY", "SELL":
			default:
				return fmt.Errorf("%s.direction.phrases[%d].command must be BUY or SELL, got %q", prefix, j, p.Command)
			}
			if len(p.All) == 0 {
				return fmt.Errorf("%s.direction.phrases[%d].all is required", prefix, j)
			}
		}
	default:
		return fmt.Errorf("%s.direction.mode must be strict or loose, got %q", prefix, ch.Direction.Mode)
	}

	for author, patterns := range ch.Grammars {
		if len(patterns) == 0 {
			return fmt.Errorf("%s.grammars[%s] has no patterns", prefix, author)
		}
		for j, p := range patterns {
			switch p.Field {
			case "entry", "sl", "tp":
			default:
				return fmt.Errorf("%s.grammars[%s][%d].field must be entry, sl or tp, got %q", prefix, author, j, p.Field)
			}
			if len(p.Labels) == 0 {
				return fmt.Errorf("%s.grammars[%s][%d].labels is required", prefix, author, j)
			}
		}
	}

	return nil
}
