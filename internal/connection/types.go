package connection

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rickgao/signalhub/internal/auth"
	"github.com/rickgao/signalhub/internal/signal"
)

// Errors
var (
	ErrUnauthorized    = errors.New("feed rejected the key")
	ErrStaleConnection = errors.New("connection stale (no traffic)")
	ErrServerGoingAway = errors.New("server going away")
	ErrAlreadyRunning  = errors.New("feed already running")
)

// Delivery is one signal pushed by the server.
type Delivery struct {
	Channel    string
	Signal     signal.Signal
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Handler consumes deliveries in server send order. A returned error ends
// the feed.
type Handler func(Delivery) error

// ClientConfig configures a feed subscription.
type ClientConfig struct {
	URL          string        // Server base URL, http(s) or ws(s) (e.g., ws://localhost:3000)
	Channel      string        // Channel to consume
	Key          string        // Shared secret
	PingTimeout  time.Duration // Max time without any frame before the link is stale
	WriteTimeout time.Duration // Write deadline for control frames
	MinBackoff   time.Duration // First reconnect delay for Follow
	MaxBackoff   time.Duration // Reconnect delay cap for Follow
}

// DefaultClientConfig returns sensible defaults. The server pings every
// 30s, so three missed pings mark the link stale.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		MinBackoff:   time.Second,
		MaxBackoff:   30 * time.Second,
	}
}

// StreamURL builds the feed URL for channel, mapping http(s) to ws(s).
func StreamURL(base, channel, key string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	// Path holds the decoded form; RawPath keeps a "/" inside channel escaped.
	raw := u.EscapedPath() + "/ws/" + url.PathEscape(channel)
	u.Path += "/ws/" + channel
	u.RawPath = raw
	if key != "" {
		(&auth.Credentials{Key: key}).SignURL(u)
	}
	return u.String(), nil
}

// handlerError marks a failure returned by the caller's Handler so Follow
// stops instead of reconnecting.
type handlerError struct{ err error }

func (e *handlerError) Error() string { return "handle delivery: " + e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }
