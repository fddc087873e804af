package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/signalhub/internal/signal"
)

// Feed is one websocket subscription to a channel's take feed. Every frame
// has already left the server queue. Handler runs on the read goroutine, so
// a slow Handler slows the feed instead of dropping signals.
type Feed struct {
	cfg    ClientConfig
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	connected bool
	lastSeen  time.Time
	stale     bool
}

// NewFeed creates a feed subscription.
func NewFeed(cfg ClientConfig, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultClientConfig().WriteTimeout
	}
	return &Feed{cfg: cfg, logger: logger}
}

// IsConnected returns the current connection state.
func (f *Feed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Run dials the feed and calls handle for every decoded signal until ctx is
// done, the link fails, or handle returns an error. Cancellation returns nil.
func (f *Feed) Run(ctx context.Context, handle Handler) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return ErrAlreadyRunning
	}
	f.running = true
	f.stale = false
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running = false
		f.connected = false
		f.mu.Unlock()
	}()

	conn, err := f.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.touch()
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()

	conn.SetPingHandler(func(data string) error {
		f.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(f.cfg.WriteTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go f.watch(ctx, conn, done)

	f.logger.Debug("feed connected", "channel", f.cfg.Channel)

	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately
		if err != nil {
			return f.readError(ctx, err)
		}
		f.touch()

		sig, err := decodeFrame(data)
		if err != nil {
			f.logger.Warn("skipping bad frame", "channel", f.cfg.Channel, "error", err)
			continue
		}
		if err := handle(Delivery{Channel: f.cfg.Channel, Signal: sig, ReceivedAt: receivedAt}); err != nil {
			return &handlerError{err: err}
		}
	}
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := StreamURL(f.cfg.URL, f.cfg.Channel, f.cfg.Key)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("dial %s: %w", f.cfg.Channel, ErrUnauthorized)
			}
			return nil, fmt.Errorf("dial %s: %w (status %d)", f.cfg.Channel, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", f.cfg.Channel, err)
	}
	return conn, nil
}

// watch closes conn when ctx ends or no frame arrives within PingTimeout,
// which unblocks ReadMessage in Run.
func (f *Feed) watch(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	interval := f.cfg.PingTimeout / 3
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(f.cfg.WriteTimeout),
			)
			conn.Close()
			return
		case <-ticker.C:
			f.mu.Lock()
			idle := time.Since(f.lastSeen)
			expired := f.cfg.PingTimeout > 0 && idle > f.cfg.PingTimeout
			if expired {
				f.stale = true
			}
			f.mu.Unlock()

			if expired {
				f.logger.Warn("no traffic, connection stale",
					"channel", f.cfg.Channel,
					"idle", idle,
					"timeout", f.cfg.PingTimeout,
				)
				conn.Close()
				return
			}
		}
	}
}

func (f *Feed) readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	f.mu.Lock()
	stale := f.stale
	f.mu.Unlock()
	if stale {
		return ErrStaleConnection
	}
	if websocket.IsCloseError(err, websocket.CloseGoingAway) {
		return ErrServerGoingAway
	}
	return fmt.Errorf("read %s: %w", f.cfg.Channel, err)
}

func (f *Feed) touch() {
	f.mu.Lock()
	f.lastSeen = time.Now()
	f.mu.Unlock()
}

func decodeFrame(data []byte) (signal.Signal, error) {
	var w signal.Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return signal.Signal{}, fmt.Errorf("decode frame: %w", err)
	}
	if !w.Cmd.Valid() {
		return signal.Signal{}, fmt.Errorf("frame has invalid cmd %q", w.Cmd)
	}
	return w.Signal()
}

// Follow keeps a feed connected until ctx is done, reconnecting with
// exponential backoff. It returns nil on cancellation, and stops early on
// ErrUnauthorized or a Handler error.
func Follow(ctx context.Context, cfg ClientConfig, handle Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	minBackoff, maxBackoff := cfg.MinBackoff, cfg.MaxBackoff
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff < minBackoff {
		maxBackoff = minBackoff
	}

	feed := NewFeed(cfg, logger)
	backoff := minBackoff
	for {
		connected := false
		err := feed.Run(ctx, func(d Delivery) error {
			connected = true
			return handle(d)
		})
		if ctx.Err() != nil {
			return nil
		}

		var he *handlerError
		switch {
		case errors.As(err, &he):
			return he.err
		case errors.Is(err, ErrUnauthorized):
			return err
		}

		// A link that delivered something was healthy; start over.
		if connected {
			backoff = minBackoff
		}
		logger.Warn("feed disconnected", "channel", cfg.Channel, "error", err, "retry_in", backoff)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}
