package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/signalhub/internal/signal"
)

// Errors
var (
	ErrNoChannels     = errors.New("no channels to poll")
	ErrAlreadyStarted = errors.New("poller already started")
)

// Taker removes the oldest pending signal of a channel. *api.Client
// implements it.
type Taker interface {
	TakeNext(ctx context.Context, channel string) (signal.Signal, bool, error)
}

// Handler receives taken signals.
type Handler interface {
	HandleSignal(channel string, sig signal.Signal) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(channel string, sig signal.Signal) error

func (f HandlerFunc) HandleSignal(channel string, sig signal.Signal) error {
	return f(channel, sig)
}

// Config holds poller configuration.
type Config struct {
	Channels        []string
	Interval        time.Duration // Wait after a channel comes back empty (default: 1s)
	Timeout         time.Duration // Per-request timeout (default: 10s)
	MaxPerCycle     int           // Signals taken before yielding (default: 200)
	ErrorBackoff    time.Duration // First wait after a failed take (default: 2s)
	MaxErrorBackoff time.Duration // Cap for repeated failures (default: 1m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Second,
		Timeout:         10 * time.Second,
		MaxPerCycle:     200,
		ErrorBackoff:    2 * time.Second,
		MaxErrorBackoff: time.Minute,
	}
}

// Stats counts poller activity since Start.
type Stats struct {
	Taken         int64
	TakeErrors    int64
	HandlerErrors int64
}

// Poller runs one worker per channel that takes signals and hands them to
// a Handler in queue order.
type Poller struct {
	cfg     Config
	taker   Taker
	handler Handler
	logger  *slog.Logger

	taken         atomic.Int64
	takeErrors    atomic.Int64
	handlerErrors atomic.Int64

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller. Zero config fields take DefaultConfig values.
func New(cfg Config, taker Taker, handler Handler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxPerCycle <= 0 {
		cfg.MaxPerCycle = def.MaxPerCycle
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.MaxErrorBackoff < cfg.ErrorBackoff {
		cfg.MaxErrorBackoff = max(def.MaxErrorBackoff, cfg.ErrorBackoff)
	}
	return &Poller{
		cfg:     cfg,
		taker:   taker,
		handler: handler,
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Start launches a worker per channel. Workers stop when ctx is done or
// Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	if len(p.cfg.Channels) == 0 {
		return ErrNoChannels
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrAlreadyStarted
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	for _, channel := range p.cfg.Channels {
		p.wg.Add(1)
		go p.worker(channel)
	}

	p.logger.Info("signal poller started",
		"channels", p.cfg.Channels,
		"interval", p.cfg.Interval,
	)
	return nil
}

// Stop cancels the workers and waits for them until ctx is done.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		st := p.Stats()
		p.logger.Info("signal poller stopped",
			"taken", st.Taken,
			"take_errors", st.TakeErrors,
			"handler_errors", st.HandlerErrors,
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Taken:         p.taken.Load(),
		TakeErrors:    p.takeErrors.Load(),
		HandlerErrors: p.handlerErrors.Load(),
	}
}

func (p *Poller) worker(channel string) {
	defer p.wg.Done()

	failures := 0
	for {
		n, err := p.drain(channel)
		if err != nil {
			failures++
			p.takeErrors.Add(1)
			p.logger.Warn("failed to poll channel",
				"channel", channel,
				"failures", failures,
				"err", err,
			)
		} else {
			failures = 0
		}

		wait := p.next(n, failures)
		if wait == 0 {
			if p.ctx.Err() != nil {
				return
			}
			continue
		}

		t := time.NewTimer(wait)
		select {
		case <-p.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// next returns how long a worker waits before its next drain. A drain that
// hit the per-cycle cap likely left signals behind and goes again at once.
func (p *Poller) next(taken, failures int) time.Duration {
	if failures > 0 {
		d := p.cfg.ErrorBackoff
		for i := 1; i < failures && d < p.cfg.MaxErrorBackoff; i++ {
			d *= 2
		}
		return min(d, p.cfg.MaxErrorBackoff)
	}
	if taken >= p.cfg.MaxPerCycle {
		return 0
	}
	return p.cfg.Interval
}

// drain takes signals from one channel until it is empty or the per-cycle
// cap is reached. Handler errors are counted and do not stop the drain; the
// signal has already left the queue.
func (p *Poller) drain(channel string) (int, error) {
	n := 0
	for n < p.cfg.MaxPerCycle {
		if p.ctx.Err() != nil {
			return n, nil
		}

		ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
		sig, ok, err := p.taker.TakeNext(ctx, channel)
		cancel()
		if err != nil {
			return n, err
		}
		if !ok {
			return n, nil
		}
		n++
		p.taken.Add(1)

		if p.handler == nil {
			continue
		}
		if err := p.handler.HandleSignal(channel, sig); err != nil {
			p.handlerErrors.Add(1)
			p.logger.Warn("signal handler failed",
				"channel", channel,
				"id", sig.ID,
				"err", err,
			)
		}
	}
	return n, nil
}
