package router

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/signalhub/internal/dedup"
	"github.com/rickgao/signalhub/internal/extract"
	"github.com/rickgao/signalhub/internal/normalize"
	"github.com/rickgao/signalhub/internal/signal"
)

// Router binds channel names to their normalization, extraction, dedup and
// queue state, and runs submissions through them.
type Router struct {
	symbols  *normalize.Symbols
	channels map[string]*channel
	logger   *slog.Logger
	now      dedup.Clock
	newID    IDGenerator
	observer Observer
}

// channel is one binding plus the lock that serializes its dedup and enqueue.
type channel struct {
	Binding

	mu       sync.Mutex
	outcomes map[signal.Outcome]int64
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithClock sets the clock used to stamp signals and synthesize identifiers.
// Dedup filters carry their own clock.
func WithClock(now dedup.Clock) Option {
	return func(r *Router) {
		r.now = now
	}
}

// WithIDGenerator overrides identifier synthesis.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *Router) {
		r.newID = gen
	}
}

// WithObserver registers an event observer.
func WithObserver(obs Observer) Option {
	return func(r *Router) {
		r.observer = obs
	}
}

// New creates a Router over the given bindings. Each binding must own its
// own Store; no state is shared across channels.
func New(symbols *normalize.Symbols, bindings []Binding, opts ...Option) (*Router, error) {
	if symbols == nil {
		symbols = normalize.NewSymbols(normalize.DefaultAliases())
	}

	r := &Router{
		symbols:  symbols,
		channels: make(map[string]*channel, len(bindings)),
		logger:   slog.Default(),
		now:      time.Now,
		newID:    NewID,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}

	stores := make(map[*Store]string, len(bindings))
	for _, b := range bindings {
		if err := b.validate(); err != nil {
			return nil, err
		}
		if _, ok := r.channels[b.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateChannel, b.Name)
		}
		if other, ok := stores[b.Store]; ok {
			return nil, fmt.Errorf("%w: channels %q and %q share a store", ErrInvalidBinding, other, b.Name)
		}
		stores[b.Store] = b.Name
		r.channels[b.Name] = &channel{
			Binding:  b,
			outcomes: make(map[signal.Outcome]int64),
		}
	}

	return r, nil
}

// Channels returns the configured channel names in sorted order.
func (r *Router) Channels() []string {
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kind returns the payload kind a channel accepts.
func (r *Router) Kind(name string) (signal.Kind, error) {
	ch, err := r.channel(name)
	if err != nil {
		return "", err
	}
	return ch.Kind, nil
}

// Submit runs payload through the channel's pipeline. The returned error is
// non-nil only for unknown channels; every other outcome is a verdict.
func (r *Router) Submit(name string, payload signal.Payload) (signal.Result, error) {
	ch, err := r.channel(name)
	if err != nil {
		return signal.Result{}, err
	}

	var res signal.Result
	switch p := payload.(type) {
	case signal.StructuredPayload:
		if ch.Kind != signal.KindStructured {
			res = wrongPayload(ch.Kind)
			break
		}
		res = r.submitStructured(ch, p)
	case signal.TextPayload:
		if ch.Kind != signal.KindText {
			res = wrongPayload(ch.Kind)
			break
		}
		res = r.submitText(ch, p)
	default:
		res = wrongPayload(ch.Kind)
	}

	r.record(ch, res)
	return res, nil
}

// TakeNext removes and returns the oldest pending signal of a channel.
func (r *Router) TakeNext(name string) (signal.Signal, bool, error) {
	ch, err := r.channel(name)
	if err != nil {
		return signal.Signal{}, false, err
	}

	sig, ok := ch.Store.Queue.TakeOldest()
	if ok {
		r.observer.ObserveTake(name, ch.Store.Queue.Len())
		r.logger.Debug("signal taken",
			"channel", name,
			"id", sig.ID,
			"cmd", sig.Command,
		)
	}
	return sig, ok, nil
}

// Depth returns the number of pending signals in a channel.
func (r *Router) Depth(name string) (int, error) {
	ch, err := r.channel(name)
	if err != nil {
		return 0, err
	}
	return ch.Store.Queue.Len(), nil
}

// Stats returns statistics for every channel, sorted by name.
func (r *Router) Stats() []ChannelStats {
	out := make([]ChannelStats, 0, len(r.channels))
	for _, name := range r.Channels() {
		ch := r.channels[name]

		ch.mu.Lock()
		outcomes := make(map[signal.Outcome]int64, len(ch.outcomes))
		for k, v := range ch.outcomes {
			outcomes[k] = v
		}
		entries := ch.Store.Dedup.Len()
		ch.mu.Unlock()

		out = append(out, ChannelStats{
			Name:         name,
			Kind:         ch.Kind,
			Queue:        ch.Store.Queue.Stats(),
			DedupEntries: entries,
			Outcomes:     outcomes,
		})
	}
	return out
}

func (r *Router) channel(name string) (*channel, error) {
	ch, ok := r.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, name)
	}
	return ch, nil
}

// submitStructured handles pre-structured {cmd, symbol, id} payloads.
func (r *Router) submitStructured(ch *channel, p signal.StructuredPayload) signal.Result {
	// Blank cmd and symbol fall through to their own invalid_* verdicts; only
	// absent keys count as missing. A blank id has nothing later to catch it.
	var missing []string
	if p.Command == "" {
		missing = append(missing, "cmd")
	}
	if p.Symbol == "" {
		missing = append(missing, "symbol")
	}
	if strings.TrimSpace(p.ID) == "" {
		missing = append(missing, "id")
	}
	if len(missing) > 0 {
		return rejected(signal.ReasonMissingFields, missing, "")
	}

	cmd := normalize.Command(p.Command)
	if !cmd.Valid() {
		return rejected(signal.ReasonInvalidCmd, []string{"cmd"}, "")
	}
	symbol := r.symbols.Normalize(p.Symbol)
	if symbol == "" {
		return rejected(signal.ReasonInvalidSymbol, []string{"symbol"}, "")
	}

	sig := signal.Signal{
		Command:   cmd,
		Symbol:    symbol,
		ID:        p.ID,
		Positions: ch.Positions,
	}
	return r.admit(ch, sig, r.dedupKey(ch, sig, nil))
}

// submitText handles free-form chat text: direction, allow-lists, grammar
// extraction, then dedup and enqueue.
func (r *Router) submitText(ch *channel, p signal.TextPayload) signal.Result {
	if p.Text == "" {
		return rejected(signal.ReasonMissingText, []string{"text"}, p.Author)
	}

	cmd := ch.Detector.Detect(p.Text)
	if !cmd.Valid() {
		return signal.Result{Outcome: signal.Ignored, Reason: signal.ReasonNoDirection}
	}

	if len(ch.Authors) > 0 && !contains(ch.Authors, p.Author) {
		return signal.Result{Outcome: signal.Ignored, Reason: signal.ReasonWhoNotAllowed, Author: p.Author}
	}
	if len(ch.Rooms) > 0 && !contains(ch.Rooms, p.Room) {
		return signal.Result{Outcome: signal.Ignored, Reason: signal.ReasonRoomNotAllowed, Author: p.Author}
	}

	symbol := p.Symbol
	if strings.TrimSpace(symbol) == "" {
		symbol = ch.DefaultSymbol
	}
	symbol = r.symbols.Normalize(symbol)
	if symbol == "" {
		return rejected(signal.ReasonInvalidSymbol, []string{"symbol"}, p.Author)
	}

	id := p.ID
	if id == "" {
		id = r.newID(ch.IDPrefix, r.now())
	}

	sig := signal.Signal{
		Command:   cmd,
		Symbol:    symbol,
		ID:        id,
		Positions: ch.Positions,
		Author:    p.Author,
		Room:      p.Room,
	}

	var grammar *extract.Grammar
	if ch.Grammars != nil {
		fields, err := ch.Grammars.Extract(p.Author, p.Text)
		var pe *extract.ParseError
		switch {
		case errors.Is(err, extract.ErrUnsupportedAuthor):
			return signal.Result{Outcome: signal.Ignored, Reason: signal.ReasonUnsupportedAuthor, Author: p.Author, Err: err}
		case errors.As(err, &pe):
			res := rejected(signal.ReasonParseFailed, fieldNames(pe.Missing), p.Author)
			res.Err = pe
			return res
		case err != nil:
			return rejected(signal.ReasonParseFailed, nil, p.Author)
		}
		sig.Entry = fields.Entry
		sig.StopLoss = fields.StopLoss
		sig.TakeProfit = fields.TakeProfit
		// Extract succeeded, so the grammar exists; it names the fingerprint fields.
		grammar, _ = ch.Grammars.Lookup(p.Author)
	}

	return r.admit(ch, sig, r.dedupKey(ch, sig, grammar))
}

// admit runs the dedup check and enqueue as one step under the channel lock.
func (r *Router) admit(ch *channel, sig signal.Signal, key string) signal.Result {
	ch.mu.Lock()
	if !ch.Store.Dedup.Admit(key) {
		ch.mu.Unlock()
		return signal.Result{Outcome: signal.Deduped}
	}
	sig.ReceivedAt = r.now()
	evicted := ch.Store.Queue.Push(sig)
	depth := ch.Store.Queue.Len()
	ch.mu.Unlock()

	if evicted {
		r.observer.ObserveEviction(ch.Name)
		r.logger.Warn("queue full, dropped oldest signal", "channel", ch.Name)
	}

	r.logger.Info("signal queued",
		"channel", ch.Name,
		"id", sig.ID,
		"cmd", sig.Command,
		"symbol", sig.Symbol,
		"who", sig.Author,
		"depth", depth,
	)
	return signal.Result{Outcome: signal.Queued, Depth: depth}
}

// dedupKey returns the identifier or the content fingerprint. The fingerprint
// covers every field the author's grammar defines so two different trades in
// the same instant never collide.
func (r *Router) dedupKey(ch *channel, sig signal.Signal, g *extract.Grammar) string {
	if ch.Key == KeyIdentifier {
		return sig.ID
	}

	parts := []string{sig.Author, string(sig.Command), sig.Symbol}
	if g != nil {
		fields := extract.Fields{Entry: sig.Entry, StopLoss: sig.StopLoss, TakeProfit: sig.TakeProfit}
		for _, f := range g.Fields() {
			v := fields.Get(f)
			if v.Valid {
				parts = append(parts, string(f)+"="+v.Decimal.String())
			} else {
				parts = append(parts, string(f)+"=")
			}
		}
	}
	return dedup.Fingerprint(parts...)
}

func (r *Router) record(ch *channel, res signal.Result) {
	ch.mu.Lock()
	ch.outcomes[res.Outcome]++
	ch.mu.Unlock()

	r.observer.ObserveSubmit(ch.Name, res)

	switch res.Outcome {
	case signal.Deduped:
		r.logger.Debug("signal deduped", "channel", ch.Name)
	case signal.Ignored:
		r.logger.Debug("signal ignored", "channel", ch.Name, "reason", res.Reason, "who", res.Author)
	case signal.Rejected:
		r.logger.Warn("signal rejected",
			"channel", ch.Name,
			"reason", res.Reason,
			"missing", res.Missing,
			"who", res.Author,
		)
	}
}

func rejected(reason string, missing []string, author string) signal.Result {
	return signal.Result{
		Outcome: signal.Rejected,
		Reason:  reason,
		Missing: missing,
		Author:  author,
		Err:     &signal.StructuralError{Reason: reason, Fields: missing},
	}
}

func wrongPayload(kind signal.Kind) signal.Result {
	return signal.Result{
		Outcome: signal.Rejected,
		Reason:  signal.ReasonWrongPayload,
		Err:     &signal.StructuralError{Reason: signal.ReasonWrongPayload, Fields: []string{string(kind)}},
	}
}

func fieldNames(fields []extract.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
