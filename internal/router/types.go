package router

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/signalhub/internal/dedup"
	"github.com/rickgao/signalhub/internal/direction"
	"github.com/rickgao/signalhub/internal/extract"
	"github.com/rickgao/signalhub/internal/queue"
	"github.com/rickgao/signalhub/internal/signal"
)

// Errors
var (
	ErrUnknownChannel   = errors.New("unknown channel")
	ErrDuplicateChannel = errors.New("duplicate channel")
	ErrInvalidBinding   = errors.New("invalid channel binding")
)

// KeyMode selects which value a channel deduplicates on.
type KeyMode string

const (
	KeyIdentifier KeyMode = "identifier" // Signal.ID, long window
	KeyContent    KeyMode = "content"    // Author + command + symbol + prices, short window
)

// Store is the mutable state owned by exactly one channel binding.
type Store struct {
	Queue *queue.Bounded[signal.Signal]
	Dedup dedup.Filter
}

// NewStore creates an empty store.
func NewStore(maxDepth int, filter dedup.Filter) *Store {
	return &Store{
		Queue: queue.NewBounded[signal.Signal](maxDepth),
		Dedup: filter,
	}
}

// Binding wires one channel name to its strategies and state.
type Binding struct {
	Name string
	Kind signal.Kind

	// Text channels only.
	Detector direction.Detector
	Grammars *extract.Table // nil: no numeric fields for this channel

	Key KeyMode

	// Allow-lists; empty means everyone is allowed.
	Authors []string
	Rooms   []string

	DefaultSymbol string // Used when a text payload carries no symbol
	IDPrefix      string // Prefix for synthesized identifiers
	Positions     int    // Split-position count stamped on every signal, 0 for none

	Store *Store
}

func (b Binding) validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidBinding)
	}
	if b.Store == nil || b.Store.Queue == nil || b.Store.Dedup == nil {
		return fmt.Errorf("%w: channel %q has no store", ErrInvalidBinding, b.Name)
	}
	switch b.Kind {
	case signal.KindStructured:
	case signal.KindText:
		if b.Detector == nil {
			return fmt.Errorf("%w: text channel %q has no direction detector", ErrInvalidBinding, b.Name)
		}
	default:
		return fmt.Errorf("%w: channel %q has unknown kind %q", ErrInvalidBinding, b.Name, b.Kind)
	}
	switch b.Key {
	case KeyIdentifier, KeyContent:
	default:
		return fmt.Errorf("%w: channel %q has unknown dedup key %q", ErrInvalidBinding, b.Name, b.Key)
	}
	return nil
}

// Observer receives routing events. The metrics package implements it.
type Observer interface {
	ObserveSubmit(channel string, result signal.Result)
	ObserveEviction(channel string)
	ObserveTake(channel string, depth int)
}

type nopObserver struct{}

func (nopObserver) ObserveSubmit(string, signal.Result) {}
func (nopObserver) ObserveEviction(string)              {}
func (nopObserver) ObserveTake(string, int)             {}

// IDGenerator synthesizes an identifier for payloads that carry none.
type IDGenerator func(prefix string, now time.Time) string

// NewID returns "<prefix>-<unix-ms>-<uuid>".
func NewID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), uuid.NewString())
}

// ChannelStats contains per-channel statistics.
type ChannelStats struct {
	Name         string
	Kind         signal.Kind
	Queue        queue.Stats
	DedupEntries int
	Outcomes     map[signal.Outcome]int64
}

// Option configures a Router.
type Option func(*Router)
