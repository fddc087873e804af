package signal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Command is a canonical trade direction.
type Command string

const (
	Buy  Command = "BUY"
	Sell Command = "SELL"

	// None marks an invalid or undecided direction. It never appears in a queued Signal.
	None Command = ""
)

// Valid reports whether c is one of the canonical commands.
func (c Command) Valid() bool {
	return c == Buy || c == Sell
}

// Signal is a normalized trade instruction accepted into a channel queue.
type Signal struct {
	Command Command
	Symbol  string // Canonical instrument (e.g. "GOLD")
	ID      string // Caller-supplied or synthesized "<prefix>-<unix-ms>-<uuid>"

	// Only set for channels whose grammar defines them.
	Entry      decimal.NullDecimal
	StopLoss   decimal.NullDecimal
	TakeProfit decimal.NullDecimal

	Positions int // Split-position count, 0 when the channel does not mandate one

	Author string
	Room   string

	ReceivedAt time.Time
}

// -----------------------------------------------------------------------------
// Payloads
// -----------------------------------------------------------------------------

// Payload is the decoded input for one submission. The transport layer builds
// a StructuredPayload or TextPayload; the core never decodes bodies itself.
type Payload interface {
	payloadKind() Kind
}

// Kind identifies what kind of input a channel accepts.
type Kind string

const (
	KindStructured Kind = "structured"
	KindText       Kind = "text"
)

// StructuredPayload is a pre-structured JSON alert.
type StructuredPayload struct {
	Command string
	Symbol  string
	ID      string
}

func (StructuredPayload) payloadKind() Kind { return KindStructured }

// TextPayload is a free-form chat notification plus out-of-band metadata.
type TextPayload struct {
	Text   string
	Author string
	Room   string
	Symbol string // Empty means the channel default
	ID     string // Empty means synthesize one
}

func (TextPayload) payloadKind() Kind { return KindText }

// KindOf returns the kind of p.
func KindOf(p Payload) Kind {
	return p.payloadKind()
}

// -----------------------------------------------------------------------------
// Verdicts
// -----------------------------------------------------------------------------

// Outcome is the top-level verdict of a submission.
type Outcome string

const (
	Queued   Outcome = "queued"
	Deduped  Outcome = "deduped"
	Ignored  Outcome = "ignored"
	Rejected Outcome = "rejected"
)

// Rejection and ignore reasons.
const (
	ReasonMissingFields     = "missing_fields"
	ReasonMissingText       = "missing_text"
	ReasonInvalidCmd        = "invalid_cmd"
	ReasonInvalidSymbol     = "invalid_symbol"
	ReasonWrongPayload      = "wrong_payload"
	ReasonParseFailed       = "parse_failed"
	ReasonNoDirection       = "no_direction"
	ReasonWhoNotAllowed     = "who_not_allowed"
	ReasonRoomNotAllowed    = "room_not_allowed"
	ReasonUnsupportedAuthor = "unsupported_author"
)

// Result is what Submit reports back to the transport.
type Result struct {
	Outcome Outcome
	Reason  string // Set for Ignored and Rejected
	Depth   int    // Queue depth after a Queued verdict

	Author  string   // Echoed for ignored/rejected text submissions
	Missing []string // Fields that failed validation or extraction
	Err     error    // Typed cause: StructuralError or extract.ParseError when Rejected, extract.ErrUnsupportedAuthor when Ignored
}

// String renders the verdict as "queued", "ignored:no_direction", etc.
func (r Result) String() string {
	if r.Reason == "" {
		return string(r.Outcome)
	}
	return string(r.Outcome) + ":" + r.Reason
}
