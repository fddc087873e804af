package signal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Wire is the JSON form of a Signal handed to consumers. Prices are JSON
// numbers; absent fields are omitted.
type Wire struct {
	Cmd    Command     `json:"cmd"`
	Symbol string      `json:"symbol"`
	ID     string      `json:"id"`
	Entry  json.Number `json:"entry,omitempty"`
	SL     json.Number `json:"sl,omitempty"`
	TP     json.Number `json:"tp,omitempty"`
	N      int         `json:"n,omitempty"`
	Who    string      `json:"who,omitempty"`
	Room   string      `json:"room,omitempty"`
	TS     int64       `json:"ts"` // Unix milliseconds
}

// ToWire converts s to its JSON form.
func (s Signal) ToWire() Wire {
	return Wire{
		Cmd:    s.Command,
		Symbol: s.Symbol,
		ID:     s.ID,
		Entry:  number(s.Entry),
		SL:     number(s.StopLoss),
		TP:     number(s.TakeProfit),
		N:      s.Positions,
		Who:    s.Author,
		Room:   s.Room,
		TS:     s.ReceivedAt.UnixMilli(),
	}
}

// Signal converts w back to a Signal.
func (w Wire) Signal() (Signal, error) {
	s := Signal{
		Command:    w.Cmd,
		Symbol:     w.Symbol,
		ID:         w.ID,
		Positions:  w.N,
		Author:     w.Who,
		Room:       w.Room,
		ReceivedAt: time.UnixMilli(w.TS),
	}

	var err error
	if s.Entry, err = nullDecimal(w.Entry); err != nil {
		return Signal{}, fmt.Errorf("entry: %w", err)
	}
	if s.StopLoss, err = nullDecimal(w.SL); err != nil {
		return Signal{}, fmt.Errorf("sl: %w", err)
	}
	if s.TakeProfit, err = nullDecimal(w.TP); err != nil {
		return Signal{}, fmt.Errorf("tp: %w", err)
	}
	return s, nil
}

func number(d decimal.NullDecimal) json.Number {
	if !d.Valid {
		return ""
	}
	return json.Number(d.Decimal.String())
}

func nullDecimal(n json.Number) (decimal.NullDecimal, error) {
	if n == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// Ack is the JSON acknowledgement of a submission.
type Ack struct {
	OK      bool     `json:"ok"`
	Queued  bool     `json:"queued,omitempty"`
	Size    int      `json:"size,omitempty"`
	Deduped bool     `json:"deduped,omitempty"`
	Ignored string   `json:"ignored,omitempty"`
	Error   string   `json:"error,omitempty"`
	Need    []string `json:"need,omitempty"`
	Who     string   `json:"who,omitempty"`
}

// Ack renders r in its JSON form.
func (r Result) Ack() Ack {
	switch r.Outcome {
	case Queued:
		return Ack{OK: true, Queued: true, Size: r.Depth}
	case Deduped:
		return Ack{OK: true, Deduped: true}
	case Ignored:
		return Ack{OK: true, Ignored: r.Reason, Who: r.Author}
	default:
		return Ack{OK: false, Error: r.Reason, Need: r.Missing, Who: r.Author}
	}
}

// Result converts an acknowledgement back to a verdict. Err is not carried
// on the wire and stays nil.
func (a Ack) Result() Result {
	switch {
	case a.Queued:
		return Result{Outcome: Queued, Depth: a.Size}
	case a.Deduped:
		return Result{Outcome: Deduped}
	case a.Ignored != "":
		return Result{Outcome: Ignored, Reason: a.Ignored, Author: a.Who}
	default:
		return Result{Outcome: Rejected, Reason: a.Error, Missing: a.Need, Author: a.Who}
	}
}
