package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rickgao/signalhub/internal/config"
	"github.com/rickgao/signalhub/internal/router"
	"github.com/rickgao/signalhub/internal/signal"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("PORT", "")
	t.Setenv("SECRET_KEY", "k")
	cfg, err := config.LoadAndValidate("")
	if err != nil {
		t.Fatalf("LoadAndValidate: %v", err)
	}
	return cfg
}

func build(t *testing.T, cfg *config.Config, clock *fakeClock) *router.Router {
	t.Helper()
	r, err := Build(cfg, clock.Now, router.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return r
}

func TestBuild_DefaultChannels(t *testing.T) {
	r := build(t, defaultConfig(t), &fakeClock{t: time.Unix(1700000000, 0)})

	got := r.Channels()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Channels() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Channels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	kind, _ := r.Kind("c")
	if kind != signal.KindText {
		t.Errorf("Kind(c) = %q, want %q", kind, signal.KindText)
	}
}

func TestBuild_StructuredChannel(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	r := build(t, defaultConfig(t), clock)

	p := signal.StructuredPayload{Command: "buy", Symbol: "xauusd", ID: "abc"}
	res, err := r.Submit("a", p)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Outcome != signal.Queued {
		t.Fatalf("first submit = %s, want queued", res)
	}

	res, _ = r.Submit("a", p)
	if res.Outcome != signal.Deduped {
		t.Errorf("second submit = %s, want deduped", res)
	}

	// Channel b has its own filter.
	res, _ = r.Submit("b", p)
	if res.Outcome != signal.Queued {
		t.Errorf("submit on b = %s, want queued", res)
	}

	sig, ok, _ := r.TakeNext("a")
	if !ok {
		t.Fatal("TakeNext(a) returned nothing")
	}
	if sig.Command != signal.Buy || sig.Symbol != "GOLD" || sig.ID != "abc" {
		t.Errorf("signal = %+v", sig)
	}
}

func TestBuild_TextChannelGrammars(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	r := build(t, defaultConfig(t), clock)

	res, _ := r.Submit("c", signal.TextPayload{Text: "ゴールド ロング エントリー：2015.5 損切：2005", Author: "ゆな"})
	if res.Outcome != signal.Queued {
		t.Fatalf("ゆな submit = %s, want queued", res)
	}
	res, _ = r.Submit("c", signal.TextPayload{Text: "GOLD SHORT EN=2020 SL => 2030", Author: "しおり"})
	if res.Outcome != signal.Queued {
		t.Fatalf("しおり submit = %s, want queued", res)
	}

	sig, _, _ := r.TakeNext("c")
	if sig.Command != signal.Buy || sig.Entry.Decimal.String() != "2015.5" || sig.StopLoss.Decimal.String() != "2005" {
		t.Errorf("ゆな signal = %+v", sig)
	}
	if sig.Positions != config.DefaultPositionCount {
		t.Errorf("Positions = %d, want %d", sig.Positions, config.DefaultPositionCount)
	}
	if sig.Symbol != "GOLD" {
		t.Errorf("Symbol = %q, want GOLD", sig.Symbol)
	}

	sig, _, _ = r.TakeNext("c")
	if sig.Command != signal.Sell || sig.Entry.Decimal.String() != "2020" || sig.StopLoss.Decimal.String() != "2030" {
		t.Errorf("しおり signal = %+v", sig)
	}

	res, _ = r.Submit("c", signal.TextPayload{Text: "LONG EN 1", Author: "someone"})
	if res.Outcome != signal.Ignored || res.Reason != signal.ReasonWhoNotAllowed {
		t.Errorf("unknown author = %s, want ignored:%s", res, signal.ReasonWhoNotAllowed)
	}
}

func TestBuild_ContentWindow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	r := build(t, defaultConfig(t), clock)

	p := signal.TextPayload{Text: "ロング エントリー：2000 損切：1990", Author: "ゆな"}
	if res, _ := r.Submit("c", p); res.Outcome != signal.Queued {
		t.Fatalf("first = %s, want queued", res)
	}
	clock.Advance(time.Second)
	if res, _ := r.Submit("c", p); res.Outcome != signal.Deduped {
		t.Errorf("within window = %s, want deduped", res)
	}
	clock.Advance(2 * time.Second)
	if res, _ := r.Submit("c", p); res.Outcome != signal.Queued {
		t.Errorf("after window = %s, want queued", res)
	}
}

func TestBuild_StrictDirection(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Channels = []config.ChannelConfig{{
		Name:  "alerts",
		Kind:  config.KindText,
		Dedup: config.DedupIdentifier,
		Direction: config.DirectionConfig{
			Mode: config.DirectionStrict,
			Phrases: []config.PhraseConfig{
				{Command: "buy", All: []string{"gold long entry"}},
				{Command: "SELL", All: []string{"GOLD SHORT ENTRY"}},
			},
		},
		DefaultSymbol: "GOLD",
		IDPrefix:      "P",
		MaxDepth:      5,
	}}

	r := build(t, cfg, &fakeClock{t: time.Unix(1700000000, 0)})

	res, _ := r.Submit("alerts", signal.TextPayload{Text: "go long now"})
	if res.Outcome != signal.Ignored || res.Reason != signal.ReasonNoDirection {
		t.Errorf("loose phrasing = %s, want ignored:%s", res, signal.ReasonNoDirection)
	}
	res, _ = r.Submit("alerts", signal.TextPayload{Text: "Gold Short Entry here"})
	if res.Outcome != signal.Queued {
		t.Fatalf("strict phrase = %s, want queued", res)
	}
	sig, _, _ := r.TakeNext("alerts")
	if sig.Command != signal.Sell {
		t.Errorf("Command = %q, want SELL", sig.Command)
	}
	if len(sig.ID) < 2 || sig.ID[:2] != "P-" {
		t.Errorf("ID = %q, want P- prefix", sig.ID)
	}
}

func TestBuild_BadGrammar(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Channels[2].Grammars = map[string][]config.PatternConfig{
		"x": {{Field: "lot", Labels: []string{"LOT"}}},
	}

	if _, err := Build(cfg, nil); err == nil {
		t.Error("expected error for unknown grammar field")
	}
}
