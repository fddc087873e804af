package extract

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(map[string][]Pattern{
		"yuna": {
			{Field: Entry, Labels: []string{"エントリー"}},
			{Field: StopLoss, Labels: []string{"損切"}},
		},
		"shiori": {
			{Field: Entry, Labels: []string{"EN", "Entry"}, WordBoundary: true},
			{Field: StopLoss, Labels: []string{"SL"}, WordBoundary: true},
			{Field: TakeProfit, Labels: []string{"TP"}, WordBoundary: true, Optional: true},
		},
	}, nil)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestTable_Extract(t *testing.T) {
	table := testTable(t)

	tests := []struct {
		name   string
		author string
		text   string
		entry  string
		sl     string
		tp     string // empty = absent
	}{
		{"japanese colon", "yuna", "ゴールド ロング\nエントリー：2400.5\n損切：2390", "2400.5", "2390", ""},
		{"japanese ascii colon spaced", "yuna", "エントリー : 2401\n損切 : 2395.25", "2401", "2395.25", ""},
		{"japanese arrow", "yuna", "エントリー→2402 損切⇒2392", "2402", "2392", ""},
		{"latin double arrow", "shiori", "BUY\nEntry ⇒ 2400.5\nSL ⇒ 2390.0", "2400.5", "2390.0", ""},
		{"latin equals arrow", "shiori", "long EN=>2400 SL=>2390", "2400", "2390", ""},
		{"latin lowercase labels", "shiori", "en: 2400\nsl: 2390\ntp: 2420", "2400", "2390", "2420"},
		{"signed value", "shiori", "EN = 2400 SL -> -5.5", "2400", "-5.5", ""},
		{"first match wins", "shiori", "EN: 2400\nEN: 2500\nSL: 2390", "2400", "2390", ""},
		{"trailing comma", "shiori", "EN: 2400, SL: 2390, TP: 2420.", "2400", "2390", "2420"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Extract(tt.author, tt.text)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if !got.Entry.Valid || !got.Entry.Decimal.Equal(mustDecimal(t, tt.entry)) {
				t.Errorf("Entry = %v, want %s", got.Entry, tt.entry)
			}
			if !got.StopLoss.Valid || !got.StopLoss.Decimal.Equal(mustDecimal(t, tt.sl)) {
				t.Errorf("StopLoss = %v, want %s", got.StopLoss, tt.sl)
			}
			if tt.tp == "" {
				if got.TakeProfit.Valid {
					t.Errorf("TakeProfit = %v, want absent", got.TakeProfit.Decimal)
				}
			} else if !got.TakeProfit.Valid || !got.TakeProfit.Decimal.Equal(mustDecimal(t, tt.tp)) {
				t.Errorf("TakeProfit = %v, want %s", got.TakeProfit, tt.tp)
			}
		})
	}
}

func TestTable_ExtractMissingRequired(t *testing.T) {
	table := testTable(t)

	tests := []struct {
		name    string
		author  string
		text    string
		missing []Field
	}{
		{"no fields", "shiori", "GOLD BUY now", []Field{Entry, StopLoss}},
		{"no stop loss", "yuna", "エントリー：2400", []Field{StopLoss}},
		{"word boundary blocks OPEN", "shiori", "OPEN: 2400 SL: 2390", []Field{Entry}},
		{"label without number", "shiori", "EN: soon SL: 2390", []Field{Entry}},
		{"leading comma", "shiori", "EN: ,2400 SL: 2390", []Field{Entry}},
		{"thousands separator", "shiori", "BUY EN: 2,400.5 SL: 2,390", []Field{Entry, StopLoss}},
		{"thousands separator one field", "shiori", "EN: 2400 SL: 2,390", []Field{StopLoss}},
		{"other author's grammar", "yuna", "EN: 2400 SL: 2390", []Field{Entry, StopLoss}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Extract(tt.author, tt.text)

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if pe.Author != tt.author {
				t.Errorf("Author = %q, want %q", pe.Author, tt.author)
			}
			if len(pe.Missing) != len(tt.missing) {
				t.Fatalf("Missing = %v, want %v", pe.Missing, tt.missing)
			}
			for i := range tt.missing {
				if pe.Missing[i] != tt.missing[i] {
					t.Errorf("Missing[%d] = %q, want %q", i, pe.Missing[i], tt.missing[i])
				}
			}
		})
	}
}

func TestTable_UnsupportedAuthor(t *testing.T) {
	table := testTable(t)

	_, err := table.Extract("stranger", "EN: 2400 SL: 2390")
	if !errors.Is(err, ErrUnsupportedAuthor) {
		t.Errorf("err = %v, want ErrUnsupportedAuthor", err)
	}

	var nilTable *Table
	if _, ok := nilTable.Lookup("yuna"); ok {
		t.Error("nil table Lookup should fail")
	}
}

func TestTable_Authors(t *testing.T) {
	got := testTable(t).Authors()
	if len(got) != 2 || got[0] != "shiori" || got[1] != "yuna" {
		t.Errorf("Authors() = %v, want [shiori yuna]", got)
	}
}

func TestGrammar_Fields(t *testing.T) {
	g, ok := testTable(t).Lookup("shiori")
	if !ok {
		t.Fatal("shiori grammar missing")
	}
	fields := g.Fields()
	want := []Field{Entry, StopLoss, TakeProfit}
	if len(fields) != len(want) {
		t.Fatalf("Fields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("Fields()[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestNewTable_Errors(t *testing.T) {
	tests := []struct {
		name     string
		patterns []Pattern
	}{
		{"unknown field", []Pattern{{Field: "size", Labels: []string{"LOT"}}}},
		{"no labels", []Pattern{{Field: Entry, Labels: []string{" "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTable(map[string][]Pattern{"a": tt.patterns}, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewTable_CustomSeparators(t *testing.T) {
	table, err := NewTable(map[string][]Pattern{
		"bot": {{Field: Entry, Labels: []string{"@"}}},
	}, []string{"~"})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	got, err := table.Extract("bot", "@ ~ 1.25")
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if !got.Entry.Decimal.Equal(mustDecimal(t, "1.25")) {
		t.Errorf("Entry = %v, want 1.25", got.Entry.Decimal)
	}

	if _, err := table.Extract("bot", "@: 1.25"); err == nil {
		t.Error("default separator should not be accepted with a custom set")
	}
}

func TestFieldsGet(t *testing.T) {
	fs := Fields{Entry: decimal.NewNullDecimal(decimal.NewFromInt(5))}
	if !fs.Get(Entry).Valid {
		t.Error("Get(Entry) should be valid")
	}
	if fs.Get(StopLoss).Valid || fs.Get("x").Valid {
		t.Error("unset fields should be invalid")
	}
}
