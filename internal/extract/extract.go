// Package extract pulls entry, stop-loss and take-profit prices out of chat text.
//
// Each author has a grammar: an ordered list of labeled patterns. A pattern is
// one or more surface forms of a label, followed by a separator glyph, followed
// by a decimal number. For each field, the first pattern that matches wins.
// Authors without a grammar are rejected with ErrUnsupportedAuthor rather than
// being parsed with somebody else's rules. Numbers with thousands separators
// ("2,400.5") fail the field rather than parsing a prefix.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Field names a price extracted from text.
type Field string

const (
	Entry      Field = "entry"
	StopLoss   Field = "sl"
	TakeProfit Field = "tp"
)

// ErrUnsupportedAuthor is returned for authors with no configured grammar.
var ErrUnsupportedAuthor = errors.New("unsupported author")

// ParseError reports required fields that could not be extracted.
type ParseError struct {
	Author  string
	Missing []Field
}

func (e *ParseError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("parse failed for %q: missing %s", e.Author, strings.Join(names, ", "))
}

// DefaultSeparators are the accepted glyphs between a label and its number:
// colon variants, arrow variants and the equals-arrow.
func DefaultSeparators() []string {
	return []string{":", "：", "⇒", "=>", "→", "->", "="}
}

// Pattern is one labeled rule in a grammar.
type Pattern struct {
	Field  Field
	Labels []string // Equivalent surface forms, e.g. "SL", "損切"

	// WordBoundary anchors the label at an ASCII word boundary so "EN" does
	// not match inside "OPEN".
	WordBoundary bool

	// Optional fields may be absent without failing the parse. A field is
	// required unless every pattern for it is optional.
	Optional bool
}

// Fields holds the prices extracted from one text.
type Fields struct {
	Entry      decimal.NullDecimal
	StopLoss   decimal.NullDecimal
	TakeProfit decimal.NullDecimal
}

// Get returns the value of f.
func (fs Fields) Get(f Field) decimal.NullDecimal {
	switch f {
	case Entry:
		return fs.Entry
	case StopLoss:
		return fs.StopLoss
	case TakeProfit:
		return fs.TakeProfit
	}
	return decimal.NullDecimal{}
}

func (fs *Fields) set(f Field, v decimal.Decimal) {
	nd := decimal.NewNullDecimal(v)
	switch f {
	case Entry:
		fs.Entry = nd
	case StopLoss:
		fs.StopLoss = nd
	case TakeProfit:
		fs.TakeProfit = nd
	}
}

type compiledPattern struct {
	field Field
	re    *regexp.Regexp
}

// Grammar is one author's compiled pattern list.
type Grammar struct {
	patterns []compiledPattern
	fields   []Field // Defined fields in first-seen order
	required map[Field]bool
}

// Fields returns the fields this grammar defines, in declaration order.
func (g *Grammar) Fields() []Field {
	return g.fields
}

// Extract applies the grammar to text.
func (g *Grammar) Extract(text string) (Fields, []Field) {
	var out Fields
	found := make(map[Field]bool, len(g.fields))

	for _, p := range g.patterns {
		if found[p.field] {
			continue
		}
		m := p.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		v, err := parseNumber(m[1])
		if err != nil {
			continue
		}
		out.set(p.field, v)
		found[p.field] = true
	}

	var missing []Field
	for _, f := range g.fields {
		if g.required[f] && !found[f] {
			missing = append(missing, f)
		}
	}
	return out, missing
}

// Table maps author identity to grammar.
type Table struct {
	grammars map[string]*Grammar
}

// NewTable compiles grammars for every author. An empty separator list uses
// DefaultSeparators.
func NewTable(authors map[string][]Pattern, separators []string) (*Table, error) {
	if len(separators) == 0 {
		separators = DefaultSeparators()
	}
	sep := separatorExpr(separators)

	t := &Table{grammars: make(map[string]*Grammar, len(authors))}
	for author, patterns := range authors {
		g, err := compileGrammar(patterns, sep)
		if err != nil {
			return nil, fmt.Errorf("grammar for %q: %w", author, err)
		}
		t.grammars[author] = g
	}
	return t, nil
}

// Lookup returns the grammar for author.
func (t *Table) Lookup(author string) (*Grammar, bool) {
	if t == nil {
		return nil, false
	}
	g, ok := t.grammars[author]
	return g, ok
}

// Authors returns the configured authors in sorted order.
func (t *Table) Authors() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.grammars))
	for a := range t.grammars {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Extract applies author's grammar to text. It returns ErrUnsupportedAuthor
// for unknown authors and a *ParseError when a required field is missing.
func (t *Table) Extract(author, text string) (Fields, error) {
	g, ok := t.Lookup(author)
	if !ok {
		return Fields{}, fmt.Errorf("%w: %q", ErrUnsupportedAuthor, author)
	}
	fields, missing := g.Extract(text)
	if len(missing) > 0 {
		return Fields{}, &ParseError{Author: author, Missing: missing}
	}
	return fields, nil
}

func compileGrammar(patterns []Pattern, sep string) (*Grammar, error) {
	g := &Grammar{required: make(map[Field]bool)}
	optional := make(map[Field]bool)

	for i, p := range patterns {
		switch p.Field {
		case Entry, StopLoss, TakeProfit:
		default:
			return nil, fmt.Errorf("pattern %d: unknown field %q", i, p.Field)
		}

		labels := make([]string, 0, len(p.Labels))
		for _, l := range p.Labels {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, regexp.QuoteMeta(l))
			}
		}
		if len(labels) == 0 {
			return nil, fmt.Errorf("pattern %d (%s): no labels", i, p.Field)
		}

		expr := `(?i)`
		if p.WordBoundary {
			expr += `\b`
		}
		expr += `(?:` + strings.Join(labels, "|") + `)\s*` + sep + `\s*([+-]?[0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?)`

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%s): %w", i, p.Field, err)
		}
		g.patterns = append(g.patterns, compiledPattern{field: p.Field, re: re})

		if _, seen := g.required[p.Field]; !seen {
			g.fields = append(g.fields, p.Field)
			g.required[p.Field] = false
			optional[p.Field] = true
		}
		if !p.Optional {
			optional[p.Field] = false
		}
	}

	for f := range g.required {
		g.required[f] = !optional[f]
	}
	return g, nil
}

// separatorExpr builds an alternation, longest glyph first so "=>" wins over "=".
func separatorExpr(separators []string) string {
	seps := make([]string, 0, len(separators))
	for _, s := range separators {
		if s != "" {
			seps = append(seps, s)
		}
	}
	sort.SliceStable(seps, func(i, j int) bool { return len(seps[i]) > len(seps[j]) })

	quoted := make([]string, len(seps))
	for i, s := range seps {
		quoted[i] = regexp.QuoteMeta(s)
	}
	return `(?:` + strings.Join(quoted, "|") + `)`
}

// parseNumber parses a locale-invariant decimal. The pattern captures digit
// groups like "2,400.5" whole so they fail here instead of truncating to 2.
func parseNumber(s string) (decimal.Decimal, error) {
	if strings.Contains(s, ",") {
		return decimal.Decimal{}, fmt.Errorf("thousands separator in %q", s)
	}
	s = strings.TrimPrefix(s, "+")
	return decimal.NewFromString(s)
}
