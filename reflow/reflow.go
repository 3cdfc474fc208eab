package reflow

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultAbbreviations lists the words whose trailing period does not end a
// sentence when Options.Abbreviations is nil.
var DefaultAbbreviations = []string{
	"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Sr.", "Jr.", "St.", "Mt.",
	"Gen.", "Col.", "Capt.", "Lt.", "Sgt.", "Rev.", "Hon.",
	"vs.", "e.g.", "i.e.", "cf.", "etc.", "a.m.", "p.m.", "U.S.", "U.K.",
}

// Options configures an Engine.
type Options struct {
	// Width is the maximum line length in characters (code points after NFC).
	Width int
	// Abbreviations overrides DefaultAbbreviations. An empty, non-nil slice
	// disables abbreviation handling.
	Abbreviations []string
	// KeepCurlyQuotes disables folding of typographic quotes to ASCII.
	KeepCurlyQuotes bool
}

// Engine rewraps prose into canonical form. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	width      int
	foldQuotes bool
	abbrev     map[string]struct{}
}

var quoteFolder = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, opts.Width)
	}
	list := opts.Abbreviations
	if list == nil {
		list = DefaultAbbreviations
	}
	abbrev := make(map[string]struct{}, len(list))
	for _, a := range list {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if !strings.HasSuffix(a, ".") {
			a += "."
		}
		abbrev[a] = struct{}{}
	}
	return &Engine{width: opts.Width, foldQuotes: !opts.KeepCurlyQuotes, abbrev: abbrev}, nil
}

// Reflow rewraps text at width using the default rule set.
func Reflow(text string, width int) (string, error) {
	e, err := New(Options{Width: width})
	if err != nil {
		return "", err
	}
	return e.Reflow(text)
}

// Reflow returns the canonical form of text. Applying it to its own output
// returns the output unchanged.
func (e *Engine) Reflow(text string) (string, error) {
	plan, err := e.Plan(text)
	if err != nil {
		return "", err
	}
	return plan.Render(), nil
}

// Plan normalizes text and computes the break units of every paragraph
// without rendering them. All malformed paragraphs are reported together.
func (e *Engine) Plan(text string) (*Plan, error) {
	raw := e.split(text)
	plan := &Plan{Width: e.width, Paragraphs: make([]Paragraph, 0, len(raw))}
	var errs []error
	for i, p := range raw {
		if err := validate(i, p); err != nil {
			errs = append(errs, err)
			continue
		}
		plan.Paragraphs = append(plan.Paragraphs, Paragraph{
			Index: i,
			Line:  p.line,
			Units: e.units(p.words),
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return plan, nil
}

type rawParagraph struct {
	line  int
	words []string
}

// split applies NFC and quote folding, then groups the words of consecutive
// non-blank lines into paragraphs.
func (e *Engine) split(text string) []rawParagraph {
	text = norm.NFC.String(text)
	if e.foldQuotes {
		text = quoteFolder.Replace(text)
	}
	var out []rawParagraph
	cur := -1
	for i, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			cur = -1
			continue
		}
		if cur < 0 {
			out = append(out, rawParagraph{line: i + 1})
			cur = len(out) - 1
		}
		out[cur].words = append(out[cur].words, words...)
	}
	return out
}

func validate(index int, p rawParagraph) error {
	quotes, emph := 0, 0
	for _, w := range p.words {
		for _, r := range w {
			switch {
			case isDoubleQuote(r):
				quotes++
			case r == '_':
				emph++
			}
		}
	}
	if quotes%2 != 0 {
		return &ParagraphError{Index: index, Line: p.line, Count: quotes, Err: ErrMalformedQuotation}
	}
	if emph%2 != 0 {
		return &ParagraphError{Index: index, Line: p.line, Count: emph, Err: ErrMalformedEmphasis}
	}
	return nil
}
