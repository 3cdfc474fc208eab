// Package inline parses canonical prose into a small AST that distinguishes
// words, whitespace, quotation marks, dashes and `_..._` emphasis spans.
// Paragraph separators are kept as explicit nodes so consumers can reset
// per-paragraph state.
package inline

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Token kinds reported in Atom.Kind.
const (
	KindWord    = "Word"
	KindSpace   = "Space"
	KindNewline = "Newline"
	KindControl = "Control"
	KindDQuote  = "DQuote"
	KindSQuote  = "SQuote"
	KindDash    = "Dash"
)

var (
	proseLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Blank", Pattern: `\n(?:[ \t\r]*\n)+`},
		{Name: "Newline", Pattern: `\n`},
		{Name: "Space", Pattern: `[ \t\r]+`},
		{Name: "Control", Pattern: `[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x{9f}]`},
		{Name: "Emph", Pattern: `_`},
		{Name: "DQuote", Pattern: `["“”]`},
		{Name: "SQuote", Pattern: `['‘’]`},
		{Name: "Dash", Pattern: `-+`},
		{Name: "Word", Pattern: `[^\s_"“”'‘’\-\x00-\x1f\x7f-\x{9f}]+`},
	})

	tokenNames     = invertSymbols(proseLexer.Symbols())
	blankTokenType = mustTokenType("Blank")
	emphTokenType  = mustTokenType("Emph")

	documentParser = participle.MustBuild[Document](
		participle.Lexer(proseLexer),
	)
)

// Document is the root of a parsed text.
type Document struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Nodes []*Node        `parser:"@@*"`
}

// Node is a paragraph break, an emphasis span or a single atom.
type Node struct {
	Break    *string   `parser:"  @Blank"`
	Emphasis *Emphasis `parser:"| @@"`
	Atom     *Atom     `parser:"| @@"`
}

// Emphasis is a `_..._` span. It never crosses a paragraph break; an
// unterminated span is reported with Closed set to false.
type Emphasis struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Body   []*Atom        `parser:"Emph @@*"`
	Closed bool           `parser:"@Emph?"`
}

// Text returns the span body as written.
func (e *Emphasis) Text() string {
	var b strings.Builder
	for _, a := range e.Body {
		b.WriteString(a.Value)
	}
	return b.String()
}

// Atom is one lexical token other than a paragraph break or emphasis mark.
type Atom struct {
	Kind  string         `json:"kind"`
	Value string         `json:"value"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable. It stops at emphasis marks and
// paragraph breaks so spans and paragraphs stay structural.
func (a *Atom) Parse(lex *lexer.PeekingLexer) error {
	tok := lex.Peek()
	if tok == nil || tok.EOF() || tok.Type == emphTokenType || tok.Type == blankTokenType {
		return participle.NextMatch
	}
	tok = lex.Next()
	name, ok := tokenNames[tok.Type]
	if !ok {
		name = fmt.Sprintf("#%d", tok.Type)
	}
	*a = Atom{Kind: name, Value: tok.Value, Pos: tok.Pos}
	return nil
}

// Parse parses prose from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses prose from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}

// Paragraphs groups the document's nodes between paragraph breaks. Break
// nodes themselves are dropped and empty groups are skipped.
func (d *Document) Paragraphs() [][]*Node {
	var out [][]*Node
	var cur []*Node
	for _, n := range d.Nodes {
		if n.Break != nil {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, n)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func invertSymbols(symbols map[string]lexer.TokenType) map[lexer.TokenType]string {
	out := make(map[lexer.TokenType]string, len(symbols))
	for name, tt := range symbols {
		out[tt] = name
	}
	return out
}

func mustTokenType(name string) lexer.TokenType {
	symbols := proseLexer.Symbols()
	tt, ok := symbols[name]
	if !ok {
		panic(fmt.Sprintf("token %s not defined", name))
	}
	return tt
}
