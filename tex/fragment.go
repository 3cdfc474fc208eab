// Package tex translates canonical prose into LaTeX fragments and assembles
// fragments into a complete book document.
package tex

import (
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/prosepress/inline"
)

var specials = map[rune]string{
	'#': `\#`,
	'$': `\$`,
	'%': `\%`,
	'&': `\&`,
	'~': `\textasciitilde{}`,
	'^': `\textasciicircum{}`,
}

// EmitFragment translates one canonical text into LaTeX. Every input line
// maps to exactly one output line.
func EmitFragment(text string) (string, error) {
	doc, err := inline.ParseString(text)
	if err != nil {
		return "", err
	}
	e := &emitter{quotes: inline.NewQuoter()}
	for _, n := range doc.Nodes {
		switch {
		case n.Break != nil:
			e.b.WriteString(*n.Break)
			e.reset()
		case n.Emphasis != nil:
			if err := e.emphasis(n.Emphasis); err != nil {
				return "", err
			}
		case n.Atom != nil:
			if err := e.atom(n.Atom); err != nil {
				return "", err
			}
		}
	}
	return e.b.String(), nil
}

type emitter struct {
	b      strings.Builder
	quotes *inline.Quoter
	// last is the direction of the quote written immediately before.
	last inline.Direction
}

func (e *emitter) reset() {
	e.quotes.Reset()
	e.last = inline.NotQuote
}

func (e *emitter) emphasis(em *inline.Emphasis) error {
	if em.Closed {
		e.b.WriteString(`\textit{`)
	} else {
		e.b.WriteString(`\_`)
	}
	e.quotes.EnterEmphasis()
	e.last = inline.NotQuote
	for _, a := range em.Body {
		if err := e.atom(a); err != nil {
			return err
		}
	}
	if em.Closed {
		e.b.WriteByte('}')
		e.quotes.LeaveEmphasis()
		e.last = inline.NotQuote
	}
	return nil
}

func (e *emitter) atom(a *inline.Atom) error {
	if a.Kind == inline.KindControl {
		r, _ := utf8.DecodeRuneInString(a.Value)
		return &PositionError{Line: a.Pos.Line, Column: a.Pos.Column, Rune: r, Err: ErrUnescapableInput}
	}
	dir := e.quotes.Next(a)
	switch a.Kind {
	case inline.KindDQuote:
		e.quote(dir, "``", "''")
	case inline.KindSQuote:
		e.quote(dir, "`", "'")
	case inline.KindDash:
		if a.Value == "--" {
			e.b.WriteString("---")
		} else {
			e.b.WriteString(a.Value)
		}
	case inline.KindSpace, inline.KindNewline:
		e.b.WriteString(a.Value)
	default:
		e.b.WriteString(escape(a.Value))
	}
	e.last = dir
	return nil
}

func (e *emitter) quote(dir inline.Direction, opener, closer string) {
	if e.last == dir {
		e.b.WriteString(`\thinspace`)
	}
	if dir == inline.Opening {
		e.b.WriteString(opener)
	} else {
		e.b.WriteString(closer)
	}
}

// escape protects LaTeX special characters in a word. A character already
// preceded by a backslash is left alone so inline commands and explicit
// escapes pass through.
func escape(s string) string {
	if !strings.ContainsAny(s, "#$%&~^") {
		return s
	}
	var b strings.Builder
	backslash := false
	for _, r := range s {
		if rep, ok := specials[r]; ok && !backslash {
			b.WriteString(rep)
		} else {
			b.WriteRune(r)
		}
		backslash = r == '\\' && !backslash
	}
	return b.String()
}
