package inline

import (
	"strings"
	"unicode/utf8"
)

// Direction tells whether a quotation mark opens or closes.
type Direction int

const (
	NotQuote Direction = iota
	Opening
	Closing
)

// Quoter pairs quotation marks across the atoms of one paragraph. Straight
// double quotes alternate; a straight single quote opens only at the start
// of a word, otherwise it is a closing mark or an apostrophe.
type Quoter struct {
	double bool
	fresh  bool
}

// NewQuoter returns a Quoter positioned at the start of a paragraph.
func NewQuoter() *Quoter {
	q := &Quoter{}
	q.Reset()
	return q
}

// Reset forgets all state; call it at every paragraph break.
func (q *Quoter) Reset() {
	q.double = false
	q.fresh = true
}

// EnterEmphasis marks the start of an emphasis span, which begins a word.
func (q *Quoter) EnterEmphasis() { q.fresh = true }

// LeaveEmphasis marks the end of an emphasis span.
func (q *Quoter) LeaveEmphasis() { q.fresh = false }

// Next advances over a and reports its direction when it is a quote.
func (q *Quoter) Next(a *Atom) Direction {
	switch a.Kind {
	case KindSpace, KindNewline, KindDash:
		q.fresh = true
	case KindDQuote:
		dir := Closing
		switch a.Value {
		case "“":
			dir = Opening
		case "”":
		default:
			if !q.double {
				dir = Opening
			}
		}
		q.double = dir == Opening
		q.fresh = dir == Opening
		return dir
	case KindSQuote:
		dir := Closing
		if a.Value == "‘" || (a.Value == "'" && q.fresh) {
			dir = Opening
		}
		q.fresh = dir == Opening
		return dir
	case KindWord:
		last, _ := utf8.DecodeLastRuneInString(a.Value)
		q.fresh = strings.ContainsRune("([{", last)
	}
	return NotQuote
}
