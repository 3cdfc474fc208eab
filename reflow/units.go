package reflow

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// units glues the words of one paragraph into unbreakable units and tags the
// break that follows each of them.
func (e *Engine) units(words []string) []Unit {
	forbid := cohesion(words)
	var units []Unit
	var b strings.Builder
	count := 0
	for i, w := range words {
		if count > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		count++
		if i < len(forbid) && forbid[i] {
			continue
		}
		text := b.String()
		units = append(units, Unit{
			Text:   text,
			Words:  count,
			Length: utf8.RuneCountInString(text),
			Break:  BreakOptional,
		})
		b.Reset()
		count = 0
	}
	for i := range units {
		switch {
		case i == len(units)-1:
			units[i].Break = BreakEnd
		case e.endsSentence(units[i].Text):
			units[i].Break = BreakMandatory
		}
	}
	return units
}

// cohesion reports, for each gap between words[i] and words[i+1], whether a
// line break there is forbidden. Standalone opening marks stick to the next
// word, standalone closing marks and trailing punctuation to the previous one.
func cohesion(words []string) []bool {
	if len(words) < 2 {
		return nil
	}
	forbid := make([]bool, len(words)-1)
	quoteOpen, emphOpen := false, false
	for i, w := range words {
		opens, closes := false, false
		for _, r := range w {
			switch {
			case r == '"':
				if quoteOpen {
					closes = true
				} else {
					opens = true
				}
				quoteOpen = !quoteOpen
			case r == '“':
				opens, quoteOpen = true, true
			case r == '”':
				closes, quoteOpen = true, false
			case r == '_':
				if emphOpen {
					closes = true
				} else {
					opens = true
				}
				emphOpen = !emphOpen
			}
		}
		if !isBare(w) {
			continue
		}
		if !opens && !closes {
			switch {
			case allRunes(w, isTrailingPunct):
				closes = true
			case allRunes(w, isLeadingPunct):
				opens = true
			}
		}
		if closes && i > 0 {
			forbid[i-1] = true
		}
		if opens && i < len(forbid) {
			forbid[i] = true
		}
	}
	return forbid
}

// endsSentence reports whether a unit closes a sentence: terminal punctuation
// possibly followed by closing marks, excluding ellipses, initials and
// abbreviations.
func (e *Engine) endsSentence(unit string) bool {
	s := strings.TrimRightFunc(unit, func(r rune) bool { return r == ' ' || isCloser(r) })
	if s == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(s)
	if !isTerminal(last) || strings.HasSuffix(s, "..") {
		return false
	}
	word := s
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		word = s[i+1:]
	}
	word = strings.TrimLeftFunc(word, isOpener)
	if isInitial(word) {
		return false
	}
	_, abbrev := e.abbrev[strings.ToLower(word)]
	return !abbrev
}

func isInitial(word string) bool {
	r, size := utf8.DecodeRuneInString(word)
	return size > 0 && unicode.IsUpper(r) && word[size:] == "."
}

func isBare(w string) bool {
	for _, r := range w {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func allRunes(w string, f func(rune) bool) bool {
	for _, r := range w {
		if !f(r) {
			return false
		}
	}
	return w != ""
}

func isDoubleQuote(r rune) bool { return r == '"' || r == '“' || r == '”' }

func isTerminal(r rune) bool { return r == '.' || r == '?' || r == '!' }

func isCloser(r rune) bool { return strings.ContainsRune(`"'”’)]}_*`, r) }

func isOpener(r rune) bool { return strings.ContainsRune(`"'“‘([{_*`, r) }

func isTrailingPunct(r rune) bool { return strings.ContainsRune(",.;:!?)]}…", r) }

func isLeadingPunct(r rune) bool { return strings.ContainsRune("([{", r) }
