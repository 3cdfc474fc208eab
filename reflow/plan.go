package reflow

import (
	"encoding/json"
	"os"
	"strings"
)

// BreakKind describes the break that follows a unit.
type BreakKind string

const (
	BreakOptional  BreakKind = "optional"  // the greedy fill may wrap here
	BreakMandatory BreakKind = "mandatory" // sentence boundary, a new line starts
	BreakEnd       BreakKind = "end"       // last unit of the paragraph
)

// Plan is the tokenized form of a document: every paragraph as a sequence of
// unbreakable units tagged with the break that follows them.
type Plan struct {
	Width      int         `json:"width"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Paragraph records the units of one paragraph and where it started.
type Paragraph struct {
	Index int    `json:"index"`
	Line  int    `json:"line"`
	Units []Unit `json:"units"`
}

// Unit is one or more words that may not be separated by a line break.
type Unit struct {
	Text   string    `json:"text"`
	Words  int       `json:"words"`
	Length int       `json:"length"`
	Break  BreakKind `json:"break"`
}

// Render lays the plan out as canonical text.
func (p *Plan) Render() string {
	var b strings.Builder
	for i, para := range p.Paragraphs {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, line := range fill(para.Units, p.Width) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Lines returns the wrapped lines of one paragraph.
func (p *Paragraph) Lines(width int) []string { return fill(p.Units, width) }

// fill packs units greedily, starting a new line whenever the next unit
// would exceed width and after every mandatory break.
func fill(units []Unit, width int) []string {
	var lines []string
	var b strings.Builder
	n := 0
	flush := func() {
		if n == 0 {
			return
		}
		lines = append(lines, b.String())
		b.Reset()
		n = 0
	}
	for _, u := range units {
		if n > 0 && n+1+u.Length > width {
			flush()
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}
		b.WriteString(u.Text)
		n += u.Length
		if u.Break != BreakOptional {
			flush()
		}
	}
	flush()
	return lines
}

// WriteDebugJSON dumps the plan as indented JSON for inspecting break
// decisions.
func WriteDebugJSON(plan *Plan, path string) error {
	if plan == nil {
		return nil
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
