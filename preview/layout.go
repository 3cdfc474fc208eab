package preview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ByLCY/prosepress/inline"
	"github.com/ByLCY/prosepress/manuscript"
)

// ErrUnsupportedInput is returned for control characters in the text.
var ErrUnsupportedInput = errors.New("preview: unsupported input")

// Style selects one of the built-in faces.
type Style int

const (
	Regular Style = iota
	Italic
	Bold
	BoldItalic
)

// Align is the horizontal alignment of a text box.
type Align int

const (
	AlignLeft   Align = iota // X is the left edge
	AlignCenter              // X is the center
)

// Role tells the renderer how to color a text box.
type Role string

const (
	RoleBody      Role = "body"
	RoleHeading   Role = "heading"
	RoleHeader    Role = "header"
	RoleFolio     Role = "folio"
	RoleWatermark Role = "watermark"
)

// TextBox is one run of text in a single style. Coordinates are in mm from
// the top-left corner of the page; Y is the top of the line box.
type TextBox struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Content string  `json:"content"`
	Style   Style   `json:"style"`
	Size    float64 `json:"size"`
	Align   Align   `json:"align"`
	Role    Role    `json:"role"`
}

// Page is a laid out page. Number is the printed folio, 0 when unnumbered.
type Page struct {
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Number int       `json:"number"`
	Texts  []TextBox `json:"texts"`
}

// Result is the laid out manuscript.
type Result struct {
	Meta  manuscript.Metadata `json:"meta"`
	Pages []Page              `json:"pages"`
}

// Measurer reports the advance width in mm of s set in style at size pt.
type Measurer interface {
	TextWidth(s string, style Style, size float64) float64
}

// Geometry fixes the page and body text dimensions. Lengths are in mm, the
// font size in pt.
type Geometry struct {
	Width      float64
	Height     float64
	Margin     Margin
	FontSize   float64
	LineHeight float64
	Indent     float64
}

// TextWidth is the width of the body text block.
func (g Geometry) TextWidth() float64 { return g.Width - g.Margin.Left - g.Margin.Right }

// Layout paginates the manuscript: an optional title page, a page per part,
// and every chapter starting on a new page.
func Layout(meta manuscript.Metadata, chapters []manuscript.Chapter, geo Geometry, m Measurer) (*Result, error) {
	if !manuscript.HasChapters(chapters) {
		return nil, manuscript.ErrEmptyProject
	}
	if geo.TextWidth() <= 0 || geo.Height-geo.Margin.Top-geo.Margin.Bottom < geo.LineHeight {
		return nil, fmt.Errorf("preview: margins leave no room for text")
	}
	p := &pager{geo: geo, m: m}
	p.titlePage(meta)
	hasPart := false
	for _, c := range chapters {
		hasPart = hasPart || c.Part
	}
	if hasPart && !chapters[0].Part {
		p.partPage("")
	}
	chapter := 0
	for i, c := range chapters {
		if c.Part {
			p.partPage(c.Title)
			continue
		}
		if err := p.chapter(chapter, c); err != nil {
			return nil, fmt.Errorf("chapter %d: %w", i+1, err)
		}
		chapter++
	}
	p.decorate(meta)
	return &Result{Meta: meta, Pages: p.pages}, nil
}

type pager struct {
	geo    Geometry
	m      Measurer
	pages  []Page
	y      float64
	number int
	parts  int
}

func (p *pager) newPage(numbered bool) {
	page := Page{Width: p.geo.Width, Height: p.geo.Height}
	if numbered {
		p.number++
		page.Number = p.number
	}
	p.pages = append(p.pages, page)
	p.y = p.geo.Margin.Top
}

func (p *pager) add(tb TextBox) {
	last := &p.pages[len(p.pages)-1]
	last.Texts = append(last.Texts, tb)
}

// centered places each wrapped line of text centered on the page.
func (p *pager) centered(text string, style Style, size float64) {
	lh := p.geo.LineHeight * size / p.geo.FontSize
	for _, line := range p.wrap(plainWords(text, style), size, 0) {
		p.add(TextBox{X: p.geo.Width / 2, Y: p.y, Content: joinLine(line), Style: style, Size: size, Align: AlignCenter, Role: RoleHeading})
		p.y += lh
	}
}

func (p *pager) titlePage(meta manuscript.Metadata) {
	if meta.Title == "" && meta.Author == "" && meta.Revision == "" {
		return
	}
	size := p.geo.FontSize
	p.newPage(false)
	p.y = p.geo.Height / 3
	if meta.Title != "" {
		p.centered(meta.Title, Bold, size*2)
		p.y += p.geo.LineHeight
	}
	if meta.Author != "" {
		p.centered(meta.Author, Regular, size*1.2)
	}
	if meta.Revision != "" {
		p.y = p.geo.Height - p.geo.Margin.Bottom - 2*p.geo.LineHeight
		p.centered(meta.Revision, Regular, size*0.8)
	}
}

func (p *pager) partPage(title string) {
	size := p.geo.FontSize
	p.parts++
	p.newPage(true)
	p.y = p.geo.Height / 3
	p.centered("Part "+roman(p.parts), Bold, size*1.6)
	if title != "" {
		p.y += p.geo.LineHeight
		p.centered(title, Bold, size*2)
	}
}

func (p *pager) chapter(n int, c manuscript.Chapter) error {
	geo := p.geo
	size := geo.FontSize
	p.newPage(true)
	p.y += 2 * geo.LineHeight
	p.add(TextBox{X: geo.Margin.Left, Y: p.y, Content: "Chapter " + strconv.Itoa(n), Size: size * 1.3, Role: RoleHeading})
	p.y += 2 * geo.LineHeight
	if c.Title != "" {
		for _, line := range p.wrap(plainWords(c.Title, Bold), size*1.8, 0) {
			p.add(TextBox{X: geo.Margin.Left, Y: p.y, Content: joinLine(line), Style: Bold, Size: size * 1.8, Role: RoleHeading})
			p.y += geo.LineHeight * 1.8
		}
	}
	p.y += 2 * geo.LineHeight

	doc, err := inline.ParseString(c.Text)
	if err != nil {
		return err
	}
	for _, para := range doc.Paragraphs() {
		ws, err := proseWords(para)
		if err != nil {
			return err
		}
		for _, line := range p.wrap(ws, size, geo.Indent) {
			if p.y+geo.LineHeight > geo.Height-geo.Margin.Bottom {
				p.newPage(true)
			}
			p.setLine(line, size)
			p.y += geo.LineHeight
		}
	}
	return nil
}

// setLine emits one body line, merging adjacent runs of the same style.
func (p *pager) setLine(l line, size float64) {
	x := p.geo.Margin.Left + l.indent
	var (
		b     strings.Builder
		style Style
		start = x
	)
	flush := func() {
		if b.Len() > 0 {
			p.add(TextBox{X: start, Y: p.y, Content: b.String(), Style: style, Size: size, Role: RoleBody})
			b.Reset()
		}
	}
	// A space between words is only written inside a box; at a style
	// change it just advances x.
	pending := false
	for i, w := range l.words {
		for _, r := range w {
			if b.Len() == 0 || r.style != style {
				flush()
				style, start = r.style, x
			} else if pending {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteString(r.text)
			x += p.m.TextWidth(r.text, r.style, size)
		}
		if i < len(l.words)-1 {
			x += p.m.TextWidth(" ", style, size)
			pending = true
		}
	}
	flush()
}

// decorate adds the watermark, running header and folio to every page.
func (p *pager) decorate(meta manuscript.Metadata) {
	geo := p.geo
	size := geo.FontSize
	var mark float64
	if meta.Watermark != "" {
		if w := p.m.TextWidth(meta.Watermark, Bold, 10); w > 0 {
			mark = 10 * 0.8 * geo.Width / w
		}
	}
	for i := range p.pages {
		page := &p.pages[i]
		var extra []TextBox
		if mark > 0 {
			extra = append(extra, TextBox{
				X: geo.Width / 2, Y: (geo.Height - mark*PtToMm) / 2,
				Content: meta.Watermark, Style: Bold, Size: mark, Align: AlignCenter, Role: RoleWatermark,
			})
		}
		if page.Number > 0 && meta.Header != "" {
			extra = append(extra, TextBox{
				X: geo.Margin.Left, Y: geo.Margin.Top * 0.4,
				Content: plain(meta.Header), Style: Italic, Size: size * 0.9, Role: RoleHeader,
			})
		}
		if page.Number > 0 {
			extra = append(extra, TextBox{
				X: geo.Width / 2, Y: geo.Height - geo.Margin.Bottom*0.6,
				Content: strconv.Itoa(page.Number), Size: size * 0.9, Align: AlignCenter, Role: RoleFolio,
			})
		}
		// The watermark goes underneath the body text.
		page.Texts = append(extra, page.Texts...)
	}
}

type run struct {
	text  string
	style Style
}

type word []run

type line struct {
	indent float64
	words  []word
}

// wrap fills words greedily into lines of the body text width. A word wider
// than the line is set on its own line.
func (p *pager) wrap(words []word, size, indent float64) []line {
	limit := p.geo.TextWidth()
	space := p.m.TextWidth(" ", Regular, size)
	var lines []line
	cur := line{indent: indent}
	width := indent
	for _, w := range words {
		ww := 0.0
		for _, r := range w {
			ww += p.m.TextWidth(r.text, r.style, size)
		}
		if len(cur.words) > 0 && width+space+ww > limit {
			lines = append(lines, cur)
			cur = line{}
			width = 0
		}
		if len(cur.words) > 0 {
			width += space
		}
		cur.words = append(cur.words, w)
		width += ww
	}
	if len(cur.words) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

func joinLine(l line) string {
	parts := make([]string, len(l.words))
	for i, w := range l.words {
		var b strings.Builder
		for _, r := range w {
			b.WriteString(r.text)
		}
		parts[i] = b.String()
	}
	return strings.Join(parts, " ")
}

// proseWords splits one paragraph into words with typographic quotes and
// dashes, setting emphasis spans in italics.
func proseWords(nodes []*inline.Node) ([]word, error) {
	q := inline.NewQuoter()
	var (
		out []word
		cur word
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
	}
	put := func(text string, style Style) {
		if n := len(cur); n > 0 && cur[n-1].style == style {
			cur[n-1].text += text
			return
		}
		cur = append(cur, run{text: text, style: style})
	}
	atom := func(a *inline.Atom, style Style) error {
		if a.Kind == inline.KindControl {
			r, _ := utf8.DecodeRuneInString(a.Value)
			return fmt.Errorf("%w: %U at line %d, column %d", ErrUnsupportedInput, r, a.Pos.Line, a.Pos.Column)
		}
		dir := q.Next(a)
		switch a.Kind {
		case inline.KindSpace, inline.KindNewline:
			flush()
		case inline.KindDQuote:
			put(pick(dir, "“", "”"), style)
		case inline.KindSQuote:
			put(pick(dir, "‘", "’"), style)
		case inline.KindDash:
			if a.Value == "--" {
				put("—", style)
			} else {
				put(a.Value, style)
			}
		default:
			put(a.Value, style)
		}
		return nil
	}
	for _, n := range nodes {
		switch {
		case n.Atom != nil:
			if err := atom(n.Atom, Regular); err != nil {
				return nil, err
			}
		case n.Emphasis != nil:
			style := Italic
			if !n.Emphasis.Closed {
				put("_", Regular)
				style = Regular
			}
			q.EnterEmphasis()
			for _, a := range n.Emphasis.Body {
				if err := atom(a, style); err != nil {
					return nil, err
				}
			}
			if n.Emphasis.Closed {
				q.LeaveEmphasis()
			}
		}
	}
	flush()
	return out, nil
}

func pick(dir inline.Direction, opening, closing string) string {
	if dir == inline.Opening {
		return opening
	}
	return closing
}

// plain renders metadata text with typographic marks and without emphasis
// delimiters. Text that does not parse is returned unchanged.
func plain(text string) string {
	doc, err := inline.ParseString(text)
	if err != nil {
		return text
	}
	var parts []string
	for _, para := range doc.Paragraphs() {
		ws, err := proseWords(para)
		if err != nil {
			return text
		}
		for _, w := range ws {
			var b strings.Builder
			for _, r := range w {
				b.WriteString(r.text)
			}
			parts = append(parts, b.String())
		}
	}
	return strings.Join(parts, " ")
}

func plainWords(text string, style Style) []word {
	var out []word
	for _, f := range strings.Fields(plain(text)) {
		out = append(out, word{{text: f, style: style}})
	}
	return out
}

var romans = []struct {
	v int
	s string
}{{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"}, {100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"}, {10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"}}

func roman(n int) string {
	var b strings.Builder
	for _, r := range romans {
		for n >= r.v {
			b.WriteString(r.s)
			n -= r.v
		}
	}
	return b.String()
}
