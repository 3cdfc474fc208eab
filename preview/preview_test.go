package preview

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/prosepress/manuscript"
)

// monoMeasurer sets every character 2mm wide regardless of style and size.
type monoMeasurer struct{}

func (monoMeasurer) TextWidth(s string, _ Style, _ float64) float64 {
	return 2 * float64(utf8.RuneCountInString(s))
}

func testGeometry() Geometry {
	return Geometry{
		Width:      100,
		Height:     120,
		Margin:     Margin{Top: 10, Right: 10, Bottom: 10, Left: 10},
		FontSize:   10,
		LineHeight: 5,
		Indent:     4,
	}
}

func bodyTexts(p Page) []TextBox {
	var out []TextBox
	for _, tb := range p.Texts {
		if tb.Role == RoleBody {
			out = append(out, tb)
		}
	}
	return out
}

func TestLayoutEmptyProject(t *testing.T) {
	_, err := Layout(manuscript.Metadata{}, []manuscript.Chapter{{Title: "I", Part: true}}, testGeometry(), monoMeasurer{})
	if !errors.Is(err, manuscript.ErrEmptyProject) {
		t.Fatalf("expected ErrEmptyProject, got %v", err)
	}
}

func TestLayoutWrapsAndIndents(t *testing.T) {
	// 80mm of text width holds 40 characters.
	text := "aaaa bbbb cccc dddd eeee ffff gggg hhhh iiii\n\nsecond paragraph."
	res, err := Layout(manuscript.Metadata{}, []manuscript.Chapter{{Title: "One", Text: text}}, testGeometry(), monoMeasurer{})
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	if len(res.Pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(res.Pages))
	}
	body := bodyTexts(res.Pages[0])
	if len(body) != 3 {
		t.Fatalf("expected 3 body lines, got %d: %+v", len(body), body)
	}
	if body[0].X != 14 || body[0].Content != "aaaa bbbb cccc dddd eeee ffff gggg" {
		t.Fatalf("unexpected first line %+v", body[0])
	}
	if body[1].X != 10 || body[1].Content != "hhhh iiii" {
		t.Fatalf("unexpected second line %+v", body[1])
	}
	if body[2].X != 14 || body[2].Y != body[1].Y+5 {
		t.Fatalf("second paragraph should be indented on the next line, got %+v", body[2])
	}
}

func TestLayoutTypographyAndEmphasis(t *testing.T) {
	text := "He said \"it's _very_ late\"--then left."
	res, err := Layout(manuscript.Metadata{}, []manuscript.Chapter{{Text: text}}, testGeometry(), monoMeasurer{})
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}
	body := bodyTexts(res.Pages[0])
	var got []string
	for _, tb := range body {
		got = append(got, tb.Content)
	}
	joined := strings.Join(got, "|")
	if joined != "He said “it’s|very|late”—then left." {
		t.Fatalf("unexpected runs %q", joined)
	}
	if body[1].Style != Italic || body[0].Style != Regular {
		t.Fatalf("expected italic emphasis, got %+v", body)
	}
	if body[1].X != 10+4+2*float64(utf8.RuneCountInString("He said “it’s ")) {
		t.Fatalf("unexpected italic run position %g", body[1].X)
	}
}

func TestLayoutPaginatesAndDecorates(t *testing.T) {
	var paras []string
	for i := 0; i < 20; i++ {
		paras = append(paras, "line")
	}
	meta := manuscript.Metadata{Title: "Road", Header: "Draft _one_", Watermark: "DRAFT", Revision: "abc"}
	chapters := []manuscript.Chapter{
		{Title: "Prologue", Text: strings.Join(paras, "\n\n")},
		{Title: "Book One", Part: true},
		{Title: "Start", Text: "x"},
	}
	res, err := Layout(meta, chapters, testGeometry(), monoMeasurer{})
	if err != nil {
		t.Fatalf("layout failed: %v", err)
	}

	// title, leading part, prologue (two pages), part, chapter
	if len(res.Pages) != 6 {
		t.Fatalf("expected 6 pages, got %d", len(res.Pages))
	}
	if res.Pages[0].Number != 0 {
		t.Fatalf("title page must be unnumbered")
	}
	if !hasText(res.Pages[1], "Part I") || !hasText(res.Pages[4], "Part II") || !hasText(res.Pages[4], "Book One") {
		t.Fatalf("unexpected part pages")
	}
	if !hasText(res.Pages[2], "Chapter 0") || !hasText(res.Pages[5], "Chapter 1") {
		t.Fatalf("chapters should be numbered from 0")
	}
	for i, page := range res.Pages {
		if page.Texts[0].Role != RoleWatermark {
			t.Fatalf("page %d: watermark should be drawn first", i)
		}
		var header, folio bool
		for _, tb := range page.Texts {
			header = header || (tb.Role == RoleHeader && tb.Content == "Draft one")
			folio = folio || tb.Role == RoleFolio
		}
		if (page.Number > 0) != header || (page.Number > 0) != folio {
			t.Fatalf("page %d: header %v folio %v number %d", i, header, folio, page.Number)
		}
	}
	if res.Pages[5].Number != 5 {
		t.Fatalf("expected last folio 5, got %d", res.Pages[5].Number)
	}
}

func TestLayoutRejectsControlCharacters(t *testing.T) {
	_, err := Layout(manuscript.Metadata{}, []manuscript.Chapter{{Text: "bad\x0c"}}, testGeometry(), monoMeasurer{})
	if !errors.Is(err, ErrUnsupportedInput) {
		t.Fatalf("expected ErrUnsupportedInput, got %v", err)
	}
}

func TestRenderPDF(t *testing.T) {
	r, err := New(Options{PageSize: "A5", Margin: "15mm", FontSize: 11, LineHeight: "1.3"})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	meta := manuscript.Metadata{Title: "The Road", Author: "A. Writer", Header: "Draft", Watermark: "DRAFT"}
	chapters := []manuscript.Chapter{{Title: "One", Text: "Hello _world_.\nIt was \"late\".\n"}}

	if w := r.TextWidth("hello", Regular, 11); w <= 0 {
		t.Fatalf("expected positive text width, got %g", w)
	}
	res, err := r.Layout(meta, chapters)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if err := WriteDebugJSON(res, filepath.Join(t.TempDir(), "layout.json")); err != nil {
		t.Fatalf("debug json: %v", err)
	}

	data, err := r.Render(meta, chapters)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a PDF")
	}
}

func TestOptionsGeometryDefaults(t *testing.T) {
	geo, err := Options{}.Geometry()
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	if geo.Width != 148 || geo.Height != 210 || geo.Margin.Left != 20 || geo.FontSize != 11 {
		t.Fatalf("unexpected defaults %+v", geo)
	}
	if _, err := (Options{PageSize: "A0"}).Geometry(); err == nil {
		t.Fatalf("expected error for unknown page size")
	}
	if _, err := (Options{Indent: "far"}).Geometry(); err == nil {
		t.Fatalf("expected error for bad indent")
	}
}

func hasText(p Page, s string) bool {
	for _, tb := range p.Texts {
		if tb.Content == s {
			return true
		}
	}
	return false
}
