// Package preview renders a manuscript straight to PDF with
// github.com/tdewolff/canvas, for authors without a TeX installation. The
// output approximates the LaTeX book layout; it is a proof, not a
// replacement for the typeset document.
package preview

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/prosepress/fonts"
	"github.com/ByLCY/prosepress/manuscript"
)

// Options configures the page geometry. Zero values select A5 with 20mm
// margins, 11pt type on 1.4 line spacing and a 1.5em paragraph indent.
type Options struct {
	PageSize   string
	Landscape  bool
	Margin     string
	FontSize   float64
	LineHeight string
	Indent     string
}

// Geometry resolves the options into page dimensions.
func (o Options) Geometry() (Geometry, error) {
	name := o.PageSize
	if name == "" {
		name = "A5"
	}
	w, h, err := PageSize(name, o.Landscape)
	if err != nil {
		return Geometry{}, err
	}
	marginSpec := o.Margin
	if marginSpec == "" {
		marginSpec = "20mm"
	}
	margin, err := ParseMargin(marginSpec)
	if err != nil {
		return Geometry{}, err
	}
	size := o.FontSize
	if size <= 0 {
		size = 11
	}
	lh, err := ParseLineHeight(o.LineHeight)
	if err != nil {
		return Geometry{}, err
	}
	indent := 1.5 * size * PtToMm
	if o.Indent != "" {
		l, err := ParseLength(o.Indent)
		if err != nil {
			return Geometry{}, fmt.Errorf("indent: %w", err)
		}
		indent = l.MM()
	}
	return Geometry{
		Width:      w,
		Height:     h,
		Margin:     margin,
		FontSize:   size,
		LineHeight: lh.Resolve(size),
		Indent:     indent,
	}, nil
}

var (
	inkColor       = canvas.RGBA(30.0/255, 30.0/255, 30.0/255, 1)
	watermarkColor = canvas.RGBA(0.875, 0.875, 0.875, 1)
)

type faceKey struct {
	style Style
	size  float64
	role  Role
}

// Renderer lays out and draws manuscripts. It is safe for concurrent use.
type Renderer struct {
	geo    Geometry
	family *canvas.FontFamily

	mu    sync.Mutex
	faces map[faceKey]*canvas.FontFace
}

// New loads the built-in faces and resolves the page geometry.
func New(opts Options) (*Renderer, error) {
	geo, err := opts.Geometry()
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("prosepress")
	for _, f := range []struct {
		name  string
		style canvas.FontStyle
	}{
		{"regular", canvas.FontRegular},
		{"italic", canvas.FontItalic},
		{"bold", canvas.FontBold},
		{"bold-italic", canvas.FontBold | canvas.FontItalic},
	} {
		data, err := fonts.Load(f.name)
		if err != nil {
			return nil, err
		}
		if err := family.LoadFont(data, 0, f.style); err != nil {
			return nil, fmt.Errorf("load font %s: %w", f.name, err)
		}
	}
	return &Renderer{geo: geo, family: family, faces: map[faceKey]*canvas.FontFace{}}, nil
}

// Geometry returns the resolved page geometry.
func (r *Renderer) Geometry() Geometry { return r.geo }

// TextWidth implements Measurer.
func (r *Renderer) TextWidth(s string, style Style, size float64) float64 {
	return r.face(style, size, RoleBody).TextWidth(s)
}

// Layout paginates the manuscript without drawing it.
func (r *Renderer) Layout(meta manuscript.Metadata, chapters []manuscript.Chapter) (*Result, error) {
	return Layout(meta, chapters, r.geo, r)
}

// Render lays out and draws the manuscript, returning the PDF bytes.
func (r *Renderer) Render(meta manuscript.Metadata, chapters []manuscript.Chapter) ([]byte, error) {
	res, err := r.Layout(meta, chapters)
	if err != nil {
		return nil, err
	}
	return r.Draw(res)
}

// Draw writes a laid out result as PDF.
func (r *Renderer) Draw(res *Result) ([]byte, error) {
	if res == nil || len(res.Pages) == 0 {
		return nil, fmt.Errorf("preview: nothing to draw")
	}
	var buf bytes.Buffer
	first := res.Pages[0]
	writer := pdf.New(&buf, first.Width, first.Height, nil)
	writer.SetInfo(plain(res.Meta.Title), plain(res.Meta.Revision), "", plain(res.Meta.Author), "prosepress")
	for i, page := range res.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV)
		for _, tb := range page.Texts {
			r.drawText(ctx, tb)
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawText(ctx *canvas.Context, tb TextBox) {
	face := r.face(tb.Style, tb.Size, tb.Role)
	align := canvas.Left
	if tb.Align == AlignCenter {
		align = canvas.Center
	}
	baseline := tb.Y + face.Metrics().Ascent
	ctx.DrawText(tb.X, baseline, canvas.NewTextLine(face, tb.Content, align))
}

func (r *Renderer) face(style Style, size float64, role Role) *canvas.FontFace {
	if role != RoleWatermark {
		role = RoleBody
	}
	key := faceKey{style: style, size: size, role: role}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[key]; ok {
		return f
	}
	var col color.Color = inkColor
	if role == RoleWatermark {
		col = watermarkColor
	}
	f := r.family.Face(size, col, fontStyle(style), canvas.FontNormal)
	r.faces[key] = f
	return f
}

func fontStyle(s Style) canvas.FontStyle {
	switch s {
	case Italic:
		return canvas.FontItalic
	case Bold:
		return canvas.FontBold
	case BoldItalic:
		return canvas.FontBold | canvas.FontItalic
	default:
		return canvas.FontRegular
	}
}
