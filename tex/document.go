package tex

import (
	"fmt"
	"strings"

	"github.com/ByLCY/prosepress/manuscript"
)

// Section is one emitted entry of the book. Part entries open a new part
// titled Title and carry no markup.
type Section struct {
	Title  string
	Markup string
	Part   bool
}

// EmitDocument wraps the sections, in order, into a complete LaTeX book.
// Metadata fields left empty produce no output.
func EmitDocument(sections []Section, meta manuscript.Metadata) (string, error) {
	if !hasChapter(sections) {
		return "", ErrEmptyProject
	}
	m, err := emitMetadata(meta)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	cmd := func(name string, opts []string, args ...string) {
		b.WriteByte('\\')
		b.WriteString(name)
		if len(opts) > 0 {
			b.WriteString("[" + strings.Join(opts, ",") + "]")
		}
		for _, a := range args {
			b.WriteString("{" + a + "}")
		}
		b.WriteByte('\n')
	}

	cmd("documentclass", nil, "book")
	cmd("usepackage", nil, "indentfirst")
	if m.Watermark != "" {
		cmd("usepackage", nil, "draftwatermark")
		cmd("SetWatermarkText", nil, m.Watermark)
		cmd("SetWatermarkScale", nil, "0.4")
		cmd("SetWatermarkLightness", nil, "0.875")
	}
	cmd("usepackage", []string{"T1"}, "fontenc")
	cmd("usepackage", nil, "librebaskerville")
	if m.Header != "" {
		cmd("usepackage", nil, "fancyhdr")
		cmd("pagestyle", nil, "fancy")
		cmd("fancyhead", nil, "")
		cmd("fancyhead", []string{"L"}, `\textit{`+m.Header+"}")
	}
	cmd("setcounter", nil, "chapter", "-1")

	cmd("begin", nil, "document")
	// \maketitle needs a \title, even an empty one, to set the author.
	if m.Title != "" || m.Author != "" {
		cmd("title", nil, m.Title)
		if m.Author != "" {
			cmd("author", nil, m.Author)
		}
		cmd("maketitle", nil)
	}
	if m.Revision != "" {
		cmd("begin", nil, "center")
		cmd("hspace", nil, "0pt")
		cmd("vfill", nil)
		b.WriteString("\n" + m.Revision + "\n\n")
		cmd("vfill", nil)
		cmd("hspace", nil, "0pt")
		cmd("end", nil, "center")
	}
	cmd("tableofcontents", nil)

	if hasPart(sections) && !sections[0].Part {
		cmd("part", nil, "")
	}
	for i, s := range sections {
		title, err := EmitFragment(s.Title)
		if err != nil {
			return "", fmt.Errorf("section %d title: %w", i+1, err)
		}
		if s.Part {
			cmd("part", nil, title)
			continue
		}
		cmd("chapter", nil, title)
		b.WriteString(s.Markup)
		if s.Markup != "" && !strings.HasSuffix(s.Markup, "\n") {
			b.WriteByte('\n')
		}
	}
	cmd("end", nil, "document")
	return b.String(), nil
}

// emitMetadata runs every metadata field through the fragment emitter.
func emitMetadata(meta manuscript.Metadata) (manuscript.Metadata, error) {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"title", &meta.Title},
		{"author", &meta.Author},
		{"header", &meta.Header},
		{"watermark", &meta.Watermark},
		{"revision", &meta.Revision},
	}
	for _, f := range fields {
		out, err := EmitFragment(strings.TrimSpace(*f.ptr))
		if err != nil {
			return meta, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = out
	}
	return meta, nil
}

func hasChapter(sections []Section) bool {
	for _, s := range sections {
		if !s.Part {
			return true
		}
	}
	return false
}

func hasPart(sections []Section) bool {
	for _, s := range sections {
		if s.Part {
			return true
		}
	}
	return false
}
