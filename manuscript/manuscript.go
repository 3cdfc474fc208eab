// Package manuscript holds the project model shared by the emitters and the
// build driver.
package manuscript

import "errors"

// ErrEmptyProject is returned when a manuscript has no chapters to emit.
var ErrEmptyProject = errors.New("manuscript: empty project")

// Metadata describes the document as a whole. An empty field is absent and
// produces no output.
type Metadata struct {
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Header    string `json:"header,omitempty"`
	Watermark string `json:"watermark,omitempty"`
	Revision  string `json:"revision,omitempty"`
}

// Fields exposes the present metadata as a lookup table for placeholder
// interpolation. Absent fields are left out so their placeholders survive.
func (m Metadata) Fields() map[string]any {
	fields := make(map[string]any, 5)
	for k, v := range map[string]string{
		"title":     m.Title,
		"author":    m.Author,
		"header":    m.Header,
		"watermark": m.Watermark,
		"revision":  m.Revision,
	} {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}

// Chapter is one entry of the manuscript in configured order. When Part is
// true the entry opens a new part titled Title and Text is unused.
type Chapter struct {
	Title string
	Text  string
	Part  bool
}

// HasChapters reports whether at least one entry is a chapter.
func HasChapters(chapters []Chapter) bool {
	for _, c := range chapters {
		if !c.Part {
			return true
		}
	}
	return false
}
