package reflow

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Paragraph-level failures are
// wrapped in *ParagraphError and still match these with errors.Is.
var (
	// ErrInvalidWidth is returned when the wrap width is not positive.
	ErrInvalidWidth = errors.New("reflow: invalid width")

	// ErrMalformedQuotation is returned when a paragraph holds an odd number
	// of double quotation marks.
	ErrMalformedQuotation = errors.New("reflow: malformed quotation")

	// ErrMalformedEmphasis is returned when a paragraph holds an odd number
	// of emphasis delimiters.
	ErrMalformedEmphasis = errors.New("reflow: malformed emphasis")
)

// ParagraphError locates a malformed paragraph in the source text.
type ParagraphError struct {
	Index int   // 0-based paragraph index
	Line  int   // 1-based source line where the paragraph starts
	Count int   // number of marks found
	Err   error // ErrMalformedQuotation or ErrMalformedEmphasis
}

func (e *ParagraphError) Error() string {
	return fmt.Sprintf("paragraph %d (line %d): %v (%d marks)", e.Index+1, e.Line, e.Err, e.Count)
}

func (e *ParagraphError) Unwrap() error { return e.Err }
