package tex

import (
	"errors"
	"fmt"

	"github.com/ByLCY/prosepress/manuscript"
)

var (
	// ErrUnescapableInput is returned for control characters that have no
	// representation in LaTeX source.
	ErrUnescapableInput = errors.New("tex: unescapable input")

	// ErrEmptyProject is returned by EmitDocument when no chapter is given.
	ErrEmptyProject = manuscript.ErrEmptyProject
)

// PositionError locates an offending character in the source text.
type PositionError struct {
	Line   int
	Column int
	Rune   rune
	Err    error
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("line %d, column %d: %v (%U)", e.Line, e.Column, e.Err, e.Rune)
}

func (e *PositionError) Unwrap() error { return e.Err }
