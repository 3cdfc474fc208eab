// Package fonts exposes the faces used by the PDF preview. They are the Latin
// Modern Roman cuts from github.com/go-fonts/latin-modern, the same design
// LaTeX uses by default.
package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10bolditalic"
	"github.com/go-fonts/latin-modern/lmroman10italic"
	"github.com/go-fonts/latin-modern/lmroman10regular"
)

var builtin = map[string][]byte{
	"regular":     lmroman10regular.TTF,
	"italic":      lmroman10italic.TTF,
	"bold":        lmroman10bold.TTF,
	"bold-italic": lmroman10bolditalic.TTF,
}

// Names lists the available faces.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns the font data for name ("regular", "italic", "bold" or
// "bold-italic"). An "embed:" prefix is accepted and ignored.
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimPrefix(name, "embed:"))
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("unknown built-in font %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return data, nil
}
