package preview

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit is the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // bare number, read as millimeters for lengths
	UnitMM
	UnitCM
	UnitIN
	UnitPT
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

func (u Unit) String() string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	default:
		return ""
	}
}

// Length keeps a value together with the unit it was written in.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// MM returns the length in millimeters.
func (l Length) MM() float64 {
	switch l.Unit {
	case UnitCM:
		return l.Value * 10
	case UnitIN:
		return l.Value * 25.4
	case UnitPT:
		return l.Value * PtToMm
	default:
		return l.Value
	}
}

// PT returns the length in points.
func (l Length) PT() float64 {
	if l.Unit == UnitPT {
		return l.Value
	}
	return l.MM() * MmToPt
}

var unitSuffixes = []struct {
	s string
	u Unit
}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}}

// ParseLength parses "12mm", "1.5cm", "1in", "10pt" or a bare number.
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("empty length")
	}
	unit := UnitNone
	num := v
	for _, suf := range unitSuffixes {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return Length{}, fmt.Errorf("invalid length %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// Margin holds the four page margins in millimeters.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// ParseMargin accepts one to four lengths with CSS shorthand semantics:
// all sides; vertical and horizontal; top, horizontal and bottom; or top,
// right, bottom and left.
func ParseMargin(value string) (Margin, error) {
	fields := strings.Fields(value)
	vals := make([]float64, len(fields))
	for i, f := range fields {
		l, err := ParseLength(f)
		if err != nil {
			return Margin{}, fmt.Errorf("margin: %w", err)
		}
		vals[i] = l.MM()
	}
	switch len(vals) {
	case 1:
		return Margin{vals[0], vals[0], vals[0], vals[0]}, nil
	case 2:
		return Margin{vals[0], vals[1], vals[0], vals[1]}, nil
	case 3:
		return Margin{vals[0], vals[1], vals[2], vals[1]}, nil
	case 4:
		return Margin{vals[0], vals[1], vals[2], vals[3]}, nil
	default:
		return Margin{}, fmt.Errorf("margin: expected 1 to 4 values, got %d", len(vals))
	}
}

// PageSizes lists the named page sizes in millimeters (portrait).
var PageSizes = map[string][2]float64{
	"A4":     {210, 297},
	"A5":     {148, 210},
	"B5":     {176, 250},
	"LETTER": {215.9, 279.4},
}

// PageSize resolves a named size, swapping the sides for landscape.
func PageSize(name string, landscape bool) (width, height float64, err error) {
	size, ok := PageSizes[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, 0, fmt.Errorf("unknown page size %q", name)
	}
	if landscape {
		return size[1], size[0], nil
	}
	return size[0], size[1], nil
}

// LineHeightKind distinguishes a factor of the font size from an absolute
// length.
type LineHeightKind int

const (
	LineHeightFactor LineHeightKind = iota
	LineHeightAbsolute
)

// LineHeightSpec is either a factor ("1.4", "1.4x") or a length ("16pt").
type LineHeightSpec struct {
	Kind   LineHeightKind `json:"kind"`
	Factor float64        `json:"factor,omitempty"`
	Len    Length         `json:"len,omitempty"`
}

// ParseLineHeight parses a line height; an empty value means 1.4x.
func ParseLineHeight(value string) (LineHeightSpec, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return LineHeightSpec{Kind: LineHeightFactor, Factor: 1.4}, nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "x"), 64); err == nil {
		if f <= 0 {
			return LineHeightSpec{}, fmt.Errorf("invalid line height %q", value)
		}
		return LineHeightSpec{Kind: LineHeightFactor, Factor: f}, nil
	}
	l, err := ParseLength(v)
	if err != nil || l.Value == 0 {
		return LineHeightSpec{}, fmt.Errorf("invalid line height %q", value)
	}
	return LineHeightSpec{Kind: LineHeightAbsolute, Len: l}, nil
}

// Resolve returns the line height in millimeters for a font size in points.
func (s LineHeightSpec) Resolve(fontSizePt float64) float64 {
	if s.Kind == LineHeightAbsolute {
		return s.Len.MM()
	}
	f := s.Factor
	if f <= 0 {
		f = 1.4
	}
	return fontSizePt * PtToMm * f
}
