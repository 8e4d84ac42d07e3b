// Package mapper converts a normalised landmark position into MIDI note numbers.
package mapper

import (
	"math"

	"github.com/leandrodaf/posemidi/internal/pose"
)

// Mode selects how a point is turned into notes. The values are the keys
// stored in tracking configuration files; the empty Mode means no mapping.
type Mode string

const (
	None Mode = ""

	X         Mode = "x"
	XInverted Mode = "x_inverted"
	Y         Mode = "y"
	YInverted Mode = "y_inverted"

	XY                 Mode = "x_y"
	XInvertedY         Mode = "x_inverted_y"
	XYInverted         Mode = "x_y_inverted"
	XInvertedYInverted Mode = "x_inverted_y_inverted"

	XYDouble                 Mode = "x_y_double"
	XInvertedYDouble         Mode = "x_inverted_y_double"
	XYInvertedDouble         Mode = "x_y_inverted_double"
	XInvertedYInvertedDouble Mode = "x_inverted_y_inverted_double"
)

// MaxNote is the highest MIDI note number.
const MaxNote = 127

type axis uint8

const (
	axisX axis = iota
	axisY
)

type modeSpec struct {
	label   string
	invertX bool
	invertY bool
	kind    modeKind
	axis    axis // single-axis modes only
}

type modeKind uint8

const (
	single modeKind = iota
	diagonal
	double
)

var modes = map[Mode]modeSpec{
	X:         {label: "X: min ➡️ max", kind: single, axis: axisX},
	XInverted: {label: "X: min ⬅️ max", kind: single, axis: axisX, invertX: true},
	Y:         {label: "Y: min ⬇️ max", kind: single, axis: axisY},
	YInverted: {label: "Y: min ⬆️ max", kind: single, axis: axisY, invertY: true},

	XY:                 {label: "XY 0 ↘ 127", kind: diagonal},
	XInvertedY:         {label: "XY 0 ↙ 127", kind: diagonal, invertX: true},
	XYInverted:         {label: "XY 0 ↗ 127", kind: diagonal, invertY: true},
	XInvertedYInverted: {label: "XY 0 ↖ 127", kind: diagonal, invertX: true, invertY: true},

	XYDouble:                 {label: "X: min ➡️ max, Y: min ⬇️ max", kind: double},
	XInvertedYDouble:         {label: "X: min ⬅️ max, Y: min ⬇️ max", kind: double, invertX: true},
	XYInvertedDouble:         {label: "X: min ➡️ max, Y: min ⬆️ max", kind: double, invertY: true},
	XInvertedYInvertedDouble: {label: "X: min ⬅️ max, Y: min ⬆️ max", kind: double, invertX: true, invertY: true},
}

var order = []Mode{
	X, XInverted, Y, YInverted,
	XY, XInvertedY, XYInverted, XInvertedYInverted,
	XYDouble, XInvertedYDouble, XYInvertedDouble, XInvertedYInvertedDouble,
}

// Modes returns every mapping mode in menu order.
func Modes() []Mode {
	return append([]Mode(nil), order...)
}

// Valid reports whether m is a known, non-empty mode.
func (m Mode) Valid() bool {
	_, ok := modes[m]
	return ok
}

// Label returns the menu label of m.
func (m Mode) Label() string {
	if def, ok := modes[m]; ok {
		return def.label
	}
	return string(m)
}

// Double reports whether m yields two notes.
func (m Mode) Double() bool {
	return modes[m].kind == double
}

// Map converts p into notes within [outMin, outMax]. Single-axis and diagonal modes
// return one note; double modes return the X note followed by the Y note.
// An unknown mode returns nil. The range is assumed valid (outMin < outMax).
//
// The camera faces the performer, so X is mirrored: in the plain X modes a
// point on the left of the image maps towards outMax.
func Map(p pose.Point, outMin, outMax uint8, mode Mode) []uint8 {
	def, ok := modes[mode]
	if !ok {
		return nil
	}

	x := mirrorX(p.X, def.invertX)
	y := flipY(p.Y, def.invertY)

	switch def.kind {
	case diagonal:
		return []uint8{scale(x+y, 2, outMin, outMax)}
	case double:
		return []uint8{scale(x, 1, outMin, outMax), scale(y, 1, outMin, outMax)}
	default:
		if def.axis == axisX {
			return []uint8{scale(x, 1, outMin, outMax)}
		}
		return []uint8{scale(y, 1, outMin, outMax)}
	}
}

func mirrorX(x float64, inverted bool) float64 {
	if inverted {
		return x
	}
	return 1 - x
}

func flipY(y float64, inverted bool) float64 {
	if inverted {
		return 1 - y
	}
	return y
}

// scale rescales v from [0, span] into [outMin, outMax], clamps and rounds half up.
func scale(v, span float64, outMin, outMax uint8) uint8 {
	lo, hi := float64(outMin), float64(outMax)
	if math.IsNaN(v) {
		return outMin
	}
	result := v/span*(hi-lo) + lo
	result = math.Max(math.Min(result, hi), lo)
	return uint8(math.Floor(result + 0.5))
}
