package skymap

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorScale is a continuous colour scale built from evenly spaced stops and
// interpolated in CIE L*a*b*.
type ColorScale struct {
	hex   []string
	stops []colorful.Color
}

// Inferno is the perceptually uniform scale used to colour map points.
var Inferno = MustColorScale(
	"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60",
	"#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4",
)

// NewColorScale parses at least two hex colours.
func NewColorScale(hex ...string) (ColorScale, error) {
	if len(hex) < 2 {
		return ColorScale{}, fmt.Errorf("colour scale needs at least two stops")
	}
	stops := make([]colorful.Color, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return ColorScale{}, fmt.Errorf("stop %d: %w", i, err)
		}
		stops[i] = c
	}
	return ColorScale{hex: hex, stops: stops}, nil
}

// MustColorScale is NewColorScale that panics on error.
func MustColorScale(hex ...string) ColorScale {
	s, err := NewColorScale(hex...)
	if err != nil {
		panic(err)
	}
	return s
}

// At returns the colour at t, clamped to [0, 1].
func (s ColorScale) At(t float64) string {
	if math.IsNaN(t) || t <= 0 {
		return s.stops[0].Hex()
	}
	if t >= 1 {
		return s.stops[len(s.stops)-1].Hex()
	}
	pos := t * float64(len(s.stops)-1)
	i := int(pos)
	return s.stops[i].BlendLab(s.stops[i+1], pos-float64(i)).Clamped().Hex()
}

// Stops returns the scale's defining colours, low to high.
func (s ColorScale) Stops() []string {
	out := make([]string, len(s.hex))
	copy(out, s.hex)
	return out
}
