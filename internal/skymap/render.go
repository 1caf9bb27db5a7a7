package skymap

import (
	"fmt"
	"image"
	_ "image/jpeg" // background rasters are usually JPEG
	_ "image/png"
	"math"
	"os"

	"spt3g-viewer/internal/domain"
)

// Marker sizes, in screen pixels at the figure's nominal width.
const (
	PointSize      = 15.0
	HighlightSize  = 18.0
	HighlightWidth = 5.5
	NominalWidth   = 600.0
)

// NaNColor is used for points whose colour value is missing.
const NaNColor = "#7f7f7f"

// ColorOption is a column the map can be coloured by.
type ColorOption struct {
	Column domain.Column `json:"value"`
	Label  string        `json:"label"`
}

// ColorOptions are the selectable colour-by columns, default first.
var ColorOptions = []ColorOption{
	{Column: domain.ColRedshift, Label: "Phot-z"},
	{Column: domain.ColS220, Label: "S(220GHz)"},
	{Column: domain.ColS150, Label: "S(150GHz)"},
	{Column: domain.ColAlpha90, Label: "alpha90"},
	{Column: domain.ColAlpha220, Label: "alpha220"},
}

// LookupColorOption returns the option for col.
func LookupColorOption(col domain.Column) (ColorOption, bool) {
	for _, o := range ColorOptions {
		if o.Column == col {
			return o, true
		}
	}
	return ColorOption{}, false
}

// ValidateColorOptions checks that every colour option and the configured
// default exist in the loaded catalog. It is meant to run once at startup so
// that a misconfigured colour-by fails before any page is rendered.
func ValidateColorOptions(columns domain.ColumnSet, defaultColorBy domain.Column) error {
	if _, ok := LookupColorOption(defaultColorBy); !ok {
		return domain.ErrValidation("default colour-by %q is not a colour option", defaultColorBy)
	}
	for _, o := range ColorOptions {
		if !columns.Has(o.Column) {
			return domain.ErrMissingColumn(string(o.Column))
		}
	}
	return nil
}

// Background is the raster drawn beneath the points.
type Background struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// LoadBackground reads the pixel size of the raster at path; url is where
// browsers fetch it from.
func LoadBackground(path, url string) (Background, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return Background{}, fmt.Errorf("open background: %w", err)
	}
	defer f.Close() //nolint:errcheck
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return Background{}, fmt.Errorf("decode background %s: %w", path, err)
	}
	return Background{URL: url, Width: cfg.Width, Height: cfg.Height}, nil
}

// Point is one catalog source on the map. Source is returned to the UI when
// the point is clicked.
type Point struct {
	Source string   `json:"source_name"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Value  *float64 `json:"value"`
	Color  string   `json:"color"`
}

// Marker is an overlay drawn above every point and excluded from the legend.
type Marker struct {
	Source    string  `json:"source_name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Size      float64 `json:"size"`
	Symbol    string  `json:"symbol"`
	Color     string  `json:"color"`
	LineWidth float64 `json:"line_width"`
}

// ColorBar is the legend for the colour scale.
type ColorBar struct {
	Column domain.Column `json:"column"`
	Label  string        `json:"label"`
	Min    float64       `json:"min"`
	Max    float64       `json:"max"`
	Stops  []string      `json:"stops"`
}

// Figure is a renderer-independent description of the map. Coordinates are
// raster pixels with the origin at the lower-left corner.
type Figure struct {
	Background Background `json:"background"`
	Points     []Point    `json:"points"`
	Overlays   []Marker   `json:"overlays"`
	ColorBar   *ColorBar  `json:"color_bar,omitempty"`
}

// Renderer builds figures for a fixed background and projection.
type Renderer struct {
	proj  domain.Projector
	bg    Background
	scale ColorScale
}

// NewRenderer creates a Renderer using the Inferno colour scale.
func NewRenderer(proj domain.Projector, bg Background) *Renderer {
	return &Renderer{proj: proj, bg: bg, scale: Inferno}
}

// Background returns the raster the renderer draws on.
func (r *Renderer) Background() Background { return r.bg }

// Render places one point per row, coloured by colorBy. When highlight names
// a row, a single ring marker is added at its position; otherwise no overlay
// is produced. Rows whose position cannot be projected are left out.
func (r *Renderer) Render(rows []domain.SourceRecord, colorBy domain.Column, highlight string) (Figure, error) {
	opt, ok := LookupColorOption(colorBy)
	if !ok {
		return Figure{}, domain.ErrValidation("cannot colour map by %q", colorBy)
	}

	fig := Figure{
		Background: r.bg,
		Points:     make([]Point, 0, len(rows)),
		Overlays:   []Marker{},
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range rows {
		v, _ := row.Value(colorBy)
		if math.IsNaN(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	haveRange := lo <= hi
	if haveRange {
		fig.ColorBar = &ColorBar{Column: opt.Column, Label: opt.Label, Min: lo, Max: hi, Stops: r.scale.Stops()}
	}

	for _, row := range rows {
		x, y := r.proj.Project(row.RA, row.Dec)
		if !finite(x) || !finite(y) {
			continue
		}
		v, _ := row.Value(colorBy)
		p := Point{Source: row.SourceName, X: x, Y: y, Color: NaNColor}
		if !math.IsNaN(v) && haveRange {
			val := v
			p.Value = &val
			t := 0.5
			if hi > lo {
				t = (v - lo) / (hi - lo)
			}
			p.Color = r.scale.At(t)
		}
		fig.Points = append(fig.Points, p)

		if highlight != "" && row.SourceName == highlight && len(fig.Overlays) == 0 {
			fig.Overlays = append(fig.Overlays, Marker{
				Source:    row.SourceName,
				X:         x,
				Y:         y,
				Size:      HighlightSize,
				Symbol:    "circle-open",
				Color:     "white",
				LineWidth: HighlightWidth,
			})
		}
	}
	return fig, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
