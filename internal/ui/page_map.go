package ui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"spt3g-viewer/internal/skymap"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

// skyMap draws the figure as inline SVG over the background raster. Figure
// coordinates grow upward, so y is flipped against the raster height.
func (h *Handler) skyMap(fig skymap.Figure) Node {
	width := float64(fig.Background.Width)
	height := float64(fig.Background.Height)
	scale := 1.0
	if width > 0 {
		scale = width / skymap.NominalWidth
	}

	return Div(
		ID("sky-map"),
		Class("sky-map"),
		SVG(
			Attr("xmlns", "http://www.w3.org/2000/svg"),
			Attr("viewBox", fmt.Sprintf("0 0 %d %d", fig.Background.Width, fig.Background.Height)),
			Attr("role", "img"),
			Attr("aria-label", "Sky map of displayed sources"),
			El("image",
				Attr("href", fig.Background.URL),
				Attr("width", svgNum(width)),
				Attr("height", svgNum(height)),
			),
			Map(fig.Points, func(p skymap.Point) Node {
				return El("a",
					Attr("href", h.url("/select?via=point&source="+url.QueryEscape(p.Source))),
					El("circle",
						Attr("cx", svgNum(p.X)),
						Attr("cy", svgNum(height-p.Y)),
						Attr("r", svgNum(skymap.PointSize/2*scale)),
						Attr("fill", p.Color),
					),
					El("title", Text(pointLabel(p))),
				)
			}),
			Map(fig.Overlays, func(m skymap.Marker) Node {
				return El("circle",
					Class("highlight"),
					Attr("cx", svgNum(m.X)),
					Attr("cy", svgNum(height-m.Y)),
					Attr("r", svgNum(m.Size/2*scale)),
					Attr("fill", "none"),
					Attr("stroke", m.Color),
					Attr("stroke-width", svgNum(m.LineWidth*scale)),
					Attr("pointer-events", "none"),
				)
			}),
		),
		colorBar(fig.ColorBar),
	)
}

func colorBar(cb *skymap.ColorBar) Node {
	if cb == nil {
		return nil
	}
	return Div(
		Div(Class("colorbar"), Style("background: linear-gradient(to right, "+strings.Join(cb.Stops, ", ")+")")),
		Div(
			Class("colorbar-labels"),
			Span(Text(strconv.FormatFloat(cb.Min, 'g', 4, 64))),
			Span(Text(cb.Label)),
			Span(Text(strconv.FormatFloat(cb.Max, 'g', 4, 64))),
		),
	)
}

func pointLabel(p skymap.Point) string {
	if p.Value == nil {
		return p.Source
	}
	return p.Source + ": " + strconv.FormatFloat(*p.Value, 'g', 4, 64)
}

func svgNum(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
