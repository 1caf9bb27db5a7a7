// Package skymap projects catalog positions onto a pre-rendered sky image
// and builds the scatter-over-raster figure shown next to the table.
package skymap

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"spt3g-viewer/internal/domain"
)

// Calibration holds the astrometric keywords of a gnomonic (TAN) projection,
// as found in the FITS header the background image was rendered from.
type Calibration struct {
	CType1 string  `yaml:"ctype1"`
	CType2 string  `yaml:"ctype2"`
	NAxis1 int     `yaml:"naxis1"`
	NAxis2 int     `yaml:"naxis2"`
	CRPix1 float64 `yaml:"crpix1"`
	CRPix2 float64 `yaml:"crpix2"`
	CRVal1 float64 `yaml:"crval1"`
	CRVal2 float64 `yaml:"crval2"`
	CD11   float64 `yaml:"cd1_1"`
	CD12   float64 `yaml:"cd1_2"`
	CD21   float64 `yaml:"cd2_1"`
	CD22   float64 `yaml:"cd2_2"`
	CDelt1 float64 `yaml:"cdelt1"`
	CDelt2 float64 `yaml:"cdelt2"`
}

// WCS projects world coordinates into the pixel grid of a raster of the
// given size. It implements domain.Projector.
type WCS struct {
	cal            Calibration
	inv            [2][2]float64
	scaleX, scaleY float64
}

var _ domain.Projector = (*WCS)(nil)

// LoadCalibration reads a YAML calibration sidecar.
func LoadCalibration(path string) (Calibration, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return Calibration{}, fmt.Errorf("read calibration: %w", err)
	}
	var cal Calibration
	if err := yaml.Unmarshal(raw, &cal); err != nil {
		return Calibration{}, fmt.Errorf("parse calibration %s: %w", path, err)
	}
	return cal, nil
}

// NewWCS builds a projector for cal whose output is scaled from the
// calibration's NAXIS grid to a raster of width × height pixels.
func NewWCS(cal Calibration, width, height int) (*WCS, error) {
	for _, ct := range []string{cal.CType1, cal.CType2} {
		if ct != "" && !strings.HasSuffix(strings.ToUpper(ct), "-TAN") {
			return nil, fmt.Errorf("unsupported projection %q: only TAN is implemented", ct)
		}
	}
	if cal.NAxis1 <= 0 || cal.NAxis2 <= 0 {
		return nil, fmt.Errorf("calibration needs positive naxis1/naxis2")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster size %dx%d is invalid", width, height)
	}

	if cal.CD11 == 0 && cal.CD12 == 0 && cal.CD21 == 0 && cal.CD22 == 0 {
		cal.CD11, cal.CD22 = cal.CDelt1, cal.CDelt2
	}
	det := cal.CD11*cal.CD22 - cal.CD12*cal.CD21
	if det == 0 {
		return nil, fmt.Errorf("calibration CD matrix is singular")
	}

	return &WCS{
		cal: cal,
		inv: [2][2]float64{
			{cal.CD22 / det, -cal.CD12 / det},
			{-cal.CD21 / det, cal.CD11 / det},
		},
		scaleX: float64(width) / float64(cal.NAxis1),
		scaleY: float64(height) / float64(cal.NAxis2),
	}, nil
}

// Project returns zero-based raster pixel coordinates for (ra, dec) in
// degrees. Points on the far side of the tangent plane map to NaN.
func (w *WCS) Project(raDeg, decDeg float64) (float64, float64) {
	ra, dec := radians(raDeg), radians(decDeg)
	ra0, dec0 := radians(w.cal.CRVal1), radians(w.cal.CRVal2)

	dra := ra - ra0
	cosc := math.Sin(dec0)*math.Sin(dec) + math.Cos(dec0)*math.Cos(dec)*math.Cos(dra)
	if cosc <= 0 {
		return math.NaN(), math.NaN()
	}
	xi := degrees(math.Cos(dec) * math.Sin(dra) / cosc)
	eta := degrees((math.Cos(dec0)*math.Sin(dec) - math.Sin(dec0)*math.Cos(dec)*math.Cos(dra)) / cosc)

	px := w.inv[0][0]*xi + w.inv[0][1]*eta + w.cal.CRPix1 - 1
	py := w.inv[1][0]*xi + w.inv[1][1]*eta + w.cal.CRPix2 - 1
	return px * w.scaleX, py * w.scaleY
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
