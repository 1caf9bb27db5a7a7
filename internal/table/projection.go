// Package table derives display-ready rows from the loaded catalog.
package table

import (
	"math"

	"spt3g-viewer/internal/domain"
)

// ColumnDef describes one table column.
type ColumnDef struct {
	ID     domain.Column
	Label  string
	Places int // decimal places shown; 0 for non-numeric columns
}

// Columns is the table layout in display order.
var Columns = []ColumnDef{
	{ID: domain.ColSourceName, Label: "SPT3G source name"},
	{ID: domain.ColRedshift, Label: "Phot-z", Places: 4},
	{ID: domain.ColRA, Label: "RA", Places: 6},
	{ID: domain.ColDec, Label: "Dec", Places: 6},
	{ID: domain.ColS220, Label: "S(220GHz)", Places: 2},
	{ID: domain.ColS150, Label: "S(150GHz)", Places: 2},
	{ID: domain.ColAlpha90, Label: "alpha90", Places: 2},
	{ID: domain.ColAlpha220, Label: "alpha220", Places: 2},
	{ID: domain.ColHasNote, Label: "Note?"},
}

// Lookup returns the definition for id.
func Lookup(id domain.Column) (ColumnDef, bool) {
	for _, c := range Columns {
		if c.ID == id {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// Project rounds every numeric field to its display precision and sets
// HasNote for every source that has an entry in notes. The input is not
// modified.
func Project(records domain.RecordSet, notes map[string]string) domain.RecordSet {
	out := domain.RecordSet{
		Columns: records.Columns,
		Records: make([]domain.SourceRecord, len(records.Records)),
	}
	for i, rec := range records.Records {
		for _, c := range Columns {
			if c.Places == 0 {
				continue
			}
			v, _ := rec.Value(c.ID)
			rec.SetValue(c.ID, Round(v, c.Places))
		}
		_, rec.HasNote = notes[rec.SourceName]
		out.Records[i] = rec
	}
	return out
}

// Round rounds v half away from zero to the given number of decimal places.
// NaN and infinities are returned unchanged.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
