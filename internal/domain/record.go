package domain

import "math"

// Column names a catalog column. Values match the CSV headers of the source
// catalog so that user-facing column ids and file headers agree.
type Column string

// Catalog columns.
const (
	ColSourceName Column = "source_name"
	ColRedshift   Column = "z"
	ColRA         Column = "spt3g_ra(deg)"
	ColDec        Column = "spt3g_dec(deg)"
	ColS220       Column = "spt3g_s220(mjy)"
	ColS150       Column = "spt3g_s150(mjy)"
	ColAlpha90    Column = "spt3g_alpha90"
	ColAlpha220   Column = "spt3g_alpha220"
	ColHasNote    Column = "has_note"
)

// NumericColumns lists the float-valued catalog columns in display order.
var NumericColumns = []Column{ColRedshift, ColRA, ColDec, ColS220, ColS150, ColAlpha90, ColAlpha220}

// IsNumeric reports whether c holds float values.
func (c Column) IsNumeric() bool {
	for _, n := range NumericColumns {
		if n == c {
			return true
		}
	}
	return false
}

// SourceRecord is one catalog entry. Numeric fields whose column is absent
// from the loaded files hold NaN.
type SourceRecord struct {
	SourceName string  `json:"source_name"`
	Redshift   float64 `json:"z"`
	RA         float64 `json:"ra_deg"`
	Dec        float64 `json:"dec_deg"`
	S220       float64 `json:"s220_mjy"`
	S150       float64 `json:"s150_mjy"`
	Alpha90    float64 `json:"alpha90"`
	Alpha220   float64 `json:"alpha220"`
	HasNote    bool    `json:"has_note"`
}

// Value returns the numeric value stored under col. The second result is
// false for non-numeric columns.
func (r SourceRecord) Value(col Column) (float64, bool) {
	switch col {
	case ColRedshift:
		return r.Redshift, true
	case ColRA:
		return r.RA, true
	case ColDec:
		return r.Dec, true
	case ColS220:
		return r.S220, true
	case ColS150:
		return r.S150, true
	case ColAlpha90:
		return r.Alpha90, true
	case ColAlpha220:
		return r.Alpha220, true
	}
	return math.NaN(), false
}

// SetValue stores v under a numeric column. Unknown columns are ignored.
func (r *SourceRecord) SetValue(col Column, v float64) {
	switch col {
	case ColRedshift:
		r.Redshift = v
	case ColRA:
		r.RA = v
	case ColDec:
		r.Dec = v
	case ColS220:
		r.S220 = v
	case ColS150:
		r.S150 = v
	case ColAlpha90:
		r.Alpha90 = v
	case ColAlpha220:
		r.Alpha220 = v
	}
}

// ColumnSet records which columns were present in the loaded catalog.
type ColumnSet map[Column]bool

// Has reports whether c is present.
func (s ColumnSet) Has(c Column) bool { return s[c] }

// RecordSet is the full catalog as loaded from storage.
type RecordSet struct {
	Columns ColumnSet
	Records []SourceRecord
}

// RowSet is the ordered output of a filter/sort cycle. The table and the map
// are both rendered from the same RowSet.
type RowSet struct {
	Columns ColumnSet
	Rows    []SourceRecord
}

// Count returns the number of displayed rows.
func (s RowSet) Count() int { return len(s.Rows) }

// Names returns the source names in display order.
func (s RowSet) Names() []string {
	names := make([]string, len(s.Rows))
	for i := range s.Rows {
		names[i] = s.Rows[i].SourceName
	}
	return names
}

// Find returns the row for source and its index, or -1 when absent.
func (s RowSet) Find(source string) (SourceRecord, int) {
	for i := range s.Rows {
		if s.Rows[i].SourceName == source {
			return s.Rows[i], i
		}
	}
	return SourceRecord{}, -1
}
