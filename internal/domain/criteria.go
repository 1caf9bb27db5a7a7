package domain

import (
	"maps"
	"slices"
)

// FilterColumns are the columns that accept a numeric range filter.
var FilterColumns = []Column{ColRedshift, ColS220, ColS150, ColAlpha90, ColAlpha220}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether min <= v <= max. NaN is never contained.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// SortDirection is either ascending or descending.
type SortDirection string

// Sort directions.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortInstruction orders rows by a single column.
type SortInstruction struct {
	Column    Column        `json:"column_id"`
	Direction SortDirection `json:"direction"`
}

// Criteria is the full set of filter and sort controls. Unset ranges and an
// empty search do not filter. Every set criterion must hold for a row to pass.
type Criteria struct {
	Search string            `json:"search,omitempty"`
	Ranges map[Column]Range  `json:"ranges,omitempty"`
	Sort   []SortInstruction `json:"sort_by,omitempty"`
}

// WithRange returns a copy of c with the range for col set.
func (c Criteria) WithRange(col Column, r Range) Criteria {
	out := c.Clone()
	if out.Ranges == nil {
		out.Ranges = map[Column]Range{}
	}
	out.Ranges[col] = r
	return out
}

// Clone returns a deep copy of c.
func (c Criteria) Clone() Criteria {
	return Criteria{
		Search: c.Search,
		Ranges: maps.Clone(c.Ranges),
		Sort:   slices.Clone(c.Sort),
	}
}

// Validate rejects ranges with min > max, ranges on columns that cannot be
// filtered, and sort instructions on unknown columns.
func (c Criteria) Validate() error {
	for col, r := range c.Ranges {
		if !slices.Contains(FilterColumns, col) {
			return ErrValidation("column %q cannot be range-filtered", col)
		}
		if r.Min > r.Max {
			return ErrValidation("invalid range for %s: min %g > max %g", col, r.Min, r.Max)
		}
	}
	for _, s := range c.Sort {
		if !SortableColumn(s.Column) {
			return ErrValidation("column %q cannot be sorted", s.Column)
		}
		if s.Direction != SortAsc && s.Direction != SortDesc {
			return ErrValidation("invalid sort direction %q", s.Direction)
		}
	}
	return nil
}

// SortableColumn reports whether rows can be ordered by c.
func SortableColumn(c Column) bool {
	return c == ColSourceName || c == ColHasNote || c.IsNumeric()
}

// Equal reports whether c and o select and order rows identically. A nil and
// an empty Ranges map are equal.
func (c Criteria) Equal(o Criteria) bool {
	return c.Search == o.Search && maps.Equal(c.Ranges, o.Ranges) && slices.Equal(c.Sort, o.Sort)
}
