// Package filter turns a catalog and a set of user criteria into the ordered
// row set shown by both the table and the sky map.
package filter

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"spt3g-viewer/internal/domain"
)

// Apply filters and sorts records according to c. It is a pure function: the
// input is never modified and identical inputs always produce identical
// output, including row order.
//
// Ranges on columns missing from the record set are skipped. Sort
// instructions are applied last-to-first as stable single-column sorts, so the
// first instruction is the primary key.
func Apply(records domain.RecordSet, c domain.Criteria) domain.RowSet {
	folder := cases.Fold()
	needle := folder.String(c.Search)

	type activeRange struct {
		col domain.Column
		r   domain.Range
	}
	var ranges []activeRange
	for _, col := range domain.FilterColumns {
		r, ok := c.Ranges[col]
		if !ok || !records.Columns.Has(col) {
			continue
		}
		ranges = append(ranges, activeRange{col: col, r: r})
	}

	rows := make([]domain.SourceRecord, 0, len(records.Records))
	for _, rec := range records.Records {
		if needle != "" && !strings.Contains(folder.String(rec.SourceName), needle) {
			continue
		}
		pass := true
		for _, ar := range ranges {
			v, _ := rec.Value(ar.col)
			if !ar.r.Contains(v) {
				pass = false
				break
			}
		}
		if pass {
			rows = append(rows, rec)
		}
	}

	for i := len(c.Sort) - 1; i >= 0; i-- {
		s := c.Sort[i]
		if s.Column != domain.ColSourceName && s.Column != domain.ColHasNote && !records.Columns.Has(s.Column) {
			continue
		}
		slices.SortStableFunc(rows, comparator(s))
	}

	return domain.RowSet{Columns: records.Columns, Rows: rows}
}

// comparator orders two records by a single column. NaN values sort after
// every number regardless of direction.
func comparator(s domain.SortInstruction) func(a, b domain.SourceRecord) int {
	desc := s.Direction == domain.SortDesc
	dir := func(n int) int {
		if desc {
			return -n
		}
		return n
	}

	switch s.Column {
	case domain.ColSourceName:
		return func(a, b domain.SourceRecord) int {
			return dir(strings.Compare(a.SourceName, b.SourceName))
		}
	case domain.ColHasNote:
		return func(a, b domain.SourceRecord) int {
			return dir(cmp.Compare(boolRank(a.HasNote), boolRank(b.HasNote)))
		}
	}

	col := s.Column
	return func(a, b domain.SourceRecord) int {
		av, _ := a.Value(col)
		bv, _ := b.Value(col)
		aNaN, bNaN := math.IsNaN(av), math.IsNaN(bv)
		switch {
		case aNaN && bNaN:
			return 0
		case aNaN:
			return 1
		case bNaN:
			return -1
		}
		return dir(cmp.Compare(av, bv))
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
