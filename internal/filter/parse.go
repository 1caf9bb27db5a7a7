package filter

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"spt3g-viewer/internal/domain"
)

// RangeParams maps query parameter names to the range-filterable columns.
var RangeParams = map[string]domain.Column{
	"z":        domain.ColRedshift,
	"s220":     domain.ColS220,
	"s150":     domain.ColS150,
	"alpha90":  domain.ColAlpha90,
	"alpha220": domain.ColAlpha220,
}

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// ParseQuery reads criteria from query parameters:
//
//	search=SPT3G-1
//	z=0.4:1.5            (inclusive range, either bound may be omitted)
//	sort=z:asc,s220:desc (first entry is the primary key)
//
// Sort columns may be given either by catalog column id or by parameter
// name. The result is validated.
func ParseQuery(q url.Values) (domain.Criteria, error) {
	c := domain.Criteria{Search: q.Get("search")}

	for param, col := range RangeParams {
		raw := strings.TrimSpace(q.Get(param))
		if raw == "" {
			continue
		}
		r, err := ParseRange(raw)
		if err != nil {
			return domain.Criteria{}, domain.ErrValidation("%s: %v", param, err)
		}
		c = c.WithRange(col, r)
	}

	if raw := strings.TrimSpace(q.Get("sort")); raw != "" {
		sorts, err := ParseSort(raw)
		if err != nil {
			return domain.Criteria{}, err
		}
		c.Sort = sorts
	}

	if err := c.Validate(); err != nil {
		return domain.Criteria{}, err
	}
	return c, nil
}

// ParseRange parses "min:max". A missing bound is unbounded on that side.
func ParseRange(raw string) (domain.Range, error) {
	lo, hi, ok := strings.Cut(raw, ":")
	if !ok {
		return domain.Range{}, domain.ErrValidation("range %q must have the form min:max", raw)
	}
	r := domain.Range{Min: negInf, Max: posInf}
	if lo = strings.TrimSpace(lo); lo != "" {
		v, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return domain.Range{}, domain.ErrValidation("range %q: bad minimum", raw)
		}
		r.Min = v
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		v, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return domain.Range{}, domain.ErrValidation("range %q: bad maximum", raw)
		}
		r.Max = v
	}
	if r.Min > r.Max {
		return domain.Range{}, domain.ErrValidation("range %q: min > max", raw)
	}
	return r, nil
}

// ParseSort parses a comma-separated list of column[:asc|desc] entries.
func ParseSort(raw string) ([]domain.SortInstruction, error) {
	var out []domain.SortInstruction
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, dir, _ := strings.Cut(part, ":")
		col := ResolveColumn(strings.TrimSpace(name))
		s := domain.SortInstruction{Column: col, Direction: domain.SortAsc}
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc":
		case "desc":
			s.Direction = domain.SortDesc
		default:
			return nil, domain.ErrValidation("sort %q: direction must be asc or desc", part)
		}
		if !domain.SortableColumn(col) {
			return nil, domain.ErrValidation("sort %q: unknown column", part)
		}
		out = append(out, s)
	}
	return out, nil
}

// ResolveColumn maps a short parameter name ("s220") or a column id
// ("spt3g_s220(mjy)") to its column.
func ResolveColumn(name string) domain.Column {
	if col, ok := RangeParams[name]; ok {
		return col
	}
	switch name {
	case "ra":
		return domain.ColRA
	case "dec":
		return domain.ColDec
	case "name":
		return domain.ColSourceName
	}
	return domain.Column(name)
}
