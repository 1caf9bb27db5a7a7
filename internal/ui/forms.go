package ui

import (
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/filter"
	"spt3g-viewer/internal/viewstate"
)

// rangeParamOrder fixes the order the range inputs are drawn in.
var rangeParamOrder = []string{"z", "s220", "s150", "alpha90", "alpha220"}

var rangeLabels = map[string]string{
	"z":        "Phot-z",
	"s220":     "S(220GHz)",
	"s150":     "S(150GHz)",
	"alpha90":  "alpha90",
	"alpha220": "alpha220",
}

func formString(values url.Values, key string) string {
	return strings.TrimSpace(values.Get(key))
}

// criteriaFromForm reads the filter form: search plus <param>_min and
// <param>_max pairs. Sorting is not part of the form.
func criteriaFromForm(values url.Values) (domain.Criteria, error) {
	q := url.Values{}
	q.Set("search", values.Get("search"))
	for _, param := range rangeParamOrder {
		lo := formString(values, param+"_min")
		hi := formString(values, param+"_max")
		if lo == "" && hi == "" {
			continue
		}
		q.Set(param, lo+":"+hi)
	}
	return filter.ParseQuery(q)
}

// eventsFromQuery translates catalog page query parameters into reducer
// events. A form submission always carries "search"; sort links carry only
// "sort".
func eventsFromQuery(values url.Values) ([]viewstate.Event, error) {
	var evs []viewstate.Event
	if values.Has("search") {
		c, err := criteriaFromForm(values)
		if err != nil {
			return nil, err
		}
		evs = append(evs, viewstate.FiltersChanged{Criteria: c})
	}
	if values.Has("sort") {
		sorts, err := filter.ParseSort(formString(values, "sort"))
		if err != nil {
			return nil, err
		}
		evs = append(evs, viewstate.SortChanged{Sort: sorts})
	}
	if raw := formString(values, "color_by"); raw != "" {
		evs = append(evs, viewstate.ColorByChanged{Column: filter.ResolveColumn(raw)})
	}
	return evs, nil
}

// rangeBounds returns the form values for param's current range.
func rangeBounds(c domain.Criteria, param string) (string, string) {
	r, ok := c.Ranges[filter.RangeParams[param]]
	if !ok {
		return "", ""
	}
	return formatBound(r.Min), formatBound(r.Max)
}

func formatBound(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// nextSort cycles a column header through ascending, descending and
// unsorted. Only the primary sort key is considered.
func nextSort(current []domain.SortInstruction, col domain.Column) string {
	if len(current) > 0 && current[0].Column == col {
		if current[0].Direction == domain.SortAsc {
			return string(col) + ":desc"
		}
		return ""
	}
	return string(col) + ":asc"
}

func sortIndicator(current []domain.SortInstruction, col domain.Column) string {
	i := slices.IndexFunc(current, func(s domain.SortInstruction) bool { return s.Column == col })
	if i < 0 {
		return ""
	}
	if current[i].Direction == domain.SortDesc {
		return " ▼"
	}
	return " ▲"
}

func formatCell(v float64, places int) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', places, 64)
}
