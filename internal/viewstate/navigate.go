package viewstate

import (
	"slices"

	"spt3g-viewer/internal/domain"
)

// Direction is a step through the displayed rows.
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// ParseDirection accepts "next" or "prev".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "next":
		return Next, nil
	case "prev", "previous":
		return Prev, nil
	}
	return 0, domain.ErrValidation("invalid direction %q", s)
}

// Navigate returns the neighbour of current in names, wrapping at both ends.
// A current source that is not in names counts as index 0. The second result
// is false when names is empty.
func Navigate(dir Direction, current string, names []string) (string, bool) {
	n := len(names)
	if n == 0 {
		return "", false
	}
	i := max(slices.Index(names, current), 0)
	j := ((i+int(dir))%n + n) % n
	return names[j], true
}
