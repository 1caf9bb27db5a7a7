// Package viewstate holds the per-session view state of the catalog browser
// and the reducer that applies user interactions to it.
package viewstate

import (
	"net/url"

	"spt3g-viewer/internal/domain"
	"spt3g-viewer/internal/skymap"
)

// Theme is the page colour scheme.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// SaveStatus is the outcome of the last note save shown on the viewer page.
type SaveStatus struct {
	Source string
	OK     bool
	Err    string
}

// Message returns the text shown next to the save button.
func (s SaveStatus) Message() string {
	switch {
	case s.Source == "":
		return ""
	case s.OK:
		return "Notes saved for " + s.Source
	default:
		return "Save failed for " + s.Source + ": " + s.Err
	}
}

// State is everything one browser session remembers between requests.
// Selected is retained when the selected source is filtered out of the
// displayed rows; the map then draws no highlight for it.
type State struct {
	Criteria   domain.Criteria
	ColorBy    domain.Column
	Selected   string
	Enlarged   string
	Theme      Theme
	Resolution ResolutionMode
	SaveStatus SaveStatus
}

// NewState returns the state of a fresh session.
func NewState(colorBy domain.Column) State {
	return State{
		Criteria:   domain.Criteria{Ranges: map[domain.Column]domain.Range{}},
		ColorBy:    colorBy,
		Theme:      ThemeDark,
		Resolution: DefaultResolution,
	}
}

// Event is a user interaction.
type Event interface{ event() }

// FiltersChanged replaces the search text and ranges. Sort is kept.
type FiltersChanged struct{ Criteria domain.Criteria }

// SortChanged replaces the sort instructions.
type SortChanged struct{ Sort []domain.SortInstruction }

type ColorByChanged struct{ Column domain.Column }

type RowSelected struct{ Source string }

type PointClicked struct{ Source string }

// SourceOpened records that the viewer page for Source was opened directly.
type SourceOpened struct{ Source string }

// NavigateClicked steps through Names, the current displayed row order.
type NavigateClicked struct {
	Direction Direction
	Names     []string
}

type ThumbnailClicked struct{ URL string }

type LightboxClosed struct{}

type ThemeToggled struct{}

type ResolutionChanged struct{ Mode ResolutionMode }

type NoteSaved struct{ Source string }

type NoteSaveFailed struct {
	Source string
	Err    error
}

func (FiltersChanged) event()    {}
func (SortChanged) event()       {}
func (ColorByChanged) event()    {}
func (RowSelected) event()       {}
func (PointClicked) event()      {}
func (SourceOpened) event()      {}
func (NavigateClicked) event()   {}
func (ThumbnailClicked) event()  {}
func (LightboxClosed) event()    {}
func (ThemeToggled) event()      {}
func (ResolutionChanged) event() {}
func (NoteSaved) event()         {}
func (NoteSaveFailed) event()    {}

// Effect is work the caller performs after a state change.
type Effect interface{ effect() }

// Recompute re-derives the displayed rows and re-renders the table. Rows
// derived before it was emitted must not be reused.
type Recompute struct{}

// RenderMap re-renders the sky map from the displayed rows. Without a
// Recompute the previously derived rows are still current.
type RenderMap struct{}

// Redirect sends the browser to Path, relative to the base path.
type Redirect struct{ Path string }

type ShowSaveStatus struct{ Status SaveStatus }

func (Recompute) effect()      {}
func (RenderMap) effect()      {}
func (Redirect) effect()       {}
func (ShowSaveStatus) effect() {}

// FindEffect returns the first effect of type E in effects.
func FindEffect[E Effect](effects []Effect) (E, bool) {
	for _, e := range effects {
		if v, ok := e.(E); ok {
			return v, true
		}
	}
	var zero E
	return zero, false
}

// ViewerPath is the path of the cutout page for source.
func ViewerPath(source string) string {
	return "/viewer/" + url.PathEscape(source)
}

// Reduce applies ev to s. Events carrying malformed payloads leave the state
// unchanged and produce no effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case FiltersChanged:
		if ev.Criteria.Validate() != nil {
			return s, nil
		}
		c := ev.Criteria.Clone()
		c.Sort = s.Criteria.Sort
		if c.Equal(s.Criteria) {
			return s, nil
		}
		s.Criteria = c
		return s, []Effect{Recompute{}, RenderMap{}}

	case SortChanged:
		c := s.Criteria.Clone()
		c.Sort = ev.Sort
		if c.Validate() != nil || c.Equal(s.Criteria) {
			return s, nil
		}
		s.Criteria = c
		return s, []Effect{Recompute{}}

	case ColorByChanged:
		if _, ok := skymap.LookupColorOption(ev.Column); !ok || ev.Column == s.ColorBy {
			return s, nil
		}
		s.ColorBy = ev.Column
		return s, []Effect{RenderMap{}}

	case RowSelected:
		return selectSource(s, ev.Source)

	case PointClicked:
		return selectSource(s, ev.Source)

	case SourceOpened:
		s, _ = selectSource(s, ev.Source)
		return s, nil

	case NavigateClicked:
		target, ok := Navigate(ev.Direction, s.Selected, ev.Names)
		if !ok {
			return s, nil
		}
		s.Selected = target
		s.Enlarged = ""
		s.SaveStatus = SaveStatus{}
		return s, []Effect{Redirect{Path: ViewerPath(target)}}

	case ThumbnailClicked:
		if ev.URL == "" {
			return s, nil
		}
		s.Enlarged = ev.URL
		return s, nil

	case LightboxClosed:
		s.Enlarged = ""
		return s, nil

	case ThemeToggled:
		if s.Theme == ThemeLight {
			s.Theme = ThemeDark
		} else {
			s.Theme = ThemeLight
		}
		return s, nil

	case ResolutionChanged:
		if _, err := ParseResolution(string(ev.Mode)); err != nil {
			return s, nil
		}
		s.Resolution = ev.Mode
		return s, nil

	case NoteSaved:
		s.SaveStatus = SaveStatus{Source: ev.Source, OK: true}
		return s, []Effect{ShowSaveStatus{Status: s.SaveStatus}, Recompute{}}

	case NoteSaveFailed:
		msg := "unknown error"
		if ev.Err != nil {
			msg = ev.Err.Error()
		}
		s.SaveStatus = SaveStatus{Source: ev.Source, Err: msg}
		return s, []Effect{ShowSaveStatus{Status: s.SaveStatus}}
	}
	return s, nil
}

// ReduceAll applies evs in order and concatenates their effects.
func ReduceAll(s State, evs ...Event) (State, []Effect) {
	var all []Effect
	for _, ev := range evs {
		var effects []Effect
		s, effects = Reduce(s, ev)
		all = append(all, effects...)
	}
	return s, all
}

func selectSource(s State, source string) (State, []Effect) {
	if source == "" {
		return s, nil
	}
	if s.Selected != source {
		s.Enlarged = ""
		s.SaveStatus = SaveStatus{}
	}
	s.Selected = source
	return s, []Effect{Redirect{Path: ViewerPath(source)}}
}
