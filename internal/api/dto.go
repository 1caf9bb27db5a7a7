package api

import (
	"math"

	"spt3g-viewer/internal/domain"
)

// Source is the JSON form of a displayed catalog row. Missing values are
// null.
type Source struct {
	SourceName string   `json:"source_name"`
	Redshift   *float64 `json:"z"`
	RA         *float64 `json:"ra_deg"`
	Dec        *float64 `json:"dec_deg"`
	S220       *float64 `json:"s220_mjy"`
	S150       *float64 `json:"s150_mjy"`
	Alpha90    *float64 `json:"alpha90"`
	Alpha220   *float64 `json:"alpha220"`
	HasNote    bool     `json:"has_note"`
}

// SourceList is a filtered and sorted page of the catalog.
type SourceList struct {
	Count int      `json:"count"`
	Rows  []Source `json:"rows"`
}

// Navigation is the result of a previous/next step. Target is null when no
// rows are displayed.
type Navigation struct {
	Current   string  `json:"current"`
	Direction string  `json:"direction"`
	Target    *string `json:"target"`
}

// Note is a saved annotation.
type Note struct {
	SourceName string `json:"source_name"`
	Text       string `json:"text"`
}

// NoteRequest is the body of PUT /notes/{source}.
type NoteRequest struct {
	Text string `json:"text"`
}

func sourceToAPI(r domain.SourceRecord) Source {
	return Source{
		SourceName: r.SourceName,
		Redshift:   optional(r.Redshift),
		RA:         optional(r.RA),
		Dec:        optional(r.Dec),
		S220:       optional(r.S220),
		S150:       optional(r.S150),
		Alpha90:    optional(r.Alpha90),
		Alpha220:   optional(r.Alpha220),
		HasNote:    r.HasNote,
	}
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
