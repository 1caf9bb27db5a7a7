package viewstate

import (
	"net/url"

	"spt3g-viewer/internal/domain"
)

// ResolutionMode selects which cutout set toggle bands are drawn from.
type ResolutionMode string

const (
	ResolutionNative    ResolutionMode = "native"
	ResolutionConvolved ResolutionMode = "convolved"
)

// DefaultResolution is the mode a new session starts in.
const DefaultResolution = ResolutionConvolved

// ParseResolution validates a resolution mode string.
func ParseResolution(s string) (ResolutionMode, error) {
	switch ResolutionMode(s) {
	case ResolutionNative, ResolutionConvolved:
		return ResolutionMode(s), nil
	}
	return "", domain.ErrValidation("invalid resolution mode %q", s)
}

// Panel is one cutout image slot on the viewer page.
type Panel struct {
	ID     string
	Title  string
	Folder string
	Suffix string
	// Toggle panels exist in both resolutions under /assets/<mode>/<folder>.
	Toggle bool
}

// PanelRows is the viewer page cutout layout.
var PanelRows = [][]Panel{
	{
		{ID: "mk", Title: "MeerKAT", Folder: "mk", Suffix: "overlay", Toggle: true},
		{ID: "spt3g220", Title: "SPT3G 220GHz", Folder: "spt3g220", Suffix: "overlay"},
		{ID: "spt3g150", Title: "SPT3G 150GHz", Folder: "spt3g150", Suffix: "overlay"},
		{ID: "spt3g90", Title: "SPT3G 90GHz", Folder: "spt3g90", Suffix: "overlay"},
		{ID: "sed", Title: "SED Fit", Folder: "best_fit_plots", Suffix: "best-fit"},
	},
	{
		{ID: "spire500", Title: "SPIRE 500μm", Folder: "spire500", Suffix: "overlay", Toggle: true},
		{ID: "spire350", Title: "SPIRE 350μm", Folder: "spire350", Suffix: "overlay", Toggle: true},
		{ID: "spire250", Title: "SPIRE 250μm", Folder: "spire250", Suffix: "overlay", Toggle: true},
		{ID: "corner", Title: "Corner Plot", Folder: "corner_plots", Suffix: "corner"},
	},
}

// LookupPanel finds a panel by ID.
func LookupPanel(id string) (Panel, bool) {
	for _, row := range PanelRows {
		for _, p := range row {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Panel{}, false
}

// CutoutURL returns the asset path of panel's image for source. The path is
// rooted at /assets and does not include the application base path.
func CutoutURL(mode ResolutionMode, panel Panel, source string) string {
	file := url.PathEscape(source + "_" + panel.Suffix + ".png")
	if panel.Toggle {
		return "/assets/" + string(mode) + "/" + panel.Folder + "/" + file
	}
	return "/assets/" + panel.Folder + "/" + file
}
