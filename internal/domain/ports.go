package domain

import (
	"context"
	"io"
)

// CatalogLoader produces the merged source catalog.
// Implemented by catalog.Store.
type CatalogLoader interface {
	Load(ctx context.Context) (*RecordSet, error)
}

// FileSource opens catalog input files by name. Implemented by
// catalog.LocalSource and catalog.S3Source.
type FileSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Projector maps world sky coordinates (degrees) to pixel coordinates of the
// background raster. Pixel origin is the lower-left corner, y grows upward.
// Implemented by skymap.WCS.
type Projector interface {
	Project(raDeg, decDeg float64) (x, y float64)
}

// NotesRepository stores free-text annotations keyed by source name.
//
// Implementations assume a single writer: Set mutates the in-memory map and
// Flush persists the whole map, overwriting whatever another process wrote.
// Get and Set never fail; only Flush touches storage.
type NotesRepository interface {
	Get(source string) (string, bool)
	Set(source, text string)
	All() map[string]string
	Flush(ctx context.Context) error
}
