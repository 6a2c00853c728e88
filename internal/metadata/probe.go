// Package metadata implements the metadata extractor: parse a
// timestamp and GPS coordinates out of an uploaded file, tolerating any
// missing or unparseable field.
package metadata

import (
	"context"
	"time"
)

// MediaKind selects which tag-preference list a probe requests. The
// underlying tool is the same for every kind; only the requested tags and
// the datetime tag preference order differ.
type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideo
)

// Result is what the extractor hands back to the worker: an optional timestamp,
// optional coordinates, and a JSON-serializable raw tag map. A field is
// left nil/empty when the source tag was missing or unparseable; only a
// missing file is reported as an error.
type Result struct {
	ShotAt *time.Time
	Lat    *float64
	Lon    *float64
	Raw    map[string]interface{}
}

// Probe is the capability interface the extractor is implemented behind, so the
// worker never depends on a concrete subprocess tool.
type Probe interface {
	Extract(ctx context.Context, path string, kind MediaKind) (*Result, error)
}
