package models

import "time"

// Radar represents one radar installation from the Bureau's spatial catalog.
// Reference data, loaded once during init and read-only afterwards.
type Radar struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	FullName  string  `json:"full_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	State     string  `json:"state"`
	Type      string  `json:"type"`
	Group     bool    `json:"group"`
}

// RadarLegend is a static colour-scale key composited under every frame of a
// given product family. Immutable once stored.
type RadarLegend struct {
	ID    int64
	Image []byte
}

// RadarFeatureLayer is a static geographical overlay (locations, range rings,
// topography...) for one (radar, type) pair. Refreshed only on explicit
// invalidation, never on the polling cycle.
type RadarFeatureLayer struct {
	ID       int64
	Image    []byte
	RadarID  int64
	Feature  string
	TypeID   string // single-character radar type code, e.g. "3" for 128km
	Filename string
}

// RadarDataLayer is one time-stamped data tile for a (radar, type) pair. Rows
// are append-only; the unique filename is the deduplication key, and the
// timestamp parsed from the filename is the canonical capture time.
type RadarDataLayer struct {
	ID        int64
	Image     []byte
	RadarID   int64
	TypeID    string
	Timestamp time.Time
	Filename  string
}
