package models

import "fmt"

// Location represents a user-selected place tracked by the cache. Created
// during initial setup and effectively immutable afterwards. StationID is
// optional: not every location resolves to a weather station.
type Location struct {
	ID           string  `json:"id"` // e.g. "Canberra-r3dp5hh"
	Geohash      string  `json:"geohash"`
	StationID    *int64  `json:"station_id"`
	HasWave      bool    `json:"has_wave"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	MarineAreaID *string `json:"marine_area_id"`
	Name         string  `json:"name"`
	State        string  `json:"state"`
	Postcode     string  `json:"postcode"`
	TidalPoint   *string `json:"tidal_point"`
	Timezone     string  `json:"timezone"`
}

// SearchGeohash returns the 6 character geohash expected by the non-search API
// endpoints. Search results carry 7 characters.
func (l *Location) SearchGeohash() string {
	if len(l.Geohash) > 6 {
		return l.Geohash[:6]
	}
	return l.Geohash
}

func (l *Location) String() string {
	return fmt.Sprintf("%s %s %s", l.Name, l.State, l.Postcode)
}

// SearchResult is a candidate location returned by the provider's search
// endpoint before it has been turned into a full Location.
type SearchResult struct {
	Geohash  string `json:"geohash"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Postcode string `json:"postcode"`
	State    string `json:"state"`
}

func (r SearchResult) String() string {
	return fmt.Sprintf("%s %s %s", r.Name, r.State, r.Postcode)
}
