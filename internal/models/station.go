package models

// Station represents a Bureau of Meteorology weather station from the national
// station list. Rows are immutable reference data: inserted once during init and
// never mutated afterwards.
type Station struct {
	ID               int64    `json:"id"`
	DistrictID       string   `json:"district_id"`
	Name             string   `json:"name"`
	Start            int      `json:"start"` // First year of operation
	End              *int     `json:"end"`   // Last year of operation, nil if still active
	Latitude         float64  `json:"latitude"`
	Longitude        float64  `json:"longitude"`
	Source           *string  `json:"source"`
	State            string   `json:"state"`
	Height           *float64 `json:"height"`            // Elevation in metres
	BarometricHeight *float64 `json:"barometric_height"` // Barometer elevation in metres
	WMOID            *int64   `json:"wmo_id"`            // World Meteorological Organization ID
}
