package models

import "time"

// ResourceKind identifies an independently-polled resource with its own
// freshness marker. The store keys last-check times by (kind, key).
type ResourceKind string

const (
	KindObservations ResourceKind = "observations"
	KindDaily        ResourceKind = "daily"
	KindHourly       ResourceKind = "hourly"
	KindWarnings     ResourceKind = "warnings"
	KindRadarData    ResourceKind = "radar_data"
	KindRadarFeature ResourceKind = "radar_feature"
)

// Observation is a current-conditions snapshot from the station nearest a
// location.
type Observation struct {
	IssueTime       time.Time `json:"issue_time"`
	ObservationTime time.Time `json:"observation_time"`
	Temp            float64   `json:"temp"`
	TempFeelsLike   float64   `json:"temp_feels_like"`
	WindSpeed       int       `json:"wind_speed"` // km/h
	WindDirection   string    `json:"wind_direction"`
	Gust            int       `json:"gust"`
	MaxTemp         float64   `json:"max_temp"`
	MinTemp         float64   `json:"min_temp"`
	RainSince9am    *float64  `json:"rain_since_9am"`
	Humidity        *int      `json:"humidity"`
	StationBOMID    string    `json:"station_bom_id"`
	StationName     string    `json:"station_name"`
}

// DailyForecast is the multi-day forecast for a location.
type DailyForecast struct {
	IssueTime     time.Time          `json:"issue_time"`
	NextIssueTime *time.Time         `json:"next_issue_time"`
	Days          []DailyForecastDay `json:"days"`
}

type DailyForecastDay struct {
	Date         time.Time `json:"date"`
	TempMax      *float64  `json:"temp_max"` // nil on the final forecast day
	TempMin      *float64  `json:"temp_min"`
	ShortText    string    `json:"short_text"`
	ExtendedText string    `json:"extended_text"`
	RainChance   *int      `json:"rain_chance"` // percent
	RainMin      *int      `json:"rain_min"`    // mm
	RainMax      *int      `json:"rain_max"`    // mm
}

// HourlyForecast is the hour-by-hour forecast for a location.
type HourlyForecast struct {
	IssueTime time.Time            `json:"issue_time"`
	Hours     []HourlyForecastHour `json:"hours"`
}

type HourlyForecastHour struct {
	Time           time.Time `json:"time"`
	Temp           float64   `json:"temp"`
	TempFeelsLike  float64   `json:"temp_feels_like"`
	WindSpeed      int       `json:"wind_speed"`
	WindDirection  string    `json:"wind_direction"`
	Gust           int       `json:"gust"`
	RainChance     int       `json:"rain_chance"`
	RainMin        int       `json:"rain_min"`
	RainMax        int       `json:"rain_max"`
	Humidity       int       `json:"relative_humidity"`
	UV             int       `json:"uv"`
	IconDescriptor string    `json:"icon_descriptor"`
	IsNight        bool      `json:"is_night"`
}

// Warning is an active weather warning for a location's area.
type Warning struct {
	ID         string `json:"id"`
	AreaID     string `json:"area_id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	ShortTitle string `json:"short_title"`
	State      string `json:"state"`
	Phase      string `json:"phase"`
	IssueTime  string `json:"issue_time"`
	ExpiryTime string `json:"expiry_time"`
}
