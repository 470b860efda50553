package bom

import (
	"time"

	"github.com/bomcache/bomcache/internal/models"
)

// Response envelopes for the BOM JSON API. Every endpoint wraps its payload
// in {data, metadata}.

type searchResponse struct {
	Data []models.SearchResult `json:"data"`
}

type locationResponse struct {
	Data locationData `json:"data"`
}

type locationData struct {
	Geohash      string  `json:"geohash"`
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	State        string  `json:"state"`
	Postcode     string  `json:"postcode"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	HasWave      bool    `json:"has_wave"`
	MarineAreaID *string `json:"marine_area_id"`
	TidalPoint   *string `json:"tidal_point"`
	Timezone     string  `json:"timezone"`
}

func (d locationData) toModel() models.Location {
	return models.Location{
		ID:           d.ID,
		Geohash:      d.Geohash,
		Name:         d.Name,
		State:        d.State,
		Postcode:     d.Postcode,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		HasWave:      d.HasWave,
		MarineAreaID: d.MarineAreaID,
		TidalPoint:   d.TidalPoint,
		Timezone:     d.Timezone,
	}
}

type observationResponse struct {
	Data     *observationData    `json:"data"`
	Metadata observationMetadata `json:"metadata"`
}

type observationMetadata struct {
	IssueTime       time.Time `json:"issue_time"`
	ObservationTime time.Time `json:"observation_time"`
}

type observationData struct {
	Temp          float64  `json:"temp"`
	TempFeelsLike float64  `json:"temp_feels_like"`
	Wind          windData `json:"wind"`
	Gust          gustData `json:"gust"`
	MaxTemp       tempData `json:"max_temp"`
	MinTemp       tempData `json:"min_temp"`
	RainSince9am  *float64 `json:"rain_since_9am"`
	Humidity      *int     `json:"humidity"`
	Station       struct {
		BOMID string `json:"bom_id"`
		Name  string `json:"name"`
	} `json:"station"`
}

type windData struct {
	Direction      string `json:"direction"`
	SpeedKilometre int    `json:"speed_kilometre"`
}

type gustData struct {
	SpeedKilometre int `json:"speed_kilometre"`
}

type tempData struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// toModel returns nil when the API has no observation for the location.
func (r observationResponse) toModel() *models.Observation {
	if r.Data == nil {
		return nil
	}
	d := r.Data
	return &models.Observation{
		IssueTime:       r.Metadata.IssueTime,
		ObservationTime: r.Metadata.ObservationTime,
		Temp:            d.Temp,
		TempFeelsLike:   d.TempFeelsLike,
		WindSpeed:       d.Wind.SpeedKilometre,
		WindDirection:   d.Wind.Direction,
		Gust:            d.Gust.SpeedKilometre,
		MaxTemp:         d.MaxTemp.Value,
		MinTemp:         d.MinTemp.Value,
		RainSince9am:    d.RainSince9am,
		Humidity:        d.Humidity,
		StationBOMID:    d.Station.BOMID,
		StationName:     d.Station.Name,
	}
}

type dailyResponse struct {
	Data     []dailyDay       `json:"data"`
	Metadata forecastMetadata `json:"metadata"`
}

type forecastMetadata struct {
	IssueTime     time.Time  `json:"issue_time"`
	NextIssueTime *time.Time `json:"next_issue_time"`
}

type dailyDay struct {
	Date         time.Time `json:"date"`
	TempMax      *float64  `json:"temp_max"`
	TempMin      *float64  `json:"temp_min"`
	ShortText    *string   `json:"short_text"`
	ExtendedText *string   `json:"extended_text"`
	Rain         struct {
		Chance *int `json:"chance"`
		Amount struct {
			Min *int `json:"min"`
			Max *int `json:"max"`
		} `json:"amount"`
	} `json:"rain"`
}

func (r dailyResponse) toModel() models.DailyForecast {
	f := models.DailyForecast{
		IssueTime:     r.Metadata.IssueTime,
		NextIssueTime: r.Metadata.NextIssueTime,
	}
	for _, d := range r.Data {
		day := models.DailyForecastDay{
			Date:       d.Date,
			TempMax:    d.TempMax,
			TempMin:    d.TempMin,
			RainChance: d.Rain.Chance,
			RainMin:    d.Rain.Amount.Min,
			RainMax:    d.Rain.Amount.Max,
		}
		if d.ShortText != nil {
			day.ShortText = *d.ShortText
		}
		if d.ExtendedText != nil {
			day.ExtendedText = *d.ExtendedText
		}
		f.Days = append(f.Days, day)
	}
	return f
}

type hourlyResponse struct {
	Data     []hourlyHour     `json:"data"`
	Metadata forecastMetadata `json:"metadata"`
}

type hourlyHour struct {
	Time          time.Time `json:"time"`
	Temp          float64   `json:"temp"`
	TempFeelsLike float64   `json:"temp_feels_like"`
	Wind          struct {
		Direction          string `json:"direction"`
		SpeedKilometre     int    `json:"speed_kilometre"`
		GustSpeedKilometre int    `json:"gust_speed_kilometre"`
	} `json:"wind"`
	Rain struct {
		Chance int `json:"chance"`
		Amount struct {
			Min int  `json:"min"`
			Max *int `json:"max"`
		} `json:"amount"`
	} `json:"rain"`
	RelativeHumidity int    `json:"relative_humidity"`
	UV               int    `json:"uv"`
	IconDescriptor   string `json:"icon_descriptor"`
	IsNight          bool   `json:"is_night"`
}

func (r hourlyResponse) toModel() models.HourlyForecast {
	f := models.HourlyForecast{IssueTime: r.Metadata.IssueTime}
	for _, h := range r.Data {
		hour := models.HourlyForecastHour{
			Time:           h.Time,
			Temp:           h.Temp,
			TempFeelsLike:  h.TempFeelsLike,
			WindSpeed:      h.Wind.SpeedKilometre,
			WindDirection:  h.Wind.Direction,
			Gust:           h.Wind.GustSpeedKilometre,
			RainChance:     h.Rain.Chance,
			RainMin:        h.Rain.Amount.Min,
			Humidity:       h.RelativeHumidity,
			UV:             h.UV,
			IconDescriptor: h.IconDescriptor,
			IsNight:        h.IsNight,
		}
		if h.Rain.Amount.Max != nil {
			hour.RainMax = *h.Rain.Amount.Max
		}
		f.Hours = append(f.Hours, hour)
	}
	return f
}

type warningResponse struct {
	Data []models.Warning `json:"data"`
}
