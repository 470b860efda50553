// Package report turns cached weather into terminal output: the status-bar
// one-liner and the forecast tables.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bomcache/bomcache/internal/models"
)

// CurrentWeather is the merged now-view of a location: observation values
// where a station reports them, hourly forecast values otherwise, framed by
// today's and tomorrow's daily numbers.
type CurrentWeather struct {
	Temp             float64
	TempFeelsLike    float64
	MaxTemp          float64
	NextTemp         float64
	NextLabel        string
	LaterTemp        float64
	LaterLabel       string
	OvernightMin     float64
	TomorrowMax      float64
	RainSince9am     *float64
	TodayRainChance  int
	TodayRainMin     int
	TodayRainMax     int
	HourlyRainChance int
	HourlyRainMin    int
	HourlyRainMax    int
	Humidity         int
	UV               int
	Icon             string
	ShortText        string
	ExtendedText     string
	IsNight          bool
	WindSpeed        int
	WindDirection    string
	Gust             int
}

// BuildCurrent merges the cached snapshots into a CurrentWeather. The
// observation may be nil (not every location has a station); daily and
// hourly forecasts are required.
func BuildCurrent(obs *models.Observation, daily *models.DailyForecast, hourly *models.HourlyForecast, now time.Time) (*CurrentWeather, error) {
	if daily == nil || len(daily.Days) < 2 {
		return nil, fmt.Errorf("daily forecast not cached; run a check first")
	}
	if hourly == nil || len(hourly.Hours) == 0 {
		return nil, fmt.Errorf("hourly forecast not cached; run a check first")
	}

	hour := currentHour(hourly.Hours, now)
	today, tomorrow := daily.Days[0], daily.Days[1]

	todayMax := floatOr(today.TempMax, -9999)
	overnightMin := floatOr(tomorrow.TempMin, -9999)
	tomorrowMax := floatOr(tomorrow.TempMax, -9999)

	w := &CurrentWeather{
		Temp:             hour.Temp,
		TempFeelsLike:    hour.TempFeelsLike,
		MaxTemp:          todayMax,
		OvernightMin:     overnightMin,
		TomorrowMax:      tomorrowMax,
		TodayRainChance:  intOr(today.RainChance, 0),
		TodayRainMin:     intOr(today.RainMin, 0),
		TodayRainMax:     intOr(today.RainMax, 0),
		HourlyRainChance: hour.RainChance,
		HourlyRainMin:    hour.RainMin,
		HourlyRainMax:    hour.RainMax,
		Humidity:         hour.Humidity,
		UV:               hour.UV,
		Icon:             iconEmoji(hour.IconDescriptor, hour.IsNight),
		ShortText:        today.ShortText,
		ExtendedText:     today.ExtendedText,
		IsNight:          hour.IsNight,
		WindSpeed:        hour.WindSpeed,
		WindDirection:    hour.WindDirection,
		Gust:             hour.Gust,
	}
	if obs != nil {
		w.Temp = obs.Temp
		w.TempFeelsLike = obs.TempFeelsLike
		if obs.MaxTemp > w.MaxTemp {
			w.MaxTemp = obs.MaxTemp
		}
		w.WindSpeed = obs.WindSpeed
		if obs.WindDirection != "" {
			w.WindDirection = obs.WindDirection
		}
		w.Gust = obs.Gust
		w.RainSince9am = obs.RainSince9am
		if obs.Humidity != nil {
			w.Humidity = *obs.Humidity
		}
	}

	// Before dusk the next milestone is today's max; after it, the coming
	// overnight minimum then tomorrow's max.
	h := now.Hour()
	if h >= 6 && h < 18 {
		w.NextTemp, w.NextLabel = w.MaxTemp, "Max"
		w.LaterTemp, w.LaterLabel = overnightMin, "Overnight min"
	} else {
		w.NextTemp, w.NextLabel = overnightMin, "Overnight min"
		w.LaterTemp, w.LaterLabel = tomorrowMax, "Tomorrow max"
	}
	return w, nil
}

// currentHour picks the forecast hour covering now: the latest hour that has
// started, or the first hour when the forecast is entirely in the future.
func currentHour(hours []models.HourlyForecastHour, now time.Time) models.HourlyForecastHour {
	current := hours[0]
	for _, h := range hours {
		if h.Time.After(now) {
			break
		}
		current = h
	}
	return current
}

// fstringValues maps format keys to their value renderers.
var fstringValues = map[string]func(*CurrentWeather) string{
	"temp":            func(w *CurrentWeather) string { return formatTemp(w.Temp) },
	"temp_feels_like": func(w *CurrentWeather) string { return formatTemp(w.TempFeelsLike) },
	"icon":            func(w *CurrentWeather) string { return w.Icon },
	"next_temp":       func(w *CurrentWeather) string { return formatTemp(w.NextTemp) },
	"next_label":      func(w *CurrentWeather) string { return w.NextLabel },
	"later_temp":      func(w *CurrentWeather) string { return formatTemp(w.LaterTemp) },
	"later_label":     func(w *CurrentWeather) string { return w.LaterLabel },
	"max_temp":        func(w *CurrentWeather) string { return formatTemp(w.MaxTemp) },
	"overnight_min":   func(w *CurrentWeather) string { return formatTemp(w.OvernightMin) },
	"tomorrow_max":    func(w *CurrentWeather) string { return formatTemp(w.TomorrowMax) },
	"rain_since_9am": func(w *CurrentWeather) string {
		// The API reports 0 for a dry day; a missing value means the
		// station didn't say.
		if w.RainSince9am == nil {
			return "??"
		}
		return formatTemp(*w.RainSince9am)
	},
	"hourly_rain_chance": func(w *CurrentWeather) string { return strconv.Itoa(w.HourlyRainChance) },
	"hourly_rain_min":    func(w *CurrentWeather) string { return strconv.Itoa(w.HourlyRainMin) },
	"hourly_rain_max":    func(w *CurrentWeather) string { return strconv.Itoa(w.HourlyRainMax) },
	"today_rain_chance":  func(w *CurrentWeather) string { return strconv.Itoa(w.TodayRainChance) },
	"today_rain_min":     func(w *CurrentWeather) string { return strconv.Itoa(w.TodayRainMin) },
	"today_rain_max":     func(w *CurrentWeather) string { return strconv.Itoa(w.TodayRainMax) },
	"humidity":           func(w *CurrentWeather) string { return strconv.Itoa(w.Humidity) },
	"uv":                 func(w *CurrentWeather) string { return strconv.Itoa(w.UV) },
	"short_text":         func(w *CurrentWeather) string { return w.ShortText },
	"extended_text":      func(w *CurrentWeather) string { return w.ExtendedText },
	"wind_speed":         func(w *CurrentWeather) string { return strconv.Itoa(w.WindSpeed) },
	"wind_direction":     func(w *CurrentWeather) string { return w.WindDirection },
	"wind_gust":          func(w *CurrentWeather) string { return strconv.Itoa(w.Gust) },
}

// FstringKeys lists the keys usable in a format string, sorted.
func FstringKeys() []string {
	keys := make([]string, 0, len(fstringValues))
	for k := range fstringValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fstring renders a user format string like "{icon} {temp} ({feels_like})".
// Unknown keys and unterminated braces are errors.
func (w *CurrentWeather) Fstring(fstring string) (string, error) {
	var out strings.Builder
	remainder := fstring
	for remainder != "" {
		open := strings.IndexByte(remainder, '{')
		if open < 0 {
			out.WriteString(remainder)
			break
		}
		out.WriteString(remainder[:open])
		end := strings.IndexByte(remainder[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("%q is not a valid format string", fstring)
		}
		key := remainder[open+1 : open+end]
		value, ok := fstringValues[key]
		if !ok {
			return "", fmt.Errorf("%q is not a valid format key", key)
		}
		out.WriteString(value(w))
		remainder = remainder[open+end+1:]
	}
	return out.String(), nil
}

func formatTemp(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func floatOr(p *float64, def float64) float64 {
	if p != nil {
		return *p
	}
	return def
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}
