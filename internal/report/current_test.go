package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bomcache/bomcache/internal/models"
)

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

var sydney = time.FixedZone("AEST", 10*3600)

func testForecasts(now time.Time) (*models.DailyForecast, *models.HourlyForecast) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	daily := &models.DailyForecast{
		IssueTime: now.Add(-2 * time.Hour),
		Days: []models.DailyForecastDay{
			{
				Date: midnight, TempMax: f64(28), TempMin: f64(14),
				ShortText: "Sunny.", ExtendedText: "Sunny. Light winds.",
				RainChance: i(5), RainMin: i(0), RainMax: i(0),
			},
			{
				Date: midnight.AddDate(0, 0, 1), TempMax: f64(31), TempMin: f64(17),
				ShortText: "Shower or two.", RainChance: i(60), RainMin: i(2), RainMax: i(8),
			},
			{
				Date: midnight.AddDate(0, 0, 2), TempMax: f64(24), TempMin: f64(15),
				ShortText: "Cloudy.", RainChance: i(30), RainMin: i(0), RainMax: i(3),
			},
		},
	}
	hourly := &models.HourlyForecast{
		IssueTime: now.Add(-time.Hour),
		Hours: []models.HourlyForecastHour{
			{
				Time: now.Add(-90 * time.Minute), Temp: 19, TempFeelsLike: 17,
				WindSpeed: 10, WindDirection: "NE", Gust: 15,
				Humidity: 70, IconDescriptor: "mostly_sunny",
			},
			{
				Time: now.Add(-30 * time.Minute), Temp: 21.5, TempFeelsLike: 19,
				WindSpeed: 13, WindDirection: "N", Gust: 22, RainChance: 10,
				Humidity: 65, UV: 8, IconDescriptor: "sunny",
			},
			{
				Time: now.Add(30 * time.Minute), Temp: 23, TempFeelsLike: 21,
				WindSpeed: 15, WindDirection: "NW", Gust: 25, RainChance: 20,
				RainMin: 1, RainMax: 3, Humidity: 60, IconDescriptor: "partly_cloudy",
			},
		},
	}
	return daily, hourly
}

func TestBuildCurrentDaytime(t *testing.T) {
	now := time.Date(2023, 11, 13, 14, 0, 0, 0, sydney)
	daily, hourly := testForecasts(now)

	w, err := BuildCurrent(nil, daily, hourly, now)
	require.NoError(t, err)

	// The second hour is the latest one that has started.
	assert.Equal(t, 21.5, w.Temp)
	assert.Equal(t, float64(19), w.TempFeelsLike)
	assert.Equal(t, "☀️", w.Icon)
	assert.Equal(t, 13, w.WindSpeed)
	assert.Equal(t, "N", w.WindDirection)
	assert.Equal(t, "Sunny.", w.ShortText)

	assert.Equal(t, float64(28), w.NextTemp)
	assert.Equal(t, "Max", w.NextLabel)
	assert.Equal(t, float64(17), w.LaterTemp)
	assert.Equal(t, "Overnight min", w.LaterLabel)

	assert.Nil(t, w.RainSince9am)
	assert.Equal(t, 5, w.TodayRainChance)
	assert.Equal(t, 10, w.HourlyRainChance)
}

func TestBuildCurrentEvening(t *testing.T) {
	now := time.Date(2023, 11, 13, 20, 0, 0, 0, sydney)
	daily, hourly := testForecasts(now)

	w, err := BuildCurrent(nil, daily, hourly, now)
	require.NoError(t, err)

	assert.Equal(t, float64(17), w.NextTemp)
	assert.Equal(t, "Overnight min", w.NextLabel)
	assert.Equal(t, float64(31), w.LaterTemp)
	assert.Equal(t, "Tomorrow max", w.LaterLabel)
}

func TestBuildCurrentObservationOverrides(t *testing.T) {
	now := time.Date(2023, 11, 13, 14, 0, 0, 0, sydney)
	daily, hourly := testForecasts(now)
	obs := &models.Observation{
		Temp: 29.4, TempFeelsLike: 31.1,
		WindSpeed: 24, WindDirection: "NNW", Gust: 37,
		MaxTemp: 29.8, RainSince9am: f64(0.2), Humidity: i(55),
	}

	w, err := BuildCurrent(obs, daily, hourly, now)
	require.NoError(t, err)

	assert.Equal(t, 29.4, w.Temp)
	assert.Equal(t, 31.1, w.TempFeelsLike)
	assert.Equal(t, 24, w.WindSpeed)
	assert.Equal(t, "NNW", w.WindDirection)
	assert.Equal(t, 55, w.Humidity)
	require.NotNil(t, w.RainSince9am)
	assert.Equal(t, 0.2, *w.RainSince9am)

	// The station has already beaten the forecast max.
	assert.Equal(t, 29.8, w.MaxTemp)
	assert.Equal(t, 29.8, w.NextTemp)
}

func TestBuildCurrentForecastMaxWins(t *testing.T) {
	now := time.Date(2023, 11, 13, 10, 0, 0, 0, sydney)
	daily, hourly := testForecasts(now)
	obs := &models.Observation{Temp: 18, TempFeelsLike: 16, MaxTemp: 18.5}

	w, err := BuildCurrent(obs, daily, hourly, now)
	require.NoError(t, err)
	assert.Equal(t, float64(28), w.MaxTemp)
}

func TestBuildCurrentMissingData(t *testing.T) {
	now := time.Date(2023, 11, 13, 14, 0, 0, 0, sydney)
	daily, hourly := testForecasts(now)

	_, err := BuildCurrent(nil, nil, hourly, now)
	assert.Error(t, err)
	_, err = BuildCurrent(nil, daily, &models.HourlyForecast{}, now)
	assert.Error(t, err)
}

func TestFstring(t *testing.T) {
	now := time.Date(2023, 11, 13, 14, 0, 0, 0, sydney)
	daily, hourly := testForecasts(now)
	w, err := BuildCurrent(nil, daily, hourly, now)
	require.NoError(t, err)

	out, err := w.Fstring("{icon} {temp} ({temp_feels_like})")
	require.NoError(t, err)
	assert.Equal(t, "☀️ 21.5 (19)", out)

	out, err = w.Fstring("{next_label} {next_temp}, rain {rain_since_9am}mm")
	require.NoError(t, err)
	assert.Equal(t, "Max 28, rain ??mm", out)

	out, err = w.Fstring("no keys at all")
	require.NoError(t, err)
	assert.Equal(t, "no keys at all", out)
}

func TestFstringErrors(t *testing.T) {
	w := &CurrentWeather{}

	_, err := w.Fstring("{nope}")
	assert.ErrorContains(t, err, "nope")

	_, err = w.Fstring("{temp")
	assert.Error(t, err)
}

func TestFstringKeysCoverValues(t *testing.T) {
	keys := FstringKeys()
	assert.Len(t, keys, len(fstringValues))
	assert.Contains(t, keys, "temp")
	assert.Contains(t, keys, "wind_gust")
}

func TestIconEmojiNight(t *testing.T) {
	assert.Equal(t, "☀️", iconEmoji("sunny", false))
	assert.Equal(t, "🌙", iconEmoji("sunny", true))
	assert.Equal(t, "🌙", iconEmoji("mostly_sunny", true))
	assert.Equal(t, "⛈️", iconEmoji("storm", true))
	assert.Equal(t, "?", iconEmoji("volcanic_ash", false))
}
