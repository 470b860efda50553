package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bomcache/bomcache/internal/models"
)

var (
	colorHeading = lipgloss.Color("#00BFFF")
	colorBorder  = lipgloss.Color("#4A90E2")
	colorMuted   = lipgloss.Color("#6C757D")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeading)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHeading).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Foreground(colorBorder)

	footnoteStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// DailyTable renders the multi-day forecast. With extended set the
// description column carries the long-form text.
func DailyTable(loc *models.Location, f *models.DailyForecast, extended bool, now time.Time) string {
	t := newTable().Headers("Day", "Min", "Max", "Rain", "Chance", "Description")
	for _, day := range f.Days {
		desc := day.ShortText
		if extended {
			desc = day.ExtendedText
		}
		t.Row(
			dayLabel(day.Date, now),
			tempCell(day.TempMin),
			tempCell(day.TempMax),
			rainAmount(intOr(day.RainMin, 0), intOr(day.RainMax, 0)),
			chanceCell(day.RainChance),
			desc,
		)
	}
	title := titleStyle.Render(fmt.Sprintf("Forecast for %s issued at %s",
		loc.Name, f.IssueTime.In(now.Location()).Format("Mon 15:04")))
	return title + "\n" + t.Render()
}

// HourlyTable renders up to hours rows of the hour-by-hour forecast,
// starting from the hour covering now. Rain columns appear only when some
// hour in the window has a non-zero chance.
func HourlyTable(loc *models.Location, f *models.HourlyForecast, hours int, now time.Time) string {
	window := hourlyWindow(f.Hours, hours, now)
	showRain := false
	for _, h := range window {
		if h.RainChance > 0 {
			showRain = true
			break
		}
	}

	headers := []string{"Time", "Temp", "Description"}
	if showRain {
		headers = append(headers, "Rain", "Chance")
	}
	headers = append(headers, "Wind", "Gust", "Humidity")

	t := newTable().Headers(headers...)
	for _, h := range window {
		row := []string{
			h.Time.In(now.Location()).Format("Mon 15:04"),
			fmt.Sprintf("%s (%s)", formatTemp(h.Temp), formatTemp(h.TempFeelsLike)),
			descriptorLabel(h.IconDescriptor),
		}
		if showRain {
			row = append(row, rainAmount(h.RainMin, h.RainMax), strconv.Itoa(h.RainChance)+"%")
		}
		row = append(row,
			fmt.Sprintf("%d %s", h.WindSpeed, h.WindDirection),
			strconv.Itoa(h.Gust),
			strconv.Itoa(h.Humidity)+"%",
		)
		t.Row(row...)
	}

	title := titleStyle.Render(fmt.Sprintf("Hourly forecast for %s issued at %s",
		loc.Name, f.IssueTime.In(now.Location()).Format("Mon 15:04")))
	return title + "\n" + t.Render()
}

// WarningList renders active warnings, one per line.
func WarningList(warnings []models.Warning) string {
	if len(warnings) == 0 {
		return footnoteStyle.Render("No active warnings")
	}
	var lines []string
	for _, w := range warnings {
		lines = append(lines, fmt.Sprintf("%s %s", titleStyle.Render(strings.ToUpper(w.Phase)+":"), w.Title))
	}
	return strings.Join(lines, "\n")
}

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// hourlyWindow drops hours that have already ended and caps the remainder.
func hourlyWindow(hours []models.HourlyForecastHour, n int, now time.Time) []models.HourlyForecastHour {
	start := 0
	for start < len(hours) && !hours[start].Time.Add(time.Hour).After(now) {
		start++
	}
	window := hours[start:]
	if len(window) > n {
		window = window[:n]
	}
	return window
}

func dayLabel(date, now time.Time) string {
	d := date.In(now.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch d.Sub(today) / (24 * time.Hour) {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	}
	return d.Format("Monday")
}

// descriptorLabel turns an icon descriptor like "mostly_sunny" into display
// text.
func descriptorLabel(descriptor string) string {
	label := strings.ReplaceAll(descriptor, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func tempCell(t *float64) string {
	if t == nil {
		return "-"
	}
	return formatTemp(*t)
}

func chanceCell(c *int) string {
	if c == nil {
		return "-"
	}
	return strconv.Itoa(*c) + "%"
}

func rainAmount(min, max int) string {
	if max == 0 {
		return "0mm"
	}
	return fmt.Sprintf("%d-%dmm", min, max)
}
