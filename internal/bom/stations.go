package bom

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
)

// stationColumnWidths are the fixed column widths of stations.txt: id,
// district, name, start year, end year, latitude, longitude, source, state,
// height, barometric height, WMO id.
var stationColumnWidths = [12]int{8, 6, 41, 8, 8, 9, 10, 15, 4, 11, 9, 6}

// ParseStationList parses the fixed-width national station list. The file
// opens with five header lines and ends with a blank line followed by a
// footer, both of which are skipped.
func ParseStationList(listing string) ([]models.Station, error) {
	var stations []models.Station

	scanner := bufio.NewScanner(strings.NewReader(listing))
	scanner.Buffer(make([]byte, 0, 256*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if line <= 5 {
			continue
		}
		text := scanner.Text()
		if text == "" {
			break
		}
		station, err := parseStationRow(text)
		if err != nil {
			return nil, faults.Decode("stations.txt", fmt.Errorf("line %d: %w", line, err))
		}
		stations = append(stations, station)
	}
	if err := scanner.Err(); err != nil {
		return nil, faults.Decode("stations.txt", err)
	}
	return stations, nil
}

func parseStationRow(row string) (models.Station, error) {
	var cols [12]string
	start := 0
	for i, width := range stationColumnWidths {
		if start >= len(row) {
			break
		}
		end := start + width
		if end > len(row) {
			end = len(row)
		}
		cols[i] = strings.TrimSpace(row[start:end])
		start = end
	}

	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil {
		return models.Station{}, fmt.Errorf("station id %q: %w", cols[0], err)
	}
	startYear, err := strconv.Atoi(cols[3])
	if err != nil {
		return models.Station{}, fmt.Errorf("start year %q: %w", cols[3], err)
	}
	lat, err := strconv.ParseFloat(cols[5], 64)
	if err != nil {
		return models.Station{}, fmt.Errorf("latitude %q: %w", cols[5], err)
	}
	lon, err := strconv.ParseFloat(cols[6], 64)
	if err != nil {
		return models.Station{}, fmt.Errorf("longitude %q: %w", cols[6], err)
	}

	station := models.Station{
		ID:         id,
		DistrictID: cols[1],
		Name:       cols[2],
		Start:      startYear,
		Latitude:   lat,
		Longitude:  lon,
		State:      cols[8],
	}
	// Closed stations carry their last year of operation; open ones show "..".
	if end, err := strconv.Atoi(cols[4]); err == nil {
		station.End = &end
	}
	// A source of "....." means none recorded.
	if cols[7] != "" && !strings.HasPrefix(cols[7], ".") {
		source := cols[7]
		station.Source = &source
	}
	if h, err := strconv.ParseFloat(cols[9], 64); err == nil {
		station.Height = &h
	}
	if h, err := strconv.ParseFloat(cols[10], 64); err == nil {
		station.BarometricHeight = &h
	}
	if wmo, err := strconv.ParseInt(cols[11], 10, 64); err == nil {
		station.WMOID = &wmo
	}
	return station, nil
}

// ActiveStations filters the national list down to the rows worth caching:
// stations still operating, excluding the Antarctic bases.
func ActiveStations(stations []models.Station) []models.Station {
	active := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if s.End != nil || s.State == "ANT" {
			continue
		}
		active = append(active, s)
	}
	return active
}
