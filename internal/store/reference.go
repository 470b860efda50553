package store

import (
	"database/sql"
	"fmt"

	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
)

// UpsertStations inserts station reference rows, ignoring filenames already
// present. Re-inserting an existing ID with different coordinates or name is
// reported as an integrity fault since station rows are immutable.
func (s *Store) UpsertStations(stations []models.Station) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO station
		(id, district_id, name, start, end, latitude, longitude, source, state, height, barometric_height, wmo_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing station insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stations {
		res, err := stmt.Exec(st.ID, st.DistrictID, st.Name, st.Start, st.End,
			st.Latitude, st.Longitude, st.Source, st.State, st.Height,
			st.BarometricHeight, st.WMOID)
		if err != nil {
			return classify(fmt.Sprintf("station %d", st.ID), err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			if err := stationMatches(tx, st); err != nil {
				return err
			}
		}
	}
	return classify("station", tx.Commit())
}

// stationMatches verifies an ignored insert collided with an identical row.
func stationMatches(tx *sql.Tx, st models.Station) error {
	var name, state string
	err := tx.QueryRow("SELECT name, state FROM station WHERE id = ?", st.ID).
		Scan(&name, &state)
	if err != nil {
		return fmt.Errorf("checking station %d: %w", st.ID, err)
	}
	if name != st.Name || state != st.State {
		return faults.Integrity(fmt.Sprintf("station %d", st.ID),
			fmt.Errorf("existing row %q/%q conflicts with %q/%q", name, state, st.Name, st.State))
	}
	return nil
}

// GetStation looks up one station by ID.
func (s *Store) GetStation(id int64) (*models.Station, error) {
	var st models.Station
	err := s.db.QueryRow(`
		SELECT id, district_id, name, start, end, latitude, longitude, source, state, height, barometric_height, wmo_id
		FROM station WHERE id = ?`, id).
		Scan(&st.ID, &st.DistrictID, &st.Name, &st.Start, &st.End, &st.Latitude,
			&st.Longitude, &st.Source, &st.State, &st.Height, &st.BarometricHeight, &st.WMOID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("station %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("station %d", id), err)
	}
	return &st, nil
}

// UpsertRadars inserts the radar catalog and legend images. Conflicting
// re-inserts of an existing radar are integrity faults.
func (s *Store) UpsertRadars(radars []models.Radar, legends []models.RadarLegend) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO radar (id, name, full_name, latitude, longitude, state, type_, group_)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing radar insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range radars {
		res, err := stmt.Exec(r.ID, r.Name, r.FullName, r.Latitude, r.Longitude, r.State, r.Type, r.Group)
		if err != nil {
			return classify(fmt.Sprintf("radar %d", r.ID), err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var name string
			if err := tx.QueryRow("SELECT name FROM radar WHERE id = ?", r.ID).Scan(&name); err != nil {
				return fmt.Errorf("checking radar %d: %w", r.ID, err)
			}
			if name != r.Name {
				return faults.Integrity(fmt.Sprintf("radar %d", r.ID),
					fmt.Errorf("existing row %q conflicts with %q", name, r.Name))
			}
		}
	}

	for _, l := range legends {
		if _, err := tx.Exec("INSERT OR IGNORE INTO radar_legend (id, image) VALUES (?, ?)", l.ID, l.Image); err != nil {
			return classify(fmt.Sprintf("radar legend %d", l.ID), err)
		}
	}
	return classify("radar", tx.Commit())
}

// GetRadar looks up one radar catalog entry.
func (s *Store) GetRadar(id int64) (*models.Radar, error) {
	var r models.Radar
	err := s.db.QueryRow(`
		SELECT id, name, full_name, latitude, longitude, state, type_, group_
		FROM radar WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.FullName, &r.Latitude, &r.Longitude, &r.State, &r.Type, &r.Group)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("radar %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("radar %d", id), err)
	}
	return &r, nil
}

// ListRadars returns the whole radar catalog.
func (s *Store) ListRadars() ([]models.Radar, error) {
	rows, err := s.db.Query(`
		SELECT id, name, full_name, latitude, longitude, state, type_, group_
		FROM radar ORDER BY id`)
	if err != nil {
		return nil, classify("radar", err)
	}
	defer rows.Close()

	var radars []models.Radar
	for rows.Next() {
		var r models.Radar
		if err := rows.Scan(&r.ID, &r.Name, &r.FullName, &r.Latitude, &r.Longitude,
			&r.State, &r.Type, &r.Group); err != nil {
			return nil, err
		}
		radars = append(radars, r)
	}
	return radars, rows.Err()
}

// GetLegend returns a stored legend image.
func (s *Store) GetLegend(id int64) (*models.RadarLegend, error) {
	l := models.RadarLegend{ID: id}
	err := s.db.QueryRow("SELECT image FROM radar_legend WHERE id = ?", id).Scan(&l.Image)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("radar legend %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("radar legend %d", id), err)
	}
	return &l, nil
}

// InsertLocation stores a newly created location. The referenced station must
// already exist; a foreign key violation is an integrity fault.
func (s *Store) InsertLocation(loc *models.Location) error {
	_, err := s.db.Exec(`
		INSERT INTO location
		(id, geohash, station_id, has_wave, latitude, longitude, marine_area_id, name, state, postcode, tidal_point, timezone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, loc.Geohash, loc.StationID, loc.HasWave, loc.Latitude, loc.Longitude,
		loc.MarineAreaID, loc.Name, loc.State, loc.Postcode, loc.TidalPoint, loc.Timezone)
	if err != nil {
		if isConstraint(err) {
			return faults.Integrity(loc.ID, err)
		}
		return classify(loc.ID, err)
	}
	return nil
}

// GetLocation looks up a location by its ID ("Name-geohash").
func (s *Store) GetLocation(id string) (*models.Location, error) {
	var loc models.Location
	err := s.db.QueryRow(`
		SELECT id, geohash, station_id, has_wave, latitude, longitude, marine_area_id, name, state, postcode, tidal_point, timezone
		FROM location WHERE id = ?`, id).
		Scan(&loc.ID, &loc.Geohash, &loc.StationID, &loc.HasWave, &loc.Latitude,
			&loc.Longitude, &loc.MarineAreaID, &loc.Name, &loc.State, &loc.Postcode,
			&loc.TidalPoint, &loc.Timezone)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(id, err)
	}
	return &loc, nil
}
