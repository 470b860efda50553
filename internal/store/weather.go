package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bomcache/bomcache/internal/models"
)

// WeatherSnapshot is one cached weather payload with its fetch timestamp.
type WeatherSnapshot struct {
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// weatherDoc is the per-location JSON document held in location.weather,
// keyed by resource kind.
type weatherDoc map[models.ResourceKind]WeatherSnapshot

// RecordObservation stores one weather snapshot (current conditions, a
// forecast, warnings) for a location and advances the matching freshness
// marker in the same transaction. A reader can never observe the marker
// without the data or vice versa.
func (s *Store) RecordObservation(locationID string, kind models.ResourceKind, payload json.RawMessage, fetchedAt time.Time) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var raw sql.NullString
	err = tx.QueryRow("SELECT weather FROM location WHERE id = ?", locationID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("location %s not found", locationID)
	}
	if err != nil {
		return classify(locationID, err)
	}

	doc := weatherDoc{}
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &doc); err != nil {
			return fmt.Errorf("decoding cached weather for %s: %w", locationID, err)
		}
	}
	doc[kind] = WeatherSnapshot{Payload: payload, FetchedAt: fetchedAt.UTC()}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding weather for %s: %w", locationID, err)
	}
	if _, err := tx.Exec("UPDATE location SET weather = ? WHERE id = ?", string(encoded), locationID); err != nil {
		return classify(locationID, err)
	}
	if err := markChecked(tx, kind, locationID, fetchedAt); err != nil {
		return err
	}
	return classify(locationID, tx.Commit())
}

// GetSnapshot returns the cached payload for one resource kind. The second
// return value is false when nothing has been stored yet.
func (s *Store) GetSnapshot(locationID string, kind models.ResourceKind) (WeatherSnapshot, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRow("SELECT weather FROM location WHERE id = ?", locationID).Scan(&raw)
	if err == sql.ErrNoRows {
		return WeatherSnapshot{}, false, fmt.Errorf("location %s not found", locationID)
	}
	if err != nil {
		return WeatherSnapshot{}, false, classify(locationID, err)
	}
	if !raw.Valid || raw.String == "" {
		return WeatherSnapshot{}, false, nil
	}
	doc := weatherDoc{}
	if err := json.Unmarshal([]byte(raw.String), &doc); err != nil {
		return WeatherSnapshot{}, false, fmt.Errorf("decoding cached weather for %s: %w", locationID, err)
	}
	snap, ok := doc[kind]
	return snap, ok, nil
}
