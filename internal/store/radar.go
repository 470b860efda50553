package store

import (
	"fmt"
	"time"

	"github.com/bomcache/bomcache/internal/models"
)

// InsertDataLayer inserts one radar tile, keyed by its unique filename.
// Returns whether the row was newly inserted; an already-seen filename is a
// no-op, not an error.
func (s *Store) InsertDataLayer(layer models.RadarDataLayer) (bool, error) {
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO radar_data_layer (image, radar_id, radar_type_id, timestamp, filename)
		VALUES (?, ?, ?, ?, ?)`,
		layer.Image, layer.RadarID, layer.TypeID, layer.Timestamp.UTC(), layer.Filename)
	if err != nil {
		return false, classify(layer.Filename, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertDataLayers inserts a batch of tiles and advances the freshness marker
// for the stream in one transaction. Returns how many rows were new. A zero
// checkedAt stores the tiles without touching the marker, for batches the
// caller does not consider a full success.
func (s *Store) InsertDataLayers(layers []models.RadarDataLayer, kind models.ResourceKind, key string, checkedAt time.Time) (int, error) {
	tx, err := s.begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO radar_data_layer (image, radar_id, radar_type_id, timestamp, filename)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing tile insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, l := range layers {
		res, err := stmt.Exec(l.Image, l.RadarID, l.TypeID, l.Timestamp.UTC(), l.Filename)
		if err != nil {
			return 0, classify(l.Filename, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if !checkedAt.IsZero() {
		if err := markChecked(tx, kind, key, checkedAt); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(key, err)
	}
	return inserted, nil
}

// LatestDataLayers returns the most recent limit tiles for a stream,
// descending by capture timestamp.
func (s *Store) LatestDataLayers(radarID int64, typeID string, limit int) ([]models.RadarDataLayer, error) {
	rows, err := s.db.Query(`
		SELECT id, image, radar_id, radar_type_id, timestamp, filename
		FROM radar_data_layer
		WHERE radar_id = ? AND radar_type_id = ?
		ORDER BY timestamp DESC LIMIT ?`, radarID, typeID, limit)
	if err != nil {
		return nil, classify(fmt.Sprintf("radar %d", radarID), err)
	}
	defer rows.Close()

	var layers []models.RadarDataLayer
	for rows.Next() {
		var l models.RadarDataLayer
		if err := rows.Scan(&l.ID, &l.Image, &l.RadarID, &l.TypeID, &l.Timestamp, &l.Filename); err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, rows.Err()
}

// DataLayerFilenames returns every cached tile filename for a stream, used to
// filter archive listings down to unseen tiles.
func (s *Store) DataLayerFilenames(radarID int64, typeID string) (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT filename FROM radar_data_layer
		WHERE radar_id = ? AND radar_type_id = ?`, radarID, typeID)
	if err != nil {
		return nil, classify(fmt.Sprintf("radar %d", radarID), err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

// PruneDataLayers deletes the oldest tiles of a stream beyond the retention
// window, returning how many rows were removed.
func (s *Store) PruneDataLayers(radarID int64, typeID string, keep int) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM radar_data_layer
		WHERE radar_id = ? AND radar_type_id = ? AND id NOT IN (
			SELECT id FROM radar_data_layer
			WHERE radar_id = ? AND radar_type_id = ?
			ORDER BY timestamp DESC LIMIT ?
		)`, radarID, typeID, radarID, typeID, keep)
	if err != nil {
		return 0, classify(fmt.Sprintf("radar %d", radarID), err)
	}
	return res.RowsAffected()
}

// InsertFeatureLayers stores static overlays, ignoring filenames already
// present.
func (s *Store) InsertFeatureLayers(layers []models.RadarFeatureLayer) error {
	tx, err := s.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO radar_feature_layer (image, radar_id, feature, radar_type_id, filename)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing feature insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range layers {
		if _, err := stmt.Exec(l.Image, l.RadarID, l.Feature, l.TypeID, l.Filename); err != nil {
			return classify(l.Filename, err)
		}
	}
	return classify("radar_feature_layer", tx.Commit())
}

// FeatureLayers returns the static overlays stored for a stream. An empty
// result is not an error; the compositor treats missing overlays as no-ops.
func (s *Store) FeatureLayers(radarID int64, typeID string) ([]models.RadarFeatureLayer, error) {
	rows, err := s.db.Query(`
		SELECT id, image, radar_id, feature, radar_type_id, filename
		FROM radar_feature_layer
		WHERE radar_id = ? AND radar_type_id = ?`, radarID, typeID)
	if err != nil {
		return nil, classify(fmt.Sprintf("radar %d", radarID), err)
	}
	defer rows.Close()

	var layers []models.RadarFeatureLayer
	for rows.Next() {
		var l models.RadarFeatureLayer
		if err := rows.Scan(&l.ID, &l.Image, &l.RadarID, &l.Feature, &l.TypeID, &l.Filename); err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, rows.Err()
}

// DeleteFeatureLayers drops a stream's overlays so the next fetch re-downloads
// them. Used for explicit invalidation only.
func (s *Store) DeleteFeatureLayers(radarID int64, typeID string) error {
	_, err := s.db.Exec(`
		DELETE FROM radar_feature_layer WHERE radar_id = ? AND radar_type_id = ?`,
		radarID, typeID)
	return classify(fmt.Sprintf("radar %d", radarID), err)
}
