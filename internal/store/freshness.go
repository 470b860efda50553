package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bomcache/bomcache/internal/models"
)

// IsDue reports whether a resource should be fetched: true when no successful
// check has ever been recorded, or when now minus the last successful check
// has reached the polling interval.
func (s *Store) IsDue(kind models.ResourceKind, key string, interval time.Duration, now time.Time) (bool, error) {
	var last time.Time
	err := s.db.QueryRow(
		"SELECT last_check FROM freshness WHERE resource_kind = ? AND key = ?",
		string(kind), key,
	).Scan(&last)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, classify(key, fmt.Errorf("querying freshness: %w", err))
	}
	return now.Sub(last) >= interval, nil
}

// LastChecked returns the last successful check time for a resource, or the
// zero time if it has never been checked.
func (s *Store) LastChecked(kind models.ResourceKind, key string) (time.Time, error) {
	var last time.Time
	err := s.db.QueryRow(
		"SELECT last_check FROM freshness WHERE resource_kind = ? AND key = ?",
		string(kind), key,
	).Scan(&last)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, classify(key, fmt.Errorf("querying freshness: %w", err))
	}
	return last, nil
}

// MarkChecked advances the freshness marker for a resource. Callers that pair
// a marker update with stored data use the transactional write paths instead;
// this standalone form exists for fetches that legitimately stored nothing
// (e.g. a poll that found no new tiles).
func (s *Store) MarkChecked(kind models.ResourceKind, key string, ts time.Time) error {
	_, err := s.db.Exec(markCheckedSQL, string(kind), key, ts.UTC())
	return classify(key, err)
}

// markCheckedSQL only moves the marker forward, so a slow writer committing
// after a faster rival cannot rewind it.
const markCheckedSQL = `
INSERT INTO freshness (resource_kind, key, last_check) VALUES (?, ?, ?)
ON CONFLICT (resource_kind, key) DO UPDATE SET last_check = excluded.last_check
WHERE excluded.last_check > freshness.last_check`

func markChecked(tx *sql.Tx, kind models.ResourceKind, key string, ts time.Time) error {
	_, err := tx.Exec(markCheckedSQL, string(kind), key, ts.UTC())
	if err != nil {
		return fmt.Errorf("marking %s/%s checked: %w", kind, key, err)
	}
	return nil
}
