package store

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRadar(t *testing.T, s *Store, id int64) {
	t.Helper()
	err := s.UpsertRadars([]models.Radar{
		{ID: id, Name: "Melbourne", FullName: "Melbourne (Laverton)", Latitude: -37.86, Longitude: 144.76, State: "VIC", Type: "Doppler"},
	}, nil)
	if err != nil {
		t.Fatalf("seeding radar: %v", err)
	}
}

func TestIsDue(t *testing.T) {
	interval := 10 * time.Minute
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		marked  bool
		want    bool
	}{
		{"never checked", 0, false, true},
		{"checked 5m ago", 5 * time.Minute, true, false},
		{"checked exactly interval ago", 10 * time.Minute, true, true},
		{"checked 11m ago", 11 * time.Minute, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			if tt.marked {
				if err := s.MarkChecked(models.KindDaily, "loc", base); err != nil {
					t.Fatalf("MarkChecked: %v", err)
				}
			}
			due, err := s.IsDue(models.KindDaily, "loc", interval, base.Add(tt.elapsed))
			if err != nil {
				t.Fatalf("IsDue: %v", err)
			}
			if due != tt.want {
				t.Errorf("IsDue() = %v, want %v", due, tt.want)
			}
		})
	}
}

func TestMarkCheckedIsMonotonic(t *testing.T) {
	s := newTestStore(t)
	later := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	earlier := later.Add(-10 * time.Minute)

	if err := s.MarkChecked(models.KindHourly, "loc", later); err != nil {
		t.Fatalf("MarkChecked: %v", err)
	}
	// A slower rival writer committing an older timestamp must not rewind
	// the marker.
	if err := s.MarkChecked(models.KindHourly, "loc", earlier); err != nil {
		t.Fatalf("MarkChecked: %v", err)
	}

	got, err := s.LastChecked(models.KindHourly, "loc")
	if err != nil {
		t.Fatalf("LastChecked: %v", err)
	}
	if !got.Equal(later) {
		t.Errorf("LastChecked() = %v, want %v", got, later)
	}
}

func TestInsertDataLayerDeduplicates(t *testing.T) {
	s := newTestStore(t)
	seedRadar(t, s, 2)

	layer := models.RadarDataLayer{
		Image:     []byte{0x89, 0x50},
		RadarID:   2,
		TypeID:    "3",
		Timestamp: time.Date(2023, 11, 13, 3, 34, 0, 0, time.UTC),
		Filename:  "IDR023.T.202311130334.png",
	}

	inserted, err := s.InsertDataLayer(layer)
	if err != nil {
		t.Fatalf("InsertDataLayer: %v", err)
	}
	if !inserted {
		t.Error("first insert reported not inserted")
	}

	inserted, err = s.InsertDataLayer(layer)
	if err != nil {
		t.Fatalf("re-inserting same filename: %v", err)
	}
	if inserted {
		t.Error("duplicate filename reported as newly inserted")
	}
}

func TestInsertDataLayersMarksChecked(t *testing.T) {
	s := newTestStore(t)
	seedRadar(t, s, 2)
	now := time.Date(2023, 11, 13, 4, 0, 0, 0, time.UTC)

	layers := []models.RadarDataLayer{
		{Image: []byte{1}, RadarID: 2, TypeID: "3", Timestamp: now.Add(-10 * time.Minute), Filename: "IDR023.T.202311130350.png"},
		{Image: []byte{2}, RadarID: 2, TypeID: "3", Timestamp: now.Add(-5 * time.Minute), Filename: "IDR023.T.202311130355.png"},
		// Duplicate of the first; must not count as new.
		{Image: []byte{1}, RadarID: 2, TypeID: "3", Timestamp: now.Add(-10 * time.Minute), Filename: "IDR023.T.202311130350.png"},
	}

	n, err := s.InsertDataLayers(layers, models.KindRadarData, "IDR023", now)
	if err != nil {
		t.Fatalf("InsertDataLayers: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	due, err := s.IsDue(models.KindRadarData, "IDR023", 5*time.Minute, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if due {
		t.Error("stream still due immediately after a successful batch")
	}
}

func TestInsertDataLayersZeroCheckedAtLeavesMarker(t *testing.T) {
	s := newTestStore(t)
	seedRadar(t, s, 2)
	now := time.Date(2023, 11, 13, 4, 0, 0, 0, time.UTC)

	layers := []models.RadarDataLayer{
		{Image: []byte{1}, RadarID: 2, TypeID: "3", Timestamp: now.Add(-5 * time.Minute), Filename: "IDR023.T.202311130355.png"},
	}
	n, err := s.InsertDataLayers(layers, models.KindRadarData, "IDR023", time.Time{})
	if err != nil {
		t.Fatalf("InsertDataLayers: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1", n)
	}

	// The tile is cached but the stream remains due.
	got, err := s.LatestDataLayers(2, "3", 10)
	if err != nil {
		t.Fatalf("LatestDataLayers: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("cached layers = %d, want 1", len(got))
	}
	due, err := s.IsDue(models.KindRadarData, "IDR023", 5*time.Minute, now)
	if err != nil {
		t.Fatalf("IsDue: %v", err)
	}
	if !due {
		t.Error("stream not due after a batch stored without a check time")
	}
	if last, err := s.LastChecked(models.KindRadarData, "IDR023"); err != nil {
		t.Fatalf("LastChecked: %v", err)
	} else if !last.IsZero() {
		t.Errorf("last checked = %v, want zero", last)
	}
}

func TestLatestDataLayersOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	seedRadar(t, s, 2)

	base := time.Date(2023, 11, 13, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		ts := base.Add(time.Duration(i) * 5 * time.Minute)
		_, err := s.InsertDataLayer(models.RadarDataLayer{
			Image: []byte{byte(i)}, RadarID: 2, TypeID: "3",
			Timestamp: ts,
			Filename:  radarName(ts),
		})
		if err != nil {
			t.Fatalf("inserting tile %d: %v", i, err)
		}
	}

	layers, err := s.LatestDataLayers(2, "3", 8)
	if err != nil {
		t.Fatalf("LatestDataLayers: %v", err)
	}
	if len(layers) != 8 {
		t.Fatalf("got %d layers, want 8", len(layers))
	}
	// Descending by timestamp, newest first.
	want := base.Add(11 * 5 * time.Minute)
	if !layers[0].Timestamp.Equal(want) {
		t.Errorf("first layer timestamp = %v, want %v", layers[0].Timestamp, want)
	}
	for i := 1; i < len(layers); i++ {
		if !layers[i].Timestamp.Before(layers[i-1].Timestamp) {
			t.Errorf("layers not descending at index %d", i)
		}
	}
}

func radarName(ts time.Time) string {
	return "IDR023.T." + ts.UTC().Format("200601021504") + ".png"
}

func TestPruneDataLayers(t *testing.T) {
	s := newTestStore(t)
	seedRadar(t, s, 2)

	base := time.Date(2023, 11, 13, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		ts := base.Add(time.Duration(i) * 5 * time.Minute)
		if _, err := s.InsertDataLayer(models.RadarDataLayer{
			Image: []byte{byte(i)}, RadarID: 2, TypeID: "3", Timestamp: ts, Filename: radarName(ts),
		}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.PruneDataLayers(2, "3", 6)
	if err != nil {
		t.Fatalf("PruneDataLayers: %v", err)
	}
	if removed != 4 {
		t.Errorf("removed = %d, want 4", removed)
	}

	layers, err := s.LatestDataLayers(2, "3", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(layers) != 6 {
		t.Errorf("got %d layers after prune, want 6", len(layers))
	}
	// The oldest survivor should be tile index 4.
	oldest := layers[len(layers)-1].Timestamp
	if !oldest.Equal(base.Add(4 * 5 * time.Minute)) {
		t.Errorf("oldest survivor = %v", oldest)
	}
}

func TestRecordObservationAtomicWithMarker(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertLocation(&models.Location{
		ID: "Canberra-r3dp5hh", Geohash: "r3dp5hh", Name: "Canberra",
		State: "ACT", Postcode: "2600", Timezone: "Australia/Sydney",
	}); err != nil {
		t.Fatalf("InsertLocation: %v", err)
	}

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal(models.Observation{Temp: 21.5, WindDirection: "NW"})

	if err := s.RecordObservation("Canberra-r3dp5hh", models.KindObservations, payload, now); err != nil {
		t.Fatalf("RecordObservation: %v", err)
	}

	snap, ok, err := s.GetSnapshot("Canberra-r3dp5hh", models.KindObservations)
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if !ok {
		t.Fatal("snapshot missing after RecordObservation")
	}
	var obs models.Observation
	if err := json.Unmarshal(snap.Payload, &obs); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if obs.Temp != 21.5 {
		t.Errorf("obs.Temp = %v, want 21.5", obs.Temp)
	}

	due, err := s.IsDue(models.KindObservations, "Canberra-r3dp5hh", 10*time.Minute, now.Add(5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if due {
		t.Error("observations due 5m after a successful record")
	}

	// Other kinds for the same location remain independently due.
	due, err = s.IsDue(models.KindDaily, "Canberra-r3dp5hh", 10*time.Minute, now)
	if err != nil {
		t.Fatal(err)
	}
	if !due {
		t.Error("daily should still be due")
	}
}

func TestGetLegendMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetLegend(1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	err = s.UpsertRadars(nil, []models.RadarLegend{{ID: 1, Image: []byte{1, 2}}})
	if err != nil {
		t.Fatalf("UpsertRadars: %v", err)
	}
	l, err := s.GetLegend(1)
	if err != nil {
		t.Fatalf("GetLegend after insert: %v", err)
	}
	if len(l.Image) != 2 {
		t.Errorf("legend image = %v", l.Image)
	}
}

func TestUpsertStationConflictIsIntegrityFault(t *testing.T) {
	s := newTestStore(t)
	st := models.Station{ID: 70351, DistrictID: "70", Name: "Canberra Airport", Start: 2008, Latitude: -35.31, Longitude: 149.2, State: "ACT"}
	if err := s.UpsertStations([]models.Station{st}); err != nil {
		t.Fatalf("UpsertStations: %v", err)
	}
	// Same ID again with identical data is a no-op.
	if err := s.UpsertStations([]models.Station{st}); err != nil {
		t.Fatalf("idempotent re-insert: %v", err)
	}
	// Same ID with different data must surface, not silently resolve.
	conflicting := st
	conflicting.Name = "Somewhere Else"
	err := s.UpsertStations([]models.Station{conflicting})
	if err == nil {
		t.Fatal("conflicting station insert did not error")
	}
	var f *faults.Fault
	if !errors.As(err, &f) || f.Kind != faults.KindIntegrity {
		t.Errorf("error kind = %v, want integrity", faults.KindOf(err))
	}
}

func TestInsertLocationForeignKey(t *testing.T) {
	s := newTestStore(t)
	missing := int64(99999)
	err := s.InsertLocation(&models.Location{
		ID: "Nowhere-abc1234", Geohash: "abc1234", StationID: &missing,
		Name: "Nowhere", State: "NSW", Postcode: "2000", Timezone: "Australia/Sydney",
	})
	if err == nil {
		t.Fatal("insert with dangling station_id did not error")
	}
	if !faults.IsKind(err, faults.KindIntegrity) {
		t.Errorf("error kind = %v, want integrity", faults.KindOf(err))
	}
}
