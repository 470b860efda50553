package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/bomcache/bomcache/internal/bom"
	"github.com/bomcache/bomcache/internal/config"
	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/monitor"
	"github.com/bomcache/bomcache/internal/radar"
	"github.com/bomcache/bomcache/internal/store"
)

// app bundles the store and API client the commands share.
type app struct {
	cfg    *config.Config
	store  *store.Store
	client *bom.Client
}

func openApp() (*app, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, store: st, client: bom.NewClient(cfg.Client)}, nil
}

func (a *app) Close() error { return a.store.Close() }

// location loads the configured location from the cache.
func (a *app) location() (*models.Location, error) {
	if a.cfg.Location == "" {
		return nil, fmt.Errorf("no location configured; run bomcache init <search-term> first")
	}
	return a.store.GetLocation(a.cfg.Location)
}

// refresh fetches one weather resource for the location and caches it. With
// force unset, a resource inside its polling interval is left alone.
func (a *app) refresh(ctx context.Context, loc *models.Location, kind models.ResourceKind, force bool) error {
	if !force {
		due, err := a.store.IsDue(kind, loc.ID, a.cfg.IntervalFor(string(kind)), time.Now())
		if err != nil {
			return err
		}
		if !due {
			return nil
		}
	}

	payload, err := monitor.FetchWeather(ctx, a.client, loc, kind)
	if err != nil {
		return err
	}
	return a.store.RecordObservation(loc.ID, kind, payload, time.Now())
}

// snapshot decodes the cached payload for one resource kind. ok is false
// when nothing has been cached yet.
func snapshot[T any](a *app, locationID string, kind models.ResourceKind) (T, bool, error) {
	var out T
	snap, ok, err := a.store.GetSnapshot(locationID, kind)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(snap.Payload, &out); err != nil {
		return out, false, fmt.Errorf("decoding cached %s: %w", kind, err)
	}
	return out, true, nil
}

// products expands the configured radar ID and range types into product
// streams.
func (a *app) products() ([]radar.Product, error) {
	if a.cfg.Radar.ID == 0 {
		return nil, fmt.Errorf("no radar configured; run bomcache init first")
	}
	var products []radar.Product
	for _, t := range a.cfg.Radar.Types {
		typ := radar.Type(t)
		if !typ.Valid() {
			return nil, fmt.Errorf("unknown radar type %q", t)
		}
		products = append(products, radar.Product{RadarID: a.cfg.Radar.ID, Type: typ})
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no radar types configured")
	}
	return products, nil
}

func (a *app) features() ([]radar.Feature, error) {
	var features []radar.Feature
	for _, name := range a.cfg.Radar.Features {
		f := radar.Feature(name)
		valid := false
		for _, known := range radar.AllFeatures {
			if f == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("unknown radar feature %q", name)
		}
		features = append(features, f)
	}
	return features, nil
}

// intervals builds the per-kind polling intervals for the scheduler.
func (a *app) intervals() map[models.ResourceKind]time.Duration {
	return map[models.ResourceKind]time.Duration{
		models.KindObservations: a.cfg.Interval.Observations,
		models.KindDaily:        a.cfg.Interval.Daily,
		models.KindHourly:       a.cfg.Interval.Hourly,
		models.KindWarnings:     a.cfg.Interval.Warnings,
	}
}

// nearestRadar picks the closest group radar site to a point. Group sites
// publish the full set of range composites.
func nearestRadar(radars []models.Radar, lat, lon float64) (*models.Radar, error) {
	var best *models.Radar
	bestDist := math.Inf(1)
	for i := range radars {
		r := &radars[i]
		if !r.Group {
			continue
		}
		d := haversine(lat, lon, r.Latitude, r.Longitude)
		if d < bestDist {
			best, bestDist = r, d
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no group radar sites in catalog")
	}
	return best, nil
}

// haversine returns the great-circle distance between two points in km.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
