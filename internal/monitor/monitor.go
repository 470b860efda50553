// Package monitor runs the polling loop that keeps the cache fresh. One
// sequential loop evaluates every tracked resource, fetches what is due, and
// sleeps until the earliest next due time.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/radar"
	"github.com/bomcache/bomcache/internal/store"
)

// State is the scheduler's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateChecking
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// retryDelay floors the sleep when a resource stays due after a failed check,
// so the loop cannot spin.
const retryDelay = time.Minute

// WeatherClient is the slice of the API client the scheduler needs.
type WeatherClient interface {
	GetObservation(ctx context.Context, geohash string) (*models.Observation, error)
	GetDaily(ctx context.Context, geohash string) (*models.DailyForecast, error)
	GetHourly(ctx context.Context, geohash string) (*models.HourlyForecast, error)
	GetWarnings(ctx context.Context, geohash string) ([]models.Warning, error)
}

// RadarFetcher pulls new tiles for one product stream.
type RadarFetcher interface {
	FetchNewDataLayers(ctx context.Context, product radar.Product, limit int) (radar.BatchResult, error)
}

// Keepaliver is optionally consulted between cycles so long-lived archive
// connections survive idle periods.
type Keepaliver interface {
	Keepalive() error
}

// Config wires the scheduler to one location and its radar streams.
type Config struct {
	Location *models.Location
	// Intervals keys weather resource kinds to their polling interval.
	Intervals map[models.ResourceKind]time.Duration
	// Products are the radar streams to keep fresh.
	Products []radar.Product
	// Retention is how many tiles per stream survive pruning; zero disables
	// pruning.
	Retention int
	// PollCeiling caps the sleep between cycles.
	PollCeiling time.Duration
}

// Scheduler keeps one location's weather and radar resources fresh.
type Scheduler struct {
	store     *store.Store
	client    WeatherClient
	fetcher   RadarFetcher
	keepalive Keepaliver
	clock     clockwork.Clock
	cfg       Config

	state atomic.Int32
}

func New(st *store.Store, client WeatherClient, fetcher RadarFetcher, cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{store: st, client: client, fetcher: fetcher, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	return s
}

type Option func(*Scheduler)

// WithClock injects a clock, for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithKeepalive registers a connection to nudge between cycles.
func WithKeepalive(k Keepaliver) Option {
	return func(s *Scheduler) { s.keepalive = k }
}

// State reports the current lifecycle phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// WeatherKinds are the per-location resources polled for a location, in
// check order.
var WeatherKinds = []models.ResourceKind{
	models.KindObservations, models.KindDaily, models.KindHourly, models.KindWarnings,
}

// FetchWeather fetches one weather resource for a location and returns the
// JSON payload to cache. The scheduler and one-shot --check readers both go
// through here so the two paths cannot drift.
func FetchWeather(ctx context.Context, client WeatherClient, loc *models.Location, kind models.ResourceKind) (json.RawMessage, error) {
	geohash := loc.SearchGeohash()
	var payload any
	var err error
	switch kind {
	case models.KindObservations:
		payload, err = client.GetObservation(ctx, geohash)
	case models.KindDaily:
		payload, err = client.GetDaily(ctx, geohash)
	case models.KindHourly:
		payload, err = client.GetHourly(ctx, geohash)
	case models.KindWarnings:
		payload, err = client.GetWarnings(ctx, geohash)
	default:
		return nil, fmt.Errorf("unknown weather resource %q", kind)
	}
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", kind, err)
	}
	return encoded, nil
}

// resource is one independently polled item.
type resource struct {
	kind     models.ResourceKind
	key      string
	interval time.Duration
	fetch    func(context.Context) error
}

func (s *Scheduler) resources() []resource {
	var out []resource
	if loc := s.cfg.Location; loc != nil {
		for _, kind := range WeatherKinds {
			kind := kind
			out = append(out, resource{
				kind:     kind,
				key:      loc.ID,
				interval: s.interval(kind),
				fetch: func(ctx context.Context) error {
					payload, err := FetchWeather(ctx, s.client, loc, kind)
					if err != nil {
						return err
					}
					return s.store.RecordObservation(loc.ID, kind, payload, s.clock.Now())
				},
			})
		}
	}
	for _, product := range s.cfg.Products {
		product := product
		out = append(out, resource{
			kind:     models.KindRadarData,
			key:      product.String(),
			interval: product.Type.UpdateInterval() + product.Type.CheckDelay(),
			fetch: func(ctx context.Context) error {
				res, err := s.fetcher.FetchNewDataLayers(ctx, product, 0)
				if err != nil {
					return err
				}
				for _, f := range res.Failures {
					slog.Warn("tile fetch failed", "product", product.String(), "filename", f.Filename, "error", f.Err)
				}
				if s.cfg.Retention > 0 {
					if _, err := s.store.PruneDataLayers(product.RadarID, product.Type.ID(), s.cfg.Retention); err != nil {
						return err
					}
				}
				return nil
			},
		})
	}
	return out
}

func (s *Scheduler) interval(kind models.ResourceKind) time.Duration {
	if d, ok := s.cfg.Intervals[kind]; ok {
		return d
	}
	return 10 * time.Minute
}

// CheckOnce evaluates every resource, fetches the due ones, and returns when
// the next check is worth running. A failed fetch leaves its resource due;
// the returned time is floored so failures retry after a short delay rather
// than immediately.
func (s *Scheduler) CheckOnce(ctx context.Context) (time.Time, error) {
	now := s.clock.Now()
	next := now.Add(s.pollCeiling())
	var firstErr error

	for _, r := range s.resources() {
		if err := ctx.Err(); err != nil {
			return next, err
		}
		due, err := s.store.IsDue(r.kind, r.key, r.interval, now)
		if err != nil {
			return next, err
		}
		if due {
			slog.Debug("resource due", "kind", r.kind, "key", r.key)
			if err := r.fetch(ctx); err != nil {
				slog.Warn("check failed; resource stays due", "kind", r.kind, "key", r.key, "error", err)
				if firstErr == nil {
					firstErr = err
				}
				if t := now.Add(retryDelay); t.Before(next) {
					next = t
				}
				continue
			}
		}
		checked, err := s.store.LastChecked(r.kind, r.key)
		if err != nil {
			return next, err
		}
		if t := checked.Add(r.interval); t.Before(next) {
			next = t
		}
	}

	if floor := now.Add(retryDelay); next.Before(floor) {
		next = floor
	}
	return next, firstErr
}

func (s *Scheduler) pollCeiling() time.Duration {
	if s.cfg.PollCeiling > 0 {
		return s.cfg.PollCeiling
	}
	return 5 * time.Minute
}

// Run polls until the context is cancelled. Check failures are logged and
// retried on the next cycle; they never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.state.Store(int32(StateStopped))

	for {
		s.state.Store(int32(StateChecking))
		next, err := s.CheckOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			slog.Warn("monitor cycle had failures", "error", err)
		}
		if s.keepalive != nil {
			if err := s.keepalive.Keepalive(); err != nil {
				slog.Debug("keepalive failed", "error", err)
			}
		}

		s.state.Store(int32(StateSleeping))
		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		slog.Debug("monitor sleeping", "until", next, "for", wait)
		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.Chan():
		}
	}
}
