package radar

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/store"
)

// Archive is the subset of the provider's file server the fetcher needs.
// Satisfied by the FTP client; tests use an in-memory fake.
type Archive interface {
	ListDataTiles(ctx context.Context) ([]string, error)
	FetchDataTile(ctx context.Context, filename string) ([]byte, error)
	FetchFeatureLayer(ctx context.Context, product Product, feature Feature) (models.RadarFeatureLayer, error)
}

// Failure records one tile that could not be cached during a batch.
type Failure struct {
	Filename string
	Err      error
}

// BatchResult summarises one polling pass over a product's image stream.
type BatchResult struct {
	// Listed is how many archive files matched the product prefix.
	Listed int
	// New is how many tiles were downloaded and cached this pass.
	New int
	// Failed tiles are skipped, not fatal; the rest of the batch lands.
	Failed   int
	Failures []Failure
}

// Fetcher pulls radar imagery from the archive into the cache store.
type Fetcher struct {
	archive Archive
	store   *store.Store
	clock   clockwork.Clock
}

func NewFetcher(archive Archive, st *store.Store, clock clockwork.Clock) *Fetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Fetcher{archive: archive, store: st, clock: clock}
}

// FetchNewDataLayers lists the archive, downloads every tile of the product's
// stream not already cached, and stores the batch. Individual download or
// parse failures are reported in the result and do not abort the batch. The
// freshness marker for the stream advances only when every item landed, even
// when nothing new appeared; a batch with failures leaves the stream due so
// the next cycle retries the missed tiles.
func (f *Fetcher) FetchNewDataLayers(ctx context.Context, product Product, limit int) (BatchResult, error) {
	var result BatchResult

	names, err := f.archive.ListDataTiles(ctx)
	if err != nil {
		return result, err
	}

	known, err := f.store.DataLayerFilenames(product.RadarID, product.Type.ID())
	if err != nil {
		return result, err
	}

	prefix := product.String() + "."
	type candidate struct {
		filename string
		ts       time.Time
	}
	var todo []candidate
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		result.Listed++
		if known[name] {
			continue
		}
		_, ts, err := ParseDataFilename(name)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{Filename: name, Err: err})
			continue
		}
		todo = append(todo, candidate{filename: name, ts: ts})
	}
	if result.Listed == 0 {
		slog.Warn("no archive images for product; some radars have limited data", "product", product)
	}

	sort.Slice(todo, func(i, j int) bool { return todo[i].ts.Before(todo[j].ts) })
	if limit > 0 && len(todo) > limit {
		todo = todo[len(todo)-limit:]
	}

	var layers []models.RadarDataLayer
	for _, c := range todo {
		body, err := f.archive.FetchDataTile(ctx, c.filename)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, Failure{Filename: c.filename, Err: err})
			continue
		}
		layers = append(layers, models.RadarDataLayer{
			Image:     body,
			RadarID:   product.RadarID,
			TypeID:    product.Type.ID(),
			Timestamp: c.ts,
			Filename:  c.filename,
		})
	}

	checkedAt := f.clock.Now()
	if result.Failed > 0 {
		checkedAt = time.Time{}
	}
	inserted, err := f.store.InsertDataLayers(layers, models.KindRadarData, product.String(), checkedAt)
	if err != nil {
		return result, err
	}
	result.New = inserted
	slog.Debug("radar batch complete", "product", product, "listed", result.Listed, "new", result.New, "failed", result.Failed)
	return result, nil
}

// SyncFeatureLayers returns the static overlays for a product, downloading
// and caching them on first use. Overlays refresh only through explicit
// invalidation, never on the polling cycle.
func (f *Fetcher) SyncFeatureLayers(ctx context.Context, product Product, features []Feature) ([]models.RadarFeatureLayer, error) {
	if len(features) == 0 {
		features = DefaultFeatures
	}
	cached, err := f.store.FeatureLayers(product.RadarID, product.Type.Size().ID())
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		return selectFeatures(cached, features), nil
	}

	layers := make([]models.RadarFeatureLayer, 0, len(AllFeatures))
	for _, feature := range AllFeatures {
		layer, err := f.archive.FetchFeatureLayer(ctx, product, feature)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
	}
	if err := f.store.InsertFeatureLayers(layers); err != nil {
		return nil, err
	}
	if err := f.store.MarkChecked(models.KindRadarFeature, product.String(), f.clock.Now()); err != nil {
		return nil, err
	}
	return selectFeatures(layers, features), nil
}

// InvalidateFeatureLayers drops the cached overlays so the next sync
// downloads fresh copies.
func (f *Fetcher) InvalidateFeatureLayers(product Product) error {
	return f.store.DeleteFeatureLayers(product.RadarID, product.Type.Size().ID())
}

// selectFeatures filters cached overlays down to the requested set, keeping
// stacking order.
func selectFeatures(layers []models.RadarFeatureLayer, features []Feature) []models.RadarFeatureLayer {
	wanted := make(map[string]int, len(features))
	for i, f := range features {
		wanted[string(f)] = i
	}
	var out []models.RadarFeatureLayer
	for _, l := range layers {
		if _, ok := wanted[l.Feature]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return wanted[out[i].Feature] < wanted[out[j].Feature] })
	return out
}
