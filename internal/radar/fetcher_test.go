package radar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/store"
)

// fakeArchive serves tiles and overlays from memory and records downloads.
type fakeArchive struct {
	tiles     map[string][]byte
	broken    map[string]bool
	downloads []string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{tiles: make(map[string][]byte), broken: make(map[string]bool)}
}

func (a *fakeArchive) ListDataTiles(context.Context) ([]string, error) {
	names := make([]string, 0, len(a.tiles))
	for name := range a.tiles {
		names = append(names, name)
	}
	return names, nil
}

func (a *fakeArchive) FetchDataTile(_ context.Context, filename string) ([]byte, error) {
	if a.broken[filename] {
		return nil, errors.New("connection reset")
	}
	body, ok := a.tiles[filename]
	if !ok {
		return nil, errors.New("550 not found")
	}
	a.downloads = append(a.downloads, filename)
	return body, nil
}

func (a *fakeArchive) FetchFeatureLayer(_ context.Context, product Product, feature Feature) (models.RadarFeatureLayer, error) {
	filename := product.FeatureFilename(feature)
	if a.broken[filename] {
		return models.RadarFeatureLayer{}, errors.New("connection reset")
	}
	a.downloads = append(a.downloads, filename)
	return models.RadarFeatureLayer{
		RadarID:  product.RadarID,
		TypeID:   product.Type.Size().ID(),
		Feature:  string(feature),
		Filename: filename,
		Image:    []byte(filename),
	}, nil
}

func newFetcherTest(t *testing.T) (*Fetcher, *fakeArchive, *store.Store, *clockwork.FakeClock) {
	t.Helper()
	st, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.UpsertRadars([]models.Radar{{ID: 2, Name: "Melbourne", FullName: "Melbourne (Laverton)"}}, nil))

	archive := newFakeArchive()
	clock := clockwork.NewFakeClockAt(time.Date(2023, 11, 13, 4, 0, 0, 0, time.UTC))
	return NewFetcher(archive, st, clock), archive, st, clock
}

func addTiles(a *fakeArchive, product Product, base time.Time, count int) {
	for i := 0; i < count; i++ {
		name := product.DataFilename(base.Add(time.Duration(i) * 5 * time.Minute))
		a.tiles[name] = []byte(name)
	}
}

func TestFetchNewDataLayers(t *testing.T) {
	fetcher, archive, st, clock := newFetcherTest(t)
	product := Product{RadarID: 2, Type: Type128km}
	base := time.Date(2023, 11, 13, 3, 0, 0, 0, time.UTC)
	addTiles(archive, product, base, 3)
	// Noise from other streams is ignored.
	archive.tiles["IDR023.locations.png"] = []byte("x")
	archive.tiles["IDR633.T.202311130300.png"] = []byte("x")

	result, err := fetcher.FetchNewDataLayers(context.Background(), product, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Listed)
	assert.Equal(t, 3, result.New)
	assert.Equal(t, 0, result.Failed)

	layers, err := st.LatestDataLayers(2, Type128km.ID(), 10)
	require.NoError(t, err)
	require.Len(t, layers, 3)

	// A second pass sees nothing new but still counts as a check.
	result, err = fetcher.FetchNewDataLayers(context.Background(), product, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, result.New)
	due, err := st.IsDue(models.KindRadarData, product.String(), 5*time.Minute, clock.Now())
	require.NoError(t, err)
	assert.False(t, due)
}

func TestFetchNewDataLayersSkipsKnown(t *testing.T) {
	fetcher, archive, _, _ := newFetcherTest(t)
	product := Product{RadarID: 2, Type: Type128km}
	base := time.Date(2023, 11, 13, 3, 0, 0, 0, time.UTC)
	addTiles(archive, product, base, 2)

	_, err := fetcher.FetchNewDataLayers(context.Background(), product, 0)
	require.NoError(t, err)
	downloaded := len(archive.downloads)

	// One fresh tile appears; only it gets downloaded.
	addTiles(archive, product, base.Add(10*time.Minute), 1)
	result, err := fetcher.FetchNewDataLayers(context.Background(), product, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.New)
	assert.Len(t, archive.downloads, downloaded+1)
}

func TestFetchNewDataLayersPartialFailure(t *testing.T) {
	fetcher, archive, st, clock := newFetcherTest(t)
	product := Product{RadarID: 2, Type: Type128km}
	base := time.Date(2023, 11, 13, 3, 0, 0, 0, time.UTC)
	addTiles(archive, product, base, 3)
	broken := product.DataFilename(base.Add(5 * time.Minute))
	archive.broken[broken] = true

	result, err := fetcher.FetchNewDataLayers(context.Background(), product, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.New)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, broken, result.Failures[0].Filename)

	// The rest of the batch landed despite the failure.
	layers, err := st.LatestDataLayers(2, Type128km.ID(), 10)
	require.NoError(t, err)
	assert.Len(t, layers, 2)

	// A batch with a failed item must not advance the stream's marker; the
	// next cycle retries the missed tile instead of waiting out the interval.
	due, err := st.IsDue(models.KindRadarData, product.String(), 5*time.Minute, clock.Now())
	require.NoError(t, err)
	assert.True(t, due)

	// Once the tile downloads cleanly the marker advances.
	archive.broken = map[string]bool{}
	result, err = fetcher.FetchNewDataLayers(context.Background(), product, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.New)
	assert.Equal(t, 0, result.Failed)
	due, err = st.IsDue(models.KindRadarData, product.String(), 5*time.Minute, clock.Now())
	require.NoError(t, err)
	assert.False(t, due)
}

func TestFetchNewDataLayersUnparseableFilename(t *testing.T) {
	fetcher, archive, _, _ := newFetcherTest(t)
	product := Product{RadarID: 2, Type: Type128km}
	archive.tiles["IDR023.T.notatimestamp.png"] = []byte("x")

	result, err := fetcher.FetchNewDataLayers(context.Background(), product, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Listed)
	assert.Equal(t, 0, result.New)
	assert.Equal(t, 1, result.Failed)
}

func TestFetchNewDataLayersLimitKeepsNewest(t *testing.T) {
	fetcher, archive, st, _ := newFetcherTest(t)
	product := Product{RadarID: 2, Type: Type128km}
	base := time.Date(2023, 11, 13, 3, 0, 0, 0, time.UTC)
	addTiles(archive, product, base, 6)

	result, err := fetcher.FetchNewDataLayers(context.Background(), product, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.New)

	layers, err := st.LatestDataLayers(2, Type128km.ID(), 10)
	require.NoError(t, err)
	require.Len(t, layers, 2)
	// The two newest capture times survive the cut.
	assert.True(t, layers[0].Timestamp.Equal(base.Add(25*time.Minute)))
	assert.True(t, layers[1].Timestamp.Equal(base.Add(20*time.Minute)))
}

func TestSyncFeatureLayersDownloadsOnce(t *testing.T) {
	fetcher, archive, _, _ := newFetcherTest(t)
	product := Product{RadarID: 2, Type: Type128km}

	layers, err := fetcher.SyncFeatureLayers(context.Background(), product, DefaultFeatures)
	require.NoError(t, err)
	require.Len(t, layers, len(DefaultFeatures))
	// The full overlay set is cached even when fewer were requested.
	assert.Len(t, archive.downloads, len(AllFeatures))

	// Cached on the second call.
	archive.downloads = nil
	layers, err = fetcher.SyncFeatureLayers(context.Background(), product, DefaultFeatures)
	require.NoError(t, err)
	require.Len(t, layers, len(DefaultFeatures))
	assert.Empty(t, archive.downloads)
}

func TestSyncFeatureLayersStackingOrder(t *testing.T) {
	fetcher, _, _, _ := newFetcherTest(t)
	product := Product{RadarID: 2, Type: Type128km}

	layers, err := fetcher.SyncFeatureLayers(context.Background(), product, []Feature{FeatureLocations, FeatureBackground})
	require.NoError(t, err)
	require.Len(t, layers, 2)
	// Requested order wins: callers pass features bottom-to-top.
	assert.Equal(t, string(FeatureLocations), layers[0].Feature)
	assert.Equal(t, string(FeatureBackground), layers[1].Feature)
}

func TestInvalidateFeatureLayers(t *testing.T) {
	fetcher, archive, _, _ := newFetcherTest(t)
	product := Product{RadarID: 2, Type: TypeDoppler}

	_, err := fetcher.SyncFeatureLayers(context.Background(), product, nil)
	require.NoError(t, err)
	require.NoError(t, fetcher.InvalidateFeatureLayers(product))

	archive.downloads = nil
	_, err = fetcher.SyncFeatureLayers(context.Background(), product, nil)
	require.NoError(t, err)
	assert.Len(t, archive.downloads, len(AllFeatures))
}

func ExampleProduct_String() {
	fmt.Println(Product{RadarID: 2, Type: Type128km})
	// Output: IDR023
}
