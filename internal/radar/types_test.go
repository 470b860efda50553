package radar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductString(t *testing.T) {
	tests := []struct {
		radarID int64
		typ     Type
		want    string
	}{
		{2, Type128km, "IDR023"},
		{2, Type512km, "IDR021"},
		{40, Type64km, "IDR404"},
		{2, TypeDoppler, "IDR02I"},
		{2, TypeSince9, "IDR02C"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Product{RadarID: tt.radarID, Type: tt.typ}.String())
	}
}

func TestDataFilenameRoundTrip(t *testing.T) {
	product := Product{RadarID: 2, Type: Type128km}
	ts := time.Date(2023, 11, 13, 3, 34, 0, 0, time.UTC)

	name := product.DataFilename(ts)
	assert.Equal(t, "IDR023.T.202311130334.png", name)

	gotProduct, gotTS, err := ParseDataFilename(name)
	require.NoError(t, err)
	assert.Equal(t, product, gotProduct)
	assert.True(t, ts.Equal(gotTS))
}

func TestParseDataFilenameRejectsGarbage(t *testing.T) {
	for _, name := range []string{
		"",
		"IDR023.T.202311130334",       // no extension
		"IDR023.locations.png",        // feature layer, not data
		"IDR02X.T.202311130334.png",   // unknown type code
		"IDRab3.T.202311130334.png",   // non-numeric radar ID
		"IDR023.T.2023111303.png",     // short timestamp
		"notaradar.T.202311130334.png",
	} {
		_, _, err := ParseDataFilename(name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestFeatureFilenameUsesBaseRangeType(t *testing.T) {
	// Doppler and accumulation overlays come from the 128km set.
	doppler := Product{RadarID: 2, Type: TypeDoppler}
	assert.Equal(t, "IDR023.locations.png", doppler.FeatureFilename(FeatureLocations))

	base := Product{RadarID: 2, Type: Type256km}
	assert.Equal(t, "IDR022.range.png", base.FeatureFilename(FeatureRange))
}

func TestParseFeatureFilename(t *testing.T) {
	product, feature, err := ParseFeatureFilename("IDR023.catchments.png")
	require.NoError(t, err)
	assert.Equal(t, Product{RadarID: 2, Type: Type128km}, product)
	assert.Equal(t, FeatureCatchments, feature)

	_, _, err = ParseFeatureFilename("IDR023.volcanoes.png")
	assert.Error(t, err)
}

func TestTypeIntervals(t *testing.T) {
	assert.Equal(t, 5*time.Minute, Type128km.UpdateInterval())
	assert.Equal(t, 15*time.Minute, TypeSince9.UpdateInterval())
	assert.Equal(t, 24*time.Hour, Type24Hour.UpdateInterval())
	assert.Equal(t, 2*time.Minute, Type128km.CheckDelay())
}

func TestTypeLegendID(t *testing.T) {
	assert.Equal(t, int64(0), Type128km.LegendID())
	assert.Equal(t, int64(1), Type1Hour.LegendID())
	assert.Equal(t, int64(2), TypeDoppler.LegendID())
}

func TestTypeFromID(t *testing.T) {
	for typ, id := range typeIDs {
		got, err := TypeFromID(id)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := TypeFromID("Z")
	assert.Error(t, err)
}
