package radar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Type is a radar product type. The single-character ID is how the Bureau
// encodes the type in image filenames (e.g. the "3" in IDR023).
type Type string

const (
	Type64km    Type = "64km"
	Type128km   Type = "128km"
	Type256km   Type = "256km"
	Type512km   Type = "512km"
	TypeDoppler Type = "doppler"
	Type5Min    Type = "5min"
	Type1Hour   Type = "1hour"
	TypeSince9  Type = "since9"
	Type24Hour  Type = "24hour"
)

var typeIDs = map[Type]string{
	Type512km:   "1",
	Type256km:   "2",
	Type128km:   "3",
	Type64km:    "4",
	TypeDoppler: "I",
	Type5Min:    "A",
	Type1Hour:   "B",
	TypeSince9:  "C",
	Type24Hour:  "D",
}

// ID returns the type's single-character filename code.
func (t Type) ID() string { return typeIDs[t] }

// Valid reports whether t is a known product type.
func (t Type) Valid() bool {
	_, ok := typeIDs[t]
	return ok
}

// TypeFromID resolves a filename code back to a Type.
func TypeFromID(id string) (Type, error) {
	for t, c := range typeIDs {
		if c == id {
			return t, nil
		}
	}
	return "", fmt.Errorf("%q is not a valid radar type ID", id)
}

// Size returns the type whose feature layers this type renders over. The
// doppler and accumulation products reuse the 128km overlays.
func (t Type) Size() Type {
	switch t {
	case TypeDoppler, Type5Min, Type1Hour, TypeSince9, Type24Hour:
		return Type128km
	default:
		return t
	}
}

// UpdateInterval is how often the Bureau publishes a new tile for this type.
func (t Type) UpdateInterval() time.Duration {
	switch t {
	case TypeSince9:
		return 15 * time.Minute
	case Type24Hour:
		return 24 * time.Hour
	default:
		return 5 * time.Minute
	}
}

// CheckDelay accommodates the lag between a tile's timestamp and when it
// appears on the archive.
func (t Type) CheckDelay() time.Duration {
	switch t {
	case TypeSince9:
		return 15 * time.Minute
	case Type24Hour:
		return 10 * time.Minute
	default:
		return 2 * time.Minute
	}
}

// LegendIDs enumerates the static legend classes the archive publishes:
// rainfall rate, accumulation and doppler wind.
var LegendIDs = []int64{0, 1, 2}

// LegendID returns which of the three static legends this type composites.
func (t Type) LegendID() int64 {
	switch t {
	case TypeDoppler:
		return 2
	case Type5Min, Type1Hour, TypeSince9, Type24Hour:
		return 1
	default:
		return 0
	}
}

// Feature is a static geographical overlay available for each radar.
type Feature string

// Ordered bottom-to-top as the Bureau's radar viewer stacks them.
const (
	FeatureBackground Feature = "background"
	FeatureTopography Feature = "topography"
	FeatureRange      Feature = "range"
	FeatureWaterways  Feature = "waterways"
	FeatureRoads      Feature = "roads"
	FeatureDistricts  Feature = "wthrDistricts"
	FeatureRail       Feature = "rail"
	FeatureCatchments Feature = "catchments"
	FeatureLocations  Feature = "locations"
)

// AllFeatures lists every overlay the archive publishes, in stacking order.
var AllFeatures = []Feature{
	FeatureBackground, FeatureTopography, FeatureRange, FeatureWaterways,
	FeatureRoads, FeatureDistricts, FeatureRail, FeatureCatchments,
	FeatureLocations,
}

// DefaultFeatures are the overlays composited when none are configured.
var DefaultFeatures = []Feature{
	FeatureBackground, FeatureTopography, FeatureRange, FeatureLocations,
}

// timestampLayout is the capture time format embedded in data tile filenames.
const timestampLayout = "200601021504"

// Product identifies one (radar, type) image stream, e.g. IDR023.
type Product struct {
	RadarID int64
	Type    Type
}

func (p Product) String() string {
	return fmt.Sprintf("IDR%02d%s", p.RadarID, p.Type.ID())
}

// DataFilename returns the archive filename for a capture time, e.g.
// IDR023.T.202311130334.png.
func (p Product) DataFilename(ts time.Time) string {
	return fmt.Sprintf("%s.T.%s.png", p, ts.UTC().Format(timestampLayout))
}

// FeatureFilename returns the archive filename of a static overlay, e.g.
// IDR023.locations.png. Overlays only exist for the base range types.
func (p Product) FeatureFilename(f Feature) string {
	return fmt.Sprintf("IDR%02d%s.%s.png", p.RadarID, p.Type.Size().ID(), f)
}

// ParseDataFilename extracts the product and capture time from a data tile
// filename. The filename is the canonical source of a tile's capture time.
func ParseDataFilename(name string) (Product, time.Time, error) {
	prefix, rest, err := splitName(name)
	if err != nil {
		return Product{}, time.Time{}, err
	}
	if !strings.HasPrefix(rest, "T.") {
		return Product{}, time.Time{}, fmt.Errorf("%q is not a radar data filename", name)
	}
	ts, err := time.ParseInLocation(timestampLayout, strings.TrimPrefix(rest, "T."), time.UTC)
	if err != nil {
		return Product{}, time.Time{}, fmt.Errorf("%q has no parseable timestamp: %w", name, err)
	}
	return prefix, ts, nil
}

// ParseFeatureFilename extracts the product and feature from an overlay
// filename such as IDR023.catchments.png.
func ParseFeatureFilename(name string) (Product, Feature, error) {
	prefix, rest, err := splitName(name)
	if err != nil {
		return Product{}, "", err
	}
	for _, f := range AllFeatures {
		if rest == string(f) {
			return prefix, f, nil
		}
	}
	return Product{}, "", fmt.Errorf("%q is not a known radar feature", rest)
}

// splitName parses the IDRnnX prefix common to all radar image filenames and
// returns the remaining middle section with the .png suffix removed.
func splitName(name string) (Product, string, error) {
	base, ok := strings.CutSuffix(name, ".png")
	if !ok {
		return Product{}, "", fmt.Errorf("%q is not a radar image filename", name)
	}
	prefix, rest, ok := strings.Cut(base, ".")
	if !ok || !strings.HasPrefix(prefix, "IDR") || len(prefix) != 6 {
		return Product{}, "", fmt.Errorf("%q is not a radar image filename", name)
	}
	id, err := strconv.ParseInt(prefix[3:5], 10, 64)
	if err != nil {
		return Product{}, "", fmt.Errorf("%q has no radar ID: %w", name, err)
	}
	t, err := TypeFromID(prefix[5:6])
	if err != nil {
		return Product{}, "", err
	}
	return Product{RadarID: id, Type: t}, rest, nil
}
