// Package loop renders cached radar imagery into an animated loop. Rendering
// never touches the network; everything comes from the cache store.
package loop

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"time"

	"github.com/bomcache/bomcache/internal/faults"
	"github.com/bomcache/bomcache/internal/models"
	"github.com/bomcache/bomcache/internal/radar"
	"github.com/bomcache/bomcache/internal/store"
)

// ErrNoData means the cache holds no tiles for the requested stream. Callers
// should poll before rendering.
var ErrNoData = errors.New("no cached radar data")

// headerHeight is the banner strip the provider bakes into the top of every
// data tile.
const headerHeight = 16

// Frame is one rendered loop frame.
type Frame struct {
	Image     *image.RGBA
	Timestamp time.Time
	Filename  string
}

// Options control how frames are composited.
type Options struct {
	// Features are the overlays to include, bottom to top. Defaults to the
	// standard set when empty.
	Features []radar.Feature
	// RemoveHeader blanks the banner strip baked into data tiles.
	RemoveHeader bool
}

// Compositor builds loop frames from cached layers.
type Compositor struct {
	store *store.Store
}

func NewCompositor(st *store.Store) *Compositor {
	return &Compositor{store: st}
}

// Render composites the newest loopLength tiles of a product's stream into
// frames ordered oldest first. Every frame stacks the same way: geographic
// overlays, then range rings, then the data tile, then the legend. Missing
// overlays are skipped; a cached layer whose dimensions disagree with the
// rest is a hard error naming the layer.
func (c *Compositor) Render(product radar.Product, loopLength int, opts Options) ([]Frame, error) {
	tiles, err := c.store.LatestDataLayers(product.RadarID, product.Type.ID(), loopLength)
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, product)
	}
	// LatestDataLayers returns newest first; loops play oldest first.
	for i, j := 0, len(tiles)-1; i < j; i, j = i+1, j-1 {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	}

	underlay, overlay, err := c.staticLayers(product, opts.Features)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, len(tiles))
	for _, tile := range tiles {
		decoded, err := decodeLayer(tile.Filename, tile.Image)
		if err != nil {
			return nil, err
		}
		img := toRGBA(decoded)
		if opts.RemoveHeader {
			clearHeader(img)
		}

		canvas, err := newCanvas(underlay, img)
		if err != nil {
			return nil, fmt.Errorf("data tile %s: %w", tile.Filename, err)
		}
		// Opaque base so translucent layers always blend onto something.
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		if underlay != nil {
			if err := compose(canvas, underlay, "underlay"); err != nil {
				return nil, err
			}
		}
		if err := compose(canvas, img, tile.Filename); err != nil {
			return nil, err
		}
		if overlay != nil {
			if err := compose(canvas, overlay, "legend"); err != nil {
				return nil, err
			}
		}

		frames = append(frames, Frame{Image: canvas, Timestamp: tile.Timestamp, Filename: tile.Filename})
	}
	return frames, nil
}

// staticLayers builds the two images shared by every frame: the underlay
// drawn below the data tile and the overlay drawn above it. Range rings sit
// on top of the other geographic layers so they stay visible; the legend is
// always the topmost layer.
func (c *Compositor) staticLayers(product radar.Product, features []radar.Feature) (underlay, overlay *image.RGBA, err error) {
	if len(features) == 0 {
		features = radar.DefaultFeatures
	}

	cached, err := c.store.FeatureLayers(product.RadarID, product.Type.Size().ID())
	if err != nil {
		return nil, nil, err
	}
	byFeature := make(map[string]models.RadarFeatureLayer, len(cached))
	for _, l := range cached {
		byFeature[l.Feature] = l
	}

	var stack []models.RadarFeatureLayer
	var rings *models.RadarFeatureLayer
	for _, f := range features {
		layer, ok := byFeature[string(f)]
		if !ok {
			slog.Warn("missing radar overlay, skipping", "product", product, "feature", f)
			continue
		}
		if f == radar.FeatureRange {
			rings = &layer
			continue
		}
		stack = append(stack, layer)
	}
	if rings != nil {
		stack = append(stack, *rings)
	}

	for _, layer := range stack {
		img, err := decodeLayer(layer.Filename, layer.Image)
		if err != nil {
			return nil, nil, err
		}
		if underlay == nil {
			underlay, err = newCanvas(nil, img)
			if err != nil {
				return nil, nil, err
			}
		}
		if err := compose(underlay, img, layer.Filename); err != nil {
			return nil, nil, err
		}
	}

	legend, err := c.store.GetLegend(product.Type.LegendID())
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("missing radar legend, skipping", "product", product, "legend", product.Type.LegendID())
		return underlay, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	name := fmt.Sprintf("IDR.legend.%d.png", legend.ID)
	img, err := decodeLayer(name, legend.Image)
	if err != nil {
		return nil, nil, err
	}
	overlay, err = newCanvas(underlay, img)
	if err != nil {
		return nil, nil, fmt.Errorf("legend %d: %w", legend.ID, err)
	}
	if err := compose(overlay, img, name); err != nil {
		return nil, nil, err
	}
	return underlay, overlay, nil
}

func decodeLayer(filename string, data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, faults.Decode(filename, err)
	}
	return img, nil
}

// newCanvas allocates a transparent canvas sized to the reference layer, or
// to img when no reference exists yet. A nil error return guarantees img
// fits the canvas.
func newCanvas(reference *image.RGBA, img image.Image) (*image.RGBA, error) {
	bounds := img.Bounds()
	if reference != nil && !bounds.Eq(reference.Bounds()) {
		ref := reference.Bounds()
		return nil, fmt.Errorf("layer is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), ref.Dx(), ref.Dy())
	}
	return image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy())), nil
}

// compose alpha-blends src onto dst. A size mismatch is an integrity problem
// naming the offending layer, never silent cropping.
func compose(dst *image.RGBA, src image.Image, name string) error {
	if !src.Bounds().Eq(dst.Bounds()) {
		sb, db := src.Bounds(), dst.Bounds()
		return faults.Integrity(name, fmt.Errorf("layer %s is %dx%d, want %dx%d", name, sb.Dx(), sb.Dy(), db.Dx(), db.Dy()))
	}
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	return nil
}

// toRGBA copies a decoded image into an RGBA buffer so pixels can be edited
// regardless of the source PNG's colour model.
func toRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}

// clearHeader blanks the provider's banner strip to transparent so the
// underlay shows through.
func clearHeader(img *image.RGBA) {
	bounds := img.Bounds()
	bottom := bounds.Min.Y + headerHeight
	if bottom > bounds.Max.Y {
		bottom = bounds.Max.Y
	}
	strip := image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bottom)
	draw.Draw(img, strip, image.Transparent, image.Point{}, draw.Src)
}
