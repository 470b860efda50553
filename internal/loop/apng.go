package loop

import (
	"fmt"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/kettek/apng"

	"github.com/bomcache/bomcache/internal/radar"
)

// timestampLayout matches the capture time format in tile filenames.
const timestampLayout = "200601021504"

// Encode writes the frames as an animated PNG with a uniform per-frame delay.
// The output is byte-deterministic for the same frames and delay: no
// timestamps or variable metadata go into the stream.
func Encode(w io.Writer, frames []Frame, delay time.Duration) error {
	if len(frames) == 0 {
		return ErrNoData
	}
	num, den := delayFraction(delay)
	out := apng.APNG{Frames: make([]apng.Frame, len(frames))}
	for i, f := range frames {
		out.Frames[i] = apng.Frame{
			Image:            f.Image,
			DelayNumerator:   num,
			DelayDenominator: den,
		}
	}
	return apng.Encode(w, out)
}

// delayFraction converts a frame delay to the APNG delay fraction. The wire
// format holds the numerator in 16 bits, so delays clamp to 0..65535 ms.
func delayFraction(delay time.Duration) (num, den uint16) {
	ms := delay.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	return uint16(ms), 1000
}

// LoopFilename names an animation after its product and time span, e.g.
// IDR023.T.202311130300-202311130355.png.
func LoopFilename(product radar.Product, frames []Frame) string {
	first := frames[0].Timestamp.UTC().Format(timestampLayout)
	last := frames[len(frames)-1].Timestamp.UTC().Format(timestampLayout)
	return fmt.Sprintf("%s.T.%s-%s.png", product, first, last)
}

// WriteLoop renders the animation into dir and returns the written path.
// When writeFrames is set each composited frame is also written as a plain
// PNG next to the animation, for players that want a playlist of stills.
func WriteLoop(dir string, product radar.Product, frames []Frame, delay time.Duration, writeFrames bool) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("%w for %s", ErrNoData, product)
	}
	productDir := filepath.Join(dir, product.String())
	if err := os.MkdirAll(productDir, 0o755); err != nil {
		return "", err
	}

	if writeFrames {
		for _, f := range frames {
			path := filepath.Join(productDir, f.Filename)
			if _, err := os.Stat(path); err == nil {
				continue
			}
			if err := writePNG(path, f); err != nil {
				return "", err
			}
		}
	}

	path := filepath.Join(productDir, LoopFilename(product, frames))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Encode(out, frames, delay); err != nil {
		out.Close()
		return "", err
	}
	return path, out.Close()
}

func writePNG(path string, f Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, f.Image); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
