package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// Visualization palette.
var (
	// Background fills cells that were never sampled.
	Background = color.RGBA{R: 0x1D, G: 0x16, B: 0x16, A: 0xFF}

	rampStart = color.RGBA{R: 0x8E, G: 0x16, B: 0x16, A: 0xFF}
	rampEnd   = color.RGBA{R: 0xFF, G: 0x63, B: 0x63, A: 0xFF}
)

// RampColor maps an average score onto the density gradient. Scores run
// 1..sampleBytes; a 1-byte window has no spread and maps to the ramp
// midpoint.
func RampColor(avg float64, sampleBytes int) color.RGBA {
	t := 0.5
	if sampleBytes > 1 {
		t = (avg - 1.0) / float64(sampleBytes-1)
	}
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return lerp(rampStart, rampEnd, t)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(a.R)*(1-t) + float64(b.R)*t),
		G: uint8(float64(a.G)*(1-t) + float64(b.G)*t),
		B: uint8(float64(a.B)*(1-t) + float64(b.B)*t),
		A: 0xFF,
	}
}

// RenderImage rasterizes an aggregator snapshot: one pixel per grid cell,
// cell averages mapped through the ramp, untouched cells left background.
func RenderImage(snapshot map[types.Coord]types.CellStats, geom types.Geometry, sampleBytes int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, geom.Width, geom.Height))
	for y := 0; y < geom.Height; y++ {
		for x := 0; x < geom.Width; x++ {
			img.SetRGBA(x, y, Background)
		}
	}
	for c, stats := range snapshot {
		if !c.In(geom) {
			continue
		}
		img.SetRGBA(c.X, c.Y, RampColor(stats.Average(), sampleBytes))
	}
	return img
}

// Scale returns img scaled up by an integer cell size using
// nearest-neighbor interpolation, preserving hard cell edges.
func Scale(img image.Image, cellSize int) image.Image {
	if cellSize <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*cellSize, b.Dy()*cellSize))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// WritePNG writes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating image file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// RenderFile runs a full one-shot render of opts.Path and rasterizes
// every sampled coordinate directly, one pixel per grid cell.
func RenderFile(ctx context.Context, opts RenderOptions) (*image.RGBA, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Geometry.Width, opts.Geometry.Height))
	for y := 0; y < opts.Geometry.Height; y++ {
		for x := 0; x < opts.Geometry.Width; x++ {
			img.SetRGBA(x, y, Background)
		}
	}

	sampleBytes := opts.SampleBytes
	userSample := opts.OnSample
	opts.OnSample = func(ev types.SampleEvent) {
		img.SetRGBA(ev.Coord.X, ev.Coord.Y, RampColor(float64(ev.Score), sampleBytes))
		if userSample != nil {
			userSample(ev)
		}
	}

	r, err := NewRenderer(opts)
	if err != nil {
		return nil, err
	}
	if err := r.Run(ctx); err != nil {
		return nil, err
	}
	return img, nil
}
