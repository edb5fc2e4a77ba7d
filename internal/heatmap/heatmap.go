// Package heatmap renders a per-vertex displacement magnitude into the
// garment's UV space as a WebP image.
package heatmap

import (
	"errors"
	"fmt"
	"image"
	"io"
	gomath "math"
	"os"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"

	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// DefaultSize is the output edge length in pixels.
const DefaultSize = 512

var (
	ErrNoUVs          = errors.New("heatmap: mesh has no uvs")
	ErrMagnitudeCount = errors.New("heatmap: magnitude count does not match vertices")
)

// Options control the rendered image.
type Options struct {
	Size        int
	Supersample int
	// Max is the magnitude drawn in the hottest colour. Zero uses the
	// largest magnitude in the field.
	Max float64
	// Filter downsamples the supersampled image, draw.CatmullRom when nil.
	Filter draw.Interpolator
}

// Magnitudes returns the length of every displacement vector.
func Magnitudes(d []math.Vec3) []float64 {
	out := make([]float64, len(d))
	for i, v := range d {
		out[i] = v.Length()
	}
	return out
}

// Render rasterizes magnitude over the mesh UV layout. Texels no face covers
// stay transparent. The v axis points up in the image.
func Render(m *mesh.Mesh, magnitude []float64, opts Options) (*image.NRGBA, error) {
	if !m.HasUVs() {
		return nil, ErrNoUVs
	}
	if len(magnitude) != m.VertexCount() {
		return nil, fmt.Errorf("%d values for %d vertices: %w", len(magnitude), m.VertexCount(), ErrMagnitudeCount)
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}

	peak := opts.Max
	if peak <= 0 {
		for _, v := range magnitude {
			peak = gomath.Max(peak, v)
		}
	}

	buf := newHeatBuffer(opts.Size * opts.Supersample)
	corner := 0
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			var tri [3]texel
			for k, c := range [3]int{0, i, i + 1} {
				uv := m.UVs[corner+c]
				t := 0.0
				if peak > 0 {
					t = clamp01(magnitude[f[c]] / peak)
				}
				tri[k] = texel{
					x: uv.X * float64(buf.size),
					y: (1 - uv.Y) * float64(buf.size),
					t: t,
				}
			}
			buf.rasterize(tri)
		}
		corner += len(f)
	}
	return downsample(buf.image(), opts.Size, opts.Filter), nil
}

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, img, nil)
}

// WriteFile writes img as a WebP file at path.
func WriteFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
