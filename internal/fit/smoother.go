package fit

import (
	gomath "math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/elastic-fit/pkg/math"
)

// minGradientThreshold keeps the blend ramp defined on perfectly uniform
// fields.
const minGradientThreshold = 1e-4

// SmoothOptions controls SmoothAdaptive.
type SmoothOptions struct {
	Passes            int
	GradientThreshold float64
	MinBlend          float64
	MaxBlend          float64
}

// Gradients returns, per vertex, the largest displacement difference to a
// direct neighbour.
func Gradients(field Field, adj [][]int) []float64 {
	g := make([]float64, len(field))
	for i, d := range field {
		for _, j := range adj[i] {
			if diff := d.Sub(field[j]).Length(); diff > g[i] {
				g[i] = diff
			}
		}
	}
	return g
}

// Median returns the empirical median of values, 0 when empty.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// BlendFactors maps gradients to per-vertex smoothing weights: MinBlend at
// or below GradientThreshold times the median, ramping to MaxBlend at twice
// that.
func BlendFactors(gradients []float64, opts SmoothOptions) []float64 {
	threshold := gomath.Max(Median(gradients)*opts.GradientThreshold, minGradientThreshold)
	out := make([]float64, len(gradients))
	for i, g := range gradients {
		t := (g - threshold) / threshold
		t = gomath.Min(gomath.Max(t, 0), 1)
		out[i] = opts.MinBlend + (opts.MaxBlend-opts.MinBlend)*t
	}
	return out
}

// SmoothAdaptive smooths field over the mesh adjacency, smoothing sharp
// discontinuities more than flat regions. Gradients and blend factors are
// taken from the input field once and reused by every pass. The input is not
// modified.
func SmoothAdaptive(field Field, adj [][]int, opts SmoothOptions) Field {
	cur := field.Clone()
	if opts.Passes <= 0 || len(field) == 0 {
		return cur
	}
	blend := BlendFactors(Gradients(field, adj), opts)
	next := make(Field, len(field))
	for pass := 0; pass < opts.Passes; pass++ {
		for i, d := range cur {
			if len(adj[i]) == 0 || blend[i] == 0 {
				next[i] = d
				continue
			}
			var avg math.Vec3
			for _, j := range adj[i] {
				avg = avg.Add(cur[j])
			}
			avg = avg.Scale(1 / float64(len(adj[i])))
			next[i] = d.Add(avg.Sub(d).Scale(blend[i]))
		}
		cur, next = next, cur
	}
	return cur
}
