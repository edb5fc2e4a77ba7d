package toolkit

import (
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// CorrectiveSmooth relaxes the deformed positions of m while keeping the
// local detail of the rest shape: the result is the smoothed deformed shape
// plus the difference between rest and its own smoothed version. factor is
// the per-iteration step, capped at 1. mask weights the effect per vertex
// (nil for full effect); vertices with mask 0 are returned unchanged.
func (r *Reference) CorrectiveSmooth(m *mesh.Mesh, rest []math.Vec3, factor float64, iterations int, mask []float64) []math.Vec3 {
	out := append([]math.Vec3(nil), m.Positions...)
	if iterations <= 0 || factor <= 0 || len(rest) != len(out) {
		return out
	}
	if factor > 1 {
		factor = 1
	}
	adj := m.Adjacency()
	deformed := relax(m.Positions, adj, factor, iterations, mask)
	restSmoothed := relax(rest, adj, factor, iterations, mask)
	for i := range out {
		delta := deformed[i].Sub(m.Positions[i]).Sub(restSmoothed[i].Sub(rest[i]))
		out[i] = m.Positions[i].Add(delta)
	}
	return out
}

// LaplacianSmooth applies umbrella smoothing to m. The step is
// factor/(1+factor) so large factors stay stable. mask weights the effect
// per vertex (nil for full effect).
func (r *Reference) LaplacianSmooth(m *mesh.Mesh, factor float64, iterations int, mask []float64) []math.Vec3 {
	if iterations <= 0 || factor <= 0 {
		return append([]math.Vec3(nil), m.Positions...)
	}
	return relax(m.Positions, m.Adjacency(), factor/(1+factor), iterations, mask)
}

// relax moves each vertex towards the average of its neighbours by
// step*mask per iteration, reading only the previous iteration.
func relax(pos []math.Vec3, adj [][]int, step float64, iterations int, mask []float64) []math.Vec3 {
	cur := append([]math.Vec3(nil), pos...)
	next := make([]math.Vec3, len(pos))
	for it := 0; it < iterations; it++ {
		for i, p := range cur {
			w := step
			if mask != nil {
				w *= mask[i]
			}
			if w == 0 || len(adj[i]) == 0 {
				next[i] = p
				continue
			}
			var avg math.Vec3
			for _, j := range adj[i] {
				avg = avg.Add(cur[j])
			}
			avg = avg.Scale(1 / float64(len(adj[i])))
			next[i] = p.Add(avg.Sub(p).Scale(w))
		}
		cur, next = next, cur
	}
	return cur
}
