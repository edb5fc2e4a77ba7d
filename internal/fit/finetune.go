package fit

import (
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// OffsetMultipliers composes the offset entries into one multiplier per
// vertex. Entries compose multiplicatively in list order; each contributes
// 1 + w*(influence-1) where w is the vertex weight in the entry's group.
// Groups missing from m are skipped and returned by name.
func OffsetMultipliers(m *mesh.Mesh, entries []OffsetEntry) ([]float64, []string) {
	out := make([]float64, m.VertexCount())
	for i := range out {
		out[i] = 1
	}
	var missing []string
	for _, e := range entries {
		g := m.Group(e.Group)
		if g == nil {
			missing = append(missing, e.Group)
			continue
		}
		for v, w := range g.Weights {
			if v >= 0 && v < len(out) {
				out[v] *= 1 + w*(e.Influence-1)
			}
		}
	}
	return out, missing
}

// ApplyOffsetTuning scales the offset component (offset along the body
// normal) of every displacement by its multiplier and keeps the remaining
// fit component. A multiplier of 1 leaves the vector untouched.
func ApplyOffsetTuning(field Field, normals []math.Vec3, offset float64, multipliers []float64) Field {
	out := field.Clone()
	for i, m := range multipliers {
		if m == 1 {
			continue
		}
		out[i] = out[i].Add(normals[i].Scale((m - 1) * offset))
	}
	return out
}
