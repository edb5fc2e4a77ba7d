package toolkit

import (
	"fmt"
	"sort"

	"github.com/Faultbox/elastic-fit/internal/spatial"
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// Mirror is the result of Symmetrize.
type Mirror struct {
	Positions []math.Vec3
	UVs       []math.Vec2
	// Source is the resolved axis, never an AUTO_* value.
	Source Axis
	// Mirrored counts target vertices that found a counterpart.
	Mirrored int
}

// Symmetrize copies the source half of m onto the other half. Counterparts
// are matched on the rest positions (m.Positions when rest is nil), so the
// topology pairing survives deformation. Vertices within tolerance of the
// mirror plane are snapped onto it. Vertices with mask 0 are left alone.
// Face corner UVs on the target side are copied from the mirrored face when
// one exists.
func (r *Reference) Symmetrize(m *mesh.Mesh, rest []math.Vec3, axis Axis, mask []float64) (Mirror, error) {
	if !axis.Valid() {
		return Mirror{}, fmt.Errorf("symmetrize %q: %w", axis, ErrUnknownAxis)
	}
	if rest == nil {
		rest = m.Positions
	}
	if len(rest) != len(m.Positions) {
		return Mirror{}, fmt.Errorf("symmetrize: %d rest positions for %d vertices", len(rest), len(m.Positions))
	}

	dim, sign := axis.component()
	lo, hi := m.Bounds()
	tol := hi.Sub(lo).Length() * r.MirrorTolerance
	if tol == 0 {
		tol = 1e-9
	}

	if sign == 0 {
		var pos, neg int
		for _, p := range rest {
			switch v := p.Axis(dim); {
			case v > tol:
				pos++
			case v < -tol:
				neg++
			}
		}
		sign = 1
		if neg > pos {
			sign = -1
		}
	}

	var source []int
	for i, p := range rest {
		if p.Axis(dim)*sign >= -tol {
			source = append(source, i)
		}
	}
	if len(source) == 0 {
		return Mirror{}, fmt.Errorf("symmetrize %s: %w", axis, ErrNoMirrorSide)
	}
	index := spatial.NewIndex(rest, source)

	out := Mirror{
		Positions: append([]math.Vec3(nil), m.Positions...),
		UVs:       append([]math.Vec2(nil), m.UVs...),
		Source:    resolvedAxis(dim, sign),
	}

	// partner maps every vertex to its mirror counterpart, or -1.
	partner := make([]int, len(rest))
	for i, p := range rest {
		partner[i] = -1
		v := p.Axis(dim)
		if v*sign > tol {
			partner[i] = i
			continue
		}
		if n, ok := index.Closest(p.WithAxis(dim, -v)); ok && n.Distance <= tol {
			partner[i] = n.Index
		}
	}

	for i, p := range rest {
		if mask != nil && mask[i] == 0 {
			continue
		}
		v := p.Axis(dim)
		switch {
		case v*sign > tol:
			// Source side is kept.
		case v*sign >= -tol:
			out.Positions[i] = out.Positions[i].WithAxis(dim, 0)
		case partner[i] >= 0:
			src := m.Positions[partner[i]]
			out.Positions[i] = src.WithAxis(dim, -src.Axis(dim))
			out.Mirrored++
		}
	}

	if m.HasUVs() {
		mirrorUVs(m, rest, dim, sign, tol, partner, mask, out.UVs)
	}
	return out, nil
}

func resolvedAxis(dim int, sign float64) Axis {
	axes := [3][2]Axis{{PositiveX, NegativeX}, {PositiveY, NegativeY}, {PositiveZ, NegativeZ}}
	if sign < 0 {
		return axes[dim][1]
	}
	return axes[dim][0]
}

// mirrorUVs copies corner UVs from each source face onto the face made of
// its counterparts' mirrors.
func mirrorUVs(m *mesh.Mesh, rest []math.Vec3, dim int, sign, tol float64, partner []int, mask []float64, uvs []math.Vec2) {
	offsets := make([]int, len(m.Faces))
	byKey := make(map[string]int, len(m.Faces))
	corner := 0
	for fi, f := range m.Faces {
		offsets[fi] = corner
		corner += len(f)
		byKey[faceKey(f)] = fi
	}

	for fi, f := range m.Faces {
		mirrored := make(mesh.Face, len(f))
		onTarget := false
		ok := true
		for k, v := range f {
			if mask != nil && mask[v] == 0 {
				ok = false
				break
			}
			if rest[v].Axis(dim)*sign < -tol {
				onTarget = true
			}
			mirrored[k] = partner[v]
			if partner[v] < 0 {
				ok = false
				break
			}
		}
		if !ok || !onTarget {
			continue
		}
		src, found := byKey[faceKey(mirrored)]
		if !found || src == fi {
			continue
		}
		sf := m.Faces[src]
		for k := range f {
			for sk, sv := range sf {
				if sv == mirrored[k] {
					uvs[offsets[fi]+k] = m.UVs[offsets[src]+sk]
					break
				}
			}
		}
	}
}

func faceKey(f mesh.Face) string {
	vs := append([]int(nil), f...)
	sort.Ints(vs)
	return fmt.Sprint(vs)
}
