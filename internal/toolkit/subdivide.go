package toolkit

import (
	"fmt"

	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// Subdivide fan-triangulates m and splits every triangle into four at its
// edge midpoints, levels times. Positions are interpolated linearly so the
// result keeps the input shape. The returned origins are indexed by output
// vertex. Vertex groups, deformers and shape keys are not carried over.
func (r *Reference) Subdivide(m *mesh.Mesh, levels int) (*mesh.Mesh, []Origin, error) {
	if err := m.Validate(); err != nil {
		return nil, nil, fmt.Errorf("subdivide: %w", err)
	}
	if len(m.Faces) == 0 {
		return nil, nil, fmt.Errorf("subdivide: %w", ErrNoFaces)
	}
	if levels < 0 {
		levels = 0
	}

	state := triangulate(m)
	for i := 0; i < levels; i++ {
		state = state.split()
	}

	out := mesh.New(m.Name + ".proxy")
	out.Positions = state.positions
	out.Faces = make([]mesh.Face, len(state.tris))
	for i, t := range state.tris {
		out.Faces[i] = mesh.Face{t[0], t[1], t[2]}
	}
	if state.uvs != nil {
		out.UVs = make([]math.Vec2, 0, len(state.uvs)*3)
		for _, c := range state.uvs {
			out.UVs = append(out.UVs, c[0], c[1], c[2])
		}
	}
	return out, state.origins, nil
}

// triMesh is the working representation during subdivision.
type triMesh struct {
	positions []math.Vec3
	origins   []Origin
	tris      [][3]int
	uvs       [][3]math.Vec2 // per triangle corner, nil without UVs
}

func triangulate(m *mesh.Mesh) *triMesh {
	t := &triMesh{
		positions: append([]math.Vec3(nil), m.Positions...),
		origins:   make([]Origin, len(m.Positions)),
		tris:      m.Triangles(),
	}
	for i := range t.origins {
		t.origins[i] = identityOrigin(i)
	}
	if !m.HasUVs() {
		return t
	}
	t.uvs = make([][3]math.Vec2, 0, len(t.tris))
	corner := 0
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			t.uvs = append(t.uvs, [3]math.Vec2{m.UVs[corner], m.UVs[corner+i], m.UVs[corner+i+1]})
		}
		corner += len(f)
	}
	return t
}

// split performs one 1-to-4 midpoint subdivision step.
func (t *triMesh) split() *triMesh {
	next := &triMesh{
		positions: append(make([]math.Vec3, 0, len(t.positions)*4), t.positions...),
		origins:   append(make([]Origin, 0, len(t.origins)*4), t.origins...),
		tris:      make([][3]int, 0, len(t.tris)*4),
	}
	if t.uvs != nil {
		next.uvs = make([][3]math.Vec2, 0, len(t.uvs)*4)
	}

	mids := make(map[mesh.Edge]int, len(t.tris)*3/2)
	mid := func(a, b int) int {
		e := mesh.MakeEdge(a, b)
		if v, ok := mids[e]; ok {
			return v
		}
		v := len(next.positions)
		next.positions = append(next.positions, t.positions[e.A].Lerp(t.positions[e.B], 0.5))
		next.origins = append(next.origins, midpoint(t.origins[e.A], t.origins[e.B]))
		mids[e] = v
		return v
	}

	for ti, tri := range t.tris {
		a, b, c := tri[0], tri[1], tri[2]
		ab, bc, ca := mid(a, b), mid(b, c), mid(c, a)
		next.tris = append(next.tris,
			[3]int{a, ab, ca},
			[3]int{ab, b, bc},
			[3]int{ca, bc, c},
			[3]int{ab, bc, ca},
		)
		if t.uvs == nil {
			continue
		}
		ua, ub, uc := t.uvs[ti][0], t.uvs[ti][1], t.uvs[ti][2]
		uab, ubc, uca := ua.Lerp(ub, 0.5), ub.Lerp(uc, 0.5), uc.Lerp(ua, 0.5)
		next.uvs = append(next.uvs,
			[3]math.Vec2{ua, uab, uca},
			[3]math.Vec2{uab, ub, ubc},
			[3]math.Vec2{uca, ubc, uc},
			[3]math.Vec2{uab, ubc, uca},
		)
	}
	return next
}
