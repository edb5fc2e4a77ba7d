package toolkit

import (
	"fmt"

	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// surfaceEpsilon is the distance under which a point counts as lying on the
// target surface.
const surfaceEpsilon = 1e-12

// ProjectToSurface moves every vertex of m to the closest point on target,
// then pushes it outward by offset. The push direction is the direction from
// the surface to the vertex, flipped to the outside of the closest face when
// the vertex starts inside. Vertices already on the surface use the face
// normal. m is not modified.
func (r *Reference) ProjectToSurface(m, target *mesh.Mesh, offset float64) (Projection, error) {
	if err := target.Validate(); err != nil {
		return Projection{}, fmt.Errorf("project: target: %w", err)
	}
	if len(target.Faces) == 0 {
		return Projection{}, fmt.Errorf("project: target: %w", ErrNoFaces)
	}

	tris := target.Triangles()
	tree := buildBVH(target.Positions, tris, r.LeafSize)
	normals := make([]math.Vec3, len(tris))
	for i, t := range tris {
		normals[i] = math.TriangleNormal(target.Positions[t[0]], target.Positions[t[1]], target.Positions[t[2]])
	}

	out := Projection{
		Positions: make([]math.Vec3, len(m.Positions)),
		Normals:   make([]math.Vec3, len(m.Positions)),
	}
	for i, p := range m.Positions {
		q, ti := tree.closest(p)
		face := normals[ti]
		dir := p.Sub(q)
		var n math.Vec3
		if dist := dir.Length(); dist > surfaceEpsilon {
			n = dir.Scale(1 / dist)
			if n.Dot(face) < 0 {
				n = n.Scale(-1)
			}
		} else {
			n = face
		}
		out.Positions[i] = q.Add(n.Scale(offset))
		out.Normals[i] = n
	}
	return out, nil
}
