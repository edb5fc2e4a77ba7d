// Package fit implements the elastic fitting engine: it fits a garment mesh
// onto a body mesh through a subdivided proxy and exposes the result as a
// preview that can be tuned live, applied, cancelled or removed.
package fit

import (
	"github.com/Faultbox/elastic-fit/internal/toolkit"
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// Toolkit is the set of host mesh primitives the engine relies on.
// toolkit.Reference is the built-in implementation.
type Toolkit interface {
	Subdivide(m *mesh.Mesh, levels int) (*mesh.Mesh, []toolkit.Origin, error)
	ProjectToSurface(m, target *mesh.Mesh, offset float64) (toolkit.Projection, error)
	CorrectiveSmooth(m *mesh.Mesh, rest []math.Vec3, factor float64, iterations int, mask []float64) []math.Vec3
	LaplacianSmooth(m *mesh.Mesh, factor float64, iterations int, mask []float64) []math.Vec3
	Symmetrize(m *mesh.Mesh, rest []math.Vec3, axis toolkit.Axis, mask []float64) (toolkit.Mirror, error)
}

// Field is one vector per original garment vertex.
type Field []math.Vec3

// Clone returns a copy of f.
func (f Field) Clone() Field {
	return append(Field(nil), f...)
}
