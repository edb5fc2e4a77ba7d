package fit

import (
	"go.uber.org/zap"

	"github.com/Faultbox/elastic-fit/internal/logger"
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// minSurfaceArea is the area below which a mesh counts as degenerate.
const minSurfaceArea = 1e-12

// Displacement is the raw move each original vertex gets from projecting the
// proxy onto the body, before smoothing and blending.
type Displacement struct {
	Raw Field
	// Normals holds the unit push-out direction per original vertex.
	Normals []math.Vec3
	// Offset is the offset the projection was computed with.
	Offset float64
}

// WithOffset returns the raw field as if it had been projected with offset,
// sliding each vertex along its normal.
func (d *Displacement) WithOffset(offset float64) Field {
	out := d.Raw.Clone()
	if shift := offset - d.Offset; shift != 0 {
		for i, n := range d.Normals {
			out[i] = out[i].Add(n.Scale(shift))
		}
	}
	return out
}

// ComputeDisplacement projects the proxy onto body pushed out by offset and
// folds the per-proxy-vertex moves back onto the original vertices. A vertex
// that survives in the proxy takes its own proxy vertex's move. Any other
// vertex averages its origin references by weight.
func ComputeDisplacement(tk Toolkit, proxy *ProxyMesh, body *mesh.Mesh, offset float64) (*Displacement, error) {
	if len(body.Faces) == 0 {
		return nil, &ProjectionError{Reason: "body has no faces"}
	}
	if body.SurfaceArea() < minSurfaceArea {
		return nil, &ProjectionError{Reason: "body has zero surface area"}
	}
	if proxy.Mesh.SurfaceArea() < minSurfaceArea {
		return nil, &ProjectionError{Reason: "garment has zero surface area"}
	}

	proj, err := tk.ProjectToSurface(proxy.Mesh, body, offset)
	if err != nil {
		return nil, &ProjectionError{Reason: "project to surface", Err: err}
	}
	if len(proj.Positions) != proxy.Mesh.VertexCount() || len(proj.Normals) != proxy.Mesh.VertexCount() {
		return nil, &ProjectionError{Reason: "projection size does not match proxy"}
	}

	d := &Displacement{
		Raw:     make(Field, len(proxy.Map)),
		Normals: make([]math.Vec3, len(proxy.Map)),
		Offset:  offset,
	}
	unmapped := 0
	for v, entry := range proxy.Map {
		if p, ok := entry.Identity(); ok {
			d.Raw[v] = proj.Positions[p].Sub(proxy.Mesh.Positions[p])
			d.Normals[v] = proj.Normals[p].Normalize()
			continue
		}
		var move, normal math.Vec3
		var total float64
		for _, ref := range entry.Refs[:entry.Count] {
			delta := proj.Positions[ref.Proxy].Sub(proxy.Mesh.Positions[ref.Proxy])
			move = move.Add(delta.Scale(ref.Weight))
			normal = normal.Add(proj.Normals[ref.Proxy].Scale(ref.Weight))
			total += ref.Weight
		}
		if total == 0 {
			unmapped++
			continue
		}
		d.Raw[v] = move.Scale(1 / total)
		d.Normals[v] = normal.Normalize()
	}
	if unmapped > 0 {
		logger.Named("transfer").Warn("vertices without proxy origins keep zero displacement",
			zap.Int("count", unmapped))
	}
	return d, nil
}
