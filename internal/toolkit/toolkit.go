// Package toolkit implements the host mesh primitives the fitting engine
// consumes: simple subdivision with origin tracking, closest-surface-point
// projection, corrective and Laplacian smoothing, and symmetrize.
package toolkit

import (
	"errors"

	"github.com/Faultbox/elastic-fit/pkg/math"
)

// Toolkit errors.
var (
	ErrNoFaces      = errors.New("mesh has no faces")
	ErrUnknownAxis  = errors.New("unknown symmetry axis")
	ErrNoMirrorSide = errors.New("no vertices on the source side")
)

// Origin records how a subdivided vertex is interpolated from up to three
// vertices of the input mesh. Weights sum to 1.
type Origin struct {
	Count    int
	Vertices [3]int
	Weights  [3]float64
}

// identityOrigin returns the origin of an input vertex copied unchanged.
func identityOrigin(v int) Origin {
	return Origin{Count: 1, Vertices: [3]int{v}, Weights: [3]float64{1}}
}

// midpoint returns the origin of the point halfway between a and b.
func midpoint(a, b Origin) Origin {
	var out Origin
	add := func(v int, w float64) {
		for i := 0; i < out.Count; i++ {
			if out.Vertices[i] == v {
				out.Weights[i] += w
				return
			}
		}
		if out.Count < len(out.Vertices) {
			out.Vertices[out.Count] = v
			out.Weights[out.Count] = w
			out.Count++
			return
		}
		// Only reachable for inconsistent input; drop the lightest.
		lightest := 0
		for i := 1; i < out.Count; i++ {
			if out.Weights[i] < out.Weights[lightest] {
				lightest = i
			}
		}
		if w > out.Weights[lightest] {
			out.Vertices[lightest] = v
			out.Weights[lightest] = w
		}
	}
	for i := 0; i < a.Count; i++ {
		add(a.Vertices[i], a.Weights[i]*0.5)
	}
	for i := 0; i < b.Count; i++ {
		add(b.Vertices[i], b.Weights[i]*0.5)
	}
	var sum float64
	for i := 0; i < out.Count; i++ {
		sum += out.Weights[i]
	}
	if sum > 0 && sum != 1 {
		for i := 0; i < out.Count; i++ {
			out.Weights[i] /= sum
		}
	}
	return out
}

// Projection is the result of projecting vertices onto a surface.
type Projection struct {
	Positions []math.Vec3
	// Normals holds the unit direction each vertex was pushed out along.
	Normals []math.Vec3
}

// Axis selects the symmetrize direction. POSITIVE_X mirrors the +X half onto
// the -X half. AUTO_* picks the side with more vertices as the source.
type Axis string

// Symmetry axes.
const (
	PositiveX Axis = "POSITIVE_X"
	NegativeX Axis = "NEGATIVE_X"
	PositiveY Axis = "POSITIVE_Y"
	NegativeY Axis = "NEGATIVE_Y"
	PositiveZ Axis = "POSITIVE_Z"
	NegativeZ Axis = "NEGATIVE_Z"
	AutoX     Axis = "AUTO_X"
	AutoY     Axis = "AUTO_Y"
	AutoZ     Axis = "AUTO_Z"
)

// Axes lists every accepted axis value.
var Axes = []Axis{PositiveX, NegativeX, PositiveY, NegativeY, PositiveZ, NegativeZ, AutoX, AutoY, AutoZ}

// Valid reports whether a is a known axis.
func (a Axis) Valid() bool {
	for _, v := range Axes {
		if a == v {
			return true
		}
	}
	return false
}

// component returns the coordinate index, the source sign (+1/-1, 0 for
// auto) of the axis.
func (a Axis) component() (int, float64) {
	switch a {
	case PositiveX:
		return 0, 1
	case NegativeX:
		return 0, -1
	case AutoX:
		return 0, 0
	case PositiveY:
		return 1, 1
	case NegativeY:
		return 1, -1
	case AutoY:
		return 1, 0
	case PositiveZ:
		return 2, 1
	case NegativeZ:
		return 2, -1
	default:
		return 2, 0
	}
}

// Reference is the built-in implementation of the host primitives.
type Reference struct {
	// LeafSize is the maximum number of triangles per BVH leaf.
	LeafSize int
	// MirrorTolerance is the maximum distance, relative to the bounding box
	// diagonal, between a mirrored vertex and its counterpart.
	MirrorTolerance float64
}

// New returns a Reference toolkit with default settings.
func New() *Reference {
	return &Reference{LeafSize: 4, MirrorTolerance: 1e-3}
}
