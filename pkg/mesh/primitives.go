package mesh

import (
	gomath "math"

	"github.com/Faultbox/elastic-fit/pkg/math"
)

// UVSphere builds a latitude/longitude sphere centred on the origin with +Z
// as the pole axis. It has 2 + (rings-1)*segments vertices and outward
// facing winding.
func UVSphere(name string, radius float64, segments, rings int) *Mesh {
	m := New(name)
	m.Positions = append(m.Positions, math.Vec3{Z: radius})
	for i := 1; i < rings; i++ {
		theta := gomath.Pi * float64(i) / float64(rings)
		z := radius * gomath.Cos(theta)
		rho := radius * gomath.Sin(theta)
		for j := 0; j < segments; j++ {
			phi := 2 * gomath.Pi * float64(j) / float64(segments)
			m.Positions = append(m.Positions, math.Vec3{X: rho * gomath.Cos(phi), Y: rho * gomath.Sin(phi), Z: z})
		}
	}
	bottom := len(m.Positions)
	m.Positions = append(m.Positions, math.Vec3{Z: -radius})

	ring := func(i, j int) int { return 1 + (i-1)*segments + j%segments }
	uv := func(i, j int) math.Vec2 {
		return math.Vec2{X: float64(j) / float64(segments), Y: 1 - float64(i)/float64(rings)}
	}

	for j := 0; j < segments; j++ {
		m.Faces = append(m.Faces, Face{0, ring(1, j), ring(1, j+1)})
		m.UVs = append(m.UVs, math.Vec2{X: (float64(j) + 0.5) / float64(segments), Y: 1}, uv(1, j), uv(1, j+1))
	}
	for i := 1; i < rings-1; i++ {
		for j := 0; j < segments; j++ {
			m.Faces = append(m.Faces, Face{ring(i, j), ring(i+1, j), ring(i+1, j+1), ring(i, j+1)})
			m.UVs = append(m.UVs, uv(i, j), uv(i+1, j), uv(i+1, j+1), uv(i, j+1))
		}
	}
	last := rings - 1
	for j := 0; j < segments; j++ {
		m.Faces = append(m.Faces, Face{ring(last, j), bottom, ring(last, j+1)})
		m.UVs = append(m.UVs, uv(last, j), math.Vec2{X: (float64(j) + 0.5) / float64(segments), Y: 0}, uv(last, j+1))
	}
	return m
}

// Grid builds an nx by ny quad grid in the XY plane (z = 0) spanning
// [-sizeX/2, sizeX/2] x [-sizeY/2, sizeY/2], facing +Z.
func Grid(name string, sizeX, sizeY float64, nx, ny int) *Mesh {
	m := New(name)
	for y := 0; y <= ny; y++ {
		for x := 0; x <= nx; x++ {
			m.Positions = append(m.Positions, math.Vec3{
				X: sizeX * (float64(x)/float64(nx) - 0.5),
				Y: sizeY * (float64(y)/float64(ny) - 0.5),
			})
		}
	}
	idx := func(x, y int) int { return y*(nx+1) + x }
	uv := func(x, y int) math.Vec2 {
		return math.Vec2{X: float64(x) / float64(nx), Y: float64(y) / float64(ny)}
	}
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			m.Faces = append(m.Faces, Face{idx(x, y), idx(x+1, y), idx(x+1, y+1), idx(x, y+1)})
			m.UVs = append(m.UVs, uv(x, y), uv(x+1, y), uv(x+1, y+1), uv(x, y+1))
		}
	}
	return m
}
