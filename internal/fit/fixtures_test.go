package fit

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/elastic-fit/internal/toolkit"
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// floorAndSheet returns a 4x4 floor at z=0 and a 2x2 garment sheet hovering
// at z=0.5 above its centre.
func floorAndSheet() (body, garment *mesh.Mesh) {
	body = mesh.Grid("floor", 4, 4, 4, 4)
	garment = mesh.Grid("sheet", 2, 2, 4, 4)
	for i := range garment.Positions {
		garment.Positions[i].Z = 0.5
	}
	return body, garment
}

// sphereScenario returns a unit body sphere and a 502 vertex garment sphere
// with the same layout sitting just outside the offset shell.
func sphereScenario(offset float64) (body, garment *mesh.Mesh) {
	body = mesh.UVSphere("body", 1, 25, 21)
	garment = mesh.UVSphere("shirt", 1+offset+5e-5, 25, 21)
	return body, garment
}

func testParams() Params {
	p := DefaultParams()
	p.ProxyResolution = 10000
	return p
}

func newTestSession() *Session {
	return NewSession(Options{Toolkit: toolkit.New(), Registry: NewRegistry()})
}

func startSession(t *testing.T, body, garment *mesh.Mesh, p Params) *Session {
	t.Helper()
	s := newTestSession()
	if err := s.Start(body, garment, p); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func copyPositions(m *mesh.Mesh) []math.Vec3 {
	return append([]math.Vec3(nil), m.Positions...)
}

func copyUVs(m *mesh.Mesh) []math.Vec2 {
	return append([]math.Vec2(nil), m.UVs...)
}

func samePositions(t *testing.T, what string, got, want []math.Vec3) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: %d positions, want %d", what, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: vertex %d = %v, want %v", what, i, got[i], want[i])
		}
	}
}

func sameUVs(t *testing.T, what string, got, want []math.Vec2) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: %d uvs, want %d", what, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s: corner %d = %v, want %v", what, i, got[i], want[i])
		}
	}
}

// surfaceDistance is the brute force distance from p to the surface of m.
func surfaceDistance(p math.Vec3, m *mesh.Mesh) float64 {
	best := gomath.Inf(1)
	for _, tri := range m.Triangles() {
		q := math.ClosestPointOnTriangle(p, m.Positions[tri[0]], m.Positions[tri[1]], m.Positions[tri[2]])
		if d := q.Distance(p); d < best {
			best = d
		}
	}
	return best
}
