package fit

import (
	"fmt"

	"github.com/tiendc/go-deepcopy"

	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// Snapshot is an immutable copy of a mesh's positions and UVs.
type Snapshot struct {
	positions []math.Vec3
	uvs       []math.Vec2
}

// Capture copies the positions and UVs of m.
func Capture(m *mesh.Mesh) (*Snapshot, error) {
	s := &Snapshot{}
	if err := deepcopy.Copy(&s.positions, m.Positions); err != nil {
		return nil, fmt.Errorf("snapshot positions: %w", err)
	}
	if err := deepcopy.Copy(&s.uvs, m.UVs); err != nil {
		return nil, fmt.Errorf("snapshot uvs: %w", err)
	}
	return s, nil
}

// VertexCount returns the number of captured positions.
func (s *Snapshot) VertexCount() int {
	return len(s.positions)
}

// Positions returns a copy of the captured positions.
func (s *Snapshot) Positions() []math.Vec3 {
	return append([]math.Vec3(nil), s.positions...)
}

// UVs returns a copy of the captured UVs.
func (s *Snapshot) UVs() []math.Vec2 {
	return append([]math.Vec2(nil), s.uvs...)
}

// Restore writes the captured positions and UVs back onto m.
func (s *Snapshot) Restore(m *mesh.Mesh) {
	m.Positions = s.Positions()
	m.UVs = s.UVs()
}
