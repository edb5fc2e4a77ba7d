package formats

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// ErrGroupVertexRange is returned when a sidecar references a missing vertex.
var ErrGroupVertexRange = errors.New("vertex group references vertex out of range")

// Sidecar carries the mesh data OBJ cannot express: vertex groups, the
// deformer stack and shape key names.
//
//	groups:
//	  waistband: {0: 1.0, 12: 0.5}
//	deformers:
//	  - {name: Armature, kind: armature}
//	shape_keys: [Basis]
type Sidecar struct {
	Groups    map[string]map[int]float64 `yaml:"groups"`
	Deformers []mesh.Deformer            `yaml:"deformers,omitempty"`
	ShapeKeys []string                   `yaml:"shape_keys,omitempty"`
}

// ParseSidecar parses sidecar YAML.
func ParseSidecar(data []byte) (*Sidecar, error) {
	var s Sidecar
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing sidecar: %w", err)
	}
	return &s, nil
}

// ParseSidecarFile parses a sidecar YAML file from disk.
func ParseSidecarFile(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar file: %w", err)
	}
	return ParseSidecar(data)
}

// Apply attaches the sidecar contents to m.
func (s *Sidecar) Apply(m *mesh.Mesh) error {
	names := make([]string, 0, len(s.Groups))
	for name := range s.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		g := mesh.NewVertexGroup(name)
		for v, w := range s.Groups[name] {
			if v < 0 || v >= m.VertexCount() {
				return fmt.Errorf("group %q vertex %d: %w", name, v, ErrGroupVertexRange)
			}
			g.Set(v, w)
		}
		m.AddGroup(g)
	}
	m.Deformers = append(m.Deformers, s.Deformers...)
	m.ShapeKeys = append(m.ShapeKeys, s.ShapeKeys...)
	return nil
}

// SidecarOf extracts the sidecar contents of m.
func SidecarOf(m *mesh.Mesh) *Sidecar {
	s := &Sidecar{
		Groups:    make(map[string]map[int]float64, len(m.Groups)),
		Deformers: m.Deformers,
		ShapeKeys: m.ShapeKeys,
	}
	for name, g := range m.Groups {
		weights := make(map[int]float64, len(g.Weights))
		for v, w := range g.Weights {
			weights[v] = w
		}
		s.Groups[name] = weights
	}
	return s
}

// Marshal encodes the sidecar as YAML.
func (s *Sidecar) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
