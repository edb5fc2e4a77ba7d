// Package mesh provides the polygon mesh model shared by the fitting engine,
// the host toolkit and the file formats.
package mesh

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/elastic-fit/pkg/math"
)

// Mesh validation errors.
var (
	ErrFaceTooSmall    = errors.New("face has fewer than 3 vertices")
	ErrVertexOutOfMesh = errors.New("face references vertex out of range")
	ErrUVCount         = errors.New("uv corner count does not match faces")
)

// DeformerArmature is the deformer kind that never blocks fitting.
const DeformerArmature = "armature"

// Face is an ordered list of vertex indices (counter-clockwise).
type Face []int

// Deformer is a modifier stacked on a mesh by the host application.
type Deformer struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// Mesh is a polygon mesh. UVs are stored per face corner, flattened in face
// order, and may be empty.
type Mesh struct {
	Name      string
	Positions []math.Vec3
	Faces     []Face
	UVs       []math.Vec2
	Groups    map[string]*VertexGroup
	Deformers []Deformer
	ShapeKeys []string
}

// New creates an empty mesh.
func New(name string) *Mesh {
	return &Mesh{Name: name, Groups: make(map[string]*VertexGroup)}
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// CornerCount returns the total number of face corners.
func (m *Mesh) CornerCount() int {
	n := 0
	for _, f := range m.Faces {
		n += len(f)
	}
	return n
}

// TriangleCount returns the triangle count of a fan triangulation.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		if len(f) >= 3 {
			n += len(f) - 2
		}
	}
	return n
}

// HasUVs reports whether the mesh carries a UV per corner.
func (m *Mesh) HasUVs() bool {
	return len(m.UVs) > 0
}

// Validate checks face indices and UV layout.
func (m *Mesh) Validate() error {
	n := len(m.Positions)
	for fi, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("face %d: %w", fi, ErrFaceTooSmall)
		}
		for _, v := range f {
			if v < 0 || v >= n {
				return fmt.Errorf("face %d vertex %d: %w", fi, v, ErrVertexOutOfMesh)
			}
		}
	}
	if len(m.UVs) != 0 && len(m.UVs) != m.CornerCount() {
		return fmt.Errorf("%d uvs for %d corners: %w", len(m.UVs), m.CornerCount(), ErrUVCount)
	}
	return nil
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:      m.Name,
		Positions: append([]math.Vec3(nil), m.Positions...),
		UVs:       append([]math.Vec2(nil), m.UVs...),
		Deformers: append([]Deformer(nil), m.Deformers...),
		ShapeKeys: append([]string(nil), m.ShapeKeys...),
		Faces:     make([]Face, len(m.Faces)),
		Groups:    make(map[string]*VertexGroup, len(m.Groups)),
	}
	for i, f := range m.Faces {
		c.Faces[i] = append(Face(nil), f...)
	}
	for name, g := range m.Groups {
		c.Groups[name] = g.Clone()
	}
	return c
}

// Transformed returns a copy of the mesh with every position transformed by t.
func (m *Mesh) Transformed(t math.Mat4) *Mesh {
	c := m.Clone()
	for i, p := range c.Positions {
		c.Positions[i] = t.TransformPoint(p)
	}
	return c
}

// Triangles returns a fan triangulation of every face.
func (m *Mesh) Triangles() [][3]int {
	tris := make([][3]int, 0, m.TriangleCount())
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			tris = append(tris, [3]int{f[0], f[i], f[i+1]})
		}
	}
	return tris
}

// SurfaceArea returns the summed area of the fan triangulation.
func (m *Mesh) SurfaceArea() float64 {
	var area float64
	for _, t := range m.Triangles() {
		area += math.TriangleArea(m.Positions[t[0]], m.Positions[t[1]], m.Positions[t[2]])
	}
	return area
}

// Bounds returns the axis-aligned bounding box of the positions.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	if len(m.Positions) == 0 {
		return lo, hi
	}
	lo, hi = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return lo, hi
}

// Adjacency returns, for every vertex, the sorted list of vertices sharing an
// edge with it.
func (m *Mesh) Adjacency() [][]int {
	sets := make([]map[int]struct{}, len(m.Positions))
	link := func(a, b int) {
		if sets[a] == nil {
			sets[a] = make(map[int]struct{})
		}
		sets[a][b] = struct{}{}
	}
	for _, f := range m.Faces {
		for i := range f {
			a, b := f[i], f[(i+1)%len(f)]
			if a == b {
				continue
			}
			link(a, b)
			link(b, a)
		}
	}
	adj := make([][]int, len(m.Positions))
	for v, set := range sets {
		if len(set) == 0 {
			continue
		}
		list := make([]int, 0, len(set))
		for n := range set {
			list = append(list, n)
		}
		sort.Ints(list)
		adj[v] = list
	}
	return adj
}

// Edge is an undirected edge with A < B.
type Edge struct {
	A, B int
}

// MakeEdge returns the canonical edge between a and b.
func MakeEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// EdgeFaceCounts returns how many faces use each edge.
func (m *Mesh) EdgeFaceCounts() map[Edge]int {
	counts := make(map[Edge]int)
	for _, f := range m.Faces {
		for i := range f {
			counts[MakeEdge(f[i], f[(i+1)%len(f)])]++
		}
	}
	return counts
}

// NonManifoldEdges returns the number of edges shared by more than two faces
// and the total edge count.
func (m *Mesh) NonManifoldEdges() (nonManifold, total int) {
	counts := m.EdgeFaceCounts()
	for _, c := range counts {
		if c > 2 {
			nonManifold++
		}
	}
	return nonManifold, len(counts)
}

// BlockingDeformers returns the names of deformers other than armatures.
func (m *Mesh) BlockingDeformers() []string {
	var names []string
	for _, d := range m.Deformers {
		if d.Kind != DeformerArmature {
			names = append(names, d.Name)
		}
	}
	return names
}

// ClearBlockers removes every shape key and every deformer that is not an
// armature, and reports how many of each were removed.
func (m *Mesh) ClearBlockers() (shapeKeys, deformers int) {
	shapeKeys = len(m.ShapeKeys)
	m.ShapeKeys = nil
	var kept []Deformer
	for _, d := range m.Deformers {
		if d.Kind == DeformerArmature {
			kept = append(kept, d)
			continue
		}
		deformers++
	}
	m.Deformers = kept
	return shapeKeys, deformers
}

// Group returns the named vertex group, or nil.
func (m *Mesh) Group(name string) *VertexGroup {
	if m.Groups == nil {
		return nil
	}
	return m.Groups[name]
}

// AddGroup attaches a vertex group to the mesh, replacing one with the same name.
func (m *Mesh) AddGroup(g *VertexGroup) {
	if m.Groups == nil {
		m.Groups = make(map[string]*VertexGroup)
	}
	m.Groups[g.Name] = g
}

// GroupNames returns the vertex group names in sorted order.
func (m *Mesh) GroupNames() []string {
	names := make([]string, 0, len(m.Groups))
	for name := range m.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
