package mesh

import "sort"

// VertexGroup maps vertex indices to weights in [0,1].
type VertexGroup struct {
	Name    string
	Weights map[int]float64
}

// NewVertexGroup creates an empty group.
func NewVertexGroup(name string) *VertexGroup {
	return &VertexGroup{Name: name, Weights: make(map[int]float64)}
}

// Set assigns a weight, clamped to [0,1]. A zero weight removes the vertex.
func (g *VertexGroup) Set(vertex int, weight float64) {
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	if weight == 0 {
		delete(g.Weights, vertex)
		return
	}
	g.Weights[vertex] = weight
}

// Weight returns the weight of a vertex, zero when unassigned.
func (g *VertexGroup) Weight(vertex int) float64 {
	if g == nil {
		return 0
	}
	return g.Weights[vertex]
}

// Dense returns the weights as a slice of length n.
func (g *VertexGroup) Dense(n int) []float64 {
	out := make([]float64, n)
	if g == nil {
		return out
	}
	for v, w := range g.Weights {
		if v >= 0 && v < n {
			out[v] = w
		}
	}
	return out
}

// Vertices returns the assigned vertex indices in ascending order.
func (g *VertexGroup) Vertices() []int {
	vs := make([]int, 0, len(g.Weights))
	for v := range g.Weights {
		vs = append(vs, v)
	}
	sort.Ints(vs)
	return vs
}

// Clone returns a deep copy.
func (g *VertexGroup) Clone() *VertexGroup {
	c := NewVertexGroup(g.Name)
	for v, w := range g.Weights {
		c.Weights[v] = w
	}
	return c
}
