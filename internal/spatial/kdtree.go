// Package spatial provides nearest-neighbour lookups over vertex positions.
package spatial

import (
	gomath "math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/Faultbox/elastic-fit/pkg/math"
)

// point is a vertex position tagged with its vertex index.
type point struct {
	pos   [3]float64
	index int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(point)
	return p.pos[d] - q.pos[d]
}

func (p point) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p point) Distance(c kdtree.Comparable) float64 {
	q := c.(point)
	var sum float64
	for i := range p.pos {
		d := p.pos[i] - q.pos[i]
		sum += d * d
	}
	return sum
}

type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p points) Pivot(d kdtree.Dim) int {
	return plane{points: p, dim: d}.pivot()
}

// plane sorts points along one dimension for median selection.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].pos[p.dim] < p.points[j].pos[p.dim]
}
func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}
func (p plane) pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }

// Neighbor is one result of a nearest-neighbour query.
type Neighbor struct {
	Index    int
	Distance float64
}

// Index is a static KD-tree over a subset of vertices.
type Index struct {
	tree *kdtree.Tree
	size int
}

// NewIndex builds an index over the vertices listed in ids. A nil ids
// indexes every position.
func NewIndex(positions []math.Vec3, ids []int) *Index {
	if ids == nil {
		ids = make([]int, len(positions))
		for i := range ids {
			ids[i] = i
		}
	}
	pts := make(points, len(ids))
	for i, id := range ids {
		p := positions[id]
		pts[i] = point{pos: [3]float64{p.X, p.Y, p.Z}, index: id}
	}
	idx := &Index{size: len(pts)}
	if len(pts) > 0 {
		idx.tree = kdtree.New(pts, false)
	}
	return idx
}

// Len returns the number of indexed vertices.
func (x *Index) Len() int {
	return x.size
}

// Nearest returns up to k indexed vertices closest to q, ordered by
// distance then vertex index.
func (x *Index) Nearest(q math.Vec3, k int) []Neighbor {
	if x.tree == nil || k <= 0 {
		return nil
	}
	if k > x.size {
		k = x.size
	}
	keep := kdtree.NewNKeeper(k)
	x.tree.NearestSet(keep, point{pos: [3]float64{q.X, q.Y, q.Z}, index: -1})

	out := make([]Neighbor, 0, k)
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		out = append(out, Neighbor{Index: c.Comparable.(point).index, Distance: gomath.Sqrt(c.Dist)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Closest returns the single closest indexed vertex, or false when the
// index is empty.
func (x *Index) Closest(q math.Vec3) (Neighbor, bool) {
	if x.tree == nil {
		return Neighbor{}, false
	}
	c, d := x.tree.Nearest(point{pos: [3]float64{q.X, q.Y, q.Z}, index: -1})
	if c == nil {
		return Neighbor{}, false
	}
	return Neighbor{Index: c.(point).index, Distance: gomath.Sqrt(d)}, true
}
