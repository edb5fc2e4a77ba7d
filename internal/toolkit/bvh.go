package toolkit

import (
	gomath "math"
	"sort"

	"github.com/Faultbox/elastic-fit/pkg/math"
)

type bvhTriangle struct {
	A, B, C  math.Vec3
	Centroid math.Vec3
	Index    int
}

type box struct {
	Lo, Hi math.Vec3

	Left, Right *box
	Triangles   []bvhTriangle
}

func (b *box) isLeaf() bool {
	return b.Left == nil
}

// distanceSq returns the squared distance from p to the box, zero inside.
func (b *box) distanceSq(p math.Vec3) float64 {
	var d float64
	for i := 0; i < 3; i++ {
		v := p.Axis(i)
		lo, hi := b.Lo.Axis(i), b.Hi.Axis(i)
		if v < lo {
			d += (lo - v) * (lo - v)
		} else if v > hi {
			d += (v - hi) * (v - hi)
		}
	}
	return d
}

// bvh answers closest-point queries against a triangle soup.
type bvh struct {
	root *box
}

func buildBVH(verts []math.Vec3, tris [][3]int, leafSize int) *bvh {
	if leafSize < 1 {
		leafSize = 4
	}
	triangles := make([]bvhTriangle, len(tris))
	for i, t := range tris {
		a, b, c := verts[t[0]], verts[t[1]], verts[t[2]]
		triangles[i] = bvhTriangle{
			A:        a,
			B:        b,
			C:        c,
			Centroid: a.Add(b).Add(c).Scale(1.0 / 3.0),
			Index:    i,
		}
	}
	return &bvh{root: buildBox(triangles, leafSize)}
}

func buildBox(tris []bvhTriangle, leafSize int) *box {
	b := &box{
		Lo: math.Vec3{X: gomath.Inf(1), Y: gomath.Inf(1), Z: gomath.Inf(1)},
		Hi: math.Vec3{X: gomath.Inf(-1), Y: gomath.Inf(-1), Z: gomath.Inf(-1)},
	}
	for _, t := range tris {
		b.Lo = b.Lo.Min(t.A).Min(t.B).Min(t.C)
		b.Hi = b.Hi.Max(t.A).Max(t.B).Max(t.C)
	}
	if len(tris) <= leafSize {
		b.Triangles = tris
		return b
	}

	// Split on the median centroid along the longest axis.
	ext := b.Hi.Sub(b.Lo)
	biggest := 0
	if ext.Y > ext.X {
		biggest = 1
	}
	if ext.Z > ext.Axis(biggest) {
		biggest = 2
	}
	sort.Slice(tris, func(i, j int) bool {
		ci, cj := tris[i].Centroid.Axis(biggest), tris[j].Centroid.Axis(biggest)
		if ci != cj {
			return ci < cj
		}
		return tris[i].Index < tris[j].Index
	})
	half := len(tris) / 2
	b.Left = buildBox(tris[:half], leafSize)
	b.Right = buildBox(tris[half:], leafSize)
	return b
}

// closest returns the closest surface point to p and the index of the
// triangle it lies on. Ties are resolved towards the lower triangle index.
func (t *bvh) closest(p math.Vec3) (math.Vec3, int) {
	best := gomath.Inf(1)
	bestIndex := -1
	var bestPoint math.Vec3

	stack := []*box{t.root}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if b.distanceSq(p) > best {
			continue
		}
		if b.isLeaf() {
			for _, tri := range b.Triangles {
				q := math.ClosestPointOnTriangle(p, tri.A, tri.B, tri.C)
				d := q.Sub(p).LengthSq()
				if d < best || (d == best && tri.Index < bestIndex) {
					best, bestIndex, bestPoint = d, tri.Index, q
				}
			}
			continue
		}
		// Visit the nearer child first.
		near, far := b.Left, b.Right
		if far.distanceSq(p) < near.distanceSq(p) {
			near, far = far, near
		}
		stack = append(stack, far, near)
	}
	return bestPoint, bestIndex
}
