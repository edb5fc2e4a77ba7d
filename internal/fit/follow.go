package fit

import (
	gomath "math"

	"github.com/Faultbox/elastic-fit/internal/spatial"
	"github.com/Faultbox/elastic-fit/pkg/math"
)

// minFollowDistance floors neighbour distances in the inverse-distance
// weighting.
const minFollowDistance = 1e-4

// FollowOptions controls preserve-group blending.
type FollowOptions struct {
	Strength  float64
	Neighbors int
}

// FollowIndex answers follow-target lookups for one preserve group. The
// candidates are the vertices with preserve weight 0; distance is Euclidean
// on the rest positions.
type FollowIndex struct {
	rest      []math.Vec3
	weights   []float64
	preserved []int
	index     *spatial.Index
}

// NewFollowIndex indexes the rest positions for the given per-vertex
// preserve weights. A nil weights slice means no vertex is preserved.
func NewFollowIndex(rest []math.Vec3, weights []float64) *FollowIndex {
	fi := &FollowIndex{rest: rest, weights: weights}
	candidates := []int{}
	for i := range rest {
		if weights != nil && weights[i] > 0 {
			fi.preserved = append(fi.preserved, i)
		} else {
			candidates = append(candidates, i)
		}
	}
	if len(fi.preserved) > 0 {
		fi.index = spatial.NewIndex(rest, candidates)
	}
	return fi
}

// Preserved returns the number of vertices with nonzero preserve weight.
func (fi *FollowIndex) Preserved() int {
	return len(fi.preserved)
}

// Blend returns field with every preserved vertex pulled from its own
// attenuated displacement (1-w)*d towards the inverse-distance weighted
// average of its nearest candidates, by min(1, w*Strength). When fewer
// candidates exist than requested all of them are used and an
// *InsufficientNeighborsError is returned with the valid field.
func (fi *FollowIndex) Blend(field Field, opts FollowOptions) (Field, error) {
	out := field.Clone()
	if len(fi.preserved) == 0 {
		return out, nil
	}

	available := fi.index.Len()
	var warn error
	if opts.Neighbors > available {
		warn = &InsufficientNeighborsError{Requested: opts.Neighbors, Available: available}
	}

	for _, v := range fi.preserved {
		w := fi.weights[v]
		own := field[v].Scale(1 - w)
		out[v] = own
		if available == 0 {
			continue
		}
		t := gomath.Min(1, w*opts.Strength)
		if t <= 0 {
			continue
		}
		var target math.Vec3
		var total float64
		for _, n := range fi.index.Nearest(fi.rest[v], opts.Neighbors) {
			iw := 1 / gomath.Max(n.Distance, minFollowDistance)
			target = target.Add(field[n.Index].Scale(iw))
			total += iw
		}
		target = target.Scale(1 / total)
		out[v] = own.Lerp(target, t)
	}
	return out, warn
}

// BlendPreserved is NewFollowIndex followed by Blend.
func BlendPreserved(field Field, rest []math.Vec3, weights []float64, opts FollowOptions) (Field, error) {
	return NewFollowIndex(rest, weights).Blend(field, opts)
}
