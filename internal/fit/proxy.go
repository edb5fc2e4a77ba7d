package fit

import (
	gomath "math"
	"sort"

	"go.uber.org/zap"

	"github.com/Faultbox/elastic-fit/internal/logger"
	"github.com/Faultbox/elastic-fit/internal/toolkit"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// MaxOrigins is the capacity of one OriginMap entry.
const MaxOrigins = 8

// Proxy build defaults.
const (
	DefaultMaxSubdivisionLevels = 6
	DefaultNonManifoldTolerance = 0.01
)

// OriginRef is one weighted proxy vertex contributing to an original vertex.
type OriginRef struct {
	Proxy  int
	Weight float64
}

// OriginEntry lists the proxy vertices tracing back to one original vertex,
// heaviest first.
type OriginEntry struct {
	Count int
	Refs  [MaxOrigins]OriginRef
}

// insert keeps the MaxOrigins heaviest references. Proxies arrive in
// ascending order so an equal weight never evicts an earlier proxy.
func (e *OriginEntry) insert(proxy int, w float64) {
	if w <= 0 {
		return
	}
	if e.Count < MaxOrigins {
		e.Refs[e.Count] = OriginRef{Proxy: proxy, Weight: w}
		e.Count++
		return
	}
	lightest := 0
	for i := 1; i < e.Count; i++ {
		r, l := e.Refs[i], e.Refs[lightest]
		if r.Weight < l.Weight || (r.Weight == l.Weight && r.Proxy > l.Proxy) {
			lightest = i
		}
	}
	if w > e.Refs[lightest].Weight {
		e.Refs[lightest] = OriginRef{Proxy: proxy, Weight: w}
	}
}

func (e *OriginEntry) sort() {
	refs := e.Refs[:e.Count]
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Weight != refs[j].Weight {
			return refs[i].Weight > refs[j].Weight
		}
		return refs[i].Proxy < refs[j].Proxy
	})
}

// identityWeight is the weight of a proxy vertex that is an original vertex
// left in place by subdivision.
const identityWeight = 1 - 1e-12

// Identity returns the proxy vertex that is this original vertex unchanged
// by subdivision, if there is one.
func (e *OriginEntry) Identity() (int, bool) {
	if e.Count > 0 && e.Refs[0].Weight >= identityWeight {
		return e.Refs[0].Proxy, true
	}
	return 0, false
}

// OriginMap is indexed by original vertex.
type OriginMap []OriginEntry

// NewOriginMap folds per-proxy-vertex origins back onto n original vertices.
func NewOriginMap(n int, origins []toolkit.Origin) OriginMap {
	m := make(OriginMap, n)
	for p, o := range origins {
		for k := 0; k < o.Count; k++ {
			v := o.Vertices[k]
			if v < 0 || v >= n {
				continue
			}
			m[v].insert(p, o.Weights[k])
		}
	}
	for i := range m {
		m[i].sort()
	}
	return m
}

// ProxyMesh is the subdivided stand-in for the garment during a session.
type ProxyMesh struct {
	Mesh    *mesh.Mesh
	Origins []toolkit.Origin
	Map     OriginMap
	Levels  int
}

// ProxyOptions controls BuildProxy.
type ProxyOptions struct {
	TargetTriangles      int
	MaxLevels            int
	NonManifoldTolerance float64
}

// SubdivisionLevels returns the number of 1-to-4 subdivisions that brings
// current triangles closest to target, at least one when target is larger.
func SubdivisionLevels(current, target int) int {
	if current <= 0 || target <= current {
		return 0
	}
	levels := int(gomath.Round(gomath.Log(float64(target)/float64(current)) / gomath.Log(4)))
	if levels < 1 {
		levels = 1
	}
	return levels
}

// BuildProxy subdivides the garment until it has at least
// opts.TargetTriangles triangles or opts.MaxLevels is reached.
func BuildProxy(tk Toolkit, garment *mesh.Mesh, opts ProxyOptions) (*ProxyMesh, error) {
	log := logger.Named("proxy")
	if opts.MaxLevels <= 0 {
		opts.MaxLevels = DefaultMaxSubdivisionLevels
	}
	if opts.NonManifoldTolerance <= 0 {
		opts.NonManifoldTolerance = DefaultNonManifoldTolerance
	}

	if len(garment.Faces) == 0 {
		return nil, &ProxyBuildError{Reason: "garment has no faces"}
	}
	if err := garment.Validate(); err != nil {
		return nil, &ProxyBuildError{Reason: "invalid garment", Err: err}
	}
	nonManifold, edges := garment.NonManifoldEdges()
	if float64(nonManifold) > opts.NonManifoldTolerance*float64(edges) {
		return nil, &ProxyBuildError{Reason: "garment is non-manifold"}
	}
	if nonManifold > 0 {
		log.Warn("non-manifold edges within tolerance",
			zap.Int("non_manifold", nonManifold), zap.Int("edges", edges))
	}

	tris := garment.TriangleCount()
	levels := SubdivisionLevels(tris, opts.TargetTriangles)
	if levels > opts.MaxLevels {
		levels = opts.MaxLevels
	}
	for {
		out, origins, err := tk.Subdivide(garment, levels)
		if err != nil {
			return nil, &ProxyBuildError{Reason: "subdivide", Err: err}
		}
		got := out.TriangleCount()
		if got < opts.TargetTriangles && levels < opts.MaxLevels {
			levels++
			continue
		}
		if len(origins) != out.VertexCount() {
			return nil, &ProxyBuildError{Reason: "subdivision origins do not match proxy vertices"}
		}
		log.Debug("proxy built",
			zap.Int("levels", levels),
			zap.Int("triangles", got),
			zap.Int("vertices", out.VertexCount()))
		return &ProxyMesh{
			Mesh:    out,
			Origins: origins,
			Map:     NewOriginMap(garment.VertexCount(), origins),
			Levels:  levels,
		}, nil
	}
}
