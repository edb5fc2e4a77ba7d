package fit

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/elastic-fit/internal/logger"
	"github.com/Faultbox/elastic-fit/internal/toolkit"
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	Idle State = iota
	Previewing
	Applied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Previewing:
		return "previewing"
	case Applied:
		return "applied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Session. Zero values select the defaults.
type Options struct {
	Toolkit              Toolkit
	Registry             *Registry
	MaxSubdivisionLevels int
	NonManifoldTolerance float64
}

// Session fits one garment onto one body. Its methods are synchronous and
// not safe for concurrent use.
type Session struct {
	tk       Toolkit
	registry *Registry
	opts     Options
	log      *zap.Logger

	state   State
	params  Params
	body    *mesh.Mesh
	garment *mesh.Mesh

	snapshot *Snapshot
	proxy    *ProxyMesh
	disp     *Displacement
	adj      [][]int

	cache evaluation
}

// evaluation holds the outputs of every pipeline stage.
type evaluation struct {
	smoothed    Field
	tuned       Field
	blended     Field
	follow      *FollowIndex
	followGroup string
	positions   []math.Vec3
	uvs         []math.Vec2
}

// NewSession creates an idle session.
func NewSession(opts Options) *Session {
	if opts.Toolkit == nil {
		opts.Toolkit = toolkit.New()
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry
	}
	return &Session{
		tk:       opts.Toolkit,
		registry: opts.Registry,
		opts:     opts,
		log:      logger.Named("fit"),
		params:   DefaultParams(),
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Parameters returns a copy of the current parameters.
func (s *Session) Parameters() Params {
	return s.params.Clone()
}

// Displacement returns how far each garment vertex currently sits from its
// snapshot position, or nil when idle.
func (s *Session) Displacement() Field {
	if s.state == Idle || s.snapshot == nil {
		return nil
	}
	out := make(Field, len(s.snapshot.positions))
	for i, p := range s.snapshot.positions {
		out[i] = s.garment.Positions[i].Sub(p)
	}
	return out
}

// Snapshot returns the captured pre-fit state, or nil when idle.
func (s *Session) Snapshot() *Snapshot {
	return s.snapshot
}

func (s *Session) stateError(op string, expected ...State) error {
	return &InvalidStateError{Op: op, State: s.state, Expected: expected}
}

func validateInputs(body, garment *mesh.Mesh, params Params) error {
	var errs error
	if body == nil {
		errs = multierr.Append(errs, errors.New("body mesh is nil"))
	}
	if garment == nil {
		errs = multierr.Append(errs, errors.New("garment mesh is nil"))
	}
	if body != nil && body == garment {
		errs = multierr.Append(errs, errors.New("body and garment are the same mesh"))
	}
	if garment != nil {
		if len(garment.ShapeKeys) > 0 {
			errs = multierr.Append(errs, fmt.Errorf("garment has %d shape keys", len(garment.ShapeKeys)))
		}
		for _, d := range garment.BlockingDeformers() {
			errs = multierr.Append(errs, fmt.Errorf("garment has blocking deformer %q", d))
		}
		if err := garment.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("garment: %w", err))
		}
	}
	if body != nil {
		if err := body.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("body: %w", err))
		}
	}
	var verr *ValidationError
	if err := params.Validate(); errors.As(err, &verr) {
		errs = multierr.Append(errs, verr.Err)
	}
	if errs != nil {
		return &ValidationError{Err: errs}
	}
	return nil
}

// Start captures the garment, builds the proxy, projects it onto the body
// and writes the first preview. On failure the garment is untouched and the
// session stays idle.
func (s *Session) Start(body, garment *mesh.Mesh, params Params) (err error) {
	if s.state != Idle {
		return s.stateError("start", Idle)
	}
	if err := validateInputs(body, garment, params); err != nil {
		return err
	}
	if !s.registry.acquire(garment, s) {
		return &ValidationError{Err: fmt.Errorf("garment %q: %w", garment.Name, ErrGarmentLocked)}
	}
	defer func() {
		if err != nil {
			s.registry.release(garment, s)
			s.reset(s.params)
		}
	}()

	params = params.Clone()
	s.body, s.garment = body, garment
	if s.snapshot, err = Capture(garment); err != nil {
		return err
	}
	s.proxy, err = BuildProxy(s.tk, garment, ProxyOptions{
		TargetTriangles:      params.ProxyResolution,
		MaxLevels:            s.opts.MaxSubdivisionLevels,
		NonManifoldTolerance: s.opts.NonManifoldTolerance,
	})
	if err != nil {
		return err
	}
	if s.disp, err = ComputeDisplacement(s.tk, s.proxy, body, params.Offset); err != nil {
		return err
	}
	s.adj = garment.Adjacency()

	ev, err := s.evaluate(stageSmooth, params, s.disp)
	if err != nil {
		return err
	}
	s.commit(ev, params)
	s.state = Previewing
	s.log.Info("fit started",
		zap.String("garment", garment.Name),
		zap.String("body", body.Name),
		zap.Int("vertices", garment.VertexCount()),
		zap.Int("proxy_triangles", s.proxy.Mesh.TriangleCount()),
		zap.Int("proxy_levels", s.proxy.Levels))
	return nil
}

// UpdateParameter changes one parameter and re-runs the part of the
// pipeline it affects. On error the preview is left as it was.
func (s *Session) UpdateParameter(name string, value any) error {
	if s.state != Previewing {
		return s.stateError("update parameter", Previewing)
	}
	next := s.params.Clone()
	from, err := next.set(name, value)
	if err != nil {
		return err
	}
	return s.rerun(name, from, next)
}

func (s *Session) rerun(name string, from stage, next Params) error {
	if err := next.Validate(); err != nil {
		return err
	}
	ev, err := s.evaluate(from, next, s.disp)
	if err != nil {
		return err
	}
	s.commit(ev, next)
	s.log.Debug("parameter updated", zap.String("param", name), zap.Stringer("rerun_from", from))
	return nil
}

// AddOffsetEntry appends an offset fine tuning entry.
func (s *Session) AddOffsetEntry(group string, influence float64) error {
	if s.state != Previewing {
		return s.stateError("add offset entry", Previewing)
	}
	next := s.params.Clone()
	next.OffsetGroups = append(next.OffsetGroups, OffsetEntry{Group: group, Influence: influence})
	return s.rerun(ParamOffsetGroups, stageTune, next)
}

// SetOffsetInfluence changes the influence of entry i.
func (s *Session) SetOffsetInfluence(i int, influence float64) error {
	if s.state != Previewing {
		return s.stateError("set offset influence", Previewing)
	}
	if i < 0 || i >= len(s.params.OffsetGroups) {
		return &ValidationError{Err: fmt.Errorf("offset entry %d of %d: %w", i, len(s.params.OffsetGroups), ErrOutOfRange)}
	}
	next := s.params.Clone()
	next.OffsetGroups[i].Influence = influence
	return s.rerun(ParamOffsetGroups, stageTune, next)
}

// RemoveOffsetEntry deletes entry i.
func (s *Session) RemoveOffsetEntry(i int) error {
	if s.state != Previewing {
		return s.stateError("remove offset entry", Previewing)
	}
	if i < 0 || i >= len(s.params.OffsetGroups) {
		return &ValidationError{Err: fmt.Errorf("offset entry %d of %d: %w", i, len(s.params.OffsetGroups), ErrOutOfRange)}
	}
	next := s.params.Clone()
	next.OffsetGroups = append(next.OffsetGroups[:i], next.OffsetGroups[i+1:]...)
	return s.rerun(ParamOffsetGroups, stageTune, next)
}

// ResetParameters returns every parameter to its default and re-runs the
// whole pipeline on the cached proxy. Proxy resolution and UV preservation
// need a refit, so they are kept along with the preserve group and the
// offset entries.
func (s *Session) ResetParameters() error {
	if s.state != Previewing {
		return s.stateError("reset parameters", Previewing)
	}
	next := DefaultParams()
	next.ProxyResolution = s.params.ProxyResolution
	next.PreserveUVs = s.params.PreserveUVs
	next.PreserveGroup = s.params.PreserveGroup
	next.OffsetGroups = append([]OffsetEntry(nil), s.params.OffsetGroups...)
	return s.rerun("defaults", stageSmooth, next)
}

// UpdateBody re-projects the cached proxy onto a changed body, for example
// after a pose change, and re-runs the whole pipeline.
func (s *Session) UpdateBody(body *mesh.Mesh) error {
	if s.state != Previewing {
		return s.stateError("update body", Previewing)
	}
	if body == nil || body == s.garment {
		return &ValidationError{Err: errors.New("body must be a mesh other than the garment")}
	}
	if err := body.Validate(); err != nil {
		return &ValidationError{Err: fmt.Errorf("body: %w", err)}
	}
	disp, err := ComputeDisplacement(s.tk, s.proxy, body, s.params.Offset)
	if err != nil {
		return err
	}
	ev, err := s.evaluate(stageSmooth, s.params, disp)
	if err != nil {
		return err
	}
	s.body, s.disp = body, disp
	s.commit(ev, s.params)
	s.log.Info("body updated", zap.String("body", body.Name))
	return nil
}

// evaluate runs the pipeline from the given stage into fresh buffers,
// reusing cached outputs of earlier stages.
func (s *Session) evaluate(from stage, p Params, disp *Displacement) (evaluation, error) {
	ev := s.cache
	if from <= stageSmooth {
		ev.smoothed = SmoothAdaptive(disp.WithOffset(p.Offset), s.adj, SmoothOptions{
			Passes:            p.SmoothPasses,
			GradientThreshold: p.GradientThreshold,
			MinBlend:          p.MinSmoothBlend,
			MaxBlend:          p.MaxSmoothBlend,
		})
	}
	if from <= stageTune {
		mult, missing := OffsetMultipliers(s.garment, p.OffsetGroups)
		for _, name := range missing {
			s.log.Warn("offset group not found, skipped", zap.String("group", name))
		}
		ev.tuned = ApplyOffsetTuning(ev.smoothed, disp.Normals, p.Offset, mult)
	}
	if from <= stageFollow {
		if ev.follow == nil || ev.followGroup != p.PreserveGroup {
			ev.follow = NewFollowIndex(s.snapshot.positions, s.preserveWeights(p.PreserveGroup))
			ev.followGroup = p.PreserveGroup
		}
		blended, err := ev.follow.Blend(ev.tuned, FollowOptions{
			Strength:  p.FollowStrength,
			Neighbors: p.FollowNeighbors,
		})
		var short *InsufficientNeighborsError
		switch {
		case errors.As(err, &short):
			s.log.Warn("not enough follow neighbours, using all available",
				zap.Int("requested", short.Requested), zap.Int("available", short.Available))
		case err != nil:
			return evaluation{}, err
		}
		ev.blended = blended
	}

	rest := s.snapshot.positions
	pos := make([]math.Vec3, len(rest))
	for i, r := range rest {
		pos[i] = r.Add(ev.blended[i].Scale(p.FitAmount))
	}
	if p.LiveSmooth {
		mask := s.smoothingMask(p.PreserveGroup)
		pos = s.corrective(p, pos, mask)
		pos = s.laplacian(p, pos, mask)
	}
	ev.positions = pos
	if p.PreserveUVs {
		ev.uvs = s.snapshot.UVs()
	} else {
		ev.uvs = append([]math.Vec2(nil), s.garment.UVs...)
	}
	return ev, nil
}

func (s *Session) commit(ev evaluation, p Params) {
	s.garment.Positions = ev.positions
	s.garment.UVs = ev.uvs
	ev.positions, ev.uvs = nil, nil
	s.cache = ev
	s.params = p
}

// preserveWeights returns the dense preserve group weights, nil when the
// group is unset or missing.
func (s *Session) preserveWeights(group string) []float64 {
	if group == "" {
		return nil
	}
	g := s.garment.Group(group)
	if g == nil {
		s.log.Warn("preserve group not found, ignored", zap.String("group", group))
		return nil
	}
	return g.Dense(s.garment.VertexCount())
}

// smoothingMask excludes the preserve group from smoothing through its
// inverted weights.
func (s *Session) smoothingMask(group string) []float64 {
	w := s.preserveWeights(group)
	if w == nil {
		return nil
	}
	for i := range w {
		w[i] = 1 - w[i]
	}
	return w
}

// symmetrizeMask deselects every vertex touched by the preserve group.
func (s *Session) symmetrizeMask(group string) []float64 {
	w := s.preserveWeights(group)
	if w == nil {
		return nil
	}
	for i := range w {
		if w[i] > 0 {
			w[i] = 0
		} else {
			w[i] = 1
		}
	}
	return w
}

func (s *Session) view(pos []math.Vec3) *mesh.Mesh {
	return &mesh.Mesh{Name: s.garment.Name, Positions: pos, Faces: s.garment.Faces, UVs: s.garment.UVs}
}

func (s *Session) corrective(p Params, pos []math.Vec3, mask []float64) []math.Vec3 {
	if p.ElasticIterations == 0 || p.ElasticStrength == 0 {
		return pos
	}
	return s.tk.CorrectiveSmooth(s.view(pos), s.snapshot.positions, p.ElasticStrength, p.ElasticIterations, mask)
}

func (s *Session) laplacian(p Params, pos []math.Vec3, mask []float64) []math.Vec3 {
	if !p.PostLaplacian {
		return pos
	}
	return s.tk.LaplacianSmooth(s.view(pos), p.LaplacianFactor, p.LaplacianIterations, mask)
}

// Apply bakes the preview into the garment: smoothing that was not live is
// run now, the garment is symmetrized if configured and UVs are restored.
// The snapshot is kept so Remove can undo the fit later.
func (s *Session) Apply() error {
	if s.state != Previewing {
		return s.stateError("apply", Previewing)
	}
	p := s.params
	pos := append([]math.Vec3(nil), s.garment.Positions...)
	uvs := append([]math.Vec2(nil), s.garment.UVs...)
	mask := s.smoothingMask(p.PreserveGroup)

	if !p.LiveSmooth {
		pos = s.corrective(p, pos, mask)
	}
	if p.Symmetrize {
		v := s.view(pos)
		v.UVs = uvs
		mirror, err := s.tk.Symmetrize(v, s.snapshot.positions, p.SymmetrizeAxis, s.symmetrizeMask(p.PreserveGroup))
		if err != nil {
			return fmt.Errorf("apply: symmetrize: %w", err)
		}
		pos, uvs = mirror.Positions, mirror.UVs
		s.log.Debug("symmetrized", zap.String("source", string(mirror.Source)), zap.Int("mirrored", mirror.Mirrored))
	}
	if !p.LiveSmooth {
		pos = s.laplacian(p, pos, mask)
	}
	if p.PreserveUVs {
		uvs = s.snapshot.UVs()
	}

	s.garment.Positions = pos
	s.garment.UVs = uvs
	s.registry.release(s.garment, s)
	s.proxy, s.disp, s.adj = nil, nil, nil
	s.cache = evaluation{}
	s.state = Applied
	s.log.Info("fit applied", zap.String("garment", s.garment.Name))
	return nil
}

// Cancel restores the snapshot and ends the preview.
func (s *Session) Cancel() error {
	if s.state != Previewing {
		return s.stateError("cancel", Previewing)
	}
	s.snapshot.Restore(s.garment)
	s.registry.release(s.garment, s)
	s.log.Info("fit cancelled", zap.String("garment", s.garment.Name))
	s.reset(s.params)
	return nil
}

// Remove restores the snapshot of an applied fit. It fails while another
// session is previewing the same garment.
func (s *Session) Remove() error {
	if s.state != Applied {
		return s.stateError("remove", Applied)
	}
	if s.registry.Locked(s.garment) {
		s.log.Warn("remove refused, garment is being previewed", zap.String("garment", s.garment.Name))
		return &ValidationError{Err: fmt.Errorf("remove fit from %q: %w", s.garment.Name, ErrGarmentLocked)}
	}
	s.snapshot.Restore(s.garment)
	s.log.Info("fit removed", zap.String("garment", s.garment.Name))
	s.reset(s.params)
	return nil
}

func (s *Session) reset(p Params) {
	*s = Session{
		tk:       s.tk,
		registry: s.registry,
		opts:     s.opts,
		log:      s.log,
		params:   p,
	}
}
