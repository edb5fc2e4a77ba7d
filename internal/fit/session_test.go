package fit

import (
	"errors"
	gomath "math"
	"testing"

	"go.uber.org/multierr"

	"github.com/Faultbox/elastic-fit/internal/toolkit"
	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

func TestCancelRestoresSnapshot(t *testing.T) {
	body, garment := sphereScenario(0.001)
	before := copyPositions(garment)
	beforeUVs := copyUVs(garment)

	s := startSession(t, body, garment, testParams())
	if s.State() != Previewing {
		t.Fatalf("state = %s, want previewing", s.State())
	}
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if s.State() != Idle {
		t.Errorf("state = %s, want idle", s.State())
	}
	samePositions(t, "after cancel", garment.Positions, before)
	sameUVs(t, "after cancel", garment.UVs, beforeUVs)
}

func TestCancelAfterUpdatesRestoresSnapshot(t *testing.T) {
	body, garment := floorAndSheet()
	before := copyPositions(garment)

	s := startSession(t, body, garment, testParams())
	for _, u := range []struct {
		name  string
		value any
	}{
		{ParamFitAmount, 1.0},
		{ParamSmoothPasses, 3},
		{ParamLiveSmooth, true},
		{ParamOffset, 0.05},
	} {
		if err := s.UpdateParameter(u.name, u.value); err != nil {
			t.Fatalf("UpdateParameter(%s): %v", u.name, err)
		}
	}
	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	samePositions(t, "after cancel", garment.Positions, before)
}

func TestPreserveUVsRoundTrip(t *testing.T) {
	body, garment := sphereScenario(0.001)
	want := copyUVs(garment)

	p := testParams()
	p.Symmetrize = true
	p.LiveSmooth = true
	p.PostLaplacian = true
	s := startSession(t, body, garment, p)
	sameUVs(t, "preview", garment.UVs, want)

	if err := s.UpdateParameter(ParamFitAmount, 1.0); err != nil {
		t.Fatalf("UpdateParameter: %v", err)
	}
	sameUVs(t, "after update", garment.UVs, want)

	if err := s.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	sameUVs(t, "after apply", garment.UVs, want)
}

func TestFitAmountMonotonic(t *testing.T) {
	body := mesh.UVSphere("body", 1, 16, 12)
	garment := mesh.UVSphere("coat", 1.3, 16, 12)

	p := testParams()
	p.FitAmount = 0
	s := startSession(t, body, garment, p)

	prev := make([]float64, garment.VertexCount())
	for i, v := range garment.Positions {
		prev[i] = surfaceDistance(v, body)
	}
	for _, amount := range []float64{0.25, 0.5, 0.75, 1} {
		if err := s.UpdateParameter(ParamFitAmount, amount); err != nil {
			t.Fatalf("UpdateParameter(%v): %v", amount, err)
		}
		for i, v := range garment.Positions {
			d := surfaceDistance(v, body)
			if d > prev[i]+1e-9 {
				t.Fatalf("fit %v vertex %d: distance grew from %v to %v", amount, i, prev[i], d)
			}
			prev[i] = d
		}
	}
}

func TestFitAmountZeroKeepsPositions(t *testing.T) {
	body, garment := sphereScenario(0.001)
	before := copyPositions(garment)

	p := testParams()
	p.FitAmount = 0
	startSession(t, body, garment, p)
	samePositions(t, "fit amount 0", garment.Positions, before)
}

func TestZeroOffsetFullFitLandsOnSurface(t *testing.T) {
	body, garment := floorAndSheet()

	p := testParams()
	p.FitAmount = 1
	p.Offset = 0
	p.SmoothPasses = 0
	startSession(t, body, garment, p)

	for i, v := range garment.Positions {
		if gomath.Abs(v.Z) > 1e-12 {
			t.Errorf("vertex %d: z = %v, want 0", i, v.Z)
		}
		if d := surfaceDistance(v, body); d > 1e-12 {
			t.Errorf("vertex %d: %v from surface", i, d)
		}
	}
}

func TestZeroOffsetFullFitLandsOnCurvedBody(t *testing.T) {
	tests := []struct {
		name    string
		body    *mesh.Mesh
		garment *mesh.Mesh
	}{
		{"same layout", mesh.UVSphere("body", 1, 25, 21), mesh.UVSphere("shirt", 1.3, 25, 21)},
		{"coarse body", mesh.UVSphere("body", 1, 16, 12), mesh.UVSphere("shirt", 1.05, 25, 21)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			p.FitAmount = 1
			p.Offset = 0
			p.SmoothPasses = 0
			startSession(t, tt.body, tt.garment, p)

			for i, v := range tt.garment.Positions {
				if d := surfaceDistance(v, tt.body); d > 1e-9 {
					t.Errorf("vertex %d: %v from surface", i, d)
				}
			}
		})
	}
}

func TestFullFitFromDistanceWithinOffsetShell(t *testing.T) {
	const offset = 0.001
	body := mesh.UVSphere("body", 1, 25, 21)
	garment := mesh.UVSphere("shirt", 1.05, 25, 21)

	p := testParams()
	p.FitAmount = 1
	p.Offset = offset
	p.SmoothPasses = 0
	startSession(t, body, garment, p)

	lo, hi := 1+offset*0.9, 1+offset*1.1
	for i, v := range garment.Positions {
		if r := v.Length(); r < lo || r > hi {
			t.Errorf("vertex %d: radius %v outside [%v, %v]", i, r, lo, hi)
		}
	}
}

func TestSphereScenarioWithinOffsetShell(t *testing.T) {
	const offset = 0.001
	body, garment := sphereScenario(offset)
	if garment.VertexCount() < 500 {
		t.Fatalf("fixture has %d vertices", garment.VertexCount())
	}

	p := testParams()
	p.FitAmount = 0.65
	p.Offset = offset
	startSession(t, body, garment, p)

	lo, hi := 1+offset*0.9, 1+offset*1.1
	for i, v := range garment.Positions {
		if r := v.Length(); r < lo || r > hi {
			t.Errorf("vertex %d: radius %v outside [%v, %v]", i, r, lo, hi)
		}
	}
}

func TestOffsetUpdateSlidesAlongNormal(t *testing.T) {
	body, garment := floorAndSheet()

	p := testParams()
	p.FitAmount = 1
	p.Offset = 0.01
	p.SmoothPasses = 0
	s := startSession(t, body, garment, p)

	if err := s.UpdateParameter(ParamOffset, 0.02); err != nil {
		t.Fatalf("UpdateParameter: %v", err)
	}
	for i, v := range garment.Positions {
		if gomath.Abs(v.Z-0.02) > 1e-12 {
			t.Fatalf("vertex %d: z = %v, want 0.02", i, v.Z)
		}
	}
}

func TestNeutralOffsetEntryMatchesNoEntry(t *testing.T) {
	run := func(entries []OffsetEntry) []math.Vec3 {
		body, garment := sphereScenario(0.001)
		g := mesh.NewVertexGroup("sleeve")
		for v := 0; v < garment.VertexCount(); v += 3 {
			g.Set(v, 0.37)
		}
		garment.AddGroup(g)

		p := testParams()
		p.OffsetGroups = entries
		startSession(t, body, garment, p)
		return garment.Positions
	}

	plain := run(nil)
	neutral := run([]OffsetEntry{{Group: "sleeve", Influence: 1}})
	samePositions(t, "neutral entry", neutral, plain)
}

func TestOffsetInfluenceScalesGap(t *testing.T) {
	tests := []struct {
		name      string
		influence float64
		wantZ     float64
	}{
		{"flush", 0, 0},
		{"neutral", 1, 0.01},
		{"double", 2, 0.02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, garment := floorAndSheet()
			g := mesh.NewVertexGroup("all")
			for v := range garment.Positions {
				g.Set(v, 1)
			}
			garment.AddGroup(g)

			p := testParams()
			p.FitAmount = 1
			p.Offset = 0.01
			p.SmoothPasses = 0
			s := startSession(t, body, garment, p)
			if err := s.AddOffsetEntry("all", tt.influence); err != nil {
				t.Fatalf("AddOffsetEntry: %v", err)
			}
			for i, v := range garment.Positions {
				if gomath.Abs(v.Z-tt.wantZ) > 1e-12 {
					t.Fatalf("vertex %d: z = %v, want %v", i, v.Z, tt.wantZ)
				}
			}

			if err := s.RemoveOffsetEntry(0); err != nil {
				t.Fatalf("RemoveOffsetEntry: %v", err)
			}
			if gomath.Abs(garment.Positions[0].Z-0.01) > 1e-12 {
				t.Errorf("after remove z = %v, want 0.01", garment.Positions[0].Z)
			}
		})
	}
}

func TestOffsetEntryEditing(t *testing.T) {
	body, garment := floorAndSheet()
	g := mesh.NewVertexGroup("all")
	for v := range garment.Positions {
		g.Set(v, 1)
	}
	garment.AddGroup(g)

	p := testParams()
	p.FitAmount = 1
	p.Offset = 0.01
	p.SmoothPasses = 0
	s := startSession(t, body, garment, p)

	if err := s.AddOffsetEntry("all", 1); err != nil {
		t.Fatalf("AddOffsetEntry: %v", err)
	}
	if err := s.SetOffsetInfluence(0, 0.5); err != nil {
		t.Fatalf("SetOffsetInfluence: %v", err)
	}
	if got := garment.Positions[0].Z; gomath.Abs(got-0.005) > 1e-12 {
		t.Errorf("z = %v, want 0.005", got)
	}
	if err := s.SetOffsetInfluence(3, 0.5); !errors.Is(err, ErrValidation) {
		t.Errorf("SetOffsetInfluence out of range: err = %v", err)
	}
	if err := s.SetOffsetInfluence(0, 2.5); !errors.Is(err, ErrValidation) {
		t.Errorf("SetOffsetInfluence 2.5: err = %v", err)
	}
	if got := s.Parameters().OffsetGroups[0].Influence; got != 0.5 {
		t.Errorf("influence = %v after rejected update, want 0.5", got)
	}

	// Missing groups are skipped.
	if err := s.AddOffsetEntry("nope", 0); err != nil {
		t.Fatalf("AddOffsetEntry missing group: %v", err)
	}
	if got := garment.Positions[0].Z; gomath.Abs(got-0.005) > 1e-12 {
		t.Errorf("z = %v after missing group, want 0.005", got)
	}
}

func TestPreservedVertexNeverMoves(t *testing.T) {
	body, garment := floorAndSheet()
	band := mesh.NewVertexGroup("band")
	for v := 0; v <= 4; v++ {
		band.Set(v, 1)
	}
	for v := 5; v <= 9; v++ {
		band.Set(v, 0.5)
	}
	garment.AddGroup(band)
	before := copyPositions(garment)

	p := testParams()
	p.PreserveGroup = "band"
	p.FollowStrength = 0
	p.FitAmount = 1
	p.Symmetrize = true
	s := startSession(t, body, garment, p)

	check := func(what string) {
		t.Helper()
		for v := 0; v <= 4; v++ {
			if garment.Positions[v] != before[v] {
				t.Fatalf("%s: preserved vertex %d moved to %v", what, v, garment.Positions[v])
			}
		}
	}
	check("preview")
	if garment.Positions[12] == before[12] {
		t.Error("unpreserved vertex did not move")
	}

	for _, u := range []struct {
		name  string
		value any
	}{
		{ParamLiveSmooth, true},
		{ParamPostLaplacian, true},
		{ParamOffset, 0.2},
		{ParamSmoothPasses, 50},
		{ParamMaxSmoothBlend, 1.0},
	} {
		if err := s.UpdateParameter(u.name, u.value); err != nil {
			t.Fatalf("UpdateParameter(%s): %v", u.name, err)
		}
		check(u.name)
	}
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	check("apply")
}

func TestFollowPullsPreservedVertices(t *testing.T) {
	body, garment := floorAndSheet()
	band := mesh.NewVertexGroup("band")
	for v := 0; v <= 4; v++ {
		band.Set(v, 1)
	}
	garment.AddGroup(band)

	p := testParams()
	p.FitAmount = 1
	p.SmoothPasses = 0
	p.PreserveGroup = "band"
	p.FollowStrength = 0
	s := startSession(t, body, garment, p)
	if garment.Positions[0].Z != 0.5 {
		t.Fatalf("preserved z = %v, want 0.5", garment.Positions[0].Z)
	}

	// Every candidate drops to the floor, so full follow does too.
	if err := s.UpdateParameter(ParamFollowStrength, 1.0); err != nil {
		t.Fatalf("UpdateParameter: %v", err)
	}
	for v := 0; v <= 4; v++ {
		if z := garment.Positions[v].Z; gomath.Abs(z-p.Offset) > 1e-9 {
			t.Errorf("vertex %d: z = %v, want %v", v, z, p.Offset)
		}
	}

	if err := s.UpdateParameter(ParamPreserveGroup, ""); err != nil {
		t.Fatalf("UpdateParameter: %v", err)
	}
	if got := s.Parameters().PreserveGroup; got != "" {
		t.Errorf("preserve group = %q", got)
	}
}

func TestRequiresRefitKeepsPreview(t *testing.T) {
	body, garment := sphereScenario(0.001)
	s := startSession(t, body, garment, testParams())
	preview := copyPositions(garment)

	for _, name := range []string{ParamProxyResolution, ParamPreserveUVs} {
		err := s.UpdateParameter(name, 20000)
		var refit *RequiresRefitError
		if !errors.As(err, &refit) || refit.Param != name {
			t.Fatalf("UpdateParameter(%s): err = %v, want RequiresRefitError", name, err)
		}
		if !errors.Is(err, ErrRequiresRefit) {
			t.Errorf("errors.Is(ErrRequiresRefit) = false")
		}
	}
	if s.State() != Previewing {
		t.Errorf("state = %s, want previewing", s.State())
	}
	samePositions(t, "after refit error", garment.Positions, preview)
	if got := s.Parameters().ProxyResolution; got != 10000 {
		t.Errorf("proxy resolution = %d, want 10000", got)
	}
}

func TestSymmetrizeRequiresApply(t *testing.T) {
	body, garment := floorAndSheet()
	s := startSession(t, body, garment, testParams())
	for _, name := range []string{ParamSymmetrize, ParamSymmetrizeAxis} {
		if err := s.UpdateParameter(name, true); !errors.Is(err, ErrRequiresApply) {
			t.Errorf("UpdateParameter(%s): err = %v, want ErrRequiresApply", name, err)
		}
	}
}

func TestUpdateParameterRejectsBadValues(t *testing.T) {
	body, garment := floorAndSheet()
	s := startSession(t, body, garment, testParams())
	preview := copyPositions(garment)

	tests := []struct {
		name  string
		param string
		value any
		want  error
	}{
		{"out of range", ParamFitAmount, 1.5, ErrOutOfRange},
		{"negative passes", ParamSmoothPasses, -1, ErrOutOfRange},
		{"wrong type", ParamLiveSmooth, 3.0, ErrValidation},
		{"unknown", "wobble", 1.0, ErrUnknownParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.UpdateParameter(tt.param, tt.value)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			samePositions(t, tt.name, garment.Positions, preview)
		})
	}
	if got := s.Parameters().FitAmount; got != 0.65 {
		t.Errorf("fit amount = %v, want 0.65", got)
	}
}

func TestApplyAndRemove(t *testing.T) {
	body, garment := sphereScenario(0.001)
	before := copyPositions(garment)
	reg := NewRegistry()
	s := NewSession(Options{Registry: reg})

	if err := s.Start(body, garment, testParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !reg.Locked(garment) {
		t.Error("garment not locked while previewing")
	}
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.State() != Applied {
		t.Fatalf("state = %s, want applied", s.State())
	}
	if reg.Locked(garment) {
		t.Error("garment still locked after apply")
	}
	if s.Displacement() == nil {
		t.Error("no displacement after apply")
	}
	if err := s.UpdateParameter(ParamFitAmount, 0.1); !errors.Is(err, ErrInvalidState) {
		t.Errorf("UpdateParameter after apply: err = %v", err)
	}

	if err := s.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.State() != Idle {
		t.Errorf("state = %s, want idle", s.State())
	}
	samePositions(t, "after remove", garment.Positions, before)
}

func TestRemoveWhileAnotherSessionPreviews(t *testing.T) {
	body, garment := sphereScenario(0.001)
	before := copyPositions(garment)
	reg := NewRegistry()

	first := NewSession(Options{Registry: reg})
	if err := first.Start(body, garment, testParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := first.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	p := testParams()
	p.FitAmount = 0.3
	second := NewSession(Options{Registry: reg})
	if err := second.Start(body, garment, p); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	preview := copyPositions(garment)

	if err := first.Remove(); !errors.Is(err, ErrGarmentLocked) {
		t.Fatalf("Remove: err = %v, want ErrGarmentLocked", err)
	}
	if first.State() != Applied {
		t.Errorf("state = %s, want applied", first.State())
	}
	samePositions(t, "second preview", garment.Positions, preview)

	if err := second.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := first.Remove(); err != nil {
		t.Fatalf("Remove after cancel: %v", err)
	}
	samePositions(t, "after remove", garment.Positions, before)
}

func TestResetParameters(t *testing.T) {
	body, garment := sphereScenario(0.001)
	g := mesh.NewVertexGroup("cuff")
	for v := 0; v < garment.VertexCount(); v += 5 {
		g.Set(v, 1)
	}
	garment.AddGroup(g)

	p := testParams()
	p.FitAmount = 0.2
	p.Offset = 0.004
	p.SmoothPasses = 3
	p.MaxSmoothBlend = 0.5
	p.FollowStrength = 0.1
	p.PreserveGroup = "cuff"
	p.OffsetGroups = []OffsetEntry{{Group: "cuff", Influence: 1.5}}
	s := startSession(t, body, garment, p)

	if err := s.ResetParameters(); err != nil {
		t.Fatalf("ResetParameters: %v", err)
	}
	got := s.Parameters()
	want := DefaultParams()
	want.ProxyResolution = p.ProxyResolution
	want.PreserveGroup = "cuff"
	if got.FitAmount != want.FitAmount || got.Offset != want.Offset || got.SmoothPasses != want.SmoothPasses ||
		got.MaxSmoothBlend != want.MaxSmoothBlend || got.FollowStrength != want.FollowStrength {
		t.Errorf("parameters not reset: %+v", got)
	}
	if got.ProxyResolution != want.ProxyResolution || got.PreserveGroup != "cuff" || len(got.OffsetGroups) != 1 {
		t.Errorf("kept parameters lost: %+v", got)
	}

	freshBody, freshGarment := sphereScenario(0.001)
	freshGarment.AddGroup(g.Clone())
	fresh := got.Clone()
	startSession(t, freshBody, freshGarment, fresh)
	for i, v := range garment.Positions {
		if d := v.Distance(freshGarment.Positions[i]); d > 1e-12 {
			t.Fatalf("vertex %d: %v from a fresh fit with the same parameters", i, d)
		}
	}

	if err := s.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.ResetParameters(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ResetParameters while idle: err = %v", err)
	}
}

func TestApplyBakesSmoothing(t *testing.T) {
	body, garment := mesh.UVSphere("body", 1, 16, 12), mesh.UVSphere("coat", 1.2, 16, 12)

	p := testParams()
	p.PostLaplacian = true
	s := startSession(t, body, garment, p)
	preview := copyPositions(garment)
	if err := s.Apply(); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	moved := false
	for i := range preview {
		if preview[i] != garment.Positions[i] {
			moved = true
			break
		}
	}
	if !moved {
		t.Error("apply did not bake smoothing")
	}
}

func TestInvalidStateErrors(t *testing.T) {
	s := newTestSession()
	ops := map[string]func() error{
		"apply":  s.Apply,
		"cancel": s.Cancel,
		"remove": s.Remove,
		"update": func() error { return s.UpdateParameter(ParamFitAmount, 0.5) },
		"body":   func() error { return s.UpdateBody(mesh.Grid("b", 1, 1, 1, 1)) },
	}
	for name, op := range ops {
		err := op()
		var se *InvalidStateError
		if !errors.As(err, &se) {
			t.Errorf("%s: err = %v, want InvalidStateError", name, err)
			continue
		}
		if se.State != Idle {
			t.Errorf("%s: state = %s, want idle", name, se.State)
		}
	}
}

func TestStartTwiceOnSameGarment(t *testing.T) {
	body, garment := floorAndSheet()
	reg := NewRegistry()
	first := NewSession(Options{Registry: reg})
	second := NewSession(Options{Registry: reg})

	if err := first.Start(body, garment, testParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	err := second.Start(body, garment, testParams())
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrGarmentLocked) {
		t.Fatalf("second Start: err = %v, want locked ValidationError", err)
	}
	if second.State() != Idle {
		t.Errorf("second state = %s", second.State())
	}
	if err := first.Start(body, garment, testParams()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("restart: err = %v, want ErrInvalidState", err)
	}

	if err := first.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := second.Start(body, garment, testParams()); err != nil {
		t.Fatalf("Start after cancel: %v", err)
	}
}

func TestStartValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(body, garment *mesh.Mesh, p *Params) (*mesh.Mesh, *mesh.Mesh)
		count  int
	}{
		{"nil body", func(b, g *mesh.Mesh, p *Params) (*mesh.Mesh, *mesh.Mesh) { return nil, g }, 1},
		{"same mesh", func(b, g *mesh.Mesh, p *Params) (*mesh.Mesh, *mesh.Mesh) { return g, g }, 1},
		{"shape keys", func(b, g *mesh.Mesh, p *Params) (*mesh.Mesh, *mesh.Mesh) {
			g.ShapeKeys = []string{"Basis"}
			return b, g
		}, 1},
		{"blocking deformer", func(b, g *mesh.Mesh, p *Params) (*mesh.Mesh, *mesh.Mesh) {
			g.Deformers = []mesh.Deformer{{Name: "Armature", Kind: mesh.DeformerArmature}, {Name: "Cloth", Kind: "cloth"}}
			return b, g
		}, 1},
		{"aggregated", func(b, g *mesh.Mesh, p *Params) (*mesh.Mesh, *mesh.Mesh) {
			g.ShapeKeys = []string{"Basis"}
			p.FitAmount = 2
			p.FollowNeighbors = 0
			return b, g
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, garment := floorAndSheet()
			before := copyPositions(garment)
			p := testParams()
			b, g := tt.modify(body, garment, &p)

			s := newTestSession()
			err := s.Start(b, g, p)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if n := len(multierr.Errors(verr.Err)); n != tt.count {
				t.Errorf("%d problems reported, want %d: %v", n, tt.count, err)
			}
			if s.State() != Idle {
				t.Errorf("state = %s", s.State())
			}
			samePositions(t, "garment", garment.Positions, before)
		})
	}
}

func TestStartFailureLeavesGarmentUntouched(t *testing.T) {
	_, garment := floorAndSheet()
	before := copyPositions(garment)
	reg := NewRegistry()
	s := NewSession(Options{Registry: reg})

	err := s.Start(mesh.New("void"), garment, testParams())
	if !errors.Is(err, ErrProjection) {
		t.Fatalf("err = %v, want ErrProjection", err)
	}
	if s.State() != Idle || reg.Locked(garment) {
		t.Errorf("state = %s locked = %v", s.State(), reg.Locked(garment))
	}
	samePositions(t, "garment", garment.Positions, before)

	flat := mesh.New("flat")
	flat.Positions = []math.Vec3{{}, {X: 1}, {X: 2}}
	flat.Faces = []mesh.Face{{0, 1, 2}}
	body, _ := floorAndSheet()
	if err := s.Start(body, flat, testParams()); !errors.Is(err, ErrProjection) {
		t.Errorf("degenerate garment: err = %v, want ErrProjection", err)
	}
}

func TestUpdateBodyReprojects(t *testing.T) {
	body, garment := floorAndSheet()
	p := testParams()
	p.FitAmount = 1
	p.SmoothPasses = 0
	s := startSession(t, body, garment, p)

	raised := body.Transformed(math.Translate(0, 0, 0.2))
	if err := s.UpdateBody(raised); err != nil {
		t.Fatalf("UpdateBody: %v", err)
	}
	want := 0.2 + p.Offset
	for i, v := range garment.Positions {
		if gomath.Abs(v.Z-want) > 1e-12 {
			t.Fatalf("vertex %d: z = %v, want %v", i, v.Z, want)
		}
	}
	if err := s.UpdateBody(mesh.New("void")); !errors.Is(err, ErrProjection) {
		t.Errorf("UpdateBody(empty): err = %v", err)
	}
	if gomath.Abs(garment.Positions[0].Z-want) > 1e-12 {
		t.Errorf("failed UpdateBody changed the preview")
	}
}

func TestReferenceToolkitSatisfiesInterface(t *testing.T) {
	var _ Toolkit = toolkit.New()
}
