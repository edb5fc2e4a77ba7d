package fit

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/Faultbox/elastic-fit/internal/toolkit"
)

// Parameter names accepted by Session.UpdateParameter.
const (
	ParamFitAmount           = "fitAmount"
	ParamOffset              = "offset"
	ParamProxyResolution     = "proxyResolution"
	ParamPreserveUVs         = "preserveUVs"
	ParamElasticStrength     = "elasticStrength"
	ParamElasticIterations   = "elasticIterations"
	ParamLiveSmooth          = "liveSmooth"
	ParamPostLaplacian       = "postLaplacian"
	ParamLaplacianFactor     = "laplacianFactor"
	ParamLaplacianIterations = "laplacianIterations"
	ParamSymmetrize          = "symmetrize"
	ParamSymmetrizeAxis      = "symmetrizeAxis"
	ParamPreserveGroup       = "preserveGroup"
	ParamFollowStrength      = "followStrength"
	ParamFollowNeighbors     = "followNeighbors"
	ParamSmoothPasses        = "smoothPasses"
	ParamGradientThreshold   = "gradientThreshold"
	ParamMinSmoothBlend      = "minSmoothBlend"
	ParamMaxSmoothBlend      = "maxSmoothBlend"
	ParamOffsetGroups        = "offsetGroups"
)

// OffsetEntry scales the offset component of displacement for the vertices
// of one group. Influence 1.0 is neutral.
type OffsetEntry struct {
	Group     string  `yaml:"group"`
	Influence float64 `yaml:"influence"`
}

// Params holds every user-facing fitting parameter.
type Params struct {
	FitAmount       float64 `yaml:"fit_amount"`
	Offset          float64 `yaml:"offset"`
	ProxyResolution int     `yaml:"proxy_resolution"`
	PreserveUVs     bool    `yaml:"preserve_uvs"`

	ElasticStrength     float64 `yaml:"elastic_strength"`
	ElasticIterations   int     `yaml:"elastic_iterations"`
	LiveSmooth          bool    `yaml:"live_smooth"`
	PostLaplacian       bool    `yaml:"post_laplacian"`
	LaplacianFactor     float64 `yaml:"laplacian_factor"`
	LaplacianIterations int     `yaml:"laplacian_iterations"`

	Symmetrize     bool         `yaml:"symmetrize"`
	SymmetrizeAxis toolkit.Axis `yaml:"symmetrize_axis"`

	PreserveGroup   string  `yaml:"preserve_group"`
	FollowStrength  float64 `yaml:"follow_strength"`
	FollowNeighbors int     `yaml:"follow_neighbors"`

	SmoothPasses      int     `yaml:"smooth_passes"`
	GradientThreshold float64 `yaml:"gradient_threshold"`
	MinSmoothBlend    float64 `yaml:"min_smooth_blend"`
	MaxSmoothBlend    float64 `yaml:"max_smooth_blend"`

	OffsetGroups []OffsetEntry `yaml:"offset_groups"`
}

// DefaultParams returns the default parameter set.
func DefaultParams() Params {
	return Params{
		FitAmount:           0.65,
		Offset:              0.001,
		ProxyResolution:     300000,
		PreserveUVs:         true,
		ElasticStrength:     0.75,
		ElasticIterations:   10,
		LaplacianFactor:     0.25,
		LaplacianIterations: 1,
		SymmetrizeAxis:      toolkit.PositiveX,
		FollowStrength:      1.0,
		FollowNeighbors:     8,
		SmoothPasses:        15,
		GradientThreshold:   2.0,
		MinSmoothBlend:      0.05,
		MaxSmoothBlend:      0.80,
	}
}

// Clone returns a copy that shares no slices with p.
func (p Params) Clone() Params {
	p.OffsetGroups = append([]OffsetEntry(nil), p.OffsetGroups...)
	return p
}

func checkFloat(name string, v, lo, hi float64) error {
	if v < lo || v > hi || v != v {
		return fmt.Errorf("%s = %v not in [%v, %v]: %w", name, v, lo, hi, ErrOutOfRange)
	}
	return nil
}

func checkInt(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s = %d not in [%d, %d]: %w", name, v, lo, hi, ErrOutOfRange)
	}
	return nil
}

// Validate checks every parameter against its range. All problems are
// reported together in a *ValidationError.
func (p Params) Validate() error {
	err := multierr.Combine(
		checkFloat(ParamFitAmount, p.FitAmount, 0, 1),
		checkFloat(ParamOffset, p.Offset, 0, 0.5),
		checkInt(ParamProxyResolution, p.ProxyResolution, 10000, 2000000),
		checkFloat(ParamElasticStrength, p.ElasticStrength, 0, 2),
		checkInt(ParamElasticIterations, p.ElasticIterations, 0, 100),
		checkFloat(ParamLaplacianFactor, p.LaplacianFactor, 0, 10),
		checkInt(ParamLaplacianIterations, p.LaplacianIterations, 1, 50),
		checkFloat(ParamFollowStrength, p.FollowStrength, 0, 1),
		checkInt(ParamFollowNeighbors, p.FollowNeighbors, 1, 32),
		checkInt(ParamSmoothPasses, p.SmoothPasses, 0, 50),
		checkFloat(ParamGradientThreshold, p.GradientThreshold, 0.5, 10),
		checkFloat(ParamMinSmoothBlend, p.MinSmoothBlend, 0, 1),
		checkFloat(ParamMaxSmoothBlend, p.MaxSmoothBlend, 0, 1),
	)
	if !p.SymmetrizeAxis.Valid() {
		err = multierr.Append(err, fmt.Errorf("%s = %q: %w", ParamSymmetrizeAxis, p.SymmetrizeAxis, ErrOutOfRange))
	}
	for i, e := range p.OffsetGroups {
		err = multierr.Append(err, checkFloat(fmt.Sprintf("%s[%d].influence", ParamOffsetGroups, i), e.Influence, 0, 2))
	}
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// stage identifies the first pipeline step a parameter change invalidates.
type stage int

const (
	stageSmooth stage = iota
	stageTune
	stageFollow
	stageWrite
)

func (s stage) String() string {
	switch s {
	case stageSmooth:
		return "smooth"
	case stageTune:
		return "tune"
	case stageFollow:
		return "follow"
	default:
		return "write"
	}
}

// set assigns the named parameter and returns the stage to re-run from.
func (p *Params) set(name string, value any) (stage, error) {
	var err error
	from := stageWrite
	switch name {
	case ParamProxyResolution, ParamPreserveUVs:
		return 0, &RequiresRefitError{Param: name}
	case ParamSymmetrize, ParamSymmetrizeAxis:
		return 0, &RequiresApplyError{Param: name}

	case ParamOffset:
		p.Offset, err = toFloat(value)
		from = stageSmooth
	case ParamSmoothPasses:
		p.SmoothPasses, err = toInt(value)
		from = stageSmooth
	case ParamGradientThreshold:
		p.GradientThreshold, err = toFloat(value)
		from = stageSmooth
	case ParamMinSmoothBlend:
		p.MinSmoothBlend, err = toFloat(value)
		from = stageSmooth
	case ParamMaxSmoothBlend:
		p.MaxSmoothBlend, err = toFloat(value)
		from = stageSmooth

	case ParamOffsetGroups:
		entries, ok := value.([]OffsetEntry)
		if !ok {
			err = fmt.Errorf("want []OffsetEntry, got %T", value)
		}
		p.OffsetGroups = append([]OffsetEntry(nil), entries...)
		from = stageTune

	case ParamPreserveGroup:
		p.PreserveGroup, err = toString(value)
		from = stageFollow
	case ParamFollowStrength:
		p.FollowStrength, err = toFloat(value)
		from = stageFollow
	case ParamFollowNeighbors:
		p.FollowNeighbors, err = toInt(value)
		from = stageFollow

	case ParamFitAmount:
		p.FitAmount, err = toFloat(value)
	case ParamLiveSmooth:
		p.LiveSmooth, err = toBool(value)
	case ParamElasticStrength:
		p.ElasticStrength, err = toFloat(value)
	case ParamElasticIterations:
		p.ElasticIterations, err = toInt(value)
	case ParamPostLaplacian:
		p.PostLaplacian, err = toBool(value)
	case ParamLaplacianFactor:
		p.LaplacianFactor, err = toFloat(value)
	case ParamLaplacianIterations:
		p.LaplacianIterations, err = toInt(value)

	default:
		return 0, &ValidationError{Err: fmt.Errorf("%q: %w", name, ErrUnknownParameter)}
	}
	if err != nil {
		return 0, &ValidationError{Err: fmt.Errorf("%s: %w", name, err)}
	}
	return from, nil
}

// Set assigns a parameter by name outside of a session, for example from
// command line overrides. Values may be given as strings.
func (p *Params) Set(name string, value any) error {
	switch name {
	case ParamProxyResolution:
		v, err := toInt(value)
		if err != nil {
			return &ValidationError{Err: fmt.Errorf("%s: %w", name, err)}
		}
		p.ProxyResolution = v
		return nil
	case ParamPreserveUVs:
		v, err := toBool(value)
		if err != nil {
			return &ValidationError{Err: fmt.Errorf("%s: %w", name, err)}
		}
		p.PreserveUVs = v
		return nil
	case ParamSymmetrize:
		v, err := toBool(value)
		if err != nil {
			return &ValidationError{Err: fmt.Errorf("%s: %w", name, err)}
		}
		p.Symmetrize = v
		return nil
	case ParamSymmetrizeAxis:
		v, err := toString(value)
		if err != nil {
			return &ValidationError{Err: fmt.Errorf("%s: %w", name, err)}
		}
		p.SymmetrizeAxis = toolkit.Axis(strings.ToUpper(v))
		return nil
	}
	_, err := p.set(name, value)
	return err
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("want integer, got %v", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	}
	return false, fmt.Errorf("want bool, got %T", v)
}

func toString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("want string, got %T", v)
}
