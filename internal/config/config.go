// Package config handles efit configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/elastic-fit/internal/fit"
	"github.com/Faultbox/elastic-fit/pkg/math"
)

// Config holds all efit settings.
type Config struct {
	Fit     fit.Params    `yaml:"fit"`
	Engine  EngineConfig  `yaml:"engine"`
	Body    BodyConfig    `yaml:"body"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig holds settings that are not user-facing fit parameters.
// NonManifoldTolerance is a fraction of the garment's edges. The heatmap is
// rendered at HeatmapSize*HeatmapSupersample pixels and downsampled.
type EngineConfig struct {
	NonManifoldTolerance float64 `yaml:"non_manifold_tolerance"`
	MaxSubdivisionLevels int     `yaml:"max_subdivision_levels"`
	HeatmapSize          int     `yaml:"heatmap_size"`
	HeatmapSupersample   int     `yaml:"heatmap_supersample"`
}

// BodyConfig places the body mesh before fitting.
type BodyConfig struct {
	Translate [3]float64 `yaml:"translate"`
	RotateDeg [3]float64 `yaml:"rotate_deg"` // Euler XYZ
	Scale     [3]float64 `yaml:"scale"`
}

// Transform returns translate * rotate * scale.
func (b BodyConfig) Transform() math.Mat4 {
	t := math.Translate(b.Translate[0], b.Translate[1], b.Translate[2])
	r := math.QuatFromEulerDegrees(b.RotateDeg[0], b.RotateDeg[1], b.RotateDeg[2]).ToMat4()
	s := math.Scale(b.Scale[0], b.Scale[1], b.Scale[2])
	return t.Mul(r).Mul(s)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"` // JSON lines in the log file
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Fit: fit.DefaultParams(),
		Engine: EngineConfig{
			NonManifoldTolerance: fit.DefaultNonManifoldTolerance,
			MaxSubdivisionLevels: fit.DefaultMaxSubdivisionLevels,
			HeatmapSize:          512,
			HeatmapSupersample:   2,
		},
		Body: BodyConfig{
			Scale: [3]float64{1, 1, 1},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if verr := c.Fit.Validate(); verr != nil {
		err = multierr.Append(err, verr)
	}
	if c.Engine.NonManifoldTolerance < 0 || c.Engine.NonManifoldTolerance > 1 {
		err = multierr.Append(err, fmt.Errorf("engine.non_manifold_tolerance = %v not in [0, 1]", c.Engine.NonManifoldTolerance))
	}
	if c.Engine.MaxSubdivisionLevels < 1 || c.Engine.MaxSubdivisionLevels > 8 {
		err = multierr.Append(err, fmt.Errorf("engine.max_subdivision_levels = %d not in [1, 8]", c.Engine.MaxSubdivisionLevels))
	}
	if c.Engine.HeatmapSize < 16 || c.Engine.HeatmapSize > 8192 {
		err = multierr.Append(err, fmt.Errorf("engine.heatmap_size = %d not in [16, 8192]", c.Engine.HeatmapSize))
	}
	if c.Engine.HeatmapSupersample < 1 || c.Engine.HeatmapSupersample > 8 {
		err = multierr.Append(err, fmt.Errorf("engine.heatmap_supersample = %d not in [1, 8]", c.Engine.HeatmapSupersample))
	}
	for i, s := range c.Body.Scale {
		if s == 0 {
			err = multierr.Append(err, fmt.Errorf("body.scale[%d] is zero", i))
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level = %q", c.Logging.Level))
	}
	return err
}

// SessionOptions returns the fit session options for this config.
func (c *Config) SessionOptions() fit.Options {
	return fit.Options{
		MaxSubdivisionLevels: c.Engine.MaxSubdivisionLevels,
		NonManifoldTolerance: c.Engine.NonManifoldTolerance,
	}
}
