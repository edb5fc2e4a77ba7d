// efit fits elastic garment meshes onto body meshes from the command line.
package main

import (
	"errors"
	"flag"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/elastic-fit/internal/config"
	"github.com/Faultbox/elastic-fit/internal/fit"
	"github.com/Faultbox/elastic-fit/internal/heatmap"
	"github.com/Faultbox/elastic-fit/internal/logger"
	"github.com/Faultbox/elastic-fit/pkg/formats"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "fit":
		cmdFit(args)
	case "heatmap":
		cmdHeatmap(args)
	case "info":
		cmdInfo(args)
	case "defaults":
		cmdDefaults(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`efit - elastic garment fitting

Usage:
  efit <command> [options]

Commands:
  fit -body <b.obj> -garment <g.obj>      Fit, apply and write the garment
  heatmap -body <b.obj> -garment <g.obj>  Write a displacement heatmap of the preview
  info <mesh.obj> [-groups g.yaml]        Show mesh information
  defaults [path]                         Print or write the default config

Common options:
  -groups <g.yaml>          Vertex group sidecar for the garment
  -clear-blockers           Strip shape keys and non-armature deformers first
  -config <c.yaml>          Config file (default ./efit.yaml)
  -set name=value           Override a fit parameter (repeatable)
  -offset-group name=infl   Add an offset fine tuning entry (repeatable)
  -debug, -log-file <path>  Logging

Examples:
  efit fit -body body.obj -garment shirt.obj -groups shirt.yaml -out fitted.obj
  efit fit -body body.obj -garment shirt.obj -set fitAmount=0.9 -set preserveGroup=collar
  efit heatmap -body body.obj -garment shirt.obj -out shirt.webp
  efit defaults ~/.config/elastic-fit/config.yaml`)
}

// fatal reports err and exits. Validation errors are listed one per line.
func fatal(err error) {
	logger.Sync()
	var verr *fit.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(os.Stderr, "Error: invalid input:")
		for _, e := range multierr.Errors(verr.Err) {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// setup loads the config after fs has been parsed and initializes logging.
func setup(flags *config.Flags) *config.Config {
	cfg, err := config.Load(flags)
	if err != nil {
		fatal(err)
	}
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
		fileCfg.JSON = cfg.Logging.JSON
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fatal(err)
	}
	return cfg
}

// loadGarment reads an OBJ and its optional vertex group sidecar.
func loadGarment(path, groups string) (*mesh.Mesh, error) {
	m, err := formats.ParseOBJFile(path)
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if groups == "" {
		return m, nil
	}
	sc, err := formats.ParseSidecarFile(groups)
	if err != nil {
		return nil, err
	}
	if err := sc.Apply(m); err != nil {
		return nil, fmt.Errorf("%s: %w", groups, err)
	}
	return m, nil
}

// loadBody reads the body OBJ and places it with the configured pose.
func loadBody(path string, cfg *config.Config) (*mesh.Mesh, error) {
	m, err := formats.ParseOBJFile(path)
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if t := cfg.Body.Transform(); !t.IsIdentity() {
		m = m.Transformed(t)
	}
	return m, nil
}

// meshFlags are the input flags shared by fit and heatmap.
type meshFlags struct {
	body          *string
	garment       *string
	groups        *string
	clearBlockers *bool
}

func registerMeshFlags(fs *flag.FlagSet) meshFlags {
	return meshFlags{
		body:          fs.String("body", "", "Body mesh (OBJ)"),
		garment:       fs.String("garment", "", "Garment mesh (OBJ)"),
		groups:        fs.String("groups", "", "Garment vertex group sidecar (YAML)"),
		clearBlockers: fs.Bool("clear-blockers", false, "Remove shape keys and non-armature deformers first"),
	}
}

func (mf meshFlags) load(cfg *config.Config, usage string) (body, garment *mesh.Mesh) {
	if *mf.body == "" || *mf.garment == "" {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	body, err := loadBody(*mf.body, cfg)
	if err != nil {
		fatal(err)
	}
	garment, err = loadGarment(*mf.garment, *mf.groups)
	if err != nil {
		fatal(err)
	}
	if *mf.clearBlockers {
		shapeKeys, deformers := garment.ClearBlockers()
		logger.Log.Info("cleared blockers",
			zap.String("garment", garment.Name),
			zap.Int("shape_keys", shapeKeys),
			zap.Int("deformers", deformers))
	}
	return body, garment
}

func cmdFit(args []string) {
	fs := flag.NewFlagSet("fit", flag.ExitOnError)
	cf := config.RegisterFlags(fs)
	mf := registerMeshFlags(fs)
	out := fs.String("out", "", "Output OBJ (default <garment>_fitted.obj)")
	heat := fs.String("heatmap", "", "Also write a displacement heatmap (WebP)")
	fs.Parse(args)

	cfg := setup(cf)
	defer logger.Sync()
	body, garment := mf.load(cfg, "Usage: efit fit -body <b.obj> -garment <g.obj> [options]")

	session := fit.NewSession(cfg.SessionOptions())
	if err := session.Start(body, garment, cfg.Fit); err != nil {
		fatal(err)
	}
	if err := session.Apply(); err != nil {
		fatal(err)
	}

	path := *out
	if path == "" {
		path = strings.TrimSuffix(*mf.garment, filepath.Ext(*mf.garment)) + "_fitted.obj"
	}
	if err := formats.WriteOBJFile(path, garment); err != nil {
		fatal(err)
	}

	disp := session.Displacement()
	maxMove, meanMove := displacementStats(disp)
	logger.Log.Info("fit written",
		zap.String("path", path),
		zap.Float64("max_displacement", maxMove),
		zap.Float64("mean_displacement", meanMove))

	fmt.Printf("Garment:   %s\n", garment.Name)
	fmt.Printf("Vertices:  %d\n", garment.VertexCount())
	fmt.Printf("Max move:  %.6f\n", maxMove)
	fmt.Printf("Mean move: %.6f\n", meanMove)
	fmt.Printf("Written:   %s\n", path)

	if *heat != "" {
		if err := writeHeatmap(*heat, garment, disp, cfg); err != nil {
			fatal(err)
		}
		fmt.Printf("Heatmap:   %s\n", *heat)
	}
}

func cmdHeatmap(args []string) {
	fs := flag.NewFlagSet("heatmap", flag.ExitOnError)
	cf := config.RegisterFlags(fs)
	mf := registerMeshFlags(fs)
	out := fs.String("out", "", "Output WebP (default <garment>.webp)")
	fs.Parse(args)

	cfg := setup(cf)
	defer logger.Sync()
	body, garment := mf.load(cfg, "Usage: efit heatmap -body <b.obj> -garment <g.obj> [-out file.webp]")

	session := fit.NewSession(cfg.SessionOptions())
	if err := session.Start(body, garment, cfg.Fit); err != nil {
		fatal(err)
	}
	disp := session.Displacement()
	if err := session.Cancel(); err != nil {
		fatal(err)
	}

	path := *out
	if path == "" {
		path = strings.TrimSuffix(*mf.garment, filepath.Ext(*mf.garment)) + ".webp"
	}
	if err := writeHeatmap(path, garment, disp, cfg); err != nil {
		fatal(err)
	}
	fmt.Printf("Heatmap: %s\n", path)
}

func writeHeatmap(path string, garment *mesh.Mesh, disp fit.Field, cfg *config.Config) error {
	img, err := heatmap.Render(garment, heatmap.Magnitudes(disp), heatmap.Options{
		Size:        cfg.Engine.HeatmapSize,
		Supersample: cfg.Engine.HeatmapSupersample,
	})
	if err != nil {
		return err
	}
	return heatmap.WriteFile(path, img)
}

func displacementStats(disp fit.Field) (maxMove, meanMove float64) {
	if len(disp) == 0 {
		return 0, 0
	}
	var sum float64
	for _, d := range disp {
		l := d.Length()
		sum += l
		maxMove = gomath.Max(maxMove, l)
	}
	return maxMove, sum / float64(len(disp))
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	groups := fs.String("groups", "", "Vertex group sidecar (YAML)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: efit info <mesh.obj> [-groups g.yaml]")
		os.Exit(1)
	}

	m, err := loadGarment(fs.Arg(0), *groups)
	if err != nil {
		fatal(err)
	}

	nonManifold, edges := m.NonManifoldEdges()
	lo, hi := m.Bounds()
	fmt.Printf("Mesh:       %s\n", m.Name)
	fmt.Printf("Vertices:   %d\n", m.VertexCount())
	fmt.Printf("Faces:      %d\n", len(m.Faces))
	fmt.Printf("Triangles:  %d\n", m.TriangleCount())
	fmt.Printf("UV corners: %d\n", len(m.UVs))
	fmt.Printf("Edges:      %d (%d non-manifold)\n", edges, nonManifold)
	fmt.Printf("Area:       %.6f\n", m.SurfaceArea())
	fmt.Printf("Bounds:     (%.4f, %.4f, %.4f) - (%.4f, %.4f, %.4f)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)

	if blocking := m.BlockingDeformers(); len(blocking) > 0 {
		fmt.Printf("Blocking deformers: %s\n", strings.Join(blocking, ", "))
	}

	names := m.GroupNames()
	if len(names) == 0 {
		return
	}
	sort.Strings(names)
	fmt.Println()
	fmt.Println("Vertex groups:")
	for _, name := range names {
		fmt.Printf("  %-20s %d vertices\n", name, len(m.Group(name).Weights))
	}
}

func cmdDefaults(args []string) {
	cfg := config.Default()
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			fatal(err)
		}
		fmt.Printf("Written: %s\n", args[0])
		return
	}
	data, err := cfg.Marshal()
	if err != nil {
		fatal(err)
	}
	os.Stdout.Write(data)
}
