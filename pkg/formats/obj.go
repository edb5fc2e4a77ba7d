package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/elastic-fit/pkg/math"
	"github.com/Faultbox/elastic-fit/pkg/mesh"
)

// OBJ format errors.
var (
	ErrOBJSyntax     = errors.New("malformed OBJ statement")
	ErrOBJIndex      = errors.New("OBJ index out of range")
	ErrOBJNoGeometry = errors.New("OBJ contains no vertices")
	ErrOBJPartialUVs = errors.New("OBJ mixes faces with and without texture coordinates")
)

// ParseOBJ parses a Wavefront OBJ file into a single mesh. Only v, vt, f and
// o statements are interpreted; everything else is ignored. UVs are kept only
// when every face corner references a texture coordinate.
func ParseOBJ(data []byte) (*mesh.Mesh, error) {
	m := mesh.New("")
	var texCoords []math.Vec2
	var cornerUVs []math.Vec2
	withUV, withoutUV := 0, 0

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "o":
			if len(fields) > 1 && m.Name == "" {
				m.Name = strings.Join(fields[1:], " ")
			}
		case "v":
			v, err := parseFloats(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			m.Positions = append(m.Positions, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
		case "vt":
			v, err := parseFloats(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			texCoords = append(texCoords, math.Vec2{X: v[0], Y: v[1]})
		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: %w: face needs 3 corners", line, ErrOBJSyntax)
			}
			face := make(mesh.Face, 0, len(fields)-1)
			for _, corner := range fields[1:] {
				vi, ti, err := parseCorner(corner, len(m.Positions), len(texCoords))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				face = append(face, vi)
				if ti >= 0 {
					cornerUVs = append(cornerUVs, texCoords[ti])
					withUV++
				} else {
					cornerUVs = append(cornerUVs, math.Vec2{})
					withoutUV++
				}
			}
			m.Faces = append(m.Faces, face)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning OBJ: %w", err)
	}
	if len(m.Positions) == 0 {
		return nil, ErrOBJNoGeometry
	}
	if withUV > 0 && withoutUV > 0 {
		return nil, ErrOBJPartialUVs
	}
	if withUV > 0 {
		m.UVs = cornerUVs
	}
	return m, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*mesh.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	m, err := ParseOBJ(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrOBJSyntax, n, len(fields))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOBJSyntax, err)
		}
		out[i] = v
	}
	return out, nil
}

// parseCorner decodes "v", "v/vt", "v//vn" or "v/vt/vn". It returns the
// zero-based vertex index and texture index (-1 when absent).
func parseCorner(s string, nv, nt int) (int, int, error) {
	parts := strings.Split(s, "/")
	vi, err := resolveIndex(parts[0], nv)
	if err != nil {
		return 0, 0, err
	}
	ti := -1
	if len(parts) > 1 && parts[1] != "" {
		ti, err = resolveIndex(parts[1], nt)
		if err != nil {
			return 0, 0, err
		}
	}
	return vi, ti, nil
}

// resolveIndex converts a one-based (or negative, relative) OBJ index.
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q", ErrOBJSyntax, s)
	}
	if i < 0 {
		i = n + i
	} else {
		i--
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: %s of %d", ErrOBJIndex, s, n)
	}
	return i, nil
}

// WriteOBJ writes the mesh as OBJ. Texture coordinates are deduplicated and
// floats use the shortest exact representation so a parse round trip is
// lossless.
func WriteOBJ(w io.Writer, m *mesh.Mesh) error {
	bw := bufio.NewWriter(w)
	if m.Name != "" {
		fmt.Fprintf(bw, "o %s\n", m.Name)
	}
	for _, p := range m.Positions {
		fmt.Fprintf(bw, "v %s %s %s\n", ftoa(p.X), ftoa(p.Y), ftoa(p.Z))
	}

	var uvIndex []int
	if m.HasUVs() {
		seen := make(map[math.Vec2]int)
		uvIndex = make([]int, len(m.UVs))
		for i, uv := range m.UVs {
			idx, ok := seen[uv]
			if !ok {
				idx = len(seen)
				seen[uv] = idx
				fmt.Fprintf(bw, "vt %s %s\n", ftoa(uv.X), ftoa(uv.Y))
			}
			uvIndex[i] = idx
		}
	}

	corner := 0
	for _, f := range m.Faces {
		bw.WriteString("f")
		for _, v := range f {
			if uvIndex != nil {
				fmt.Fprintf(bw, " %d/%d", v+1, uvIndex[corner]+1)
			} else {
				fmt.Fprintf(bw, " %d", v+1)
			}
			corner++
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// WriteOBJFile writes the mesh to an OBJ file on disk.
func WriteOBJFile(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating OBJ file: %w", err)
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return fmt.Errorf("writing OBJ file: %w", err)
	}
	return f.Close()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
