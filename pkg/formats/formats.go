// Package formats reads and writes the mesh files efit works with: Wavefront
// OBJ geometry and the YAML sidecar carrying vertex groups, deformers and
// shape key names.
package formats
