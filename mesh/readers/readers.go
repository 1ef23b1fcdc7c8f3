// Package readers adapts the gocfd mesh file readers (Gambit .neu, Gmsh .msh,
// SU2) to the mesh.Mesh consumed by the partition layer.
package readers

import (
	"fmt"
	"github.com/notargets/DGHalo/mesh"
	gocfdreaders "github.com/notargets/gocfd/DG3D/mesh/readers"
	"os"
)

// ReadMeshFile reads a mesh file and converts it. Partition tags present in
// the file are carried over as EToP.
func ReadMeshFile(meshfile string) (*mesh.Mesh, error) {
	if _, err := os.Stat(meshfile); err != nil {
		return nil, fmt.Errorf("reading %s: %w", meshfile, err)
	}
	msh, err := gocfdreaders.ReadMeshFile(meshfile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", meshfile, err)
	}

	m := &mesh.Mesh{
		NumNodes:     len(msh.Vertices),
		NumElements:  len(msh.EtoV),
		EToV:         make([][]int, len(msh.EtoV)),
		ElementTypes: make([]mesh.GeometryType, len(msh.EtoV)),
		Coordinates:  make([][3]float64, len(msh.Vertices)),
	}
	for i, v := range msh.Vertices {
		for d := 0; d < len(v) && d < 3; d++ {
			m.Coordinates[i][d] = v[d]
		}
	}
	if len(msh.ElementTypes) != len(msh.EtoV) {
		return nil, fmt.Errorf("%s: %d element types for %d elements",
			meshfile, len(msh.ElementTypes), len(msh.EtoV))
	}
	for e, verts := range msh.EtoV {
		m.EToV[e] = append([]int(nil), verts...)
		gt, err := mesh.ParseGeometryType(fmt.Sprint(msh.ElementTypes[e]))
		if err != nil {
			return nil, fmt.Errorf("%s: element %d: %w", meshfile, e, err)
		}
		m.ElementTypes[e] = gt
	}
	if len(msh.EToP) == m.NumElements {
		m.EToP = append([]int(nil), msh.EToP...)
	}

	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", meshfile, err)
	}
	return m, nil
}
