package mesh

import (
	"fmt"
	"strings"
)

// GeometryType identifies the shape of an element
type GeometryType uint8

const (
	// 3D element types
	Tet     GeometryType = iota // Tetrahedron
	Hex                         // Hexahedron
	Prism                       // Triangular prism
	Pyramid                     // Square-based pyramid

	// 2D element types
	Tri       // Triangle
	Rectangle // Rectangle/Quadrilateral

	// 1D element type
	Line // Line segment
)

var geometryNames = map[GeometryType]string{
	Tet:       "Tet",
	Hex:       "Hex",
	Prism:     "Prism",
	Pyramid:   "Pyramid",
	Tri:       "Tri",
	Rectangle: "Rectangle",
	Line:      "Line",
}

func (g GeometryType) String() string {
	if name, ok := geometryNames[g]; ok {
		return name
	}
	return fmt.Sprintf("GeometryType(%d)", uint8(g))
}

// ParseGeometryType maps an element type name, as printed by mesh readers,
// to a GeometryType. Matching ignores case and accepts the long names.
func ParseGeometryType(name string) (GeometryType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tet", "tetra", "tetrahedron":
		return Tet, nil
	case "hex", "hexa", "hexahedron", "brick":
		return Hex, nil
	case "prism", "wedge":
		return Prism, nil
	case "pyramid", "pyra":
		return Pyramid, nil
	case "tri", "triangle":
		return Tri, nil
	case "quad", "quadrilateral", "rect", "rectangle":
		return Rectangle, nil
	case "line", "edge":
		return Line, nil
	}
	return 0, fmt.Errorf("unknown element type %q", name)
}

// Mesh is the global mesh as delivered by a mesh source. The partition layer
// treats it as read-only input.
type Mesh struct {
	NumNodes    int
	NumElements int

	// EToV lists the global node ids of each element. Rows may have
	// different lengths for mixed meshes.
	EToV [][]int

	ElementTypes []GeometryType // Optional, one per element
	Coordinates  [][3]float64   // Optional, one per node

	// EToP is the element partition tag carried by some mesh files. Nil when
	// the mesh source has no decomposition.
	EToP []int
}

// Validate checks connectivity bounds and array lengths
func (m *Mesh) Validate() error {
	if m.NumElements != len(m.EToV) {
		return fmt.Errorf("NumElements %d != len(EToV) %d", m.NumElements, len(m.EToV))
	}
	if m.ElementTypes != nil && len(m.ElementTypes) != m.NumElements {
		return fmt.Errorf("ElementTypes length %d does not match NumElements=%d",
			len(m.ElementTypes), m.NumElements)
	}
	if m.Coordinates != nil && len(m.Coordinates) != m.NumNodes {
		return fmt.Errorf("Coordinates length %d does not match NumNodes=%d",
			len(m.Coordinates), m.NumNodes)
	}
	if m.EToP != nil && len(m.EToP) != m.NumElements {
		return fmt.Errorf("EToP length %d does not match NumElements=%d",
			len(m.EToP), m.NumElements)
	}
	for e, verts := range m.EToV {
		if len(verts) == 0 {
			return fmt.Errorf("element %d has no nodes", e)
		}
		for _, v := range verts {
			if v < 0 || v >= m.NumNodes {
				return fmt.Errorf("element %d references node %d outside [0,%d)", e, v, m.NumNodes)
			}
		}
	}
	return nil
}

// NodeElements returns, for each node, the elements that reference it
func (m *Mesh) NodeElements() [][]int {
	nToE := make([][]int, m.NumNodes)
	for e, verts := range m.EToV {
		for _, v := range verts {
			nToE[v] = append(nToE[v], e)
		}
	}
	return nToE
}

// NewGrid2D builds a structured nx by ny quadrilateral grid on the unit square.
// Nodes are numbered row by row, elements counter-clockwise from the lower left.
func NewGrid2D(nx, ny int) (*Mesh, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid grid dimensions: nx=%d, ny=%d", nx, ny)
	}
	var (
		npx = nx + 1
		npy = ny + 1
	)
	m := &Mesh{
		NumNodes:     npx * npy,
		NumElements:  nx * ny,
		EToV:         make([][]int, 0, nx*ny),
		ElementTypes: make([]GeometryType, 0, nx*ny),
		Coordinates:  make([][3]float64, npx*npy),
	}
	for j := 0; j < npy; j++ {
		for i := 0; i < npx; i++ {
			m.Coordinates[i+j*npx] = [3]float64{
				float64(i) / float64(nx),
				float64(j) / float64(ny),
				0,
			}
		}
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			n0 := i + j*npx
			m.EToV = append(m.EToV, []int{n0, n0 + 1, n0 + 1 + npx, n0 + npx})
			m.ElementTypes = append(m.ElementTypes, Rectangle)
		}
	}
	return m, nil
}
