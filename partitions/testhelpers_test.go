package partitions

import (
	"github.com/notargets/DGHalo/mesh"
	"github.com/stretchr/testify/require"
	"testing"
)

// twoPartMesh: nodes {0,1} owned by part 0, {2,3} by part 1, node 2 also
// referenced by part 0
func twoPartMesh(t *testing.T) (*mesh.Mesh, *Decomposition) {
	t.Helper()
	m := &mesh.Mesh{
		NumNodes:    4,
		NumElements: 2,
		EToV: [][]int{
			{0, 1, 2}, // Element 0, part 0
			{2, 3},    // Element 1, part 1
		},
	}
	d := &Decomposition{
		NumParts:    2,
		ElementPart: []int{0, 1},
		NodeOwner:   []int{0, 0, 1, 1},
	}
	require.NoError(t, m.Validate())
	return m, d
}

// crossOwnedMesh: node 1 owned by part 0 and node 2 owned by part 1, both
// referenced by both parts, so each side sends and receives one node
func crossOwnedMesh(t *testing.T) (*mesh.Mesh, *Decomposition) {
	t.Helper()
	m := &mesh.Mesh{
		NumNodes:    4,
		NumElements: 2,
		EToV: [][]int{
			{0, 1, 2},
			{1, 2, 3},
		},
	}
	d := &Decomposition{
		NumParts:    2,
		ElementPart: []int{0, 1},
		NodeOwner:   []int{0, 0, 1, 1},
	}
	return m, d
}

// gridDecomposition splits an nx by ny grid into nparts blocks
func gridDecomposition(t *testing.T, nx, ny, nparts int, strategy PartitionStrategy) (*mesh.Mesh, *Decomposition) {
	t.Helper()
	m, err := mesh.NewGrid2D(nx, ny)
	require.NoError(t, err)
	eToP, err := PartitionElements(m.NumElements, nparts, strategy)
	require.NoError(t, err)
	d, err := NewDecomposition(m, nparts, eToP, LowestReferencingPart)
	require.NoError(t, err)
	return m, d
}

func variableDofs(g int) int {
	return 1 + g%3
}

// expectedValue is the value the owner of a dof writes in exchange tests
func expectedValue(globalDof int) float64 {
	return 1.5*float64(globalDof) + 1
}
