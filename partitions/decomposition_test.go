package partitions

import (
	"github.com/notargets/DGHalo/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestNewDecomposition_Policies(t *testing.T) {
	m, _ := twoPartMesh(t)

	d, err := NewDecomposition(m, 2, []int{0, 1}, LowestReferencingPart)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1}, d.NodeOwner)

	d, err = NewDecomposition(m, 2, []int{0, 1}, HighestReferencingPart)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, d.NodeOwner)

	_, err = NewDecomposition(m, 2, []int{0, 1}, nil)
	assert.ErrorIs(t, err, ErrInconsistentDecomposition)
}

func TestDecomposition_Validate(t *testing.T) {
	m, d := twoPartMesh(t)
	refs, err := d.Validate(m)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, refs[0])
	assert.Equal(t, []int{0, 1}, refs[2])
	assert.Equal(t, []int{1}, refs[3])

	// Node 1 is only used by part 0, so part 1 cannot own it
	bad := *d
	bad.NodeOwner = []int{0, 1, 1, 1}
	_, err = bad.Validate(m)
	assert.ErrorIs(t, err, ErrOwnershipConflict)

	bad.NodeOwner = []int{0, 0, 2, 1}
	_, err = bad.Validate(m)
	assert.ErrorIs(t, err, ErrInconsistentDecomposition)

	bad.NodeOwner = []int{0, 0, 1}
	_, err = bad.Validate(m)
	assert.ErrorIs(t, err, ErrInconsistentDecomposition)

	bad = *d
	bad.ElementPart = []int{0, 3}
	_, err = bad.Validate(m)
	assert.ErrorIs(t, err, ErrInconsistentDecomposition)
}

func TestDecomposition_UnreferencedNode(t *testing.T) {
	m := &mesh.Mesh{
		NumNodes:    3,
		NumElements: 1,
		EToV:        [][]int{{0, 1}},
	}
	d := &Decomposition{NumParts: 1, ElementPart: []int{0}, NodeOwner: []int{0, 0, 0}}
	_, err := d.Validate(m)
	assert.ErrorIs(t, err, ErrInconsistentDecomposition)

	_, err = NewDecomposition(m, 1, []int{0}, LowestReferencingPart)
	assert.ErrorIs(t, err, ErrInconsistentDecomposition)
}

func TestOwnerFromClaims(t *testing.T) {
	owner, err := OwnerFromClaims(4, [][]int{{0, 1}, {3, 2}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 1, 1}, owner)

	_, err = OwnerFromClaims(4, [][]int{{0, 1, 2}, {2, 3}})
	assert.ErrorIs(t, err, ErrInconsistentDecomposition, "node 2 claimed twice")

	_, err = OwnerFromClaims(4, [][]int{{0, 1}, {2}})
	assert.ErrorIs(t, err, ErrInconsistentDecomposition, "node 3 never claimed")

	_, err = OwnerFromClaims(4, [][]int{{0, 1}, {2, 4}})
	assert.ErrorIs(t, err, ErrInconsistentDecomposition)
}

func TestPartitionElements(t *testing.T) {
	eToP, err := PartitionElements(10, 4, BlockPartition)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 2, 2, 2, 3, 3}, eToP)

	eToP, err = PartitionElements(5, 2, RoundRobin)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0, 1, 0}, eToP)

	_, err = PartitionElements(2, 3, BlockPartition)
	assert.Error(t, err)
	_, err = PartitionElements(4, 2, PartitionStrategy(9))
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("block")
	require.NoError(t, err)
	assert.Equal(t, BlockPartition, s)
	s, err = ParseStrategy("round-robin")
	require.NoError(t, err)
	assert.Equal(t, RoundRobin, s)
	assert.Equal(t, "roundrobin", s.String())
	_, err = ParseStrategy("metis")
	assert.Error(t, err)
}

func TestDecomposition_Statistics(t *testing.T) {
	d := &Decomposition{NumParts: 3, ElementPart: []int{0, 0, 0, 1, 1, 2}}
	stats := d.Statistics()
	assert.Equal(t, 3, stats.NumPartitions)
	assert.Equal(t, 1, stats.MinElements)
	assert.Equal(t, 3, stats.MaxElements)
	assert.InDelta(t, 2.0, stats.AvgElements, 1e-12)
	assert.InDelta(t, 1.5, stats.Imbalance, 1e-12)
}
