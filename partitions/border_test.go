package partitions

import (
	"github.com/notargets/DGHalo/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func testBorder(t *testing.T) *Border {
	t.Helper()
	_, d := crossOwnedMesh(t)
	num, err := NewDofNumbering(d, variableDofs)
	require.NoError(t, err)
	// Local ids equal global ids here
	l2g := []int{0, 1, 2, 3}
	return newBorder(1, []int{1}, []int{2}, l2g, num)
}

func TestBorder_Pattern(t *testing.T) {
	b := testBorder(t)
	// Node 1 has 2 dofs owned by part 0 (after node 0), node 2 has 3 dofs
	// at the start of part 1's range
	assert.Equal(t, []int{0, 2}, b.Data.SendAp)
	assert.Equal(t, []int{1, 2}, b.Data.SendAi)
	assert.Equal(t, []int{0, 3}, b.Data.RecvAp)
	assert.Equal(t, []int{3, 4, 5}, b.Data.RecvAi)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, b.Data.BorderDofToGlobal)
	assert.Equal(t, []float64{0, 0}, b.Data.SendBuffer)
	assert.Equal(t, []float64{0, 0, 0}, b.Data.RecvBuffer)
	assert.NoError(t, b.Validate(4))
}

func TestBorder_PackUnpack(t *testing.T) {
	b := testBorder(t)
	f, err := field.NewCSR([]int{1, 2, 3, 1})
	require.NoError(t, err)
	copy(f.NodeValues(1), []float64{7, 8})

	require.NoError(t, b.Pack(f))
	assert.Equal(t, []float64{7, 8}, b.Data.SendBuffer)
	require.NoError(t, b.transition(Packed, InFlight))
	copy(b.Data.RecvBuffer, []float64{1, 2, 3})
	require.NoError(t, b.transition(InFlight, Completed))
	require.NoError(t, b.Unpack(f))
	assert.Equal(t, []float64{1, 2, 3}, f.NodeValues(2))
	assert.Equal(t, []float64{7, 8}, f.NodeValues(1), "pack only reads")
	assert.Equal(t, Idle, b.State())
}

func TestBorder_Validate(t *testing.T) {
	b := testBorder(t)
	b.Data.SendAp = []int{1, 2}
	assert.Error(t, b.Validate(4))

	b = testBorder(t)
	b.Data.RecvAi = []int{5, 4, 3}
	assert.Error(t, b.Validate(4))

	b = testBorder(t)
	b.NRecv = []int{1}
	assert.ErrorIs(t, b.Validate(4), ErrOwnershipConflict)

	b = testBorder(t)
	assert.Error(t, b.Validate(2), "node 2 outside the local mesh")

	b = testBorder(t)
	b.RemoteDofCount = 1
	assert.Error(t, b.Validate(4))
}
