// Package field holds the local dof storage a partition packs halo values
// from and unpacks them into.
package field

import (
	"fmt"
	"gonum.org/v1/gonum/mat"
)

// Field is per-node dof storage in local node numbering
type Field interface {
	NumNodes() int
	NumDofs(node int) int
	// NodeValues returns a mutable view of the dofs of one node
	NodeValues(node int) []float64
}

// Dense stores the same number of dofs on every node as the rows of a gonum
// matrix: row = local node, column = component.
type Dense struct {
	*mat.Dense
}

var _ Field = (*Dense)(nil)

// NewDense allocates a zeroed nnodes x ncomp field
func NewDense(nnodes, ncomp int) *Dense {
	return &Dense{Dense: mat.NewDense(nnodes, ncomp, nil)}
}

// WrapDense uses an existing matrix as field storage
func WrapDense(m *mat.Dense) *Dense {
	return &Dense{Dense: m}
}

func (d *Dense) NumNodes() int {
	r, _ := d.Dims()
	return r
}

func (d *Dense) NumDofs(node int) int {
	_, c := d.Dims()
	return c
}

func (d *Dense) NodeValues(node int) []float64 {
	return d.RawRowView(node)
}

// CSR stores a variable number of dofs per node in one flat array. Node k
// owns Data[Ap[k]:Ap[k+1]].
type CSR struct {
	Ap   []int
	Data []float64
}

var _ Field = (*CSR)(nil)

// NewCSR allocates a zeroed field with ndofs[k] values on node k
func NewCSR(ndofs []int) (*CSR, error) {
	ap := make([]int, len(ndofs)+1)
	for k, n := range ndofs {
		if n < 0 {
			return nil, fmt.Errorf("node %d: negative dof count %d", k, n)
		}
		ap[k+1] = ap[k] + n
	}
	return &CSR{
		Ap:   ap,
		Data: make([]float64, ap[len(ndofs)]),
	}, nil
}

func (c *CSR) NumNodes() int {
	return len(c.Ap) - 1
}

func (c *CSR) NumDofs(node int) int {
	return c.Ap[node+1] - c.Ap[node]
}

func (c *CSR) NodeValues(node int) []float64 {
	return c.Data[c.Ap[node]:c.Ap[node+1]]
}

// Synchronizer is implemented by fields whose authoritative copy lives
// elsewhere (device memory). Pull refreshes host values before packing and
// Push publishes host values after unpacking.
type Synchronizer interface {
	Pull() error
	Push() error
}
