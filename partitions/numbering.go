package partitions

import (
	"fmt"
)

// DofCounter returns the number of dofs carried by a global node. Every
// partition must use the same counter.
type DofCounter func(globalNode int) int

// UniformDofs gives every node n dofs
func UniformDofs(n int) DofCounter {
	return func(int) int { return n }
}

// DofNumbering is the global dof numbering shared by all partitions.
// Partition p owns the contiguous range [Offsets[p], Offsets[p+1]); inside
// it, owned nodes appear in ascending global node id with their dofs
// consecutive.
type DofNumbering struct {
	Offsets    []int // Length NumParts+1
	NodeStart  []int // First global dof id of each node
	NodeDofs   []int // Dof count of each node
	OwnedNodes []int // Owned node count of each partition
}

// NewDofNumbering numbers the dofs of every node from the decomposition
func NewDofNumbering(d *Decomposition, dofs DofCounter) (*DofNumbering, error) {
	numNodes := len(d.NodeOwner)
	n := &DofNumbering{
		Offsets:    make([]int, d.NumParts+1),
		NodeStart:  make([]int, numNodes),
		NodeDofs:   make([]int, numNodes),
		OwnedNodes: make([]int, d.NumParts),
	}

	ownedBy := make([][]int, d.NumParts)
	for g, owner := range d.NodeOwner {
		if owner < 0 || owner >= d.NumParts {
			return nil, fmt.Errorf("%w: node %d owned by partition %d outside [0,%d)",
				ErrInconsistentDecomposition, g, owner, d.NumParts)
		}
		nd := dofs(g)
		if nd < 0 {
			return nil, fmt.Errorf("%w: node %d has negative dof count %d",
				ErrInconsistentDecomposition, g, nd)
		}
		n.NodeDofs[g] = nd
		ownedBy[owner] = append(ownedBy[owner], g)
	}

	total, running := 0, 0
	for p, nodes := range ownedBy {
		n.Offsets[p] = running
		n.OwnedNodes[p] = len(nodes)
		total += len(nodes)
		for _, g := range nodes {
			n.NodeStart[g] = running
			running += n.NodeDofs[g]
		}
	}
	n.Offsets[d.NumParts] = running

	if total != numNodes {
		return nil, fmt.Errorf("%w: %d nodes owned, global node count is %d",
			ErrInconsistentDecomposition, total, numNodes)
	}
	return n, nil
}

// NumDofs is the size of the global dof space
func (n *DofNumbering) NumDofs() int {
	return n.Offsets[len(n.Offsets)-1]
}

// GlobalDofs appends the ascending global dof ids of node g to dst
func (n *DofNumbering) GlobalDofs(dst []int, g int) []int {
	for j := 0; j < n.NodeDofs[g]; j++ {
		dst = append(dst, n.NodeStart[g]+j)
	}
	return dst
}
