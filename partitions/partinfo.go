package partitions

import (
	"fmt"
)

// PartInfo describes the local partition's place in the global decomposition
type PartInfo struct {
	NPart   int // Total number of partitions
	Part    int // This partition's id
	NElem   int // Local elements
	NNodes  int // Local nodes, shared ones included
	NBorder int // Neighbours with a non-empty border
	NShared int // Nodes referenced by at least one other partition
	NOwn    int // Shared nodes owned here
	NLocal  int // Nodes referenced by this partition only
	DOffset int // First global dof owned here

	NOwnedDofs int // Dofs of all owned nodes, local and shared
}

// NumOwned is the number of nodes this partition is authoritative for
func (pi PartInfo) NumOwned() int {
	return pi.NLocal + pi.NOwn
}

// Validate checks the local counting invariants
func (pi PartInfo) Validate() error {
	if pi.NLocal+pi.NShared != pi.NNodes {
		return fmt.Errorf("%w: part %d: nlocal %d + nshared %d != nnodes %d",
			ErrInconsistentDecomposition, pi.Part, pi.NLocal, pi.NShared, pi.NNodes)
	}
	if pi.NOwn > pi.NShared {
		return fmt.Errorf("%w: part %d: nown %d > nshared %d",
			ErrInconsistentDecomposition, pi.Part, pi.NOwn, pi.NShared)
	}
	return nil
}

func (pi PartInfo) String() string {
	return fmt.Sprintf("part %d/%d: nelem=%d nnodes=%d nborder=%d nshared=%d nown=%d nlocal=%d doffset=%d",
		pi.Part, pi.NPart, pi.NElem, pi.NNodes, pi.NBorder, pi.NShared, pi.NOwn, pi.NLocal, pi.DOffset)
}

// computePartInfo counts the ownership split of a local mesh
func computePartInfo(part int, local *LocalMesh, refs [][]int, d *Decomposition,
	num *DofNumbering, nborder int) (PartInfo, error) {

	pi := PartInfo{
		NPart:      d.NumParts,
		Part:       part,
		NElem:      len(local.Elements),
		NNodes:     local.NumNodes(),
		NBorder:    nborder,
		DOffset:    num.Offsets[part],
		NOwnedDofs: num.Offsets[part+1] - num.Offsets[part],
	}
	for _, g := range local.NodeL2G {
		if len(refs[g]) > 1 {
			pi.NShared++
			if d.NodeOwner[g] == part {
				pi.NOwn++
			}
		} else {
			pi.NLocal++
		}
	}
	if pi.NumOwned() != num.OwnedNodes[part] {
		return pi, fmt.Errorf("%w: part %d sees %d owned nodes, numbering assigns %d",
			ErrInconsistentDecomposition, part, pi.NumOwned(), num.OwnedNodes[part])
	}
	return pi, pi.Validate()
}

// VerifyPartInfos checks the global invariants over one PartInfo per
// partition, in rank order: owned nodes add up to the global node count and
// the owned dof ranges tile [0, total) without gaps or overlaps.
func VerifyPartInfos(infos []PartInfo, numNodes int) error {
	owned, next := 0, 0
	for p, pi := range infos {
		if pi.Part != p {
			return fmt.Errorf("%w: entry %d describes part %d", ErrInconsistentDecomposition, p, pi.Part)
		}
		if err := pi.Validate(); err != nil {
			return err
		}
		if pi.DOffset != next {
			return fmt.Errorf("%w: part %d starts at dof %d, expected %d",
				ErrInconsistentDecomposition, p, pi.DOffset, next)
		}
		next += pi.NOwnedDofs
		owned += pi.NumOwned()
	}
	if owned != numNodes {
		return fmt.Errorf("%w: %d nodes owned, global node count is %d",
			ErrInconsistentDecomposition, owned, numNodes)
	}
	return nil
}
