package partitions

import (
	"fmt"
	"github.com/notargets/DGHalo/mesh"
	"math"
	"sort"
)

// Decomposition assigns every element to a partition and every node to the
// partition that is authoritative for its values. A partition references
// every node of its elements.
type Decomposition struct {
	NumParts    int
	ElementPart []int // Length NumElements: element e belongs to ElementPart[e]
	NodeOwner   []int // Length NumNodes: node g is owned by NodeOwner[g]
}

// OwnershipPolicy picks the owner of a node from the ascending list of
// partitions that reference it
type OwnershipPolicy func(node int, referencing []int) int

// LowestReferencingPart gives each node to the lowest partition id that uses it
func LowestReferencingPart(_ int, referencing []int) int {
	return referencing[0]
}

// HighestReferencingPart gives each node to the highest partition id that uses it
func HighestReferencingPart(_ int, referencing []int) int {
	return referencing[len(referencing)-1]
}

// NewDecomposition completes an element assignment with node owners chosen
// by policy
func NewDecomposition(m *mesh.Mesh, numParts int, elementPart []int,
	policy OwnershipPolicy) (*Decomposition, error) {

	if policy == nil {
		return nil, fmt.Errorf("%w: no ownership policy given", ErrInconsistentDecomposition)
	}
	d := &Decomposition{
		NumParts:    numParts,
		ElementPart: elementPart,
	}
	refs, err := d.referencing(m)
	if err != nil {
		return nil, err
	}
	d.NodeOwner = make([]int, m.NumNodes)
	for g, parts := range refs {
		if len(parts) == 0 {
			return nil, fmt.Errorf("%w: node %d is referenced by no partition",
				ErrInconsistentDecomposition, g)
		}
		d.NodeOwner[g] = policy(g, parts)
	}
	return d, nil
}

// OwnerFromClaims turns per-partition ownership claims (claims[p] lists the
// nodes partition p owns) into a NodeOwner array
func OwnerFromClaims(numNodes int, claims [][]int) ([]int, error) {
	owner := make([]int, numNodes)
	for g := range owner {
		owner[g] = -1
	}
	total := 0
	for p, nodes := range claims {
		for _, g := range nodes {
			if g < 0 || g >= numNodes {
				return nil, fmt.Errorf("%w: partition %d claims node %d outside [0,%d)",
					ErrInconsistentDecomposition, p, g, numNodes)
			}
			if owner[g] >= 0 {
				return nil, fmt.Errorf("%w: node %d claimed by partitions %d and %d",
					ErrInconsistentDecomposition, g, owner[g], p)
			}
			owner[g] = p
			total++
		}
	}
	if total != numNodes {
		return nil, fmt.Errorf("%w: %d nodes owned, global node count is %d",
			ErrInconsistentDecomposition, total, numNodes)
	}
	return owner, nil
}

// Validate checks the decomposition against the mesh and returns, for every
// node, the ascending list of partitions referencing it
func (d *Decomposition) Validate(m *mesh.Mesh) ([][]int, error) {
	refs, err := d.referencing(m)
	if err != nil {
		return nil, err
	}
	if len(d.NodeOwner) != m.NumNodes {
		return nil, fmt.Errorf("%w: NodeOwner length %d does not match NumNodes=%d",
			ErrInconsistentDecomposition, len(d.NodeOwner), m.NumNodes)
	}
	for g, owner := range d.NodeOwner {
		if owner < 0 || owner >= d.NumParts {
			return nil, fmt.Errorf("%w: node %d owned by partition %d outside [0,%d)",
				ErrInconsistentDecomposition, g, owner, d.NumParts)
		}
		if len(refs[g]) == 0 {
			return nil, fmt.Errorf("%w: node %d is referenced by no partition",
				ErrInconsistentDecomposition, g)
		}
		if !containsSorted(refs[g], owner) {
			return nil, fmt.Errorf("%w: node %d owned by partition %d, referenced only by %v",
				ErrOwnershipConflict, g, owner, refs[g])
		}
	}
	return refs, nil
}

func (d *Decomposition) referencing(m *mesh.Mesh) ([][]int, error) {
	if d.NumParts < 1 {
		return nil, fmt.Errorf("%w: NumParts=%d", ErrInconsistentDecomposition, d.NumParts)
	}
	if len(d.ElementPart) != m.NumElements {
		return nil, fmt.Errorf("%w: ElementPart length %d does not match NumElements=%d",
			ErrInconsistentDecomposition, len(d.ElementPart), m.NumElements)
	}
	refs := make([][]int, m.NumNodes)
	for e, part := range d.ElementPart {
		if part < 0 || part >= d.NumParts {
			return nil, fmt.Errorf("%w: element %d assigned to partition %d outside [0,%d)",
				ErrInconsistentDecomposition, e, part, d.NumParts)
		}
		for _, g := range m.EToV[e] {
			refs[g] = insertSorted(refs[g], part)
		}
	}
	return refs, nil
}

// insertSorted adds v to an ascending slice if it is not already present
func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func containsSorted(s []int, v int) bool {
	i := sort.SearchInts(s, v)
	return i < len(s) && s[i] == v
}

// PartitionStrategy defines how elements are grouped when a mesh source
// carries no decomposition
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive elements
	RoundRobin                              // Distribute cyclically
)

// ParseStrategy maps "block" or "roundrobin" to a strategy
func ParseStrategy(s string) (PartitionStrategy, error) {
	switch s {
	case "block":
		return BlockPartition, nil
	case "roundrobin", "round-robin":
		return RoundRobin, nil
	}
	return 0, fmt.Errorf("unknown partition strategy %q", s)
}

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "roundrobin"
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// PartitionElements assigns numElements elements to numParts partitions
func PartitionElements(numElements, numParts int, strategy PartitionStrategy) ([]int, error) {
	if numParts < 1 || numElements < numParts {
		return nil, fmt.Errorf("cannot split %d elements into %d partitions", numElements, numParts)
	}
	eToP := make([]int, numElements)
	switch strategy {
	case BlockPartition:
		// Balanced blocks: sizes differ by at most one
		for i := range eToP {
			eToP[i] = i * numParts / numElements
		}
	case RoundRobin:
		for i := range eToP {
			eToP[i] = i % numParts
		}
	default:
		return nil, fmt.Errorf("unsupported partition strategy %v", strategy)
	}
	return eToP, nil
}

// PartitionStats summarizes element load balance
type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

// Statistics computes load balance metrics of the element assignment
func (d *Decomposition) Statistics() PartitionStats {
	counts := make([]int, d.NumParts)
	for _, p := range d.ElementPart {
		counts[p]++
	}
	stats := PartitionStats{
		NumPartitions: d.NumParts,
		MinElements:   math.MaxInt32,
		AvgElements:   float64(len(d.ElementPart)) / float64(d.NumParts),
	}
	for _, c := range counts {
		if c < stats.MinElements {
			stats.MinElements = c
		}
		if c > stats.MaxElements {
			stats.MaxElements = c
		}
	}
	if stats.AvgElements > 0 {
		stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	}
	return stats
}
