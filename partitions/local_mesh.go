package partitions

import (
	"github.com/notargets/DGHalo/mesh"
)

// LocalMesh is the region of the global mesh held by one partition. Local
// node ids follow ascending global node id.
type LocalMesh struct {
	Elements []int   // Global element ids, ascending
	EToV     [][]int // Element connectivity in local node ids
	NodeL2G  []int   // Local node -> global node
	nodeG2L  map[int]int
}

func newLocalMesh(m *mesh.Mesh, d *Decomposition, part int) *LocalMesh {
	lm := &LocalMesh{nodeG2L: make(map[int]int)}
	used := make([]bool, m.NumNodes)
	for e, p := range d.ElementPart {
		if p != part {
			continue
		}
		lm.Elements = append(lm.Elements, e)
		for _, g := range m.EToV[e] {
			used[g] = true
		}
	}
	for g, u := range used {
		if u {
			lm.nodeG2L[g] = len(lm.NodeL2G)
			lm.NodeL2G = append(lm.NodeL2G, g)
		}
	}
	lm.EToV = make([][]int, len(lm.Elements))
	for k, e := range lm.Elements {
		verts := make([]int, len(m.EToV[e]))
		for i, g := range m.EToV[e] {
			verts[i] = lm.nodeG2L[g]
		}
		lm.EToV[k] = verts
	}
	return lm
}

// NumNodes is the number of local nodes
func (lm *LocalMesh) NumNodes() int {
	return len(lm.NodeL2G)
}

// LocalNode maps a global node id to its local id
func (lm *LocalMesh) LocalNode(g int) (int, bool) {
	l, ok := lm.nodeG2L[g]
	return l, ok
}
