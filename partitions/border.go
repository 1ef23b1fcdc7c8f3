package partitions

import (
	"fmt"
	"github.com/notargets/DGHalo/field"
)

// BorderState tracks one border through an exchange round
type BorderState uint8

const (
	Idle      BorderState = iota // Ready to pack
	Packed                       // SendBuffer holds this round's values
	InFlight                     // Buffers are with the communicator
	Completed                    // RecvBuffer holds the neighbour's values
)

func (s BorderState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Packed:
		return "Packed"
	case InFlight:
		return "InFlight"
	case Completed:
		return "Completed"
	}
	return fmt.Sprintf("BorderState(%d)", uint8(s))
}

/*
BorderData is the border pattern in CSR form. Each row is a border node:

	Ap: row offsets, Ap[0] = 0, Ap[k+1]-Ap[k] = dofs of node k
	Ai: global dof ids of node k in Ai[Ap[k]:Ap[k+1]], ascending

Node k's values travel in Buffer[Ap[k]:Ap[k+1]]. Buffers are sized once
when the pattern is built and are the only state that changes afterwards.
*/
type BorderData struct {
	SendAp []int
	SendAi []int
	RecvAp []int
	RecvAi []int

	// BorderDofToGlobal maps a border dof index (send dofs, then receive
	// dofs) to its global dof id
	BorderDofToGlobal []int

	SendBuffer []float64
	RecvBuffer []float64
}

// Border is the communication relationship with one neighbouring partition
type Border struct {
	RPart          int   // Remote partition id
	NSend          []int // Local ids of owned nodes the neighbour needs
	NRecv          []int // Local ids of nodes owned by the neighbour
	SendSize       int   // len(NSend)
	RecvSize       int   // len(NRecv)
	RemoteDofCount int   // Dofs received per round
	Data           BorderData

	state BorderState
}

// newBorder builds the border and its CSR pattern. nsend and nrecv must be
// ordered by global node id.
func newBorder(rpart int, nsend, nrecv []int, l2g []int, num *DofNumbering) *Border {
	b := &Border{
		RPart:    rpart,
		NSend:    nsend,
		NRecv:    nrecv,
		SendSize: len(nsend),
		RecvSize: len(nrecv),
	}
	d := &b.Data
	d.SendAp, d.SendAi = buildCSR(nsend, l2g, num)
	d.RecvAp, d.RecvAi = buildCSR(nrecv, l2g, num)

	d.BorderDofToGlobal = make([]int, 0, len(d.SendAi)+len(d.RecvAi))
	d.BorderDofToGlobal = append(d.BorderDofToGlobal, d.SendAi...)
	d.BorderDofToGlobal = append(d.BorderDofToGlobal, d.RecvAi...)

	d.SendBuffer = make([]float64, len(d.SendAi))
	d.RecvBuffer = make([]float64, len(d.RecvAi))
	b.RemoteDofCount = len(d.RecvAi)
	return b
}

func buildCSR(nodes []int, l2g []int, num *DofNumbering) (ap, ai []int) {
	ap = make([]int, len(nodes)+1)
	for k, l := range nodes {
		ap[k+1] = ap[k] + num.NodeDofs[l2g[l]]
	}
	ai = make([]int, 0, ap[len(nodes)])
	for _, l := range nodes {
		ai = num.GlobalDofs(ai, l2g[l])
	}
	return ap, ai
}

// State reports where the border is in the exchange round
func (b *Border) State() BorderState {
	return b.state
}

func (b *Border) transition(from, to BorderState) error {
	if b.state != from {
		return fmt.Errorf("%w: border to part %d is %v, need %v", ErrInvalidState, b.RPart, b.state, from)
	}
	b.state = to
	return nil
}

// Pack copies the field values of NSend into SendBuffer. The field is only read.
func (b *Border) Pack(f field.Field) error {
	if b.state != Idle {
		return fmt.Errorf("%w: pack on border to part %d in state %v", ErrInvalidState, b.RPart, b.state)
	}
	ap := b.Data.SendAp
	for k, node := range b.NSend {
		vals, err := nodeValues(f, node, ap[k+1]-ap[k])
		if err != nil {
			return fmt.Errorf("pack to part %d: %w", b.RPart, err)
		}
		copy(b.Data.SendBuffer[ap[k]:ap[k+1]], vals)
	}
	b.state = Packed
	return nil
}

// CheckRecvLayout reports ErrSizeMismatch when f cannot take the values of
// NRecv, so a stale layout is caught before anything is sent
func (b *Border) CheckRecvLayout(f field.Field) error {
	ap := b.Data.RecvAp
	for k, node := range b.NRecv {
		if _, err := nodeValues(f, node, ap[k+1]-ap[k]); err != nil {
			return fmt.Errorf("unpack from part %d: %w", b.RPart, err)
		}
	}
	return nil
}

// Unpack overwrites the field values of NRecv with RecvBuffer
func (b *Border) Unpack(f field.Field) error {
	if b.state != Completed {
		return fmt.Errorf("%w: unpack on border to part %d in state %v", ErrInvalidState, b.RPart, b.state)
	}
	ap := b.Data.RecvAp
	for k, node := range b.NRecv {
		vals, err := nodeValues(f, node, ap[k+1]-ap[k])
		if err != nil {
			return fmt.Errorf("unpack from part %d: %w", b.RPart, err)
		}
		copy(vals, b.Data.RecvBuffer[ap[k]:ap[k+1]])
	}
	b.state = Idle
	return nil
}

func nodeValues(f field.Field, node, ndof int) ([]float64, error) {
	if node < 0 || node >= f.NumNodes() {
		return nil, fmt.Errorf("%w: node %d outside field of %d nodes", ErrSizeMismatch, node, f.NumNodes())
	}
	if nd := f.NumDofs(node); nd != ndof {
		return nil, fmt.Errorf("%w: node %d has %d dofs, pattern expects %d", ErrSizeMismatch, node, nd, ndof)
	}
	vals := f.NodeValues(node)
	if len(vals) != ndof {
		return nil, fmt.Errorf("%w: node %d exposes %d values, pattern expects %d",
			ErrSizeMismatch, node, len(vals), ndof)
	}
	return vals, nil
}

// Validate checks the CSR invariants of both directions
func (b *Border) Validate(nnodes int) error {
	if b.SendSize != len(b.NSend) || b.RecvSize != len(b.NRecv) {
		return fmt.Errorf("border to part %d: sizes %d/%d do not match lists %d/%d",
			b.RPart, b.SendSize, b.RecvSize, len(b.NSend), len(b.NRecv))
	}
	if err := validateCSR(b.NSend, b.Data.SendAp, b.Data.SendAi, b.Data.SendBuffer, nnodes); err != nil {
		return fmt.Errorf("border to part %d send: %w", b.RPart, err)
	}
	if err := validateCSR(b.NRecv, b.Data.RecvAp, b.Data.RecvAi, b.Data.RecvBuffer, nnodes); err != nil {
		return fmt.Errorf("border to part %d recv: %w", b.RPart, err)
	}
	if b.RemoteDofCount != len(b.Data.RecvAi) {
		return fmt.Errorf("border to part %d: remote dof count %d != %d",
			b.RPart, b.RemoteDofCount, len(b.Data.RecvAi))
	}
	sending := make(map[int]bool, len(b.NSend))
	for _, l := range b.NSend {
		sending[l] = true
	}
	for _, l := range b.NRecv {
		if sending[l] {
			return fmt.Errorf("%w: node %d both sent to and received from part %d",
				ErrOwnershipConflict, l, b.RPart)
		}
	}
	return nil
}

func validateCSR(nodes, ap, ai []int, buf []float64, nnodes int) error {
	if len(ap) != len(nodes)+1 {
		return fmt.Errorf("Ap length %d, expected %d", len(ap), len(nodes)+1)
	}
	if ap[0] != 0 {
		return fmt.Errorf("Ap[0] = %d", ap[0])
	}
	for k := range nodes {
		if nodes[k] < 0 || nodes[k] >= nnodes {
			return fmt.Errorf("node index %d outside [0,%d)", nodes[k], nnodes)
		}
		if ap[k+1] < ap[k] {
			return fmt.Errorf("Ap decreases at row %d", k)
		}
	}
	last := ap[len(nodes)]
	if len(ai) != last || len(buf) != last {
		return fmt.Errorf("Ap ends at %d, Ai has %d, buffer has %d", last, len(ai), len(buf))
	}
	for k := range nodes {
		for i := ap[k] + 1; i < ap[k+1]; i++ {
			if ai[i] <= ai[i-1] {
				return fmt.Errorf("Ai not ascending in row %d", k)
			}
		}
	}
	return nil
}
