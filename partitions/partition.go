package partitions

import (
	"context"
	"fmt"
	"github.com/notargets/DGHalo/comm"
	"github.com/notargets/DGHalo/field"
	"github.com/notargets/DGHalo/mesh"
	"github.com/notargets/DGHalo/metrics"
	"go.uber.org/zap"
	"slices"
	"sort"
	"strings"
	"sync"
)

// Partition is the local region of a decomposed mesh together with the
// borders it exchanges dof values across. Everything except the border
// buffers is fixed once New returns.
type Partition struct {
	Local     *LocalMesh
	Info      PartInfo
	Borders   []*Border // Ascending RPart
	Numbering *DofNumbering

	comm    comm.Communicator
	logger  *zap.Logger
	metrics *metrics.Exchange

	borderNode     []bool // Local node appears in some NSend or NRecv
	borderElements []int  // Local elements touching a border node, ascending
	nodeOwner      []int  // Owning partition of each local node

	mu     sync.Mutex
	active *Round
	failed error
}

type options struct {
	comm      comm.Communicator
	logger    *zap.Logger
	metrics   *metrics.Exchange
	dofs      DofCounter
	handshake bool
}

// Option configures New
type Option func(*options)

// WithCommunicator attaches the communication context used by Exchange
func WithCommunicator(c comm.Communicator) Option {
	return func(o *options) {
		o.comm = c
	}
}

// WithLogger sets the logger; the default discards everything
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records exchange rounds on m
func WithMetrics(m *metrics.Exchange) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDofs sets the per-node dof count; the default is one dof per node
func WithDofs(dofs DofCounter) Option {
	return func(o *options) {
		o.dofs = dofs
	}
}

// WithoutHandshake skips the setup-time comparison of border patterns with
// each neighbour. Only meaningful with a communicator.
func WithoutHandshake() Option {
	return func(o *options) {
		o.handshake = false
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:    zap.NewNop(),
		dofs:      UniformDofs(1),
		handshake: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds partition part of the decomposition. With a communicator
// attached, it must be called by every partition of the decomposition, since
// each border pattern is checked against the neighbour's before returning.
func New(ctx context.Context, m *mesh.Mesh, d *Decomposition, part int, opts ...Option) (*Partition, error) {
	o := buildOptions(opts)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInconsistentDecomposition, err)
	}
	refs, err := d.Validate(m)
	if err != nil {
		return nil, err
	}
	num, err := NewDofNumbering(d, o.dofs)
	if err != nil {
		return nil, err
	}
	p, err := build(m, d, refs, m.NodeElements(), num, part, o)
	if err != nil {
		return nil, err
	}
	if p.comm != nil && o.handshake {
		if err = p.handshake(ctx); err != nil {
			p.logger.Error("border handshake failed", zap.Int("part", part), zap.Error(err))
			return nil, err
		}
	}
	return p, nil
}

// BuildAll builds every partition of the decomposition in this process,
// without communicators. Useful for tools and for VerifySymmetry.
func BuildAll(m *mesh.Mesh, d *Decomposition, opts ...Option) ([]*Partition, error) {
	o := buildOptions(opts)
	o.comm = nil
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInconsistentDecomposition, err)
	}
	refs, err := d.Validate(m)
	if err != nil {
		return nil, err
	}
	num, err := NewDofNumbering(d, o.dofs)
	if err != nil {
		return nil, err
	}
	nodeElements := m.NodeElements()
	parts := make([]*Partition, d.NumParts)
	for p := range parts {
		if parts[p], err = build(m, d, refs, nodeElements, num, p, o); err != nil {
			return nil, err
		}
	}
	return parts, nil
}

func build(m *mesh.Mesh, d *Decomposition, refs, nodeElements [][]int, num *DofNumbering,
	part int, o options) (*Partition, error) {

	if part < 0 || part >= d.NumParts {
		return nil, fmt.Errorf("%w: part %d outside [0,%d)", ErrInconsistentDecomposition, part, d.NumParts)
	}
	if o.comm != nil && (o.comm.Rank() != part || o.comm.Size() != d.NumParts) {
		return nil, fmt.Errorf("%w: communicator is rank %d of %d, building part %d of %d",
			ErrInconsistentDecomposition, o.comm.Rank(), o.comm.Size(), part, d.NumParts)
	}

	local := newLocalMesh(m, d, part)
	borders, err := buildBorders(part, local, refs, d, num)
	if err != nil {
		return nil, err
	}
	info, err := computePartInfo(part, local, refs, d, num, len(borders))
	if err != nil {
		return nil, err
	}

	p := &Partition{
		Local:      local,
		Info:       info,
		Borders:    borders,
		Numbering:  num,
		comm:       o.comm,
		logger:     o.logger,
		metrics:    o.metrics,
		borderNode: make([]bool, local.NumNodes()),
		nodeOwner:  make([]int, local.NumNodes()),
	}
	for l, g := range local.NodeL2G {
		p.nodeOwner[l] = d.NodeOwner[g]
	}
	for _, b := range borders {
		if err = b.Validate(local.NumNodes()); err != nil {
			return nil, err
		}
		for _, l := range b.NSend {
			p.borderNode[l] = true
		}
		for _, l := range b.NRecv {
			p.borderNode[l] = true
		}
		p.logger.Debug("border",
			zap.Int("part", part),
			zap.Int("rpart", b.RPart),
			zap.Int("sendsize", b.SendSize),
			zap.Int("recvsize", b.RecvSize),
			zap.Int("remote_dofcount", b.RemoteDofCount))
	}
	p.borderElements = borderElements(local, d, nodeElements, p.borderNode, part)
	p.metrics.SetBorders(part, len(borders))
	p.logger.Info("partition ready",
		zap.Int("part", part),
		zap.Int("npart", info.NPart),
		zap.Int("nelem", info.NElem),
		zap.Int("nnodes", info.NNodes),
		zap.Int("nborder", info.NBorder),
		zap.Int("nshared", info.NShared),
		zap.Int("nown", info.NOwn),
		zap.Int("doffset", info.DOffset))
	return p, nil
}

// buildBorders walks the local nodes in ascending global id, so both sides
// of every border list their nodes in the same order
func buildBorders(part int, local *LocalMesh, refs [][]int, d *Decomposition,
	num *DofNumbering) ([]*Border, error) {

	send := make(map[int][]int)
	recv := make(map[int][]int)
	for l, g := range local.NodeL2G {
		owner := d.NodeOwner[g]
		if !containsSorted(refs[g], owner) {
			return nil, fmt.Errorf("%w: node %d owned by partition %d, referenced only by %v",
				ErrOwnershipConflict, g, owner, refs[g])
		}
		if owner != part {
			recv[owner] = append(recv[owner], l)
			continue
		}
		for _, r := range refs[g] {
			if r != part {
				send[r] = append(send[r], l)
			}
		}
	}

	// Neighbours that only share nodes owned by a third partition have
	// nothing to move and get no border
	rparts := make([]int, 0, len(send)+len(recv))
	for r := range send {
		rparts = append(rparts, r)
	}
	for r := range recv {
		if _, ok := send[r]; !ok {
			rparts = append(rparts, r)
		}
	}
	sort.Ints(rparts)

	borders := make([]*Border, 0, len(rparts))
	for _, r := range rparts {
		borders = append(borders, newBorder(r, send[r], recv[r], local.NodeL2G, num))
	}
	return borders, nil
}

// Border returns the border to rpart, or nil when there is none
func (p *Partition) Border(rpart int) *Border {
	i := sort.Search(len(p.Borders), func(i int) bool { return p.Borders[i].RPart >= rpart })
	if i < len(p.Borders) && p.Borders[i].RPart == rpart {
		return p.Borders[i]
	}
	return nil
}

// GetBorderElements returns the local indices of elements touching at least
// one border node, in element order
func (p *Partition) GetBorderElements() []int {
	return slices.Clone(p.borderElements)
}

// borderElements collects the local elements around each border node from
// the global node to element map
func borderElements(local *LocalMesh, d *Decomposition, nodeElements [][]int,
	borderNode []bool, part int) []int {

	touched := make([]bool, len(local.Elements))
	for l, isBorder := range borderNode {
		if !isBorder {
			continue
		}
		for _, e := range nodeElements[local.NodeL2G[l]] {
			if d.ElementPart[e] != part {
				continue
			}
			k, _ := slices.BinarySearch(local.Elements, e)
			touched[k] = true
		}
	}
	var be []int
	for k, t := range touched {
		if t {
			be = append(be, k)
		}
	}
	return be
}

// IsBorderNode reports whether a local node is sent or received
func (p *Partition) IsBorderNode(local int) bool {
	return p.borderNode[local]
}

// GlobalNode maps a local node id to its global id
func (p *Partition) GlobalNode(local int) int {
	return p.Local.NodeL2G[local]
}

// LocalNode maps a global node id to its local id
func (p *Partition) LocalNode(global int) (int, bool) {
	return p.Local.LocalNode(global)
}

// Owner returns the partition authoritative for a local node
func (p *Partition) Owner(local int) int {
	return p.nodeOwner[local]
}

// NumDofs returns the dof count of a local node
func (p *Partition) NumDofs(local int) int {
	return p.Numbering.NodeDofs[p.Local.NodeL2G[local]]
}

// GlobalDofs returns the ascending global dof ids of a local node
func (p *Partition) GlobalDofs(local int) []int {
	return p.Numbering.GlobalDofs(nil, p.Local.NodeL2G[local])
}

// OwnedDofRange is the half-open global dof range owned by this partition
func (p *Partition) OwnedDofRange() (lo, hi int) {
	return p.Info.DOffset, p.Info.DOffset + p.Info.NOwnedDofs
}

// NewField allocates a zeroed field laid out for this partition's dofs
func (p *Partition) NewField() *field.CSR {
	ndofs := make([]int, p.Local.NumNodes())
	for l := range ndofs {
		ndofs[l] = p.NumDofs(l)
	}
	f, _ := field.NewCSR(ndofs) // Counts were validated by the numbering
	return f
}

// String returns a summary of the partition and its borders
func (p *Partition) String() string {
	var sb strings.Builder
	sb.WriteString(p.Info.String())
	sb.WriteString("\n")
	for _, b := range p.Borders {
		sb.WriteString(fmt.Sprintf("  border to %d: send %d nodes/%d dofs, recv %d nodes/%d dofs\n",
			b.RPart, b.SendSize, len(b.Data.SendAi), b.RecvSize, b.RemoteDofCount))
	}
	return sb.String()
}
