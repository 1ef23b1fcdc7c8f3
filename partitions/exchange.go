package partitions

import (
	"context"
	"errors"
	"fmt"
	"github.com/notargets/DGHalo/comm"
	"github.com/notargets/DGHalo/field"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"slices"
	"sync"
	"time"
)

// Message tags on the communicator
const (
	haloTag      = 1
	handshakeTag = 2
)

// Round is one halo exchange in progress. Transmission runs in the
// background between StartExchange and Wait.
type Round struct {
	p     *Partition
	f     field.Field
	g     *errgroup.Group
	start time.Time

	once sync.Once
	err  error
}

// Exchange packs f into every border, transmits all borders concurrently and
// unpacks the neighbours' values into f
func (p *Partition) Exchange(ctx context.Context, f field.Field) error {
	r, err := p.StartExchange(ctx, f)
	if err != nil {
		return err
	}
	return r.Wait()
}

// StartExchange packs every border and starts transmission. A canceled ctx
// abandons the round before anything is sent, leaving f and the borders as
// they were. Once transmission starts it cannot be canceled; Wait must be
// called to finish the round.
func (p *Partition) StartExchange(ctx context.Context, f field.Field) (*Round, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failed != nil {
		return nil, p.failed
	}
	if p.active != nil {
		return nil, fmt.Errorf("%w: part %d has a round in progress", ErrInvalidState, p.Info.Part)
	}
	if p.comm == nil {
		return nil, ErrNoCommunicator
	}
	if f.NumNodes() != p.Info.NNodes {
		return nil, fmt.Errorf("%w: field has %d nodes, part %d has %d",
			ErrSizeMismatch, f.NumNodes(), p.Info.Part, p.Info.NNodes)
	}
	for _, b := range p.Borders {
		if err := b.CheckRecvLayout(f); err != nil {
			return nil, fmt.Errorf("part %d: %w", p.Info.Part, err)
		}
	}
	if s, ok := f.(field.Synchronizer); ok {
		if err := s.Pull(); err != nil {
			return nil, fmt.Errorf("part %d: device pull: %w", p.Info.Part, err)
		}
	}

	start := time.Now()
	for _, b := range p.Borders {
		if err := b.Pack(f); err != nil {
			p.resetBorders()
			return nil, fmt.Errorf("part %d: %w", p.Info.Part, err)
		}
	}
	if err := ctx.Err(); err != nil {
		p.resetBorders()
		return nil, err
	}

	// Transmission ignores cancellation from here on: a half-finished round
	// would leave neighbours disagreeing about what was exchanged
	tctx := context.WithoutCancel(ctx)
	r := &Round{p: p, f: f, g: new(errgroup.Group), start: start}
	for _, b := range p.Borders {
		if err := b.transition(Packed, InFlight); err != nil {
			return nil, err
		}
		r.g.Go(func() error {
			return p.transmit(tctx, b)
		})
	}
	p.active = r
	return r, nil
}

// Wait blocks until every border has been transmitted, then unpacks. It
// returns the same result if called again.
func (r *Round) Wait() error {
	r.once.Do(func() {
		r.err = r.finish()
	})
	return r.err
}

func (r *Round) finish() error {
	p := r.p
	terr := r.g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = nil

	if terr != nil {
		p.failed = terr
		p.metrics.ObserveFailure(p.Info.Part)
		p.logger.Error("halo exchange failed", zap.Int("part", p.Info.Part), zap.Error(terr))
		return terr
	}

	sent, recv := 0, 0
	for _, b := range p.Borders {
		if err := b.Unpack(r.f); err != nil {
			p.failed = fmt.Errorf("part %d: %w", p.Info.Part, err)
			return p.failed
		}
		sent += len(b.Data.SendBuffer)
		recv += len(b.Data.RecvBuffer)
	}
	if s, ok := r.f.(field.Synchronizer); ok {
		if err := s.Push(); err != nil {
			p.failed = fmt.Errorf("part %d: device push: %w", p.Info.Part, err)
			return p.failed
		}
	}
	p.metrics.ObserveRound(p.Info.Part, sent, recv, time.Since(r.start))
	return nil
}

// transmit sends and receives one border's buffers concurrently
func (p *Partition) transmit(ctx context.Context, b *Border) error {
	var g errgroup.Group
	g.Go(func() error {
		return p.comm.Send(ctx, b.RPart, haloTag, b.Data.SendBuffer)
	})
	g.Go(func() error {
		return p.comm.Recv(ctx, b.RPart, haloTag, b.Data.RecvBuffer)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: part %d <-> %d: %w", ErrTransmitFailure, p.Info.Part, b.RPart, err)
	}
	return b.transition(InFlight, Completed)
}

func (p *Partition) resetBorders() {
	for _, b := range p.Borders {
		b.state = Idle
	}
}

// Failed returns the transmit failure that poisoned this partition, if any
func (p *Partition) Failed() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}

// handshake sends every border's SendAi to the neighbour and checks the
// neighbour's list against RecvAi, so position i of one side's send buffer
// is known to be position i of the other side's receive buffer
func (p *Partition) handshake(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range p.Borders {
		g.Go(func() error {
			out := make([]float64, len(b.Data.SendAi))
			for i, id := range b.Data.SendAi {
				out[i] = float64(id)
			}
			in := make([]float64, len(b.Data.RecvAi))
			var hg errgroup.Group
			hg.Go(func() error {
				return p.comm.Send(gctx, b.RPart, handshakeTag, out)
			})
			hg.Go(func() error {
				return p.comm.Recv(gctx, b.RPart, handshakeTag, in)
			})
			if err := hg.Wait(); err != nil {
				// A length disagreement is a pattern disagreement; anything
				// else is the transport failing
				kind := ErrTransmitFailure
				if errors.Is(err, comm.ErrSizeMismatch) {
					kind = ErrBorderMismatch
				}
				return fmt.Errorf("%w: part %d <-> %d handshake: %w", kind, p.Info.Part, b.RPart, err)
			}
			remote := make([]int, len(in))
			for i, v := range in {
				remote[i] = int(v)
			}
			if !slices.Equal(remote, b.Data.RecvAi) {
				return fmt.Errorf("%w: part %d expects dofs %v from %d, neighbour sends %v",
					ErrBorderMismatch, p.Info.Part, b.Data.RecvAi, b.RPart, remote)
			}
			return nil
		})
	}
	return g.Wait()
}
