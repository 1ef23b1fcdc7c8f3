package comm

import (
	"context"
	"fmt"
	"sync"
)

// Echo is a mock peer set: every buffer sent to a rank comes back unchanged
// as the next receive from that rank on the same tag. Recv blocks until a
// matching Send has been made or ctx is done.
type Echo struct {
	rank, size int

	mu      sync.Mutex
	pending map[echoKey][][]float64
	ready   chan struct{} // Closed and replaced on every Send
}

type echoKey struct {
	peer, tag int
}

var _ Communicator = (*Echo)(nil)

// NewEcho creates an echoing communicator for rank in a world of size
func NewEcho(rank, size int) *Echo {
	return &Echo{
		rank:    rank,
		size:    size,
		pending: make(map[echoKey][][]float64),
		ready:   make(chan struct{}),
	}
}

func (e *Echo) Rank() int { return e.rank }

func (e *Echo) Size() int { return e.size }

func (e *Echo) Send(_ context.Context, dest, tag int, buf []float64) error {
	if dest < 0 || dest >= e.size {
		return fmt.Errorf("%w: %d (size %d)", ErrInvalidRank, dest, e.size)
	}
	msg := append([]float64(nil), buf...)
	e.mu.Lock()
	defer e.mu.Unlock()
	key := echoKey{peer: dest, tag: tag}
	e.pending[key] = append(e.pending[key], msg)
	close(e.ready)
	e.ready = make(chan struct{})
	return nil
}

func (e *Echo) Recv(ctx context.Context, src, tag int, buf []float64) error {
	key := echoKey{peer: src, tag: tag}
	for {
		e.mu.Lock()
		queue := e.pending[key]
		if len(queue) > 0 {
			msg := queue[0]
			e.pending[key] = queue[1:]
			e.mu.Unlock()
			if len(msg) != len(buf) {
				return fmt.Errorf("%w: expected %d values from %d, got %d", ErrSizeMismatch, len(buf), src, len(msg))
			}
			copy(buf, msg)
			return nil
		}
		ready := e.ready
		e.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return fmt.Errorf("echo: nothing sent to %d on tag %d: %w", src, tag, ctx.Err())
		}
	}
}
