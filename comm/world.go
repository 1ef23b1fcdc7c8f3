package comm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// World connects Size() in-process endpoints through buffered channels, one
// per (source, destination, tag). Messages between a pair on one tag arrive
// in send order.
type World struct {
	size    int
	depth   int
	timeout time.Duration

	mu    sync.Mutex
	links map[linkKey]chan []float64

	closeOnce sync.Once
	closed    chan struct{}
}

type linkKey struct {
	src, dst, tag int
}

// WorldOption configures a World
type WorldOption func(*World)

// WithTimeout bounds every Recv; zero waits forever
func WithTimeout(d time.Duration) WorldOption {
	return func(w *World) {
		w.timeout = d
	}
}

// WithDepth sets how many messages may be queued per link before Send blocks
func WithDepth(n int) WorldOption {
	return func(w *World) {
		if n > 0 {
			w.depth = n
		}
	}
}

// NewWorld creates a world of size endpoints
func NewWorld(size int, opts ...WorldOption) *World {
	w := &World{
		size:   size,
		depth:  4,
		links:  make(map[linkKey]chan []float64),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Size returns the number of endpoints
func (w *World) Size() int {
	return w.size
}

// Endpoint returns the communicator for one rank
func (w *World) Endpoint(rank int) *Endpoint {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("rank %d outside world of size %d", rank, w.size))
	}
	return &Endpoint{world: w, rank: rank}
}

// Close unblocks all pending and future calls with ErrClosed
func (w *World) Close() {
	w.closeOnce.Do(func() {
		close(w.closed)
	})
}

func (w *World) link(src, dst, tag int) chan []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	key := linkKey{src: src, dst: dst, tag: tag}
	ch, ok := w.links[key]
	if !ok {
		ch = make(chan []float64, w.depth)
		w.links[key] = ch
	}
	return ch
}

func (w *World) checkRank(r int) error {
	if r < 0 || r >= w.size {
		return fmt.Errorf("%w: %d (size %d)", ErrInvalidRank, r, w.size)
	}
	return nil
}

// Endpoint is one rank's view of a World
type Endpoint struct {
	world *World
	rank  int
}

var _ Communicator = (*Endpoint)(nil)

func (e *Endpoint) Rank() int { return e.rank }

func (e *Endpoint) Size() int { return e.world.size }

func (e *Endpoint) Send(ctx context.Context, dest, tag int, buf []float64) error {
	if err := e.world.checkRank(dest); err != nil {
		return err
	}
	msg := make([]float64, len(buf))
	copy(msg, buf)
	select {
	case e.world.link(e.rank, dest, tag) <- msg:
		return nil
	case <-e.world.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Endpoint) Recv(ctx context.Context, src, tag int, buf []float64) error {
	if err := e.world.checkRank(src); err != nil {
		return err
	}
	var timeout <-chan time.Time
	if e.world.timeout > 0 {
		timer := time.NewTimer(e.world.timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case msg := <-e.world.link(src, e.rank, tag):
		if len(msg) != len(buf) {
			return fmt.Errorf("%w: rank %d expected %d values from %d, got %d",
				ErrSizeMismatch, e.rank, len(buf), src, len(msg))
		}
		copy(buf, msg)
		return nil
	case <-timeout:
		return fmt.Errorf("%w: rank %d waiting on %d after %v", ErrTimeout, e.rank, src, e.world.timeout)
	case <-e.world.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
