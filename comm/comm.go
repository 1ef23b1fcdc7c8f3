// Package comm is the communication context used to move halo buffers
// between partitions. All calls are blocking; run them on separate
// goroutines for non-blocking behaviour.
package comm

import (
	"context"
	"errors"
)

// Communicator provides point-to-point transfer of fixed-size float64
// payloads between ranks 0 <= rank < Size().
type Communicator interface {
	Rank() int
	Size() int
	// Send transmits buf to dest. buf may be reused once Send returns.
	Send(ctx context.Context, dest, tag int, buf []float64) error
	// Recv fills buf with the next message from src on tag. The message
	// length must equal len(buf).
	Recv(ctx context.Context, src, tag int, buf []float64) error
}

var (
	// ErrSizeMismatch is returned when a received payload length differs
	// from the posted buffer.
	ErrSizeMismatch = errors.New("message size mismatch")

	// ErrTimeout is returned when a receive does not complete in time.
	ErrTimeout = errors.New("receive timed out")

	// ErrClosed is returned after the transport has been shut down.
	ErrClosed = errors.New("communicator closed")

	// ErrInvalidRank is returned for a peer outside [0, Size()).
	ErrInvalidRank = errors.New("invalid rank")
)
