package partitions

import "errors"

// Setup errors leave no Partition behind. Exchange errors are fatal to the
// current solve: nothing is retried.
var (
	// ErrInconsistentDecomposition is returned when the assignment of
	// elements and nodes to partitions violates a global invariant.
	ErrInconsistentDecomposition = errors.New("inconsistent decomposition")

	// ErrOwnershipConflict is returned when a shared node does not have
	// exactly one owner among the partitions referencing it.
	ErrOwnershipConflict = errors.New("ownership conflict")

	// ErrSizeMismatch is returned by pack/unpack when a field's dof layout
	// disagrees with the border pattern.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrTransmitFailure is returned when moving border buffers fails.
	ErrTransmitFailure = errors.New("transmit failure")

	// ErrBorderMismatch is returned when two sides of a border do not list
	// the same dofs in the same order.
	ErrBorderMismatch = errors.New("border mismatch")

	// ErrInvalidState is returned when a border step is called out of order.
	ErrInvalidState = errors.New("invalid border state")

	// ErrNoCommunicator is returned when exchanging without a communicator.
	ErrNoCommunicator = errors.New("no communicator attached")
)
