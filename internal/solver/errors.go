package solver

import "errors"

var (
	// ErrOutOfRange reports a vehicle start or job location index outside
	// the duration matrix bounds.
	ErrOutOfRange = errors.New("solver: location index out of range")

	// ErrInfeasible reports that no assignment satisfies the capacity
	// constraints, or that jobs exist but no vehicle does.
	ErrInfeasible = errors.New("solver: no feasible assignment")

	// ErrCancelled reports a search aborted by deadline, caller
	// cancellation, or the instance-size guard.
	ErrCancelled = errors.New("solver: solve cancelled")

	// ErrInvalidInput reports structurally malformed input (non-square
	// matrix, negative durations). Callers are expected to validate
	// upstream; the engine still defends its own invariants.
	ErrInvalidInput = errors.New("solver: invalid input")
)
