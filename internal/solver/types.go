// Package solver implements the route assignment engines: an exhaustive
// exact search and a greedy heuristic, both behind one Solver interface.
//
// All durations are int64 seconds. Inputs are never mutated; a solve call
// holds no state beyond its own stack and is safe to run concurrently with
// other solve calls.
package solver

import "context"

// Vehicle is a single-depot, open-route vehicle. A nil Capacity means
// unconstrained.
type Vehicle struct {
	ID       string
	Start    int
	Capacity *float64
}

// Job is one delivery stop.
type Job struct {
	ID       string
	Location int
	Delivery float64
	Service  int64
}

// Problem is the full input for one solve call.
type Problem struct {
	Vehicles []Vehicle
	Jobs     []Job
	Matrix   *Matrix
}

// Route is one vehicle's ordered stop sequence with its computed duration.
type Route struct {
	JobIDs   []string
	Duration int64
}

// Solution maps every vehicle id to a route; vehicles with no jobs carry an
// empty (non-nil) JobIDs slice and duration 0. Total is the objective value.
type Solution struct {
	Total  int64
	Routes map[string]Route
	// Evaluated counts raw partitions scored by the exact engine; the
	// greedy backend leaves it 0.
	Evaluated uint64
}

// Solver is the contract every backend satisfies. Implementations return the
// same Solution shape so callers can switch strategy without changing the
// request/response contract.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p Problem) (Solution, error)
}
