package solver

import (
	"fmt"
	"sort"
)

// Options bounds the exact engine's search. Zero values fall back to the
// defaults below.
type Options struct {
	// MaxJobs / MaxVehicles reject oversized instances before search.
	MaxJobs     int
	MaxVehicles int
	// MaxPartitions caps the raw assignment count n^m.
	MaxPartitions uint64
	// Workers is the partition-range fan-out; 0 means GOMAXPROCS.
	Workers int
}

const (
	DefaultMaxJobs       = 10
	DefaultMaxVehicles   = 6
	DefaultMaxPartitions = 50_000_000
)

func (o Options) withDefaults() Options {
	if o.MaxJobs <= 0 {
		o.MaxJobs = DefaultMaxJobs
	}
	if o.MaxVehicles <= 0 {
		o.MaxVehicles = DefaultMaxVehicles
	}
	if o.MaxPartitions == 0 {
		o.MaxPartitions = DefaultMaxPartitions
	}
	return o
}

// New returns the named backend, or an error for unknown names.
func New(name string, opts Options) (Solver, error) {
	switch name {
	case "exact":
		return &Exact{Opts: opts.withDefaults()}, nil
	case "greedy":
		return &Greedy{Improve2Opt: true}, nil
	}
	return nil, fmt.Errorf("unknown solver: %s", name)
}

// Names lists the registered backends.
func Names() []string { return []string{"exact", "greedy"} }

// preflight enforces invariants shared by all backends: every referenced
// location must be inside the matrix, and jobs without vehicles are
// infeasible by definition. Returns the jobs sorted by id, which fixes the
// deterministic tie-break order for the rest of the search.
func preflight(p Problem) ([]Job, error) {
	n := p.Matrix.Dim()
	for _, v := range p.Vehicles {
		if v.Start < 0 || v.Start >= n {
			return nil, fmt.Errorf("%w: vehicle %q start_index %d, matrix dimension %d", ErrOutOfRange, v.ID, v.Start, n)
		}
	}
	for _, j := range p.Jobs {
		if j.Location < 0 || j.Location >= n {
			return nil, fmt.Errorf("%w: job %q location_index %d, matrix dimension %d", ErrOutOfRange, j.ID, j.Location, n)
		}
	}
	if len(p.Jobs) > 0 && len(p.Vehicles) == 0 {
		return nil, fmt.Errorf("%w: %d jobs and no vehicles", ErrInfeasible, len(p.Jobs))
	}
	jobs := make([]Job, len(p.Jobs))
	copy(jobs, p.Jobs)
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].ID < jobs[b].ID })
	return jobs, nil
}

// emptySolution assigns every vehicle an empty route.
func emptySolution(vehicles []Vehicle) Solution {
	routes := make(map[string]Route, len(vehicles))
	for _, v := range vehicles {
		routes[v.ID] = Route{JobIDs: []string{}, Duration: 0}
	}
	return Solution{Total: 0, Routes: routes}
}
