package solver

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// Exact is the reference engine: it enumerates every way to partition the job
// set among vehicles (n^m raw assignments) and, per feasible partition, every
// ordering of each vehicle's subset, keeping the minimum-cost assignment.
//
// The search space is super-exponential by design; correctness over
// scalability. The Options guard rejects instances whose raw assignment count
// exceeds the configured bounds rather than letting a solve run away, and the
// context is checked once per partition so callers can impose deadlines.
//
// Determinism: jobs are pre-sorted by id and partitions carry a numeric code
// with job 0 as the most significant digit, so "lowest-indexed vehicle first"
// is exactly "lowest code". Workers each own a disjoint code range and keep a
// local best; the final reduction takes min cost, then min code. Equal-cost
// orderings inside one vehicle resolve to the lexicographically first
// permutation via strict < acceptance.
type Exact struct {
	Opts Options
}

func (e *Exact) Name() string { return "exact" }

func (e *Exact) Solve(ctx context.Context, p Problem) (Solution, error) {
	jobs, err := preflight(p)
	if err != nil {
		return Solution{}, err
	}
	if len(jobs) == 0 {
		return emptySolution(p.Vehicles), nil
	}

	opts := e.Opts.withDefaults()
	n := len(p.Vehicles)
	m := len(jobs)
	if m > opts.MaxJobs || n > opts.MaxVehicles {
		return Solution{}, fmt.Errorf("%w: instance too large (%d jobs, %d vehicles; limits %d jobs, %d vehicles)",
			ErrCancelled, m, n, opts.MaxJobs, opts.MaxVehicles)
	}
	if m > 62 {
		// the subset memo keys orderings by a job bitmask
		return Solution{}, fmt.Errorf("%w: %d jobs exceed the engine's hard limit of 62", ErrCancelled, m)
	}

	// A job nobody can carry makes every partition infeasible; reject before
	// burning through the whole space.
	for _, j := range jobs {
		carriable := false
		for _, v := range p.Vehicles {
			if v.Capacity == nil || j.Delivery <= *v.Capacity {
				carriable = true
				break
			}
		}
		if !carriable {
			return Solution{}, fmt.Errorf("%w: job %q delivery %v exceeds every vehicle capacity", ErrInfeasible, j.ID, j.Delivery)
		}
	}

	// total = n^m, overflow-checked against the partition cap.
	total := uint64(1)
	for i := 0; i < m; i++ {
		if total > opts.MaxPartitions/uint64(n) {
			return Solution{}, fmt.Errorf("%w: %d^%d raw assignments exceed partition limit %d", ErrCancelled, n, m, opts.MaxPartitions)
		}
		total *= uint64(n)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if uint64(workers) > total {
		workers = int(total)
	}

	results := make([]rangeResult, workers)
	var wg sync.WaitGroup
	chunk := total / uint64(workers)
	rem := total % uint64(workers)
	var lo uint64
	for i := 0; i < workers; i++ {
		hi := lo + chunk
		if uint64(i) < rem {
			hi++
		}
		wg.Add(1)
		go func(slot int, lo, hi uint64) {
			defer wg.Done()
			results[slot] = searchRange(ctx, p.Vehicles, jobs, p.Matrix, lo, hi)
		}(i, lo, hi)
		lo = hi
	}
	wg.Wait()

	best := rangeResult{cost: math.MaxInt64}
	var evaluated uint64
	for _, r := range results {
		if r.err != nil {
			return Solution{}, r.err
		}
		evaluated += r.evaluated
		if !r.found {
			continue
		}
		if !best.found || r.cost < best.cost || (r.cost == best.cost && r.code < best.code) {
			best = r
		}
	}
	if !best.found {
		return Solution{}, fmt.Errorf("%w: no partition satisfies the capacity constraints", ErrInfeasible)
	}

	sol := buildSolution(p.Vehicles, jobs, p.Matrix, best.code)
	sol.Evaluated = evaluated
	return sol, nil
}

type rangeResult struct {
	cost      int64
	code      uint64
	evaluated uint64
	found     bool
	err       error
}

// searchRange scans partition codes [lo, hi), keeping the local best. It is
// the per-worker half of the reduction: no shared state, one struct out.
func searchRange(ctx context.Context, vehicles []Vehicle, jobs []Job, m *Matrix, lo, hi uint64) rangeResult {
	n := len(vehicles)
	digits := make([]int, len(jobs)) // digits[j] = vehicle index of jobs[j]
	rem := lo
	for j := len(jobs) - 1; j >= 0; j-- {
		digits[j] = int(rem % uint64(n))
		rem /= uint64(n)
	}

	buckets := make([][]int, n)
	for i := range buckets {
		buckets[i] = make([]int, 0, len(jobs))
	}
	cache := map[orderKey]ordering{}

	res := rangeResult{cost: math.MaxInt64}
	for code := lo; code < hi; code++ {
		if err := ctx.Err(); err != nil {
			res.err = fmt.Errorf("%w: %v", ErrCancelled, err)
			return res
		}
		res.evaluated++

		for i := range buckets {
			buckets[i] = buckets[i][:0]
		}
		for j, v := range digits {
			buckets[v] = append(buckets[v], j)
		}

		feasible := true
		pruned := false
		var totalDur int64
		for vi := range vehicles {
			if !fitsIdx(vehicles[vi], jobs, buckets[vi]) {
				feasible = false
				break
			}
			if len(buckets[vi]) == 0 {
				continue
			}
			totalDur += bestOrdering(m, vehicles[vi].Start, jobs, buckets[vi], cache).dur
			if res.found && totalDur >= res.cost {
				pruned = true
				break
			}
		}
		if feasible && !pruned && (!res.found || totalDur < res.cost) {
			res.cost = totalDur
			res.code = code
			res.found = true
		}

		for j := len(digits) - 1; j >= 0; j-- {
			digits[j]++
			if digits[j] < n {
				break
			}
			digits[j] = 0
		}
	}
	return res
}

type orderKey struct {
	start int
	mask  uint64
}

type ordering struct {
	seq []int
	dur int64
}

// bestOrdering solves the traveling-salesman-path subproblem for one
// vehicle's subset by lexicographic enumeration with a cost-bound prune
// (durations are non-negative, so a prefix at or above the incumbent cannot
// improve). Results are memoized by (start location, subset bitmask): the
// same subset recurs across many partitions.
func bestOrdering(m *Matrix, start int, jobs []Job, subset []int, cache map[orderKey]ordering) ordering {
	var mask uint64
	for _, ji := range subset {
		mask |= 1 << uint(ji)
	}
	key := orderKey{start: start, mask: mask}
	if r, ok := cache[key]; ok {
		return r
	}

	best := ordering{dur: math.MaxInt64}
	used := make([]bool, len(subset))
	cur := make([]int, 0, len(subset))
	var walk func(prev int, acc int64)
	walk = func(prev int, acc int64) {
		if len(cur) == len(subset) {
			best.dur = acc
			best.seq = append([]int(nil), cur...)
			return
		}
		for i, ji := range subset {
			if used[i] {
				continue
			}
			d := acc + m.at(prev, jobs[ji].Location) + jobs[ji].Service
			if d >= best.dur {
				continue
			}
			used[i] = true
			cur = append(cur, ji)
			walk(jobs[ji].Location, d)
			cur = cur[:len(cur)-1]
			used[i] = false
		}
	}
	walk(start, 0)

	cache[key] = best
	return best
}

// buildSolution re-derives the winning partition's routes from its code.
func buildSolution(vehicles []Vehicle, jobs []Job, m *Matrix, code uint64) Solution {
	n := len(vehicles)
	digits := make([]int, len(jobs))
	rem := code
	for j := len(jobs) - 1; j >= 0; j-- {
		digits[j] = int(rem % uint64(n))
		rem /= uint64(n)
	}
	buckets := make([][]int, n)
	for j, v := range digits {
		buckets[v] = append(buckets[v], j)
	}

	cache := map[orderKey]ordering{}
	routes := make(map[string]Route, n)
	var total int64
	for vi, v := range vehicles {
		if len(buckets[vi]) == 0 {
			routes[v.ID] = Route{JobIDs: []string{}, Duration: 0}
			continue
		}
		ord := bestOrdering(m, v.Start, jobs, buckets[vi], cache)
		ids := make([]string, len(ord.seq))
		for i, ji := range ord.seq {
			ids[i] = jobs[ji].ID
		}
		routes[v.ID] = Route{JobIDs: ids, Duration: ord.dur}
		total += ord.dur
	}
	return Solution{Total: total, Routes: routes}
}
