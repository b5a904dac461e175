package solver

import (
	"context"
	"fmt"
)

// Greedy is the heuristic fallback backend: deterministic cheapest-append
// seeding followed by an optional per-route 2-opt pass. It shares the exact
// engine's input/output contract and never produces an infeasible assignment,
// but it admits no backtracking, so it can report Infeasible on instances the
// exact engine solves, and its total is an upper bound on the optimum.
type Greedy struct {
	Improve2Opt bool
}

func (g *Greedy) Name() string { return "greedy" }

func (g *Greedy) Solve(ctx context.Context, p Problem) (Solution, error) {
	jobs, err := preflight(p)
	if err != nil {
		return Solution{}, err
	}
	if len(jobs) == 0 {
		return emptySolution(p.Vehicles), nil
	}

	n := len(p.Vehicles)
	used := make([]bool, len(jobs))
	orders := make([][]int, n)
	last := make([]int, n)
	load := make([]float64, n)
	for vi, v := range p.Vehicles {
		last[vi] = v.Start
	}

	// Round-robin over vehicles in input order; each picks its cheapest
	// feasible next job. Jobs are id-sorted and selection is strict <, so
	// ties fall to the lowest job id and the run is deterministic.
	assigned := 0
	for assigned < len(jobs) {
		if err := ctx.Err(); err != nil {
			return Solution{}, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		progress := false
		for vi := range p.Vehicles {
			v := p.Vehicles[vi]
			bestIdx := -1
			var bestDelta int64
			for ji := range jobs {
				if used[ji] {
					continue
				}
				if v.Capacity != nil && load[vi]+jobs[ji].Delivery > *v.Capacity {
					continue
				}
				d := p.Matrix.at(last[vi], jobs[ji].Location) + jobs[ji].Service
				if bestIdx == -1 || d < bestDelta {
					bestIdx, bestDelta = ji, d
				}
			}
			if bestIdx >= 0 {
				orders[vi] = append(orders[vi], bestIdx)
				used[bestIdx] = true
				last[vi] = jobs[bestIdx].Location
				load[vi] += jobs[bestIdx].Delivery
				assigned++
				progress = true
				if assigned == len(jobs) {
					break
				}
			}
		}
		if !progress {
			return Solution{}, fmt.Errorf("%w: %d jobs left unplaced by greedy assignment", ErrInfeasible, len(jobs)-assigned)
		}
	}

	if g.Improve2Opt {
		for vi := range orders {
			orders[vi] = improve2Opt(p.Matrix, p.Vehicles[vi].Start, jobs, orders[vi])
		}
	}

	routes := make(map[string]Route, n)
	var total int64
	for vi, v := range p.Vehicles {
		dur := routeDur(p.Matrix, v.Start, jobs, orders[vi])
		ids := make([]string, len(orders[vi]))
		for i, ji := range orders[vi] {
			ids[i] = jobs[ji].ID
		}
		routes[v.ID] = Route{JobIDs: ids, Duration: dur}
		total += dur
	}
	return Solution{Total: total, Routes: routes}, nil
}

// improve2Opt applies segment-reversal moves until no strict improvement
// remains. The route is open (no return leg) and the start location is fixed
// outside the order, so any segment of the order may be reversed.
func improve2Opt(m *Matrix, start int, jobs []Job, order []int) []int {
	if len(order) < 3 {
		return order
	}
	best := append([]int(nil), order...)
	bestDur := routeDur(m, start, jobs, best)
	improved := true
	for improved {
		improved = false
		for i := 0; i < len(best)-1; i++ {
			for k := i + 1; k < len(best); k++ {
				cand := twoOptSwap(best, i, k)
				if d := routeDur(m, start, jobs, cand); d < bestDur {
					best, bestDur = cand, d
					improved = true
				}
			}
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}
