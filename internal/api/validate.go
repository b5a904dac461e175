package api

import (
	"fmt"

	"routeopt/internal/model"
	"routeopt/internal/solver"
)

// validateSolveRequest performs the structural checks owned by the API edge
// (InvalidInput class). Index-vs-matrix range checks belong to the engine,
// which reports them as OutOfRange.
func validateSolveRequest(req *model.SolveRequest) error {
	n := len(req.Matrix)
	if n == 0 {
		return fmt.Errorf("matrix must be non-empty")
	}
	for i, row := range req.Matrix {
		if len(row) != n {
			return fmt.Errorf("matrix row %d has length %d, want %d", i, len(row), n)
		}
		for j, v := range row {
			if v < 0 {
				return fmt.Errorf("matrix[%d][%d] must be >= 0", i, j)
			}
		}
	}
	seenV := map[string]bool{}
	for i, v := range req.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle %d has empty id", i)
		}
		if seenV[v.ID] {
			return fmt.Errorf("duplicate vehicle id: %s", v.ID)
		}
		seenV[v.ID] = true
		if v.StartIndex < 0 {
			return fmt.Errorf("vehicle %s start_index must be >= 0", v.ID)
		}
		if v.Capacity != nil && *v.Capacity < 0 {
			return fmt.Errorf("vehicle %s capacity must be >= 0", v.ID)
		}
	}
	seenJ := map[string]bool{}
	for i, j := range req.Jobs {
		if j.ID == "" {
			return fmt.Errorf("job %d has empty id", i)
		}
		if seenJ[j.ID] {
			return fmt.Errorf("duplicate job id: %s", j.ID)
		}
		seenJ[j.ID] = true
		if j.LocationIndex < 0 {
			return fmt.Errorf("job %s location_index must be >= 0", j.ID)
		}
		if j.Delivery < 0 {
			return fmt.Errorf("job %s delivery must be >= 0", j.ID)
		}
		if j.Service < 0 {
			return fmt.Errorf("job %s service must be >= 0", j.ID)
		}
	}
	if req.Solver != "" {
		known := false
		for _, name := range solver.Names() {
			if name == req.Solver {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown solver: %s (available: exact, greedy)", req.Solver)
		}
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("time_budget_ms must be >= 0")
	}
	return nil
}
