package api

import (
	"routeopt/internal/model"
	"routeopt/internal/solver"
)

// toProblem converts wire DTOs into engine inputs.
func toProblem(req *model.SolveRequest) (solver.Problem, error) {
	m, err := solver.NewMatrix(req.Matrix)
	if err != nil {
		return solver.Problem{}, err
	}
	vehicles := make([]solver.Vehicle, len(req.Vehicles))
	for i, v := range req.Vehicles {
		vehicles[i] = solver.Vehicle{ID: v.ID, Start: v.StartIndex, Capacity: v.Capacity}
	}
	jobs := make([]solver.Job, len(req.Jobs))
	for i, j := range req.Jobs {
		jobs[i] = solver.Job{ID: j.ID, Location: j.LocationIndex, Delivery: j.Delivery, Service: j.Service}
	}
	return solver.Problem{Vehicles: vehicles, Jobs: jobs, Matrix: m}, nil
}

// formatSolution maps the engine's assignment onto the wire response. Idle
// vehicles keep an explicit empty jobs list.
func formatSolution(sol solver.Solution) model.SolveResponse {
	routes := make(map[string]model.RouteOut, len(sol.Routes))
	for id, r := range sol.Routes {
		jobs := r.JobIDs
		if jobs == nil {
			jobs = []string{}
		}
		routes[id] = model.RouteOut{Jobs: jobs, DeliveryDuration: r.Duration}
	}
	return model.SolveResponse{TotalDeliveryDuration: sol.Total, Routes: routes}
}
