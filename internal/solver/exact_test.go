package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := NewMatrix([][]int64{
		{0, 600, 900, 1200},
		{600, 0, 300, 800},
		{900, 300, 0, 400},
		{1200, 800, 400, 0},
	})
	require.NoError(t, err)
	return m
}

func sampleProblem(t *testing.T) Problem {
	return Problem{
		Vehicles: []Vehicle{
			{ID: "v1", Start: 0},
			{ID: "v2", Start: 0},
		},
		Jobs: []Job{
			{ID: "j1", Location: 1, Delivery: 1, Service: 300},
			{ID: "j2", Location: 2, Delivery: 1, Service: 600},
			{ID: "j3", Location: 3, Delivery: 1, Service: 450},
		},
		Matrix: sampleMatrix(t),
	}
}

func TestExactSampleInstance(t *testing.T) {
	e := &Exact{}
	sol, err := e.Solve(context.Background(), sampleProblem(t))
	require.NoError(t, err)

	// Chaining all three stops on one vehicle beats any split: the loaded
	// route costs 600+300+300+600+400+450.
	require.Equal(t, int64(2650), sol.Total)
	require.Equal(t, []string{"j1", "j2", "j3"}, sol.Routes["v1"].JobIDs)
	require.Equal(t, int64(2650), sol.Routes["v1"].Duration)
	require.NotNil(t, sol.Routes["v2"].JobIDs)
	require.Empty(t, sol.Routes["v2"].JobIDs)
	require.Equal(t, int64(0), sol.Routes["v2"].Duration)
	// 2 vehicles, 3 jobs: 8 raw assignments scored
	require.Equal(t, uint64(8), sol.Evaluated)
}

func TestExactDeterministic(t *testing.T) {
	e := &Exact{Opts: Options{Workers: 4}}
	first, err := e.Solve(context.Background(), sampleProblem(t))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Solve(context.Background(), sampleProblem(t))
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestExactTieBreakLowestVehicle(t *testing.T) {
	// Both vehicles start at the same location, so every assignment of the
	// single job costs the same; the first vehicle must win.
	m, err := NewMatrix([][]int64{{0, 100}, {100, 0}})
	require.NoError(t, err)
	p := Problem{
		Vehicles: []Vehicle{{ID: "b", Start: 0}, {ID: "a", Start: 0}},
		Jobs:     []Job{{ID: "j1", Location: 1, Service: 10}},
		Matrix:   m,
	}
	e := &Exact{}
	sol, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, []string{"j1"}, sol.Routes["b"].JobIDs)
	require.Empty(t, sol.Routes["a"].JobIDs)
}

func TestExactEqualCostOrderKeepsJobIDOrder(t *testing.T) {
	// All pairwise legs and services are symmetric and uniform, so every
	// permutation costs the same; the id-sorted one must be reported.
	m, err := NewMatrix([][]int64{
		{0, 100, 100},
		{100, 0, 100},
		{100, 100, 0},
	})
	require.NoError(t, err)
	p := Problem{
		Vehicles: []Vehicle{{ID: "v1", Start: 0}},
		Jobs: []Job{
			{ID: "j2", Location: 2, Service: 50},
			{ID: "j1", Location: 1, Service: 50},
		},
		Matrix: m,
	}
	e := &Exact{}
	sol, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, []string{"j1", "j2"}, sol.Routes["v1"].JobIDs)
	require.Equal(t, int64(300), sol.Total)
}

func TestExactZeroJobs(t *testing.T) {
	p := sampleProblem(t)
	p.Jobs = nil
	e := &Exact{}
	sol, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, int64(0), sol.Total)
	require.Len(t, sol.Routes, 2)
	for _, r := range sol.Routes {
		require.NotNil(t, r.JobIDs)
		require.Empty(t, r.JobIDs)
	}
}

func TestExactJobsWithoutVehicles(t *testing.T) {
	p := sampleProblem(t)
	p.Vehicles = nil
	e := &Exact{}
	_, err := e.Solve(context.Background(), p)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestExactLocationOutOfRange(t *testing.T) {
	p := sampleProblem(t)
	p.Jobs[1].Location = 4 // matrix dimension
	e := &Exact{}
	_, err := e.Solve(context.Background(), p)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Contains(t, err.Error(), "j2")
}

func TestExactStartOutOfRange(t *testing.T) {
	p := sampleProblem(t)
	p.Vehicles[0].Start = -1
	e := &Exact{}
	_, err := e.Solve(context.Background(), p)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestExactUncarriableJob(t *testing.T) {
	p := sampleProblem(t)
	cap := 0.5
	p.Vehicles[0].Capacity = &cap
	p.Vehicles[1].Capacity = &cap
	e := &Exact{}
	_, err := e.Solve(context.Background(), p)
	require.ErrorIs(t, err, ErrInfeasible)
}

func TestExactCapacityForcesSplit(t *testing.T) {
	p := sampleProblem(t)
	cap := 2.0 // each vehicle can carry at most two unit deliveries
	p.Vehicles[0].Capacity = &cap
	p.Vehicles[1].Capacity = &cap
	e := &Exact{}
	sol, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	for id, r := range sol.Routes {
		require.LessOrEqual(t, len(r.JobIDs), 2, "route %s over capacity", id)
	}
	seen := map[string]bool{}
	for _, r := range sol.Routes {
		for _, id := range r.JobIDs {
			require.False(t, seen[id], "job %s assigned twice", id)
			seen[id] = true
		}
	}
	require.Len(t, seen, 3)
	// Splitting off j1 is cheapest: {j1} alone costs 900, {j2,j3} chains
	// for 2350. The lower-coded assignment puts j1 on the first vehicle.
	require.Equal(t, int64(900+2350), sol.Total)
	require.Equal(t, []string{"j1"}, sol.Routes["v1"].JobIDs)
	require.Equal(t, []string{"j2", "j3"}, sol.Routes["v2"].JobIDs)
}

func TestExactTotalIsSumOfRoutes(t *testing.T) {
	p := sampleProblem(t)
	cap := 2.0
	p.Vehicles[0].Capacity = &cap
	p.Vehicles[1].Capacity = &cap
	e := &Exact{}
	sol, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	var sum int64
	for _, r := range sol.Routes {
		sum += r.Duration
	}
	require.Equal(t, sol.Total, sum)
}

func TestExactCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Exact{}
	_, err := e.Solve(ctx, sampleProblem(t))
	require.ErrorIs(t, err, ErrCancelled)
}

func TestExactSizeGuard(t *testing.T) {
	e := &Exact{Opts: Options{MaxJobs: 2}}
	_, err := e.Solve(context.Background(), sampleProblem(t))
	require.ErrorIs(t, err, ErrCancelled)
}

func TestExactPartitionGuard(t *testing.T) {
	e := &Exact{Opts: Options{MaxPartitions: 4}}
	_, err := e.Solve(context.Background(), sampleProblem(t)) // 2^3 = 8 > 4
	require.ErrorIs(t, err, ErrCancelled)
}

func TestExactSingleVehicleOrdersOptimally(t *testing.T) {
	p := sampleProblem(t)
	p.Vehicles = p.Vehicles[:1]
	e := &Exact{}
	sol, err := e.Solve(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, int64(2650), sol.Total)
	require.Equal(t, []string{"j1", "j2", "j3"}, sol.Routes["v1"].JobIDs)
	require.Equal(t, uint64(1), sol.Evaluated)
}

func TestNewUnknownSolver(t *testing.T) {
	_, err := New("annealing", Options{})
	require.Error(t, err)
}

func TestNames(t *testing.T) {
	require.Equal(t, []string{"exact", "greedy"}, Names())
}
