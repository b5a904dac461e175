package solver

// RouteDuration scores one ordered job sequence for a vehicle starting at
// start: travel to each stop plus its service time, no return leg. It is a
// pure cost function; it judges whatever ordering it is given and performs no
// capacity or feasibility checks. An empty sequence costs 0.
func RouteDuration(m *Matrix, start int, jobs []Job) (int64, error) {
	var total int64
	prev := start
	for i := range jobs {
		d, err := m.At(prev, jobs[i].Location)
		if err != nil {
			return 0, err
		}
		total += d + jobs[i].Service
		prev = jobs[i].Location
	}
	return total, nil
}

// routeDur is RouteDuration over job indices with preflighted bounds,
// used inside the permutation loops.
func routeDur(m *Matrix, start int, jobs []Job, seq []int) int64 {
	var total int64
	prev := start
	for _, ji := range seq {
		total += m.at(prev, jobs[ji].Location) + jobs[ji].Service
		prev = jobs[ji].Location
	}
	return total
}
