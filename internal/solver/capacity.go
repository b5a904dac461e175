package solver

// Fits reports whether the summed delivery amounts of jobs fit the vehicle's
// capacity. Vehicles without a capacity always pass.
func Fits(v Vehicle, jobs []Job) bool {
	if v.Capacity == nil {
		return true
	}
	var sum float64
	for i := range jobs {
		sum += jobs[i].Delivery
	}
	return sum <= *v.Capacity
}

// fitsIdx is Fits over job indices, avoiding subset materialization in the
// partition loop.
func fitsIdx(v Vehicle, jobs []Job, idx []int) bool {
	if v.Capacity == nil {
		return true
	}
	var sum float64
	for _, ji := range idx {
		sum += jobs[ji].Delivery
	}
	return sum <= *v.Capacity
}
