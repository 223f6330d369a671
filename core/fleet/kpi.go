package fleet

import "gonum.org/v1/gonum/stat"

// Balance summarises how evenly assignments are spread across the fleet.
type Balance struct {
	Mean   float64
	StdDev float64
	Max    int
	Total  int
}

// AssignmentBalance computes distribution statistics over per-vehicle
// assignment counts. It is used for the periodic status report.
func AssignmentBalance(counts []int) Balance {
	if len(counts) == 0 {
		return Balance{}
	}
	xs := make([]float64, len(counts))
	b := Balance{}
	for i, c := range counts {
		xs[i] = float64(c)
		b.Total += c
		if c > b.Max {
			b.Max = c
		}
	}
	b.Mean = stat.Mean(xs, nil)
	if len(xs) > 1 {
		b.StdDev = stat.StdDev(xs, nil)
	}
	return b
}
