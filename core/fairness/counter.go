package fairness

import (
	"fmt"
	"math"
	"sync"
)

// Counter tracks per-vehicle and total assignment counts and gates
// eligibility so no single vehicle takes more than its fair share. The
// assignment engine is the sole writer; the lock makes reads from status
// and metrics consumers safe.
type Counter struct {
	mu     sync.Mutex
	counts []int
	total  int
	ratio  float64
}

// NewCounter creates a counter for the given fleet size. maxRatio is the
// maximum share of total assignments one vehicle may hold.
func NewCounter(fleetSize int, maxRatio float64) (*Counter, error) {
	if fleetSize <= 0 {
		return nil, fmt.Errorf("fairness: fleet size must be positive, got %d", fleetSize)
	}
	if maxRatio <= 0 || maxRatio > 1 {
		return nil, fmt.Errorf("fairness: max ratio must be in (0,1], got %v", maxRatio)
	}
	return &Counter{counts: make([]int, fleetSize), ratio: maxRatio}, nil
}

// Size returns the fleet size the counter was built for.
func (c *Counter) Size() int { return len(c.counts) }

// Eligible reports whether the vehicle may receive another assignment.
// The cap is floor(total * ratio), evaluated before incrementing; when no
// assignment has been made yet every vehicle is eligible.
func (c *Counter) Eligible(vehicle int) bool {
	if vehicle < 0 || vehicle >= len(c.counts) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cap := int(math.Floor(float64(c.total) * c.ratio))
	return c.counts[vehicle] <= cap
}

// Record counts one assignment for the vehicle.
func (c *Counter) Record(vehicle int) {
	if vehicle < 0 || vehicle >= len(c.counts) {
		return
	}
	c.mu.Lock()
	c.counts[vehicle]++
	c.total++
	c.mu.Unlock()
}

// Counts returns a copy of the per-vehicle counts and the running total.
func (c *Counter) Counts() ([]int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.counts))
	copy(out, c.counts)
	return out, c.total
}
