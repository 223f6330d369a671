package fleet

import (
	"math"
	"testing"
)

func TestAssignmentBalance(t *testing.T) {
	b := AssignmentBalance([]int{2, 4, 6})
	if b.Total != 12 || b.Max != 6 {
		t.Fatalf("total %d max %d, want 12 and 6", b.Total, b.Max)
	}
	if b.Mean != 4 {
		t.Fatalf("mean %v, want 4", b.Mean)
	}
	if math.Abs(b.StdDev-2) > 1e-9 {
		t.Fatalf("stddev %v, want 2", b.StdDev)
	}
}

func TestAssignmentBalanceEdgeCases(t *testing.T) {
	if b := AssignmentBalance(nil); b != (Balance{}) {
		t.Fatalf("empty counts must yield zero balance, got %+v", b)
	}
	b := AssignmentBalance([]int{5})
	if b.Mean != 5 || b.StdDev != 0 || b.Max != 5 || b.Total != 5 {
		t.Fatalf("single-vehicle balance %+v", b)
	}
}
