package services

import "testing"

func TestApplyBranchMarksIntermediate(t *testing.T) {
	skips := skipSet{}
	// answered question at position 0 jumps to order 4 in a 5-question survey
	skips.applyBranch(0, 4, 5)
	if !skips.Has(1) || !skips.Has(2) {
		t.Fatalf("expected positions 1 and 2 skipped, got %v", skips)
	}
	if skips.Has(3) || skips.Has(0) {
		t.Fatalf("target and answered question must not be skipped: %v", skips)
	}
}

func TestApplyBranchToNextIsNoop(t *testing.T) {
	skips := skipSet{}
	skips.applyBranch(0, 2, 5)
	if len(skips) != 0 {
		t.Fatalf("jump to immediate next should skip nothing, got %v", skips)
	}
}

func TestApplyBranchIgnoresBackwardAndOutOfRange(t *testing.T) {
	skips := skipSet{}
	skips.applyBranch(2, 1, 5) // backward
	skips.applyBranch(2, 3, 5) // own position
	skips.applyBranch(2, 6, 5) // past the end
	if len(skips) != 0 {
		t.Fatalf("malformed targets must be no-ops, got %v", skips)
	}
}

func TestApplyBranchOverlapping(t *testing.T) {
	skips := skipSet{}
	skips.applyBranch(0, 3, 6)
	skips.applyBranch(2, 6, 6)
	for _, pos := range []int{1, 3, 4} {
		if !skips.Has(pos) {
			t.Fatalf("expected position %d skipped", pos)
		}
	}
	if skips.Has(5) {
		t.Fatalf("target position must stay reachable")
	}
}
