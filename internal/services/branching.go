package services

// skipSet tracks 0-based question positions bypassed by branching.
type skipSet map[int]struct{}

// Has reports whether position pos is skipped.
func (s skipSet) Has(pos int) bool {
	_, ok := s[pos]
	return ok
}

// applyBranch marks the questions between an answered question and its
// branch target as skipped. index is the answered question's 0-based
// position, target the 1-based order to jump to. Targets that do not
// jump forward past the next question, or point outside the survey,
// are ignored.
func (s skipSet) applyBranch(index, target, total int) {
	if target <= index+1 || target > total {
		return
	}
	for pos := index + 1; pos < target-1; pos++ {
		s[pos] = struct{}{}
	}
}
