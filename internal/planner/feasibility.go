package planner

import "fmt"

// DefaultRequiredElectiveHours is the elective workload needed to graduate.
const DefaultRequiredElectiveHours = 360

// FeasibilityGuard decides whether an elective can leave the future pool
// without making the elective-hour requirement unreachable.
type FeasibilityGuard struct {
	RequiredElectiveHours int
}

// ExclusionCheck carries the figures behind a guard decision.
type ExclusionCheck struct {
	CandidateID   string `json:"candidateId"`
	SecuredHours  int    `json:"securedHours"`
	PoolHours     int    `json:"poolHours"`
	RequiredHours int    `json:"requiredHours"`
	Allowed       bool   `json:"allowed"`
}

// ExclusionError is returned when a blacklist addition is rejected.
type ExclusionError struct {
	Check ExclusionCheck
}

func (e *ExclusionError) Error() string {
	return fmt.Sprintf(
		"excluding %s leaves %dh of electives (secured %dh + pool %dh), %dh required",
		e.Check.CandidateID,
		e.Check.SecuredHours+e.Check.PoolHours,
		e.Check.SecuredHours,
		e.Check.PoolHours,
		e.Check.RequiredHours,
	)
}

// Check computes secured and pool hours for excluding candidateID.
func (g FeasibilityGuard) Check(candidateID string, completed, enrolled, catalog []Subject, blacklist IDSet) ExclusionCheck {
	taken := NewCompletionSet(completed, enrolled)

	secured := 0
	for _, s := range taken.Entries() {
		if s.IsElective {
			secured += s.WorkloadHours()
		}
	}

	pool := 0
	for _, s := range catalog {
		if !s.IsElective || !s.IsActive {
			continue
		}
		if s.ID == candidateID || blacklist.Has(s.ID) || taken.Contains(s) {
			continue
		}
		pool += s.WorkloadHours()
	}

	return ExclusionCheck{
		CandidateID:   candidateID,
		SecuredHours:  secured,
		PoolHours:     pool,
		RequiredHours: g.RequiredElectiveHours,
		Allowed:       secured+pool >= g.RequiredElectiveHours,
	}
}

// CanExclude reports whether the exclusion keeps graduation reachable.
func (g FeasibilityGuard) CanExclude(candidateID string, completed, enrolled, catalog []Subject, blacklist IDSet) bool {
	return g.Check(candidateID, completed, enrolled, catalog, blacklist).Allowed
}
