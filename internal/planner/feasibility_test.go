package planner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exactElectivePool() []Subject {
	return []Subject{
		elective("E1", 120),
		elective("E2", 120),
		elective("E3", 120),
		mandatory("M1", 4),
	}
}

func TestFeasibilityGuardRejectsWithoutSlack(t *testing.T) {
	guard := FeasibilityGuard{RequiredElectiveHours: 360}
	catalog := exactElectivePool()

	for _, id := range []string{"E1", "E2", "E3"} {
		check := guard.Check(id, nil, nil, catalog, nil)
		assert.False(t, check.Allowed, id)
		assert.Equal(t, 240, check.PoolHours)
		assert.Equal(t, 0, check.SecuredHours)
	}
}

func TestFeasibilityGuardApprovesAfterSlack(t *testing.T) {
	guard := FeasibilityGuard{RequiredElectiveHours: 360}
	catalog := exactElectivePool()
	require.False(t, guard.CanExclude("E1", nil, nil, catalog, nil))

	// an elective taken under an older curriculum adds secured hours
	completed := []Subject{elective("OLD", 120)}
	check := guard.Check("E1", completed, nil, catalog, nil)
	assert.True(t, check.Allowed)
	assert.Equal(t, 120, check.SecuredHours)
	assert.Equal(t, 240, check.PoolHours)
}

func TestFeasibilityGuardCountsEnrolledAsSecured(t *testing.T) {
	guard := FeasibilityGuard{RequiredElectiveHours: 360}
	catalog := exactElectivePool()

	assert.False(t, guard.CanExclude("E3", nil, catalog[:2], catalog, nil))
	catalog = append(catalog, elective("E4", 120))
	assert.True(t, guard.CanExclude("E3", nil, catalog[:2], catalog, nil))
}

func TestFeasibilityGuardIgnoresBlacklistedAndInactive(t *testing.T) {
	guard := FeasibilityGuard{RequiredElectiveHours: 240}
	catalog := exactElectivePool()
	inactive := elective("E9", 500)
	inactive.IsActive = false
	catalog = append(catalog, inactive)

	assert.False(t, guard.CanExclude("E1", nil, nil, catalog, NewIDSet("E2")))
	assert.True(t, guard.CanExclude("E1", nil, nil, catalog, nil))
}

func TestFeasibilityGuardMonotonic(t *testing.T) {
	guard := FeasibilityGuard{RequiredElectiveHours: 240}
	catalog := append(exactElectivePool(), elective("E4", 120))

	blacklist := NewIDSet()
	for _, id := range []string{"E1", "E2", "E3"} {
		if !guard.CanExclude(id, nil, nil, catalog, blacklist) {
			// once rejected, a larger blacklist must stay rejected
			blacklist[id] = struct{}{}
			for _, other := range []string{"E4"} {
				assert.False(t, guard.CanExclude(other, nil, nil, catalog, blacklist))
			}
			return
		}
		blacklist[id] = struct{}{}
	}
	t.Fatal("expected a rejection before the pool ran dry")
}

func TestExclusionErrorMessage(t *testing.T) {
	err := error(&ExclusionError{Check: ExclusionCheck{CandidateID: "E1", SecuredHours: 60, PoolHours: 240, RequiredHours: 360}})
	var exclusion *ExclusionError
	require.True(t, errors.As(err, &exclusion))
	assert.Contains(t, err.Error(), "E1")
	assert.Contains(t, err.Error(), "300h")
	assert.Contains(t, err.Error(), "360h required")
}
