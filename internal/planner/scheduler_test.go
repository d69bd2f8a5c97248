package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSchedulerPrerequisiteChain(t *testing.T) {
	x := withSlots(mandatory("X", 2), slot("MON", "1"), slot("MON", "1"))
	y := withSlots(elective("Y", 60, RequiresSubject("X")), slot("MON", "1"), slot("MON", "1"))

	s := NewScheduler(nil, nil, SchedulerConfig{})
	got := s.Schedule([]Subject{x, y}, NewCompletionSet(), DefaultCaps())

	require.Equal(t, 2, got.TermCount)
	assert.Equal(t, []string{"X"}, termIDs(got.Terms[0]))
	assert.Equal(t, []string{"Y"}, termIDs(got.Terms[1]))
	assert.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 60, got.ElectiveHours)
	assert.Equal(t, 300, got.ElectiveShortfall)
}

func TestSchedulerDefersCollidingSubject(t *testing.T) {
	p := withSlots(mandatory("P", 2), slot("TUE", "2"))
	q := withSlots(mandatory("Q", 2), slot("TUE", "2"))

	s := NewScheduler(nil, nil, SchedulerConfig{})
	got := s.Schedule([]Subject{q, p}, NewCompletionSet(), DefaultCaps())

	require.Equal(t, 2, got.TermCount)
	assert.Equal(t, []string{"P"}, termIDs(got.Terms[0]))
	assert.Equal(t, []string{"Q"}, termIDs(got.Terms[1]))
}

func TestSchedulerDeterministic(t *testing.T) {
	catalog := []Subject{
		mandatory("A", 4),
		mandatory("B", 4, RequiresSubject("A")),
		mandatory("C", 2, MinCredits(4)),
		withSlots(elective("E1", 120), slot("MON", "1")),
		withSlots(elective("E2", 120), slot("MON", "1")),
		elective("E3", 120, RequiresSubject("B")),
	}
	s := NewScheduler(nil, nil, SchedulerConfig{})

	first := s.Schedule(catalog, NewCompletionSet(), DefaultCaps())
	for i := 0; i < 5; i++ {
		reversed := make([]Subject, len(catalog))
		for j := range catalog {
			reversed[len(catalog)-1-j] = catalog[j]
		}
		assert.Equal(t, first, s.Schedule(reversed, NewCompletionSet(), DefaultCaps()))
		assert.Equal(t, first, s.Schedule(catalog, NewCompletionSet(), DefaultCaps()))
	}
}

func TestSchedulerPlanIsSound(t *testing.T) {
	catalog := []Subject{
		withSlots(mandatory("A", 4), slot("MON", "1")),
		withSlots(mandatory("B", 4, RequiresSubject("A")), slot("MON", "1")),
		withSlots(mandatory("C", 2, MinCredits(8)), slot("TUE", "1")),
		withSlots(mandatory("D", 2), slot("MON", "1")),
		withSlots(elective("E1", 120), slot("TUE", "1")),
		withSlots(elective("E2", 180, RequiresSubject("C")), slot("WED", "1")),
		withSlots(elective("E3", 120), slot("WED", "1")),
	}
	completed := NewCompletionSet()
	s := NewScheduler(nil, nil, SchedulerConfig{})
	got := s.Schedule(catalog, completed, DefaultCaps())

	require.Equal(t, StatusComplete, got.Status)
	assert.Equal(t, 0, completed.Len(), "input completion set must not change")

	seen := NewCompletionSet()
	electiveHours := 0
	for _, term := range got.Terms {
		for i, subject := range term {
			assert.True(t, Satisfied(subject.Requirements, seen, Credits(seen.Credits())), subject.ID)
			for _, other := range term[i+1:] {
				assert.False(t, Collides(subject, other), "%s collides with %s", subject.ID, other.ID)
			}
			if subject.IsElective {
				electiveHours += subject.WorkloadHours()
			}
		}
		seen.Append(term...)
	}
	assert.LessOrEqual(t, electiveHours, DefaultRequiredElectiveHours)
	assert.Equal(t, electiveHours, got.ElectiveHours)

	for _, id := range []string{"A", "B", "C", "D"} {
		assert.True(t, seen.HasCode(id), id)
	}
}

func TestSchedulerElectiveCap(t *testing.T) {
	catalog := []Subject{elective("E1", 120), elective("E2", 120), elective("E3", 120)}
	s := NewScheduler(nil, nil, SchedulerConfig{})

	got := s.Schedule(catalog, NewCompletionSet(), WorkloadCaps{ElectiveHoursCap: 240})
	require.Equal(t, 1, got.TermCount)
	assert.Equal(t, []string{"E1", "E2"}, termIDs(got.Terms[0]))
	assert.Equal(t, 240, got.ElectiveHours)
	assert.Equal(t, 0, got.ElectiveShortfall)

	got = s.Schedule(catalog, NewCompletionSet(), WorkloadCaps{})
	assert.Equal(t, 0, got.TermCount)
	assert.Equal(t, StatusComplete, got.Status)
}

func TestSchedulerMandatoryCapAndTermSize(t *testing.T) {
	catalog := []Subject{mandatory("A", 2), mandatory("B", 2), mandatory("C", 2)}
	s := NewScheduler(nil, nil, SchedulerConfig{})

	got := s.Schedule(catalog, NewCompletionSet(), WorkloadCaps{MaxSubjectsPerTerm: 2})
	require.Equal(t, 2, got.TermCount)
	assert.Equal(t, []string{"A", "B"}, termIDs(got.Terms[0]))
	assert.Equal(t, []string{"C"}, termIDs(got.Terms[1]))

	got = s.Schedule(catalog, NewCompletionSet(), WorkloadCaps{MandatoryHoursCap: 72})
	require.Equal(t, 1, got.TermCount)
	assert.Equal(t, StatusStalled, got.Status)
	assert.Equal(t, []string{"C"}, got.Unresolved)
}

func TestSchedulerCycleStalls(t *testing.T) {
	catalog := []Subject{
		mandatory("A", 2, RequiresSubject("B")),
		mandatory("B", 2, RequiresSubject("A")),
	}
	core, logs := observer.New(zap.InfoLevel)
	s := NewScheduler(nil, zap.New(core), SchedulerConfig{})

	got := s.Schedule(catalog, NewCompletionSet(), DefaultCaps())
	assert.Equal(t, 0, got.TermCount)
	assert.Equal(t, StatusStalled, got.Status)
	assert.ElementsMatch(t, []string{"A", "B"}, got.Unresolved)
	assert.Equal(t, 1, logs.FilterMessage("could not determine further progression").Len())
}

func TestSchedulerCeiling(t *testing.T) {
	catalog := []Subject{
		mandatory("A", 2),
		mandatory("B", 2, RequiresSubject("A")),
	}
	s := NewScheduler(nil, nil, SchedulerConfig{MaxTerms: 1})

	got := s.Schedule(catalog, NewCompletionSet(), DefaultCaps())
	assert.Equal(t, 1, got.TermCount)
	assert.True(t, got.CeilingReached)
	assert.Equal(t, StatusCeilingReached, got.Status)

	got = s.Schedule(catalog[:1], NewCompletionSet(), DefaultCaps())
	assert.Equal(t, StatusComplete, got.Status)
	assert.False(t, got.CeilingReached)
}

func TestSchedulerSkipsMalformedSubjects(t *testing.T) {
	broken := mandatory("BROKEN", 0)
	inactive := mandatory("OLD", 2)
	inactive.IsActive = false
	catalog := []Subject{mandatory("A", 2), broken, inactive}

	s := NewScheduler(nil, nil, SchedulerConfig{})
	got := s.Schedule(catalog, NewCompletionSet(), DefaultCaps())

	require.Equal(t, 1, got.TermCount)
	assert.Equal(t, []string{"A"}, termIDs(got.Terms[0]))
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "BROKEN")
	assert.Equal(t, StatusComplete, got.Status)
}

func TestSchedulerEmptyCatalog(t *testing.T) {
	s := NewScheduler(nil, nil, SchedulerConfig{})
	got := s.Schedule([]Subject{}, NewCompletionSet(), DefaultCaps())
	assert.Equal(t, 0, got.TermCount)
	assert.Equal(t, StatusComplete, got.Status)
}
