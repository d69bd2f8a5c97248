package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalendarLabel(t *testing.T) {
	cal := Calendar{BaseYear: 2026, BaseTerm: 2, TermsPerYear: 2}

	assert.Equal(t, "2026.2", cal.Label(0))
	assert.Equal(t, "2027.1", cal.Label(1))
	assert.Equal(t, "2027.2", cal.Label(2))
	assert.Equal(t, "2028.1", cal.Label(3))
}

func TestCalendarDefaults(t *testing.T) {
	cal := Calendar{BaseYear: 2026}
	assert.Equal(t, "2026.1", cal.Label(0))
	assert.Equal(t, "2026.2", cal.Label(1))
}

func TestCalendarCompletion(t *testing.T) {
	cal := Calendar{BaseYear: 2026, BaseTerm: 1, TermsPerYear: 2}

	year, term, ok := cal.Completion(3)
	assert.True(t, ok)
	assert.Equal(t, 2027, year)
	assert.Equal(t, 1, term)

	_, _, ok = cal.Completion(0)
	assert.False(t, ok)
}

func TestCriticality(t *testing.T) {
	catalog := []Subject{
		mandatory("A", 2),
		mandatory("B", 2, RequiresSubject("A")),
		mandatory("C", 2, RequiresSubject("B")),
		mandatory("D", 2, RequiresSubject("A")),
		mandatory("X", 2, RequiresSubject("Y")),
		mandatory("Y", 2, RequiresSubject("X")),
	}
	got := Criticality(catalog)

	assert.Equal(t, 2, got["A"])
	assert.Equal(t, 1, got["B"])
	assert.Equal(t, 0, got["C"])
	assert.Equal(t, 0, got["D"])
	assert.Contains(t, got, "X")
	assert.Contains(t, got, "Y")
}

func TestPrerequisiteEdges(t *testing.T) {
	a := mandatory("A", 2)
	b := mandatory("B", 2, RequiresSubject("A"), MinCredits(2))
	c := mandatory("C", 2, RequiresSubject("Z"))

	edges := PrerequisiteEdges([][]Subject{{a}, {b, c}})
	assert.Equal(t, []Edge{{From: "A", To: "B"}}, edges)
}
