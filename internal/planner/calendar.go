package planner

import "fmt"

// Calendar maps term positions onto academic periods.
type Calendar struct {
	BaseYear     int
	BaseTerm     int
	TermsPerYear int
}

func (c Calendar) normalised() Calendar {
	if c.TermsPerYear <= 0 {
		c.TermsPerYear = 2
	}
	if c.BaseTerm <= 0 || c.BaseTerm > c.TermsPerYear {
		c.BaseTerm = 1
	}
	return c
}

// Period returns the year and term number of the term at index.
func (c Calendar) Period(index int) (year, term int) {
	c = c.normalised()
	seq := c.BaseTerm - 1 + index
	return c.BaseYear + seq/c.TermsPerYear, seq%c.TermsPerYear + 1
}

// Label renders the period of the term at index, e.g. "2026.1".
func (c Calendar) Label(index int) string {
	year, term := c.Period(index)
	return fmt.Sprintf("%d.%d", year, term)
}

// Completion returns the period of the last term of a plan with termCount
// terms. ok is false when nothing remains to be taken.
func (c Calendar) Completion(termCount int) (year, term int, ok bool) {
	if termCount <= 0 {
		return 0, 0, false
	}
	year, term = c.Period(termCount - 1)
	return year, term, true
}
