// Package planner predicts the remaining terms of a student's academic path.
//
// Every function in this package is a pure computation over its explicit
// inputs: no I/O, no clock, no randomness. Identical inputs always produce
// identical outputs, which lets callers memoise on structural equality.
package planner

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultHoursPerCredit converts theory+practical credits into workload hours.
const DefaultHoursPerCredit = 18

// RequirementKind discriminates the prerequisite variants.
type RequirementKind string

const (
	CreditThreshold RequirementKind = "CREDITS"
	SpecificSubject RequirementKind = "SUBJECT"
)

// Requirement is a single prerequisite gate. A subject is eligible only when
// all of its requirements are satisfied. Code names the prerequisite by code,
// or by id when the prerequisite has no code.
type Requirement struct {
	Kind       RequirementKind `json:"kind"`
	MinCredits int             `json:"minCredits,omitempty"`
	Code       string          `json:"code,omitempty"`
}

// MinCredits builds a credit threshold requirement.
func MinCredits(n int) Requirement {
	return Requirement{Kind: CreditThreshold, MinCredits: n}
}

// RequiresSubject builds a specific subject requirement.
func RequiresSubject(code string) Requirement {
	return Requirement{Kind: SpecificSubject, Code: code}
}

func (r Requirement) validate() error {
	switch r.Kind {
	case CreditThreshold:
		if r.MinCredits < 0 {
			return fmt.Errorf("negative credit threshold %d", r.MinCredits)
		}
	case SpecificSubject:
		if strings.TrimSpace(r.Code) == "" {
			return errors.New("subject requirement without code")
		}
	default:
		return fmt.Errorf("unknown requirement kind %q", r.Kind)
	}
	return nil
}

// SlotRef identifies a weekly (day, time slot) pair. Both tokens are opaque.
type SlotRef struct {
	Day      string `json:"day"`
	TimeSlot string `json:"timeSlot"`
}

// Section is one offered class of a subject.
type Section struct {
	Name  string    `json:"name"`
	Slots []SlotRef `json:"slots"`
}

// Subject is a catalog entry. Values are treated as immutable during a run.
type Subject struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	HomeTerm     int           `json:"homeTerm"`
	Theory       int           `json:"theoryCredits"`
	Practical    int           `json:"practicalCredits"`
	Workload     int           `json:"workloadHours,omitempty"`
	IsElective   bool          `json:"isElective"`
	IsActive     bool          `json:"isActive"`
	Requirements []Requirement `json:"requirements,omitempty"`
	Sections     []Section     `json:"sections,omitempty"`
}

// Credits returns the theory plus practical credit count.
func (s Subject) Credits() int {
	return s.Theory + s.Practical
}

// WorkloadHours returns the explicit workload or derives it from credits.
func (s Subject) WorkloadHours() int {
	if s.Workload > 0 {
		return s.Workload
	}
	return s.Credits() * DefaultHoursPerCredit
}

// Validate reports catalog data the scheduler cannot use.
func (s Subject) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("subject without id")
	}
	if strings.TrimSpace(s.Code) == "" {
		return fmt.Errorf("subject %s without code", s.ID)
	}
	if s.WorkloadHours() <= 0 {
		return fmt.Errorf("subject %s has no workload", s.Code)
	}
	for _, req := range s.Requirements {
		if err := req.validate(); err != nil {
			return fmt.Errorf("subject %s: %w", s.Code, err)
		}
	}
	for _, section := range s.Sections {
		for _, slot := range section.Slots {
			if slot.Day == "" || slot.TimeSlot == "" {
				return fmt.Errorf("subject %s section %q has an incomplete time slot", s.Code, section.Name)
			}
		}
	}
	return nil
}

// IDSet is a set of subject ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Has reports membership; a nil set contains nothing.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sortStrings(out)
	return out
}

// CompletionSet is the ordered union of everything counted as done at some
// point of the timeline. It only ever grows.
type CompletionSet struct {
	entries []Subject
	ids     map[string]struct{}
	codes   map[string]struct{}
}

// NewCompletionSet builds a set from the given groups, in order.
func NewCompletionSet(groups ...[]Subject) *CompletionSet {
	cs := &CompletionSet{
		ids:   make(map[string]struct{}),
		codes: make(map[string]struct{}),
	}
	for _, group := range groups {
		cs.Append(group...)
	}
	return cs
}

// Append adds subjects not yet present, keeping earlier entries untouched.
func (c *CompletionSet) Append(subjects ...Subject) {
	for _, s := range subjects {
		if c.Contains(s) {
			continue
		}
		c.entries = append(c.entries, s)
		if s.ID != "" {
			c.ids[s.ID] = struct{}{}
		}
		if s.Code != "" {
			c.codes[s.Code] = struct{}{}
		}
	}
}

// Clone returns an independent copy.
func (c *CompletionSet) Clone() *CompletionSet {
	return NewCompletionSet(c.Entries())
}

// Contains matches a subject by id or by code.
func (c *CompletionSet) Contains(s Subject) bool {
	if c == nil {
		return false
	}
	if _, ok := c.ids[s.ID]; ok && s.ID != "" {
		return true
	}
	_, ok := c.codes[s.Code]
	return ok && s.Code != ""
}

// HasCode reports whether a subject with the given code is present.
func (c *CompletionSet) HasCode(code string) bool {
	if c == nil {
		return false
	}
	_, ok := c.codes[code]
	return ok
}

// HasID reports whether a subject with the given id is present.
func (c *CompletionSet) HasID(id string) bool {
	if c == nil {
		return false
	}
	_, ok := c.ids[id]
	return ok
}

// Entries returns a copy of the ordered entries.
func (c *CompletionSet) Entries() []Subject {
	if c == nil {
		return nil
	}
	out := make([]Subject, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries.
func (c *CompletionSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Credits sums the credits of every entry.
func (c *CompletionSet) Credits() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, s := range c.entries {
		total += s.Credits()
	}
	return total
}

// CreditsEarned is the cumulative credit figure a CreditThreshold is checked
// against. The zero value is unknown.
type CreditsEarned struct {
	value int
	known bool
}

// UnknownCredits marks a caller that does not track credits.
var UnknownCredits = CreditsEarned{}

// Credits wraps a known credit count.
func Credits(n int) CreditsEarned {
	return CreditsEarned{value: n, known: true}
}

// Value returns the credit count and whether it is known.
func (c CreditsEarned) Value() (int, bool) {
	return c.value, c.known
}
