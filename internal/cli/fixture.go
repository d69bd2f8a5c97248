package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/noah-isme/path-planner/internal/planner"
)

// Fixture is the offline input of the predict and check-exclusion commands.
// Subject references are catalog ids.
type Fixture struct {
	Catalog               []planner.Subject    `json:"catalog"`
	Completed             []string             `json:"completed"`
	Enrolled              []string             `json:"enrolled"`
	FixedTerms            [][]string           `json:"fixedTerms"`
	Blacklist             []string             `json:"blacklist"`
	RequiredElectiveHours int                  `json:"requiredElectiveHours"`
	Caps                  planner.WorkloadCaps `json:"caps"`
	Calendar              struct {
		BaseYear     int `json:"baseYear"`
		BaseTerm     int `json:"baseTerm"`
		TermsPerYear int `json:"termsPerYear"`
	} `json:"calendar"`
}

func loadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	if f.Catalog == nil {
		return nil, fmt.Errorf("fixture %s has no catalog", path)
	}
	if f.RequiredElectiveHours <= 0 {
		f.RequiredElectiveHours = planner.DefaultRequiredElectiveHours
	}
	if f.Caps.ElectiveHoursCap <= 0 {
		f.Caps.ElectiveHoursCap = f.RequiredElectiveHours
	}
	return &f, nil
}

// Input resolves the fixture's id references against its catalog.
func (f *Fixture) Input() (planner.Input, error) {
	index := make(map[string]planner.Subject, len(f.Catalog))
	for _, s := range f.Catalog {
		index[s.ID] = s
	}
	resolve := func(ids []string, what string) ([]planner.Subject, error) {
		out := make([]planner.Subject, 0, len(ids))
		for _, id := range ids {
			s, ok := index[id]
			if !ok {
				return nil, fmt.Errorf("%s subject %q is not in the catalog", what, id)
			}
			out = append(out, s)
		}
		return out, nil
	}

	completed, err := resolve(f.Completed, "completed")
	if err != nil {
		return planner.Input{}, err
	}
	enrolled, err := resolve(f.Enrolled, "enrolled")
	if err != nil {
		return planner.Input{}, err
	}
	fixed := make([][]planner.Subject, 0, len(f.FixedTerms))
	for i, ids := range f.FixedTerms {
		term, err := resolve(ids, fmt.Sprintf("fixed term %d", i))
		if err != nil {
			return planner.Input{}, err
		}
		fixed = append(fixed, term)
	}

	return planner.Input{
		Catalog:    f.Catalog,
		Completed:  completed,
		Enrolled:   enrolled,
		FixedTerms: fixed,
		Blacklist:  planner.NewIDSet(f.Blacklist...),
		Caps:       f.Caps,
	}, nil
}

func (f *Fixture) calendar(baseYear int) planner.Calendar {
	cal := planner.Calendar{
		BaseYear:     f.Calendar.BaseYear,
		BaseTerm:     f.Calendar.BaseTerm,
		TermsPerYear: f.Calendar.TermsPerYear,
	}
	if cal.BaseYear <= 0 {
		cal.BaseYear = baseYear
	}
	return cal
}
