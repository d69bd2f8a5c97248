package planner

import (
	"fmt"

	"go.uber.org/zap"
)

// DefaultMaxTerms bounds the scheduling loop independently of the fixed point.
const DefaultMaxTerms = 40

// WorkloadCaps bound what the scheduler may place.
type WorkloadCaps struct {
	// ElectiveHoursCap limits the elective workload across all predicted terms.
	ElectiveHoursCap int `json:"electiveHoursCap"`
	// MandatoryHoursCap limits mandatory workload; zero or less is unbounded.
	MandatoryHoursCap int `json:"mandatoryHoursCap"`
	// MaxSubjectsPerTerm limits the size of one term; zero or less is unbounded.
	MaxSubjectsPerTerm int `json:"maxSubjectsPerTerm"`
}

// DefaultCaps returns the caps of a standard program.
func DefaultCaps() WorkloadCaps {
	return WorkloadCaps{ElectiveHoursCap: DefaultRequiredElectiveHours}
}

// ScheduleStatus summarises how the scheduling loop ended.
type ScheduleStatus string

const (
	// StatusComplete means every mandatory subject was placed.
	StatusComplete ScheduleStatus = "COMPLETE"
	// StatusStalled means no further progression could be determined.
	StatusStalled ScheduleStatus = "STALLED"
	// StatusCeilingReached means the iteration ceiling cut the loop short.
	StatusCeilingReached ScheduleStatus = "CEILING_REACHED"
)

// Schedule is the scheduler output. Terms is valid even when the status is
// not complete.
type Schedule struct {
	Terms             [][]Subject    `json:"terms"`
	TermCount         int            `json:"termCount"`
	ElectiveHours     int            `json:"electiveHours"`
	ElectiveShortfall int            `json:"electiveShortfall"`
	Status            ScheduleStatus `json:"status"`
	CeilingReached    bool           `json:"ceilingReached"`
	Unresolved        []string       `json:"unresolved,omitempty"`
	Warnings          []string       `json:"warnings,omitempty"`
}

// SchedulerConfig tunes the scheduling loop.
type SchedulerConfig struct {
	MaxTerms int
}

// Scheduler greedily packs eligible subjects into successive terms.
type Scheduler struct {
	resolver *Resolver
	logger   *zap.Logger
	maxTerms int
}

// NewScheduler wires a scheduler; nil collaborators get defaults.
func NewScheduler(resolver *Resolver, logger *zap.Logger, cfg SchedulerConfig) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = NewResolver(logger)
	}
	if cfg.MaxTerms <= 0 {
		cfg.MaxTerms = DefaultMaxTerms
	}
	return &Scheduler{resolver: resolver, logger: logger, maxTerms: cfg.MaxTerms}
}

// Schedule predicts the terms needed to cover the catalog starting from the
// completion set. The completion set itself is not modified.
func (s *Scheduler) Schedule(catalog []Subject, completed *CompletionSet, caps WorkloadCaps) Schedule {
	pool, warnings := s.usable(catalog)
	cumulative := NewCompletionSet(completed.Entries())

	electiveCap := caps.ElectiveHoursCap
	if electiveCap < 0 {
		electiveCap = 0
	}

	var (
		terms          [][]Subject
		electiveHours  int
		mandatoryHours int
		ceilingReached bool
	)

	for {
		eligible := s.resolver.Eligible(pool, cumulative, nil, Credits(cumulative.Credits()))
		SortSubjects(eligible)

		term := make([]Subject, 0)
		termElective, termMandatory := 0, 0
		for _, candidate := range eligible {
			if caps.MaxSubjectsPerTerm > 0 && len(term) >= caps.MaxSubjectsPerTerm {
				break
			}
			if CollidesWithAny(candidate, term) {
				continue
			}
			hours := candidate.WorkloadHours()
			if candidate.IsElective {
				if electiveHours+termElective+hours > electiveCap {
					continue
				}
				termElective += hours
			} else {
				if caps.MandatoryHoursCap > 0 && mandatoryHours+termMandatory+hours > caps.MandatoryHoursCap {
					continue
				}
				termMandatory += hours
			}
			term = append(term, candidate)
		}

		if len(term) == 0 {
			break
		}
		if len(terms) >= s.maxTerms {
			ceilingReached = true
			s.logger.Warn("scheduling iteration ceiling reached", zap.Int("max_terms", s.maxTerms))
			break
		}
		terms = append(terms, term)
		electiveHours += termElective
		mandatoryHours += termMandatory
		cumulative.Append(term...)
	}

	result := Schedule{
		Terms:          terms,
		TermCount:      len(terms),
		ElectiveHours:  electiveHours,
		CeilingReached: ceilingReached,
		Warnings:       warnings,
	}
	if electiveHours < electiveCap {
		result.ElectiveShortfall = electiveCap - electiveHours
	}

	for _, subject := range pool {
		if !subject.IsElective && !cumulative.Contains(subject) {
			result.Unresolved = append(result.Unresolved, subject.Code)
		}
	}
	sortStrings(result.Unresolved)

	switch {
	case ceilingReached:
		result.Status = StatusCeilingReached
	case len(result.Unresolved) > 0:
		result.Status = StatusStalled
		s.logger.Info("could not determine further progression", zap.Strings("unresolved", result.Unresolved))
	default:
		result.Status = StatusComplete
	}
	return result
}

// usable drops inactive subjects and reports malformed ones.
func (s *Scheduler) usable(catalog []Subject) ([]Subject, []string) {
	pool := make([]Subject, 0, len(catalog))
	var warnings []string
	for _, subject := range catalog {
		if !subject.IsActive {
			continue
		}
		if err := subject.Validate(); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped: %v", err))
			s.logger.Warn("skipping malformed subject", zap.String("subject_id", subject.ID), zap.Error(err))
			continue
		}
		pool = append(pool, subject)
	}
	return pool, warnings
}
