package planner

import (
	"errors"

	"go.uber.org/zap"
)

var (
	// ErrNilCatalog is a contract violation: the catalog must be a list.
	ErrNilCatalog = errors.New("planner: catalog is nil")
	// ErrTermOutOfRange reports a term index outside the plan.
	ErrTermOutOfRange = errors.New("planner: term index out of range")
)

// Input gathers everything a prediction depends on.
type Input struct {
	Catalog    []Subject
	Completed  []Subject
	Enrolled   []Subject
	FixedTerms [][]Subject
	Blacklist  IDSet
	Caps       WorkloadCaps
}

// Result is the combined plan: fixed terms followed by predicted ones.
type Result struct {
	Terms      [][]Subject `json:"terms"`
	TermCount  int         `json:"termCount"`
	FixedCount int         `json:"fixedCount"`
	Schedule   Schedule    `json:"schedule"`
}

// Orchestrator merges user edits with the catalog and runs the scheduler on
// whatever the fixed terms leave open.
type Orchestrator struct {
	resolver  *Resolver
	scheduler *Scheduler
	logger    *zap.Logger
}

// NewOrchestrator wires the engine components.
func NewOrchestrator(logger *zap.Logger, cfg SchedulerConfig) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := NewResolver(logger)
	return &Orchestrator{
		resolver:  resolver,
		scheduler: NewScheduler(resolver, logger, cfg),
		logger:    logger,
	}
}

// Predict recomputes the full plan from scratch.
func (o *Orchestrator) Predict(in Input) (Result, error) {
	if in.Catalog == nil {
		return Result{}, ErrNilCatalog
	}

	cumulative := NewCompletionSet(in.Completed, in.Enrolled)
	for _, term := range in.FixedTerms {
		cumulative.Append(term...)
	}

	available := make([]Subject, 0, len(in.Catalog))
	for _, subject := range in.Catalog {
		if subject.IsActive && !in.Blacklist.Has(subject.ID) {
			available = append(available, subject)
		}
	}

	caps := in.Caps
	caps.ElectiveHoursCap -= securedElectiveHours(cumulative)
	if caps.ElectiveHoursCap < 0 {
		caps.ElectiveHoursCap = 0
	}

	schedule := o.scheduler.Schedule(available, cumulative, caps)

	terms := make([][]Subject, 0, len(in.FixedTerms)+schedule.TermCount)
	for _, term := range in.FixedTerms {
		terms = append(terms, append([]Subject(nil), term...))
	}
	terms = append(terms, schedule.Terms...)

	return Result{
		Terms:      terms,
		TermCount:  len(in.FixedTerms) + schedule.TermCount,
		FixedCount: len(in.FixedTerms),
		Schedule:   schedule,
	}, nil
}

// SuggestionsFor lists subjects that could be added to the given term: the
// ones eligible after every earlier fixed term, not already in the term and
// not colliding with it. termIndex may address an existing fixed term or the
// next term after them.
func (o *Orchestrator) SuggestionsFor(in Input, termIndex int) ([]Subject, error) {
	if in.Catalog == nil {
		return nil, ErrNilCatalog
	}
	if termIndex < 0 || termIndex > len(in.FixedTerms) {
		return nil, ErrTermOutOfRange
	}

	before := NewCompletionSet(in.Completed, in.Enrolled)
	for _, term := range in.FixedTerms[:termIndex] {
		before.Append(term...)
	}

	var target []Subject
	if termIndex < len(in.FixedTerms) {
		target = in.FixedTerms[termIndex]
	}
	placed := make(IDSet, len(target))
	for _, subject := range target {
		placed[subject.ID] = struct{}{}
	}

	eligible := o.resolver.Eligible(in.Catalog, before, in.Blacklist, Credits(before.Credits()))
	suggestions := make([]Subject, 0, len(eligible))
	for _, candidate := range eligible {
		if !candidate.IsActive || placed.Has(candidate.ID) {
			continue
		}
		if err := candidate.Validate(); err != nil {
			o.logger.Warn("skipping malformed suggestion", zap.String("subject_id", candidate.ID), zap.Error(err))
			continue
		}
		if CollidesWithAny(candidate, target) {
			continue
		}
		suggestions = append(suggestions, candidate)
	}
	SortSubjects(suggestions)
	return suggestions, nil
}

func securedElectiveHours(cs *CompletionSet) int {
	total := 0
	for _, s := range cs.Entries() {
		if s.IsElective {
			total += s.WorkloadHours()
		}
	}
	return total
}
