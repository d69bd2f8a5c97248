package planner

import "errors"

var (
	// ErrUnknownSubject reports an id missing from the catalog.
	ErrUnknownSubject = errors.New("planner: unknown subject")
	// ErrNotElective reports an attempt to blacklist a mandatory subject.
	ErrNotElective = errors.New("planner: only electives can be blacklisted")
	// ErrTermNotFixed reports an edit on a term the user has not fixed.
	ErrTermNotFixed = errors.New("planner: term is not fixed")
	// ErrSubjectBlacklisted reports an attempt to place a blacklisted subject.
	ErrSubjectBlacklisted = errors.New("planner: subject is blacklisted")
)

// Editor is one logical editing session over a plan. It is not safe for
// concurrent use; callers own one editor per session.
type Editor struct {
	orchestrator *Orchestrator
	guard        FeasibilityGuard
	base         Input
	history      *History
}

// NewEditor starts a session. base supplies catalog, completion, enrollment
// and caps; initial supplies the starting fixed terms and blacklist.
func NewEditor(orchestrator *Orchestrator, guard FeasibilityGuard, base Input, initial PlanState) *Editor {
	if orchestrator == nil {
		orchestrator = NewOrchestrator(nil, SchedulerConfig{})
	}
	if initial.Blacklist == nil {
		initial.Blacklist = IDSet{}
	}
	return &Editor{
		orchestrator: orchestrator,
		guard:        guard,
		base:         base,
		history:      NewHistory(initial),
	}
}

// State returns the current fixed terms and blacklist.
func (e *Editor) State() PlanState {
	return e.history.Current()
}

// CanUndo reports whether an undo is possible.
func (e *Editor) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether a redo is possible.
func (e *Editor) CanRedo() bool { return e.history.CanRedo() }

// Predict runs the orchestrator on the current state.
func (e *Editor) Predict() (Result, error) {
	return e.orchestrator.Predict(e.input())
}

// Suggestions lists candidates for the given term of the current state.
func (e *Editor) Suggestions(termIndex int) ([]Subject, error) {
	return e.orchestrator.SuggestionsFor(e.input(), termIndex)
}

// AddToBlacklist excludes an elective after the feasibility guard approves.
// A rejection returns *ExclusionError and leaves the state untouched. The id
// is also removed from every fixed term.
func (e *Editor) AddToBlacklist(subjectID string) (ExclusionCheck, error) {
	subject, ok := e.lookup(subjectID)
	if !ok {
		return ExclusionCheck{}, ErrUnknownSubject
	}
	if !subject.IsElective {
		return ExclusionCheck{}, ErrNotElective
	}
	state := e.history.Current()
	if state.Blacklist.Has(subjectID) {
		return ExclusionCheck{CandidateID: subjectID, Allowed: true}, nil
	}

	check := e.guard.Check(subjectID, e.base.Completed, e.base.Enrolled, e.base.Catalog, state.Blacklist)
	if !check.Allowed {
		return check, &ExclusionError{Check: check}
	}

	state.Blacklist[subjectID] = struct{}{}
	for i, term := range state.FixedTerms {
		state.FixedTerms[i] = withoutSubject(term, subjectID)
	}
	e.history.Push(state)
	return check, nil
}

// RemoveFromBlacklist returns an elective to the pool. It reports whether the
// state changed.
func (e *Editor) RemoveFromBlacklist(subjectID string) bool {
	state := e.history.Current()
	if !state.Blacklist.Has(subjectID) {
		return false
	}
	delete(state.Blacklist, subjectID)
	e.history.Push(state)
	return true
}

// ToggleBlacklist adds or removes the id and reports whether it ended up
// blacklisted.
func (e *Editor) ToggleBlacklist(subjectID string) (bool, error) {
	if e.history.Current().Blacklist.Has(subjectID) {
		e.RemoveFromBlacklist(subjectID)
		return false, nil
	}
	if _, err := e.AddToBlacklist(subjectID); err != nil {
		return false, err
	}
	return true, nil
}

// FixThrough promotes every predicted term up to and including termIndex to
// a fixed term. Terms that are already fixed are left as they are.
func (e *Editor) FixThrough(termIndex int) error {
	state := e.history.Current()
	if termIndex < 0 {
		return ErrTermOutOfRange
	}
	if termIndex < len(state.FixedTerms) {
		return nil
	}
	result, err := e.Predict()
	if err != nil {
		return err
	}
	if termIndex >= len(result.Terms) {
		return ErrTermOutOfRange
	}
	for i := len(state.FixedTerms); i <= termIndex; i++ {
		state.FixedTerms = append(state.FixedTerms, append([]Subject(nil), result.Terms[i]...))
	}
	e.history.Push(state)
	return nil
}

// AddSubject places a catalog subject into a fixed term. A subject already
// fixed in another term is moved. It reports whether the state changed.
func (e *Editor) AddSubject(termIndex int, subjectID string) (bool, error) {
	state := e.history.Current()
	if termIndex < 0 || termIndex >= len(state.FixedTerms) {
		return false, ErrTermNotFixed
	}
	subject, ok := e.lookup(subjectID)
	if !ok {
		return false, ErrUnknownSubject
	}
	if state.Blacklist.Has(subjectID) {
		return false, ErrSubjectBlacklisted
	}
	for _, existing := range state.FixedTerms[termIndex] {
		if existing.ID == subjectID {
			return false, nil
		}
	}
	for i, term := range state.FixedTerms {
		if i != termIndex {
			state.FixedTerms[i] = withoutSubject(term, subjectID)
		}
	}
	state.FixedTerms[termIndex] = append(state.FixedTerms[termIndex], subject)
	e.history.Push(state)
	return true, nil
}

// RemoveSubject drops a subject from a fixed term.
func (e *Editor) RemoveSubject(termIndex int, subjectID string) error {
	state := e.history.Current()
	if termIndex < 0 || termIndex >= len(state.FixedTerms) {
		return ErrTermNotFixed
	}
	state.FixedTerms[termIndex] = withoutSubject(state.FixedTerms[termIndex], subjectID)
	e.history.Push(state)
	return nil
}

// Undo restores the previous state, if any.
func (e *Editor) Undo() (PlanState, bool) {
	return e.history.Undo()
}

// Redo re-applies the next state, if any.
func (e *Editor) Redo() (PlanState, bool) {
	return e.history.Redo()
}

func (e *Editor) input() Input {
	state := e.history.Current()
	in := e.base
	in.FixedTerms = state.FixedTerms
	in.Blacklist = state.Blacklist
	return in
}

func (e *Editor) lookup(subjectID string) (Subject, bool) {
	for _, subject := range e.base.Catalog {
		if subject.ID == subjectID {
			return subject, true
		}
	}
	return Subject{}, false
}

func withoutSubject(term []Subject, subjectID string) []Subject {
	out := make([]Subject, 0, len(term))
	for _, subject := range term {
		if subject.ID != subjectID {
			out = append(out, subject)
		}
	}
	return out
}
