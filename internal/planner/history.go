package planner

// PlanState is the user-editable part of a plan: the fixed terms and the
// blacklisted elective ids.
type PlanState struct {
	FixedTerms [][]Subject `json:"fixedTerms"`
	Blacklist  IDSet       `json:"-"`
}

// Clone deep copies the state so history entries never alias live data.
func (p PlanState) Clone() PlanState {
	terms := make([][]Subject, len(p.FixedTerms))
	for i, term := range p.FixedTerms {
		terms[i] = append([]Subject(nil), term...)
	}
	return PlanState{FixedTerms: terms, Blacklist: p.Blacklist.Clone()}
}

// History is a linear undo/redo stack. The entry at index 0 is the initial
// state and is never discarded; index always stays within [0, len-1].
type History struct {
	entries []PlanState
	index   int
}

// NewHistory seeds the history with the initial state.
func NewHistory(initial PlanState) *History {
	return &History{entries: []PlanState{initial.Clone()}}
}

// Push drops every entry after the current one and appends state.
func (h *History) Push(state PlanState) {
	h.entries = append(h.entries[:h.index+1], state.Clone())
	h.index = len(h.entries) - 1
}

// Undo steps back one entry. It is a no-op at the first entry.
func (h *History) Undo() (PlanState, bool) {
	if h.index == 0 {
		return PlanState{}, false
	}
	h.index--
	return h.entries[h.index].Clone(), true
}

// Redo steps forward one entry. It is a no-op at the tip.
func (h *History) Redo() (PlanState, bool) {
	if h.index >= len(h.entries)-1 {
		return PlanState{}, false
	}
	h.index++
	return h.entries[h.index].Clone(), true
}

// Current returns the state at the current index.
func (h *History) Current() PlanState {
	return h.entries[h.index].Clone()
}

// CanUndo reports whether Undo would move.
func (h *History) CanUndo() bool { return h.index > 0 }

// CanRedo reports whether Redo would move.
func (h *History) CanRedo() bool { return h.index < len(h.entries)-1 }

// Len returns the number of retained entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the current position.
func (h *History) Index() int { return h.index }
