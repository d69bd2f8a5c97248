package dto

import (
	"time"

	"github.com/noah-isme/path-planner/internal/planner"
)

// OpenPlanSessionRequest captures POST /plans/sessions payload.
type OpenPlanSessionRequest struct {
	CourseCode string `json:"courseCode" validate:"required,max=32"`
	// Fresh ignores the latest saved plan and starts from an empty edit state.
	Fresh bool `json:"fresh"`
}

// SubjectRefRequest names a subject for blacklist and term edits.
type SubjectRefRequest struct {
	SubjectID string `json:"subjectId" validate:"required,max=64"`
}

// PlanSubject is a subject line of a plan term.
type PlanSubject struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Elective bool   `json:"elective"`
	Credits  int    `json:"credits"`
	Hours    int    `json:"hours"`
	HomeTerm int    `json:"homeTerm"`
}

// PlanTerm is one labelled term of the combined plan.
type PlanTerm struct {
	Index         int           `json:"index"`
	Label         string        `json:"label"`
	Fixed         bool          `json:"fixed"`
	Hours         int           `json:"hours"`
	ElectiveHours int           `json:"electiveHours"`
	Subjects      []PlanSubject `json:"subjects"`
}

// PlanResponse is the recomputed prediction of an editing session.
type PlanResponse struct {
	SessionID         string         `json:"sessionId"`
	CourseCode        string         `json:"courseCode"`
	CatalogVersion    string         `json:"catalogVersion"`
	Terms             []PlanTerm     `json:"terms"`
	TermCount         int            `json:"termCount"`
	FixedCount        int            `json:"fixedCount"`
	Status            string         `json:"status"`
	ElectiveHours     int            `json:"electiveHours"`
	ElectiveShortfall int            `json:"electiveShortfall"`
	CeilingReached    bool           `json:"ceilingReached"`
	Completion        string         `json:"completion,omitempty"`
	Unresolved        []string       `json:"unresolved,omitempty"`
	Warnings          []string       `json:"warnings,omitempty"`
	Blacklist         []string       `json:"blacklist"`
	Edges             []planner.Edge `json:"edges,omitempty"`
	CanUndo           bool           `json:"canUndo"`
	CanRedo           bool           `json:"canRedo"`
}

// SuggestedSubject is a candidate for a term ranked by how many subjects
// depend on it.
type SuggestedSubject struct {
	PlanSubject
	Criticality int `json:"criticality"`
}

// SuggestionsResponse lists candidates for one term.
type SuggestionsResponse struct {
	TermIndex   int                `json:"termIndex"`
	Label       string             `json:"label"`
	Suggestions []SuggestedSubject `json:"suggestions"`
}

// SavedPlanResponse describes a persisted plan version.
type SavedPlanResponse struct {
	ID         string    `json:"id"`
	CourseCode string    `json:"courseCode"`
	Version    int       `json:"version"`
	TermCount  int       `json:"termCount,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SavedPlanSummary is stored next to a saved plan state for listings.
type SavedPlanSummary struct {
	TermCount     int    `json:"termCount"`
	ElectiveHours int    `json:"electiveHours"`
	Status        string `json:"status"`
	Completion    string `json:"completion,omitempty"`
}
