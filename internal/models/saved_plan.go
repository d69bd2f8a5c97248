package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SavedPlan is a versioned snapshot of a student's edited plan.
type SavedPlan struct {
	ID         string         `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"user_id"`
	CourseCode string         `db:"course_code" json:"course_code"`
	Version    int            `db:"version" json:"version"`
	State      types.JSONText `db:"state" json:"state"`
	Summary    types.JSONText `db:"summary" json:"summary"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// SavedPlanState is the persisted shape of the editable plan: fixed terms as
// subject ids plus the blacklist.
type SavedPlanState struct {
	FixedTerms [][]string `json:"fixedTerms"`
	Blacklist  []string   `json:"blacklist"`
}
