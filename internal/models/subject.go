package models

import (
	"database/sql"
	"time"
)

// Course is a degree program owning a catalog of subjects.
type Course struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Subject is a catalog row of the subjects table.
type Subject struct {
	ID               string        `db:"id" json:"id"`
	CourseID         string        `db:"course_id" json:"course_id"`
	Semester         int           `db:"semester" json:"semester"`
	Name             string        `db:"name" json:"name"`
	Acronym          string        `db:"acronym" json:"acronym"`
	TheoryCredits    int           `db:"theory_credits" json:"theory_credits"`
	PracticalCredits int           `db:"practical_credits" json:"practical_credits"`
	WorkloadHours    sql.NullInt64 `db:"workload_hours" json:"-"`
	Elective         bool          `db:"elective" json:"elective"`
	Active           bool          `db:"active" json:"active"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// RequirementType discriminates subject_requirements rows.
type RequirementType string

const (
	RequirementTypeSubject RequirementType = "SUBJECT"
	RequirementTypeCredits RequirementType = "CREDITS"
)

// SubjectRequirement is a prerequisite row joined with the acronym of the
// prerequisite subject when it has one.
type SubjectRequirement struct {
	SubjectID             string          `db:"subject_id" json:"subject_id"`
	Type                  RequirementType `db:"type" json:"type"`
	PrerequisiteSubjectID sql.NullString  `db:"prerequisite_subject_id" json:"-"`
	PrerequisiteAcronym   sql.NullString  `db:"prerequisite_acronym" json:"-"`
	MinCredits            sql.NullInt64   `db:"min_credits" json:"-"`
}

// ClassSlot is one weekly meeting of a class (section) of a subject.
type ClassSlot struct {
	SubjectID  string `db:"subject_id" json:"subject_id"`
	ClassName  string `db:"class" json:"class"`
	DayID      string `db:"day_id" json:"day_id"`
	TimeSlotID string `db:"time_slot_id" json:"time_slot_id"`
}

// Day is a weekday of the timetable grid.
type Day struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// TimeSlot is a period of the timetable grid.
type TimeSlot struct {
	ID        string `db:"id" json:"id"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}
