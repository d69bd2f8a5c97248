package models

import "time"

// CompletedSubject records a subject a student has passed.
type CompletedSubject struct {
	UserID      string    `db:"user_id" json:"user_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	CompletedAt time.Time `db:"completed_at" json:"completed_at"`
}

// CurrentEnrollment records a subject taken in the running term.
type CurrentEnrollment struct {
	UserID    string `db:"user_id" json:"user_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	ClassName string `db:"class_name" json:"class_name"`
	Semester  string `db:"semester" json:"semester"`
}
