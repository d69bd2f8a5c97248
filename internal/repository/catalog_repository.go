package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/path-planner/internal/models"
)

// CatalogRepository reads the subject catalog of a course.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindCourseByCode loads a course by its public code.
func (r *CatalogRepository) FindCourseByCode(ctx context.Context, code string) (*models.Course, error) {
	const query = `SELECT id, code, name FROM courses WHERE code = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListSubjects returns every subject of the course, active or not.
func (r *CatalogRepository) ListSubjects(ctx context.Context, courseID string) ([]models.Subject, error) {
	const query = `SELECT id, course_id, semester, name, acronym, theory_credits, practical_credits, workload_hours, elective, active, updated_at
FROM subjects WHERE course_id = $1 ORDER BY semester ASC, acronym ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, courseID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListRequirements returns the prerequisites of every subject of the course.
func (r *CatalogRepository) ListRequirements(ctx context.Context, courseID string) ([]models.SubjectRequirement, error) {
	const query = `SELECT r.subject_id, r.type, r.prerequisite_subject_id, p.acronym AS prerequisite_acronym, r.min_credits
FROM subject_requirements r
JOIN subjects s ON s.id = r.subject_id
LEFT JOIN subjects p ON p.id = r.prerequisite_subject_id
WHERE s.course_id = $1
ORDER BY r.subject_id ASC`
	var reqs []models.SubjectRequirement
	if err := r.db.SelectContext(ctx, &reqs, query, courseID); err != nil {
		return nil, fmt.Errorf("list subject requirements: %w", err)
	}
	return reqs, nil
}

// ListClassSlots returns the weekly meetings of every class of the course.
func (r *CatalogRepository) ListClassSlots(ctx context.Context, courseID string) ([]models.ClassSlot, error) {
	const query = `SELECT c.subject_id, c.class, c.day_id, c.time_slot_id
FROM classes c
JOIN subjects s ON s.id = c.subject_id
WHERE s.course_id = $1
ORDER BY c.subject_id ASC, c.class ASC`
	var slots []models.ClassSlot
	if err := r.db.SelectContext(ctx, &slots, query, courseID); err != nil {
		return nil, fmt.Errorf("list class slots: %w", err)
	}
	return slots, nil
}

// CatalogStamp identifies one state of a course catalog. It covers the
// subjects together with their requirement and class rows.
type CatalogStamp struct {
	SubjectCount          int        `db:"subject_count"`
	UpdatedAt             *time.Time `db:"updated_at"`
	RequirementCount      int        `db:"requirement_count"`
	RequirementsUpdatedAt *time.Time `db:"requirements_updated_at"`
	ClassCount            int        `db:"class_count"`
	ClassesUpdatedAt      *time.Time `db:"classes_updated_at"`
}

// Stamp returns a cheap fingerprint of the catalog used to version cached
// snapshots.
func (r *CatalogRepository) Stamp(ctx context.Context, courseID string) (CatalogStamp, error) {
	const query = `SELECT
	(SELECT COUNT(*) FROM subjects WHERE course_id = $1) AS subject_count,
	(SELECT MAX(updated_at) FROM subjects WHERE course_id = $1) AS updated_at,
	(SELECT COUNT(*) FROM subject_requirements r JOIN subjects s ON s.id = r.subject_id WHERE s.course_id = $1) AS requirement_count,
	(SELECT MAX(r.updated_at) FROM subject_requirements r JOIN subjects s ON s.id = r.subject_id WHERE s.course_id = $1) AS requirements_updated_at,
	(SELECT COUNT(*) FROM classes c JOIN subjects s ON s.id = c.subject_id WHERE s.course_id = $1) AS class_count,
	(SELECT MAX(c.updated_at) FROM classes c JOIN subjects s ON s.id = c.subject_id WHERE s.course_id = $1) AS classes_updated_at`
	var stamp CatalogStamp
	if err := r.db.GetContext(ctx, &stamp, query, courseID); err != nil {
		return CatalogStamp{}, fmt.Errorf("catalog stamp: %w", err)
	}
	return stamp, nil
}

// ListDays returns the timetable weekdays.
func (r *CatalogRepository) ListDays(ctx context.Context) ([]models.Day, error) {
	const query = `SELECT id, name FROM days ORDER BY id ASC`
	var days []models.Day
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// ListTimeSlots returns the timetable periods.
func (r *CatalogRepository) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, start_time, end_time FROM time_slots ORDER BY id ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}
