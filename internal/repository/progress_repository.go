package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/path-planner/internal/models"
)

// ProgressRepository reads a student's academic history.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// ListCompleted returns the subjects the user has passed.
func (r *ProgressRepository) ListCompleted(ctx context.Context, userID string) ([]models.CompletedSubject, error) {
	const query = `SELECT user_id, subject_id, completed_at FROM completed_subjects WHERE user_id = $1 ORDER BY completed_at ASC, subject_id ASC`
	var rows []models.CompletedSubject
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list completed subjects: %w", err)
	}
	return rows, nil
}

// ListEnrollments returns the subjects the user takes this term.
func (r *ProgressRepository) ListEnrollments(ctx context.Context, userID string) ([]models.CurrentEnrollment, error) {
	const query = `SELECT user_id, subject_id, class_name, semester FROM current_enrollments WHERE user_id = $1 ORDER BY subject_id ASC`
	var rows []models.CurrentEnrollment
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list current enrollments: %w", err)
	}
	return rows, nil
}
