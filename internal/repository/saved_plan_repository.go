package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/path-planner/internal/models"
)

// SavedPlanRepository persists versioned plan snapshots.
type SavedPlanRepository struct {
	db *sqlx.DB
}

// NewSavedPlanRepository constructs the repository.
func NewSavedPlanRepository(db *sqlx.DB) *SavedPlanRepository {
	return &SavedPlanRepository{db: db}
}

// CreateVersioned inserts a plan assigning the next version for the
// user-course pair. Both statements run in one transaction.
func (r *SavedPlanRepository) CreateVersioned(ctx context.Context, plan *models.SavedPlan) error {
	if plan == nil {
		return fmt.Errorf("saved plan payload is nil")
	}
	if plan.UserID == "" || plan.CourseCode == "" {
		return fmt.Errorf("user_id and course_code are required")
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if len(plan.State) == 0 {
		plan.State = types.JSONText(`{}`)
	}
	if len(plan.Summary) == 0 {
		plan.Summary = types.JSONText(`{}`)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin saved plan tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM saved_plans WHERE user_id = $1 AND course_code = $2`
	if err := tx.GetContext(ctx, &plan.Version, nextVersionQuery, plan.UserID, plan.CourseCode); err != nil {
		return fmt.Errorf("compute next saved plan version: %w", err)
	}

	const insertQuery = `
INSERT INTO saved_plans (id, user_id, course_code, version, state, summary, created_at)
VALUES (:id, :user_id, :course_code, :version, :state, :summary, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, plan); err != nil {
		return fmt.Errorf("insert saved plan: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit saved plan: %w", err)
	}
	return nil
}

// Latest returns the newest version for the user-course pair.
func (r *SavedPlanRepository) Latest(ctx context.Context, userID, courseCode string) (*models.SavedPlan, error) {
	const query = `SELECT id, user_id, course_code, version, state, summary, created_at
FROM saved_plans WHERE user_id = $1 AND course_code = $2 ORDER BY version DESC LIMIT 1`
	var plan models.SavedPlan
	if err := r.db.GetContext(ctx, &plan, query, userID, courseCode); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListByUser pages through every saved version of a user, newest first.
func (r *SavedPlanRepository) ListByUser(ctx context.Context, userID string, page, size int) ([]models.SavedPlan, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	const query = `SELECT id, user_id, course_code, version, state, summary, created_at
FROM saved_plans WHERE user_id = $1 ORDER BY created_at DESC, version DESC LIMIT $2 OFFSET $3`
	var plans []models.SavedPlan
	if err := r.db.SelectContext(ctx, &plans, query, userID, size, offset); err != nil {
		return nil, 0, fmt.Errorf("list saved plans: %w", err)
	}

	const countQuery = `SELECT COUNT(*) FROM saved_plans WHERE user_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, userID); err != nil {
		return nil, 0, fmt.Errorf("count saved plans: %w", err)
	}
	return plans, total, nil
}
