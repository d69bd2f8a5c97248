package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/path-planner/internal/dto"
	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/planner"
	appErrors "github.com/noah-isme/path-planner/pkg/errors"
	"github.com/noah-isme/path-planner/pkg/response"
)

type progressStore interface {
	ListCompleted(ctx context.Context, userID string) ([]models.CompletedSubject, error)
	ListEnrollments(ctx context.Context, userID string) ([]models.CurrentEnrollment, error)
}

type savedPlanStore interface {
	CreateVersioned(ctx context.Context, plan *models.SavedPlan) error
	Latest(ctx context.Context, userID, courseCode string) (*models.SavedPlan, error)
	ListByUser(ctx context.Context, userID string, page, size int) ([]models.SavedPlan, int, error)
}

type catalogProvider interface {
	Snapshot(ctx context.Context, courseCode string) (*CatalogSnapshot, error)
}

// PlanServiceConfig tunes prediction and session handling.
type PlanServiceConfig struct {
	RequiredElectiveHours int
	Caps                  planner.WorkloadCaps
	Calendar              planner.Calendar
	SessionTTL            time.Duration
	Now                   func() time.Time
}

type planSession struct {
	mu         sync.Mutex
	id         string
	userID     string
	courseCode string
	catalog    *CatalogSnapshot
	editor     *planner.Editor
	lastSeen   time.Time
}

// PlanService owns the in-memory editing sessions. Each session wraps one
// planner.Editor and is serialised by its own mutex.
type PlanService struct {
	catalog      catalogProvider
	progress     progressStore
	plans        savedPlanStore
	orchestrator *planner.Orchestrator
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          PlanServiceConfig

	mu       sync.RWMutex
	sessions map[string]*planSession
}

// NewPlanService constructs a PlanService.
func NewPlanService(catalog catalogProvider, progress progressStore, plans savedPlanStore, orchestrator *planner.Orchestrator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg PlanServiceConfig) *PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if orchestrator == nil {
		orchestrator = planner.NewOrchestrator(logger, planner.SchedulerConfig{})
	}
	if cfg.RequiredElectiveHours <= 0 {
		cfg.RequiredElectiveHours = planner.DefaultRequiredElectiveHours
	}
	if cfg.Caps.ElectiveHoursCap <= 0 {
		cfg.Caps.ElectiveHoursCap = cfg.RequiredElectiveHours
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PlanService{
		catalog:      catalog,
		progress:     progress,
		plans:        plans,
		orchestrator: orchestrator,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		sessions:     make(map[string]*planSession),
	}
}

// Open starts an editing session seeded with the student's records and,
// unless req.Fresh is set, the latest saved plan of the course.
func (s *PlanService) Open(ctx context.Context, req dto.OpenPlanSessionRequest, userID string) (*dto.PlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if userID == "" {
		return nil, appErrors.ErrUnauthorized
	}

	snapshot, err := s.catalog.Snapshot(ctx, req.CourseCode)
	if err != nil {
		return nil, err
	}

	var (
		completed   []models.CompletedSubject
		enrollments []models.CurrentEnrollment
		saved       *models.SavedPlan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		completed, err = s.progress.ListCompleted(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		enrollments, err = s.progress.ListEnrollments(gctx, userID)
		return err
	})
	if !req.Fresh {
		g.Go(func() error {
			plan, err := s.plans.Latest(gctx, userID, snapshot.CourseCode)
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			saved = plan
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student records")
	}

	index := snapshot.ByID()
	base := planner.Input{
		Catalog:   snapshot.Subjects,
		Completed: s.resolveIDs(index, completedIDs(completed), "completed"),
		Enrolled:  s.resolveIDs(index, enrollmentIDs(enrollments), "enrolled"),
		Caps:      s.cfg.Caps,
	}
	guard := planner.FeasibilityGuard{RequiredElectiveHours: s.cfg.RequiredElectiveHours}
	initial, err := s.restoreState(index, base, guard, saved)
	if err != nil {
		return nil, err
	}

	session := &planSession{
		id:         uuid.NewString(),
		userID:     userID,
		courseCode: snapshot.CourseCode,
		catalog:    snapshot,
		editor: planner.NewEditor(
			s.orchestrator,
			guard,
			base,
			initial,
		),
		lastSeen: s.cfg.Now(),
	}

	s.mu.Lock()
	s.sessions[session.id] = session
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)

	s.logger.Info("plan session opened",
		zap.String("session_id", session.id),
		zap.String("user_id", userID),
		zap.String("course", snapshot.CourseCode),
		zap.Bool("restored", saved != nil),
	)

	session.mu.Lock()
	defer session.mu.Unlock()
	return s.render(session)
}

// Get recomputes the prediction of a session.
func (s *PlanService) Get(ctx context.Context, sessionID, userID string) (*dto.PlanResponse, error) {
	return s.withSession(sessionID, userID, func(sess *planSession) error { return nil })
}

// Close discards a session.
func (s *PlanService) Close(ctx context.Context, sessionID, userID string) error {
	if _, err := s.lookup(sessionID, userID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, sessionID)
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)
	return nil
}

// Suggestions lists candidates for a term, mandatory subjects first, each
// annotated with its criticality.
func (s *PlanService) Suggestions(ctx context.Context, sessionID, userID string, termIndex int) (*dto.SuggestionsResponse, error) {
	sess, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.cfg.Now()

	subjects, err := sess.editor.Suggestions(termIndex)
	if err != nil {
		return nil, s.mapEditorError(err)
	}
	criticality := planner.Criticality(sess.catalog.Subjects)

	resp := &dto.SuggestionsResponse{
		TermIndex:   termIndex,
		Label:       s.cfg.Calendar.Label(termIndex),
		Suggestions: make([]dto.SuggestedSubject, 0, len(subjects)),
	}
	for _, subject := range subjects {
		resp.Suggestions = append(resp.Suggestions, dto.SuggestedSubject{
			PlanSubject: toPlanSubject(subject),
			Criticality: criticality[subject.Code],
		})
	}
	return resp, nil
}

// AddToBlacklist excludes an elective from future terms. An infeasible
// exclusion fails with EXCLUSION_INFEASIBLE carrying the hour figures.
func (s *PlanService) AddToBlacklist(ctx context.Context, sessionID, userID string, req dto.SubjectRefRequest) (*dto.PlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blacklist payload")
	}
	return s.withSession(sessionID, userID, func(sess *planSession) error {
		_, err := sess.editor.AddToBlacklist(req.SubjectID)
		return err
	})
}

// RemoveFromBlacklist returns an elective to the pool.
func (s *PlanService) RemoveFromBlacklist(ctx context.Context, sessionID, userID, subjectID string) (*dto.PlanResponse, error) {
	return s.withSession(sessionID, userID, func(sess *planSession) error {
		sess.editor.RemoveFromBlacklist(subjectID)
		return nil
	})
}

// FixThrough promotes predicted terms up to termIndex to fixed terms.
func (s *PlanService) FixThrough(ctx context.Context, sessionID, userID string, termIndex int) (*dto.PlanResponse, error) {
	return s.withSession(sessionID, userID, func(sess *planSession) error {
		return sess.editor.FixThrough(termIndex)
	})
}

// AddSubject places a subject into a fixed term.
func (s *PlanService) AddSubject(ctx context.Context, sessionID, userID string, termIndex int, req dto.SubjectRefRequest) (*dto.PlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	return s.withSession(sessionID, userID, func(sess *planSession) error {
		_, err := sess.editor.AddSubject(termIndex, req.SubjectID)
		return err
	})
}

// RemoveSubject takes a subject out of a fixed term.
func (s *PlanService) RemoveSubject(ctx context.Context, sessionID, userID string, termIndex int, subjectID string) (*dto.PlanResponse, error) {
	return s.withSession(sessionID, userID, func(sess *planSession) error {
		return sess.editor.RemoveSubject(termIndex, subjectID)
	})
}

// Undo steps back one edit. At the oldest entry it returns the plan unchanged.
func (s *PlanService) Undo(ctx context.Context, sessionID, userID string) (*dto.PlanResponse, error) {
	return s.withSession(sessionID, userID, func(sess *planSession) error {
		sess.editor.Undo()
		return nil
	})
}

// Redo steps forward one edit. At the newest entry it returns the plan unchanged.
func (s *PlanService) Redo(ctx context.Context, sessionID, userID string) (*dto.PlanResponse, error) {
	return s.withSession(sessionID, userID, func(sess *planSession) error {
		sess.editor.Redo()
		return nil
	})
}

// Save persists the current fixed terms and blacklist as a new plan version.
func (s *PlanService) Save(ctx context.Context, sessionID, userID string) (*dto.SavedPlanResponse, error) {
	sess, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	current := sess.editor.State()
	plan, err := s.render(sess)
	if err != nil {
		return nil, err
	}

	state := models.SavedPlanState{
		FixedTerms: make([][]string, 0, len(current.FixedTerms)),
		Blacklist:  current.Blacklist.Sorted(),
	}
	for _, term := range current.FixedTerms {
		ids := make([]string, 0, len(term))
		for _, subject := range term {
			ids = append(ids, subject.ID)
		}
		state.FixedTerms = append(state.FixedTerms, ids)
	}
	summary := dto.SavedPlanSummary{
		TermCount:     plan.TermCount,
		ElectiveHours: plan.ElectiveHours,
		Status:        plan.Status,
		Completion:    plan.Completion,
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode plan state")
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode plan summary")
	}

	record := &models.SavedPlan{
		UserID:     userID,
		CourseCode: sess.courseCode,
		State:      types.JSONText(stateJSON),
		Summary:    types.JSONText(summaryJSON),
	}
	if err := s.plans.CreateVersioned(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save plan")
	}

	s.logger.Info("plan saved",
		zap.String("session_id", sess.id),
		zap.String("plan_id", record.ID),
		zap.Int("version", record.Version),
	)
	return &dto.SavedPlanResponse{
		ID:         record.ID,
		CourseCode: record.CourseCode,
		Version:    record.Version,
		TermCount:  summary.TermCount,
		Status:     summary.Status,
		CreatedAt:  record.CreatedAt,
	}, nil
}

// ListSaved pages through the saved plans of a user, newest first.
func (s *PlanService) ListSaved(ctx context.Context, userID string, page, size int) ([]dto.SavedPlanResponse, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	plans, total, err := s.plans.ListByUser(ctx, userID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved plans")
	}
	items := make([]dto.SavedPlanResponse, 0, len(plans))
	for _, plan := range plans {
		item := dto.SavedPlanResponse{
			ID:         plan.ID,
			CourseCode: plan.CourseCode,
			Version:    plan.Version,
			CreatedAt:  plan.CreatedAt,
		}
		var summary dto.SavedPlanSummary
		if len(plan.Summary) > 0 && json.Unmarshal(plan.Summary, &summary) == nil {
			item.TermCount = summary.TermCount
			item.Status = summary.Status
		}
		items = append(items, item)
	}
	return items, &response.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Freeze captures the current plan of a session for export.
func (s *PlanService) Freeze(ctx context.Context, sessionID, userID string) (*models.PlanExportParams, error) {
	sess, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	plan, err := s.render(sess)
	if err != nil {
		return nil, err
	}
	params := &models.PlanExportParams{
		CourseCode: plan.CourseCode,
		Terms:      make([]models.ExportTerm, 0, len(plan.Terms)),
		Summary: models.ExportPlanTotals{
			TermCount:     plan.TermCount,
			ElectiveHours: plan.ElectiveHours,
			Status:        plan.Status,
			Completion:    plan.Completion,
		},
	}
	for _, term := range plan.Terms {
		frozen := models.ExportTerm{Label: term.Label, Fixed: term.Fixed}
		for _, subject := range term.Subjects {
			frozen.Subjects = append(frozen.Subjects, models.ExportSubject{
				Code:     subject.Code,
				Name:     subject.Name,
				Elective: subject.Elective,
				Hours:    subject.Hours,
			})
		}
		params.Terms = append(params.Terms, frozen)
	}
	return params, nil
}

// StartJanitor evicts idle sessions until ctx is cancelled.
func (s *PlanService) StartJanitor(ctx context.Context) {
	interval := s.cfg.SessionTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if evicted := s.EvictExpired(); evicted > 0 {
					s.logger.Info("expired plan sessions evicted", zap.Int("count", evicted))
				}
			}
		}
	}()
}

// EvictExpired drops sessions idle for longer than the session TTL.
func (s *PlanService) EvictExpired() int {
	cutoff := s.cfg.Now().Add(-s.cfg.SessionTTL)
	s.mu.Lock()
	evicted := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)
	return evicted
}

func (s *PlanService) lookup(sessionID, userID string) (*planSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	if sess.userID != userID {
		return nil, appErrors.ErrForbidden
	}
	return sess, nil
}

func (s *PlanService) withSession(sessionID, userID string, edit func(*planSession) error) (*dto.PlanResponse, error) {
	sess, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := edit(sess); err != nil {
		return nil, s.mapEditorError(err)
	}
	return s.render(sess)
}

// render recomputes the prediction of a locked session.
func (s *PlanService) render(sess *planSession) (*dto.PlanResponse, error) {
	sess.lastSeen = s.cfg.Now()

	start := time.Now()
	result, err := sess.editor.Predict()
	if err != nil {
		return nil, s.mapEditorError(err)
	}
	s.metrics.ObservePrediction(string(result.Schedule.Status), time.Since(start))

	state := sess.editor.State()
	resp := &dto.PlanResponse{
		SessionID:         sess.id,
		CourseCode:        sess.courseCode,
		CatalogVersion:    sess.catalog.Version,
		Terms:             make([]dto.PlanTerm, 0, len(result.Terms)),
		TermCount:         result.TermCount,
		FixedCount:        result.FixedCount,
		Status:            string(result.Schedule.Status),
		ElectiveShortfall: result.Schedule.ElectiveShortfall,
		CeilingReached:    result.Schedule.CeilingReached,
		Unresolved:        result.Schedule.Unresolved,
		Warnings:          result.Schedule.Warnings,
		Blacklist:         state.Blacklist.Sorted(),
		Edges:             planner.PrerequisiteEdges(result.Terms),
		CanUndo:           sess.editor.CanUndo(),
		CanRedo:           sess.editor.CanRedo(),
	}
	for i, term := range result.Terms {
		out := dto.PlanTerm{
			Index:    i,
			Label:    s.cfg.Calendar.Label(i),
			Fixed:    i < result.FixedCount,
			Subjects: make([]dto.PlanSubject, 0, len(term)),
		}
		for _, subject := range term {
			hours := subject.WorkloadHours()
			out.Hours += hours
			if subject.IsElective {
				out.ElectiveHours += hours
			}
			out.Subjects = append(out.Subjects, toPlanSubject(subject))
		}
		resp.ElectiveHours += out.ElectiveHours
		resp.Terms = append(resp.Terms, out)
	}
	if result.Schedule.Status == planner.StatusComplete {
		if year, term, ok := s.cfg.Calendar.Completion(result.TermCount); ok {
			resp.Completion = fmt.Sprintf("%d.%d", year, term)
		}
	}
	return resp, nil
}

func (s *PlanService) mapEditorError(err error) error {
	var exclusion *planner.ExclusionError
	switch {
	case errors.As(err, &exclusion):
		s.metrics.RecordRejectedExclusion()
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrExclusionInfeasible, exclusion.Error()), exclusion.Check)
	case errors.Is(err, planner.ErrUnknownSubject):
		return appErrors.Clone(appErrors.ErrNotFound, "subject not in catalog")
	case errors.Is(err, planner.ErrNotElective):
		return appErrors.Clone(appErrors.ErrValidation, "only electives can be blacklisted")
	case errors.Is(err, planner.ErrTermNotFixed):
		return appErrors.ErrTermNotFixed
	case errors.Is(err, planner.ErrSubjectBlacklisted):
		return appErrors.Clone(appErrors.ErrConflict, "subject is blacklisted")
	case errors.Is(err, planner.ErrTermOutOfRange):
		return appErrors.Clone(appErrors.ErrValidation, "term index out of range")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "prediction failed")
	}
}

func (s *PlanService) resolveIDs(index map[string]planner.Subject, ids []string, kind string) []planner.Subject {
	subjects := make([]planner.Subject, 0, len(ids))
	for _, id := range ids {
		subject, ok := index[id]
		if !ok {
			s.logger.Debug("record outside catalog ignored", zap.String("kind", kind), zap.String("subject_id", id))
			continue
		}
		subjects = append(subjects, subject)
	}
	return subjects
}

// restoreState rebuilds the edit state of a saved plan. Subjects that left
// the catalog since the plan was saved are dropped, and blacklist entries go
// through the feasibility guard again against the current catalog.
func (s *PlanService) restoreState(index map[string]planner.Subject, base planner.Input, guard planner.FeasibilityGuard, saved *models.SavedPlan) (planner.PlanState, error) {
	state := planner.PlanState{Blacklist: planner.IDSet{}}
	if saved == nil || len(saved.State) == 0 {
		return state, nil
	}
	var stored models.SavedPlanState
	if err := json.Unmarshal(saved.State, &stored); err != nil {
		return state, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "saved plan is corrupt")
	}
	for _, id := range stored.Blacklist {
		subject, ok := index[id]
		if !ok || !subject.IsElective {
			continue
		}
		check := guard.Check(id, base.Completed, base.Enrolled, base.Catalog, state.Blacklist)
		if !check.Allowed {
			s.logger.Warn("saved exclusion dropped",
				zap.String("subject_id", id),
				zap.Int("pool_hours", check.PoolHours),
				zap.Int("required_hours", guard.RequiredElectiveHours),
			)
			continue
		}
		state.Blacklist[id] = struct{}{}
	}
	for _, ids := range stored.FixedTerms {
		term := make([]planner.Subject, 0, len(ids))
		for _, id := range ids {
			if subject, ok := index[id]; ok && !state.Blacklist.Has(id) {
				term = append(term, subject)
			}
		}
		state.FixedTerms = append(state.FixedTerms, term)
	}
	return state, nil
}

func toPlanSubject(subject planner.Subject) dto.PlanSubject {
	return dto.PlanSubject{
		ID:       subject.ID,
		Code:     subject.Code,
		Name:     subject.Name,
		Elective: subject.IsElective,
		Credits:  subject.Credits(),
		Hours:    subject.WorkloadHours(),
		HomeTerm: subject.HomeTerm,
	}
}

func completedIDs(rows []models.CompletedSubject) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.SubjectID)
	}
	return ids
}

func enrollmentIDs(rows []models.CurrentEnrollment) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.SubjectID)
	}
	return ids
}
