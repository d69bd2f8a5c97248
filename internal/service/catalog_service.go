package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/planner"
	"github.com/noah-isme/path-planner/internal/repository"
	"github.com/noah-isme/path-planner/pkg/cache"
	appErrors "github.com/noah-isme/path-planner/pkg/errors"
)

type catalogStore interface {
	FindCourseByCode(ctx context.Context, code string) (*models.Course, error)
	ListSubjects(ctx context.Context, courseID string) ([]models.Subject, error)
	ListRequirements(ctx context.Context, courseID string) ([]models.SubjectRequirement, error)
	ListClassSlots(ctx context.Context, courseID string) ([]models.ClassSlot, error)
	ListDays(ctx context.Context) ([]models.Day, error)
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
	Stamp(ctx context.Context, courseID string) (repository.CatalogStamp, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// CatalogSnapshot is an immutable view of a course catalog in engine form.
// Version changes whenever a subject, requirement or class row of the course
// is added, removed or touched.
type CatalogSnapshot struct {
	CourseID   string            `json:"courseId"`
	CourseCode string            `json:"courseCode"`
	Version    string            `json:"version"`
	Subjects   []planner.Subject `json:"subjects"`
	LoadedAt   time.Time         `json:"loadedAt"`
}

// ByID indexes the snapshot subjects by id.
func (s *CatalogSnapshot) ByID() map[string]planner.Subject {
	index := make(map[string]planner.Subject, len(s.Subjects))
	for _, subject := range s.Subjects {
		index[subject.ID] = subject
	}
	return index
}

// CatalogServiceConfig tunes catalog loading.
type CatalogServiceConfig struct {
	HoursPerCredit int
	CacheTTL       time.Duration
}

// CatalogService loads course catalogs and keeps versioned snapshots in cache.
type CatalogService struct {
	store  catalogStore
	cache  catalogCache
	logger *zap.Logger
	cfg    CatalogServiceConfig
	// loads collapses concurrent misses for the same catalog version.
	loads singleflight.Group
}

// NewCatalogService constructs a CatalogService. cache may be nil.
func NewCatalogService(store catalogStore, cache catalogCache, logger *zap.Logger, cfg CatalogServiceConfig) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HoursPerCredit <= 0 {
		cfg.HoursPerCredit = planner.DefaultHoursPerCredit
	}
	return &CatalogService{store: store, cache: cache, logger: logger, cfg: cfg}
}

// Snapshot returns the current catalog of the course identified by code.
func (s *CatalogService) Snapshot(ctx context.Context, courseCode string) (*CatalogSnapshot, error) {
	if courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}

	course, err := s.store.FindCourseByCode(ctx, courseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	stamp, err := s.store.Stamp(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stamp catalog")
	}
	version := catalogVersion(course.ID, stamp)
	key := cache.Key("catalog", course.Code, version)

	if s.cache != nil {
		var cached CatalogSnapshot
		hit, cacheErr := s.cache.Get(ctx, key, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	loaded, err, _ := s.loads.Do(key, func() (interface{}, error) {
		return s.load(ctx, course, version)
	})
	if err != nil {
		return nil, err
	}
	snapshot := loaded.(*CatalogSnapshot)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snapshot, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("catalog snapshot not cached", zap.String("course", course.Code), zap.Error(err))
		}
	}
	return snapshot, nil
}

// Invalidate drops every cached snapshot of the course.
func (s *CatalogService) Invalidate(ctx context.Context, courseCode string) error {
	if courseCode == "" {
		return appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, cache.Key("catalog", courseCode, "*")); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate catalog cache")
	}
	s.logger.Info("catalog cache invalidated", zap.String("course", courseCode))
	return nil
}

func (s *CatalogService) load(ctx context.Context, course *models.Course, version string) (*CatalogSnapshot, error) {
	var (
		rows      []models.Subject
		reqs      []models.SubjectRequirement
		slots     []models.ClassSlot
		days      []models.Day
		timeSlots []models.TimeSlot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.store.ListSubjects(gctx, course.ID)
		return err
	})
	g.Go(func() error {
		var err error
		reqs, err = s.store.ListRequirements(gctx, course.ID)
		return err
	})
	g.Go(func() error {
		var err error
		slots, err = s.store.ListClassSlots(gctx, course.ID)
		return err
	})
	g.Go(func() error {
		var err error
		days, err = s.store.ListDays(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		timeSlots, err = s.store.ListTimeSlots(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	subjects, warnings := buildCatalog(rows, reqs, slots, newTimetableGrid(days, timeSlots), s.cfg.HoursPerCredit)
	for _, warning := range warnings {
		s.logger.Warn("catalog data rejected", zap.String("course", course.Code), zap.String("detail", warning))
	}
	s.logger.Debug("catalog loaded",
		zap.String("course", course.Code),
		zap.String("version", version),
		zap.Int("subjects", len(subjects)),
	)

	return &CatalogSnapshot{
		CourseID:   course.ID,
		CourseCode: course.Code,
		Version:    version,
		Subjects:   subjects,
		LoadedAt:   time.Now().UTC(),
	}, nil
}

func catalogVersion(courseID string, stamp repository.CatalogStamp) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d|%d|%d|%d",
		courseID,
		stamp.SubjectCount, unixNano(stamp.UpdatedAt),
		stamp.RequirementCount, unixNano(stamp.RequirementsUpdatedAt),
		stamp.ClassCount, unixNano(stamp.ClassesUpdatedAt),
	)))
	return hex.EncodeToString(sum[:8])
}

func unixNano(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

// timetableGrid holds the known day and time slot ids. An empty grid accepts
// every token.
type timetableGrid struct {
	days      map[string]struct{}
	timeSlots map[string]struct{}
}

func newTimetableGrid(days []models.Day, timeSlots []models.TimeSlot) timetableGrid {
	grid := timetableGrid{
		days:      make(map[string]struct{}, len(days)),
		timeSlots: make(map[string]struct{}, len(timeSlots)),
	}
	for _, day := range days {
		grid.days[day.ID] = struct{}{}
	}
	for _, slot := range timeSlots {
		grid.timeSlots[slot.ID] = struct{}{}
	}
	return grid
}

func (g timetableGrid) hasDay(id string) bool {
	return gridContains(g.days, id)
}

func (g timetableGrid) hasTimeSlot(id string) bool {
	return gridContains(g.timeSlots, id)
}

func gridContains(set map[string]struct{}, id string) bool {
	if len(set) == 0 {
		return true
	}
	_, ok := set[id]
	return ok
}

// buildCatalog converts table rows into engine subjects. Requirement rows
// pointing at subjects without an acronym name the prerequisite by id, which
// the resolver matches against completed ids. Meetings outside the grid keep
// an empty token so the subject fails validation and is skipped downstream.
func buildCatalog(rows []models.Subject, reqs []models.SubjectRequirement, slots []models.ClassSlot, grid timetableGrid, hoursPerCredit int) ([]planner.Subject, []string) {
	var warnings []string
	requirements := make(map[string][]planner.Requirement)
	for _, req := range reqs {
		switch req.Type {
		case models.RequirementTypeCredits:
			if req.MinCredits.Valid {
				requirements[req.SubjectID] = append(requirements[req.SubjectID], planner.MinCredits(int(req.MinCredits.Int64)))
			}
		case models.RequirementTypeSubject:
			code := req.PrerequisiteAcronym.String
			if code == "" {
				code = req.PrerequisiteSubjectID.String
			}
			if code != "" {
				requirements[req.SubjectID] = append(requirements[req.SubjectID], planner.RequiresSubject(code))
			}
		}
	}

	sections := make(map[string][]planner.Section)
	for _, slot := range slots {
		list := sections[slot.SubjectID]
		idx := -1
		for i := range list {
			if list[i].Name == slot.ClassName {
				idx = i
				break
			}
		}
		if idx < 0 {
			list = append(list, planner.Section{Name: slot.ClassName})
			idx = len(list) - 1
		}
		ref := planner.SlotRef{Day: slot.DayID, TimeSlot: slot.TimeSlotID}
		if !grid.hasDay(ref.Day) {
			warnings = append(warnings, fmt.Sprintf("subject %s class %s: unknown day %q", slot.SubjectID, slot.ClassName, ref.Day))
			ref.Day = ""
		}
		if !grid.hasTimeSlot(ref.TimeSlot) {
			warnings = append(warnings, fmt.Sprintf("subject %s class %s: unknown time slot %q", slot.SubjectID, slot.ClassName, ref.TimeSlot))
			ref.TimeSlot = ""
		}
		list[idx].Slots = append(list[idx].Slots, ref)
		sections[slot.SubjectID] = list
	}

	subjects := make([]planner.Subject, 0, len(rows))
	for _, row := range rows {
		subject := planner.Subject{
			ID:           row.ID,
			Name:         row.Name,
			Code:         row.Acronym,
			HomeTerm:     row.Semester,
			Theory:       row.TheoryCredits,
			Practical:    row.PracticalCredits,
			IsElective:   row.Elective,
			IsActive:     row.Active,
			Requirements: requirements[row.ID],
			Sections:     sections[row.ID],
		}
		if row.WorkloadHours.Valid && row.WorkloadHours.Int64 > 0 {
			subject.Workload = int(row.WorkloadHours.Int64)
		} else {
			subject.Workload = subject.Credits() * hoursPerCredit
		}
		subjects = append(subjects, subject)
	}
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, warnings
}
