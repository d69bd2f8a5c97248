package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/repository"
	appErrors "github.com/noah-isme/path-planner/pkg/errors"
)

// catalogStoreStub serves a small program:
//
//	ALG (sem 1) -> DS (sem 2) -> CMP (sem 3, also needs 8 credits)
//	E1, E2, E3 electives of 60h each; E1 shares ALG's time slot.
type catalogStoreStub struct {
	mu       sync.Mutex
	course   *models.Course
	subjects []models.Subject
	reqs     []models.SubjectRequirement
	slots    []models.ClassSlot
	days     []models.Day
	times    []models.TimeSlot
	stamp    repository.CatalogStamp
	loadErr  error
	loads    int
}

func newCatalogStoreStub() *catalogStoreStub {
	updated := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	workload := func(h int64) sql.NullInt64 { return sql.NullInt64{Int64: h, Valid: true} }
	return &catalogStoreStub{
		course: &models.Course{ID: "course-1", Code: "CS", Name: "Computer Science"},
		subjects: []models.Subject{
			{ID: "s-alg", CourseID: "course-1", Semester: 1, Name: "Algorithms", Acronym: "ALG", TheoryCredits: 2, PracticalCredits: 2, Active: true},
			{ID: "s-ds", CourseID: "course-1", Semester: 2, Name: "Data Structures", Acronym: "DS", TheoryCredits: 4, Active: true},
			{ID: "s-cmp", CourseID: "course-1", Semester: 3, Name: "Compilers", Acronym: "CMP", TheoryCredits: 4, Active: true},
			{ID: "s-e1", CourseID: "course-1", Semester: 5, Name: "Elective One", Acronym: "E1", TheoryCredits: 2, WorkloadHours: workload(60), Elective: true, Active: true},
			{ID: "s-e2", CourseID: "course-1", Semester: 5, Name: "Elective Two", Acronym: "E2", TheoryCredits: 2, WorkloadHours: workload(60), Elective: true, Active: true},
			{ID: "s-e3", CourseID: "course-1", Semester: 5, Name: "Elective Three", Acronym: "E3", TheoryCredits: 2, WorkloadHours: workload(60), Elective: true, Active: true},
		},
		reqs: []models.SubjectRequirement{
			{SubjectID: "s-ds", Type: models.RequirementTypeSubject, PrerequisiteSubjectID: sql.NullString{String: "s-alg", Valid: true}, PrerequisiteAcronym: sql.NullString{String: "ALG", Valid: true}},
			{SubjectID: "s-cmp", Type: models.RequirementTypeSubject, PrerequisiteSubjectID: sql.NullString{String: "s-ds", Valid: true}, PrerequisiteAcronym: sql.NullString{String: "DS", Valid: true}},
			{SubjectID: "s-cmp", Type: models.RequirementTypeCredits, MinCredits: sql.NullInt64{Int64: 8, Valid: true}},
		},
		slots: []models.ClassSlot{
			{SubjectID: "s-alg", ClassName: "A", DayID: "1", TimeSlotID: "1"},
			{SubjectID: "s-e1", ClassName: "A", DayID: "1", TimeSlotID: "1"},
			{SubjectID: "s-e1", ClassName: "A", DayID: "3", TimeSlotID: "2"},
		},
		days:  []models.Day{{ID: "1", Name: "Monday"}, {ID: "3", Name: "Wednesday"}},
		times: []models.TimeSlot{{ID: "1", StartTime: "08:00", EndTime: "09:40"}, {ID: "2", StartTime: "10:00", EndTime: "11:40"}},
		stamp: repository.CatalogStamp{SubjectCount: 6, UpdatedAt: &updated, RequirementCount: 3, ClassCount: 3, ClassesUpdatedAt: &updated},
	}
}

func (s *catalogStoreStub) FindCourseByCode(ctx context.Context, code string) (*models.Course, error) {
	if code != s.course.Code {
		return nil, sql.ErrNoRows
	}
	return s.course, nil
}

func (s *catalogStoreStub) ListSubjects(ctx context.Context, courseID string) ([]models.Subject, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.subjects, nil
}

func (s *catalogStoreStub) ListRequirements(ctx context.Context, courseID string) ([]models.SubjectRequirement, error) {
	return s.reqs, nil
}

func (s *catalogStoreStub) ListClassSlots(ctx context.Context, courseID string) ([]models.ClassSlot, error) {
	return s.slots, nil
}

func (s *catalogStoreStub) ListDays(ctx context.Context) ([]models.Day, error) {
	return s.days, nil
}

func (s *catalogStoreStub) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	return s.times, nil
}

func (s *catalogStoreStub) Stamp(ctx context.Context, courseID string) (repository.CatalogStamp, error) {
	return s.stamp, nil
}

// memoryCacheRepo mimics the redis repository with JSON round trips.
type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = data
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCacheRepo) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type progressStoreStub struct {
	completed   []models.CompletedSubject
	enrollments []models.CurrentEnrollment
	err         error
}

func (p *progressStoreStub) ListCompleted(ctx context.Context, userID string) ([]models.CompletedSubject, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.completed, nil
}

func (p *progressStoreStub) ListEnrollments(ctx context.Context, userID string) ([]models.CurrentEnrollment, error) {
	return p.enrollments, nil
}

type savedPlanStoreStub struct {
	mu    sync.Mutex
	plans []models.SavedPlan
}

func (s *savedPlanStoreStub) CreateVersioned(ctx context.Context, plan *models.SavedPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := 1
	for _, existing := range s.plans {
		if existing.UserID == plan.UserID && existing.CourseCode == plan.CourseCode && existing.Version >= version {
			version = existing.Version + 1
		}
	}
	plan.ID = uuid.NewString()
	plan.Version = version
	plan.CreatedAt = time.Now().UTC()
	s.plans = append(s.plans, *plan)
	return nil
}

func (s *savedPlanStoreStub) Latest(ctx context.Context, userID, courseCode string) (*models.SavedPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.SavedPlan
	for i := range s.plans {
		plan := s.plans[i]
		if plan.UserID == userID && plan.CourseCode == courseCode && (latest == nil || plan.Version > latest.Version) {
			latest = &plan
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (s *savedPlanStoreStub) ListByUser(ctx context.Context, userID string, page, size int) ([]models.SavedPlan, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owned []models.SavedPlan
	for _, plan := range s.plans {
		if plan.UserID == userID {
			owned = append(owned, plan)
		}
	}
	return owned, len(owned), nil
}
