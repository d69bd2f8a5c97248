package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/path-planner/internal/dto"
	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/repository"
	appErrors "github.com/noah-isme/path-planner/pkg/errors"
	"github.com/noah-isme/path-planner/pkg/jobs"
)

type exportJobRepoStub struct {
	mu   sync.Mutex
	jobs map[string]*models.PlanExportJob
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.PlanExportJob{}}
}

func (r *exportJobRepoStub) Create(ctx context.Context, job *models.PlanExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.PlanExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.PlanExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var queued []models.PlanExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PlanExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var finished []models.PlanExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type freezerStub struct {
	params *models.PlanExportParams
	err    error
}

func (f freezerStub) Freeze(ctx context.Context, sessionID, userID string) (*models.PlanExportParams, error) {
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.params
	return &copied, nil
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.PlanExportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func newExportJobServiceForTest(t *testing.T) (*ExportJobService, *exportJobRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	exporter := newExportServiceForTest(t)
	plan := frozenPlan("")
	svc := NewExportJobService(repo, freezerStub{params: &plan}, queue, exporter, nil, zap.NewNop(), ExportJobServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	})
	return svc, repo, queue, exporter
}

func TestExportJobServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)

	resp, err := svc.CreateJob(context.Background(), "sess-1", dto.ExportRequest{Format: models.ExportFormatPDF}, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypePlanExport, queue.jobs[0].Type)

	stored := repo.jobs[resp.ID]
	assert.Equal(t, "sess-1", stored.SessionID)
	assert.Equal(t, models.ExportFormatPDF, stored.Params.Format)
	assert.Len(t, stored.Params.Terms, 2)
}

func TestExportJobServiceCreateJobValidation(t *testing.T) {
	svc, _, queue, _ := newExportJobServiceForTest(t)

	_, err := svc.CreateJob(context.Background(), "sess-1", dto.ExportRequest{Format: "xlsx"}, "u-1")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, queue.jobs)
}

func TestExportJobServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	queue.err = jobs.ErrQueueStopped

	_, err := svc.CreateJob(context.Background(), "sess-1", dto.ExportRequest{Format: models.ExportFormatCSV}, "u-1")
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceGetStatus(t *testing.T) {
	svc, repo, _, _ := newExportJobServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), "sess-1", dto.ExportRequest{Format: models.ExportFormatCSV}, "u-1")
	require.NoError(t, err)

	status, err := svc.GetStatus(context.Background(), resp.ID, "u-1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, status.Format)

	_, err = svc.GetStatus(context.Background(), resp.ID, "u-2", models.RoleStudent)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GetStatus(context.Background(), resp.ID, "admin", models.RoleAdmin)
	assert.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), "missing", "u-1", models.RoleStudent)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.jobs, 1)
}

func TestExportJobServiceResolveDownload(t *testing.T) {
	svc, repo, _, exporter := newExportJobServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), "sess-1", dto.ExportRequest{Format: models.ExportFormatCSV}, "u-1")
	require.NoError(t, err)

	_, err = svc.ResolveDownload(context.Background(), "bogus")
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	worker := NewPlanExportWorker(repo, exporter, nil, 0, zap.NewNop())
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: resp.ID}))

	job := repo.jobs[resp.ID]
	require.NotNil(t, job.ResultURL)
	download, err := svc.ResolveDownload(context.Background(), extractToken(*job.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.Contains(t, download.Filename, ".csv")
}

func TestExportJobServiceRecoverAndDeadLetter(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t)
	repo.jobs["job-q"] = &models.PlanExportJob{ID: "job-q", Status: models.ExportStatusQueued}
	repo.jobs["job-d"] = &models.PlanExportJob{ID: "job-d", Status: models.ExportStatusFinished}

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "job-q", queue.jobs[0].ID)

	svc.DeadLetter(jobs.Job{ID: "job-q"}, errors.New("render failed"))
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-q"].Status)
	require.NotNil(t, repo.jobs["job-q"].ErrorMessage)
	assert.Equal(t, "render failed", *repo.jobs["job-q"].ErrorMessage)
}

func TestExportJobServiceCleanupExpired(t *testing.T) {
	svc, repo, _, exporter := newExportJobServiceForTest(t)
	result, err := exporter.Generate(context.Background(), &models.PlanExportJob{ID: "job-old", Params: frozenPlan(models.ExportFormatCSV)})
	require.NoError(t, err)
	finished := time.Now().Add(-2 * time.Hour)
	repo.jobs["job-old"] = &models.PlanExportJob{ID: "job-old", Status: models.ExportStatusFinished, ResultURL: &result.URL, FinishedAt: &finished}

	svc.cleanupExpired(context.Background())

	_, err = exporter.Open(result.RelativePath)
	assert.Error(t, err)
}

func TestPlanExportWorkerHandleSuccess(t *testing.T) {
	repo := newExportJobRepoStub()
	repo.jobs["job-1"] = &models.PlanExportJob{ID: "job-1", Params: frozenPlan(models.ExportFormatCSV), Status: models.ExportStatusQueued}
	metrics := NewMetricsService()
	worker := NewPlanExportWorker(repo, exportStub{result: &ExportResult{URL: "/api/v1/export/token"}}, metrics, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	assert.Equal(t, models.ExportStatusFinished, repo.jobs["job-1"].Status)
	assert.Equal(t, 100, repo.jobs["job-1"].Progress)
	assert.Equal(t, "/api/v1/export/token", *repo.jobs["job-1"].ResultURL)
}

func TestPlanExportWorkerHandleFailureRetries(t *testing.T) {
	repo := newExportJobRepoStub()
	repo.jobs["job-1"] = &models.PlanExportJob{ID: "job-1", Params: frozenPlan(models.ExportFormatCSV), Status: models.ExportStatusQueued}
	worker := NewPlanExportWorker(repo, exportStub{err: errors.New("boom")}, nil, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
}
