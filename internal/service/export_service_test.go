package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/pkg/storage"
)

func frozenPlan(format models.ExportFormat) models.PlanExportParams {
	return models.PlanExportParams{
		Format:     format,
		CourseCode: "CS",
		Terms: []models.ExportTerm{
			{Label: "2026.1", Fixed: true, Subjects: []models.ExportSubject{
				{Code: "ALG", Name: "Algorithms", Hours: 72},
				{Code: "E2", Name: "Elective Two", Elective: true, Hours: 60},
			}},
			{Label: "2026.2", Subjects: []models.ExportSubject{{Code: "DS", Name: "Data Structures", Hours: 72}}},
		},
		Summary: models.ExportPlanTotals{TermCount: 2, ElectiveHours: 60, Status: "COMPLETE", Completion: "2026.2"},
	}
}

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop(), nil, nil)
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc := newExportServiceForTest(t)
	job := &models.PlanExportJob{ID: "job-1", Params: frozenPlan(models.ExportFormatCSV), CreatedBy: "u-1"}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result.URL, "/api/v1/export/")
	assert.Contains(t, result.RelativePath, "plan_CS_job-1_")

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "term,Code,Subject,Type,Hours")
	assert.Contains(t, string(content), "2026.1 (fixed),ALG,Algorithms,mandatory,72")
	assert.Contains(t, string(content), "2026.2,DS,Data Structures,mandatory,72")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc := newExportServiceForTest(t)
	job := &models.PlanExportJob{ID: "job-2", Params: frozenPlan(models.ExportFormatPDF), CreatedBy: "u-1"}

	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	assert.True(t, bytes.Equal([]byte("%PDF"), head))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newExportServiceForTest(t)
	_, err := svc.Generate(context.Background(), &models.PlanExportJob{ID: "job-3", Params: frozenPlan("xlsx")})
	assert.ErrorContains(t, err, "unsupported format")

	_, err = svc.Generate(context.Background(), nil)
	assert.Error(t, err)
}

func TestExportServiceDeleteAndCleanup(t *testing.T) {
	svc := newExportServiceForTest(t)
	result, err := svc.Generate(context.Background(), &models.PlanExportJob{ID: "job-4", Params: frozenPlan(models.ExportFormatCSV)})
	require.NoError(t, err)

	removed, err := svc.Cleanup(time.Hour)
	require.NoError(t, err)
	assert.Empty(t, removed)

	require.NoError(t, svc.Delete(result.RelativePath))
	_, err = svc.Open(result.RelativePath)
	assert.Error(t, err)
}
