package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/path-planner/internal/dto"
	"github.com/noah-isme/path-planner/internal/models"
	"github.com/noah-isme/path-planner/internal/service"
	appErrors "github.com/noah-isme/path-planner/pkg/errors"
)

type exportServiceMock struct {
	createResp  *dto.ExportJobResponse
	createErr   error
	statusResp  *dto.ExportStatusResponse
	statusErr   error
	download    *service.ExportDownload
	downloadErr error

	lastRole models.UserRole
}

func (m *exportServiceMock) CreateJob(ctx context.Context, sessionID string, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	return m.createResp, m.createErr
}

func (m *exportServiceMock) GetStatus(ctx context.Context, id string, actorID string, role models.UserRole) (*dto.ExportStatusResponse, error) {
	m.lastRole = role
	return m.statusResp, m.statusErr
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.downloadErr
}

func TestExportHandlerCreate(t *testing.T) {
	svc := &exportServiceMock{createResp: &dto.ExportJobResponse{ID: "job-1", Status: models.ExportStatusQueued}}
	h := NewExportHandler(svc)

	body, _ := json.Marshal(dto.ExportRequest{Format: models.ExportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/plans/sessions/sess-1/exports", body)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	asStudent(c)
	h.Create(c)

	require.Equal(t, http.StatusAccepted, w.Code)
	var job dto.ExportJobResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &job))
	assert.Equal(t, "job-1", job.ID)
}

func TestExportHandlerDisabled(t *testing.T) {
	h := NewExportHandler(nil)

	c, w := newGinContext(http.MethodPost, "/plans/sessions/sess-1/exports", []byte(`{"format":"csv"}`))
	asStudent(c)
	h.Create(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestExportHandlerStatus(t *testing.T) {
	svc := &exportServiceMock{statusResp: &dto.ExportStatusResponse{ID: "job-1", Status: models.ExportStatusFinished, Progress: 100}}
	h := NewExportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/plans/exports/job-1", nil)
	c.Params = gin.Params{{Key: "jobId", Value: "job-1"}}
	asStudent(c)
	h.Status(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleStudent, svc.lastRole)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.csv")
	require.NoError(t, os.WriteFile(path, []byte("term,code\n2026.1,ALG\n"), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	svc := &exportServiceMock{download: &service.ExportDownload{
		File:      file,
		Filename:  "plan_CS_job-1.csv",
		Format:    models.ExportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	h := NewExportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "plan_CS_job-1.csv")
	assert.Equal(t, "term,code\n2026.1,ALG\n", w.Body.String())
}

func TestExportHandlerDownloadForbidden(t *testing.T) {
	svc := &exportServiceMock{downloadErr: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")}
	h := NewExportHandler(svc)

	c, w := newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
