package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/jobs"
	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/internal/models"
	jobsvc "github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type jobService struct {
	jobsvc.Service
	job   *models.Job
	list  []*models.Job
	err   error
	id    uint
	limit int
}

func (s *jobService) RetryJob(_ context.Context, jobID uint) (*models.Job, error) {
	s.id = jobID
	return s.job, s.err
}

func (s *jobService) ListFailedJobs(_ context.Context, limit int) ([]*models.Job, error) {
	s.limit = limit
	return s.list, s.err
}

func newRouter(svc jobsvc.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	jobs.RegisterRoutes(r.Group("/api/v1"), &types.Dependencies{JobService: svc})
	return r
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRetry(t *testing.T) {
	svc := &jobService{job: &models.Job{Model: gorm.Model{ID: 7}, Status: models.JobStatusPending}}
	w := do(newRouter(svc), http.MethodPost, "/api/v1/jobs/7/retry")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body types.JobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Job)
	assert.Equal(t, uint(7), body.Job.ID)
	assert.Equal(t, uint(7), svc.id)
}

func TestRetry_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
		code   string
	}{
		{name: "non-numeric id", path: "/api/v1/jobs/abc/retry", status: http.StatusBadRequest, code: "VALIDATION"},
		{name: "unknown job", path: "/api/v1/jobs/9/retry", err: jobsvc.ErrJobNotFound, status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "job not failed", path: "/api/v1/jobs/9/retry", err: fmt.Errorf("retry: %w", jobsvc.ErrJobNotRetryable), status: http.StatusConflict, code: "CONFLICT"},
		{name: "database down", path: "/api/v1/jobs/9/retry", err: errors.New("disk I/O error"), status: http.StatusInternalServerError, code: "DATABASE_QUERY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(&jobService{err: tt.err}), http.MethodPost, tt.path)

			assert.Equal(t, tt.status, w.Code)
			var resp types.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestListFailed(t *testing.T) {
	svc := &jobService{list: []*models.Job{{Model: gorm.Model{ID: 1}, Status: models.JobStatusPermanentlyFailed}}}

	w := do(newRouter(svc), http.MethodGet, "/api/v1/jobs/failed")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, svc.limit)

	var body types.JobsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = do(newRouter(svc), http.MethodGet, "/api/v1/jobs/failed?limit=10000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 500, svc.limit)

	w = do(newRouter(svc), http.MethodGet, "/api/v1/jobs/failed?limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
