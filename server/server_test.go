package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erhaops/workshop-core/repository"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewRepositoryWithDB(db)
	require.NoError(t, repo.Migrate())
	repo.Seed()

	ws := NewWebServer("0", zerolog.Nop(), repo, nil, []string{"*"})
	return ws.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestKanbanEndpoint(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/workshop/kanban", "")
	require.Equal(t, http.StatusOK, w.Code)

	var board map[string][]map[string]interface{}
	decodeBody(t, w, &board)
	require.Contains(t, board, "NEW")
	require.Contains(t, board, "READY_FOR_DELIVERY")
	assert.Len(t, board["NEW"], 2)
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	handler := newTestServer(t)
	jobID := "JOB-2026-0041"

	// Advance without an assignment is a conflict.
	w := doJSON(t, handler, http.MethodPost, "/api/v1/workshop/jobs/"+jobID+"/advance", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, handler, http.MethodPost, "/api/v1/assignments",
		`{"jobId":"`+jobID+`","workerId":"WKR-002","role":"LEAD"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	for _, want := range []string{"ASSIGNED", "IN_PROGRESS", "QC_IN_PROGRESS"} {
		w = doJSON(t, handler, http.MethodPost, "/api/v1/workshop/jobs/"+jobID+"/advance", "")
		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		decodeBody(t, w, &resp)
		assert.Equal(t, want, resp["workshopStatus"])
	}

	// Initialize the QC board and pass every point.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/qc/jobs/"+jobID+"/initialize", "")
	require.Equal(t, http.StatusOK, w.Code)
	var initResp struct {
		Signoffs []struct {
			HoldingPointID string `json:"holdingPointId"`
			Status         string `json:"status"`
		} `json:"signoffs"`
		Progress struct {
			Total   int `json:"total"`
			Pending int `json:"pending"`
		} `json:"progress"`
	}
	decodeBody(t, w, &initResp)
	require.Len(t, initResp.Signoffs, 9)
	assert.Equal(t, 9, initResp.Progress.Pending)

	for _, s := range initResp.Signoffs {
		w = doJSON(t, handler, http.MethodPost,
			"/api/v1/qc/jobs/"+jobID+"/holding-points/"+s.HoldingPointID+"/pass",
			`{"signedById":"WKR-007"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/qc/jobs/"+jobID+"/progress", "")
	require.Equal(t, http.StatusOK, w.Code)
	var progress struct {
		IsComplete      bool `json:"isComplete"`
		PercentComplete int  `json:"percentComplete"`
	}
	decodeBody(t, w, &progress)
	assert.True(t, progress.IsComplete)
	assert.Equal(t, 100, progress.PercentComplete)

	// Dual-signature completion.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/workshop/jobs/"+jobID+"/complete",
		`{"qcInspectorId":"WKR-007","qcInspectorName":"Anele Dube","shopManagerId":"WKR-005","shopManagerName":"Maria dos Santos"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, handler, http.MethodGet, "/api/v1/workshop/jobs/"+jobID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var job struct {
		WorkshopStatus string `json:"workshopStatus"`
		Completion     *struct {
			QcInspectorID string `json:"qcInspectorId"`
		} `json:"completion"`
	}
	decodeBody(t, w, &job)
	assert.Equal(t, "READY_FOR_DELIVERY", job.WorkshopStatus)
	require.NotNil(t, job.Completion)
	assert.Equal(t, "WKR-007", job.Completion.QcInspectorID)

	// A second completion is a conflict.
	w = doJSON(t, handler, http.MethodPost, "/api/v1/workshop/jobs/"+jobID+"/complete",
		`{"qcInspectorId":"WKR-007","shopManagerId":"WKR-005"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFailWithoutNotesIsBadRequest(t *testing.T) {
	handler := newTestServer(t)
	jobID := "JOB-2026-0042"

	w := doJSON(t, handler, http.MethodPost, "/api/v1/qc/jobs/"+jobID+"/initialize", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, handler, http.MethodPost,
		"/api/v1/qc/jobs/"+jobID+"/holding-points/HP-01/fail",
		`{"signedById":"WKR-007","notes":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, handler, http.MethodPost,
		"/api/v1/qc/jobs/"+jobID+"/holding-points/HP-01/fail",
		`{"signedById":"WKR-007","notes":"plate out of tolerance"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Progress struct {
			Failed int `json:"failed"`
		} `json:"progress"`
	}
	decodeBody(t, w, &resp)
	assert.Equal(t, 1, resp.Progress.Failed)
}

func TestUnknownJobIs404(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/workshop/jobs/JOB-NOPE", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var errResp struct {
		Code string `json:"code"`
	}
	decodeBody(t, w, &errResp)
	assert.Equal(t, repository.ErrCodeNotFound, errResp.Code)
}

func TestWorkersEndpoint(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/workers", "")
	require.Equal(t, http.StatusOK, w.Code)

	var workers []struct {
		ID           string `json:"id"`
		EmployeeCode string `json:"employeeCode"`
		FirstName    string `json:"firstName"`
	}
	decodeBody(t, w, &workers)
	require.Len(t, workers, 7)
	assert.Equal(t, "WKR-001", workers[0].ID)
	assert.Equal(t, "Pieter", workers[0].FirstName)
}

func TestHoldingPointCatalog(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, http.MethodGet, "/api/v1/qc/holding-points", "")
	require.Equal(t, http.StatusOK, w.Code)

	var points []struct {
		ID             string `json:"id"`
		SequenceNumber int    `json:"sequenceNumber"`
		IsActive       bool   `json:"isActive"`
	}
	decodeBody(t, w, &points)
	require.Len(t, points, 9)
	assert.Equal(t, "HP-01", points[0].ID)
	assert.True(t, points[0].IsActive)

	w = doJSON(t, handler, http.MethodPut, "/api/v1/qc/holding-points/HP-07/active", `{"isActive":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		IsActive bool `json:"isActive"`
	}
	decodeBody(t, w, &updated)
	assert.False(t, updated.IsActive)
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	handler := newTestServer(t)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/assignments", `{"jobId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
