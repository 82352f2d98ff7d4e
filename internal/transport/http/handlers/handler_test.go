package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/manisense/constellation-push-dispatcher/internal/domain/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatch struct {
	summary   service.DispatchSummary
	err       error
	batchSize int
}

func (f *fakeDispatch) Run(ctx context.Context, batchSize int) (service.DispatchSummary, error) {
	f.batchSize = batchSize
	return f.summary, f.err
}

type fakeHealth struct {
	report service.HealthReport
	err    error
}

func (f *fakeHealth) Report(ctx context.Context) (service.HealthReport, error) {
	return f.report, f.err
}

func newTestEngine(dispatch service.DispatchService, health service.HealthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	NewRouter(NewHandler(dispatch, health)).RegisterRoutes(engine)
	return engine
}

func TestHealthEndpoint(t *testing.T) {
	health := &fakeHealth{report: service.HealthReport{
		At:     time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Status: service.HealthStatusDegraded,
		Queue:  service.QueueCounts{Queued: 3, Failed: 21, Sent: 9},
		Thresholds: service.HealthThresholds{
			PendingAgeWarnSeconds: 300,
			FailedWarnCount:       20,
			QueuedWarnCount:       100,
		},
		Alerts: []string{service.AlertFailedCount},
	}}
	engine := newTestEngine(&fakeDispatch{}, health)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	// degraded is a verdict in the body, never a transport failure
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])

	got, ok := body["health"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "degraded", got["status"])
	assert.Equal(t, []any{"failed_count_exceeds_threshold"}, got["alerts"])
	queue, ok := got["queue"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(21), queue["failed"])
}

func TestHealthEndpointStoreFailure(t *testing.T) {
	engine := newTestEngine(&fakeDispatch{}, &fakeHealth{err: errors.New("count by status: connection refused")})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "connection refused")
}

func TestDispatchEndpoint(t *testing.T) {
	dispatch := &fakeDispatch{summary: service.DispatchSummary{Claimed: 2, Sent: 1, Failed: 1}}
	engine := newTestEngine(dispatch, &fakeHealth{})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"batch_size": 5}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, dispatch.batchSize)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), summary["claimed"])
	assert.Equal(t, float64(1), summary["sent"])
	assert.Equal(t, float64(1), summary["failed"])
	assert.Equal(t, float64(0), summary["discarded"])
}

func TestDispatchEndpointDefaultsBatchSize(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no body", ""},
		{"empty object", `{}`},
		{"non-numeric batch size", `{"batch_size": "twenty"}`},
		{"malformed json", `{"batch_size":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatch := &fakeDispatch{}
			engine := newTestEngine(dispatch, &fakeHealth{})

			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			// zero reaches the dispatcher, which applies the default
			assert.Equal(t, 0, dispatch.batchSize)
		})
	}
}

func TestDispatchEndpointStoreFailure(t *testing.T) {
	dispatch := &fakeDispatch{err: errors.New("claim batch: connection refused")}
	engine := newTestEngine(dispatch, &fakeHealth{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "claim batch")
}

func TestOtherMethodsAreRejected(t *testing.T) {
	engine := newTestEngine(&fakeDispatch{}, &fakeHealth{})

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(method, "/", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Method not allowed", body["error"])
	}
}
