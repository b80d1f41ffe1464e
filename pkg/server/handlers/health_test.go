package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/mindgraph"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serveHealth(t *testing.T, h *HealthHandler, path string, handle gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	router := gin.New()
	router.GET(path, handle)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(nil)
	code, body := serveHealth(t, h, "/health", h.HealthCheck)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "mindgraph", body["service"])
	assert.Contains(t, body, "timestamp")
	assert.Contains(t, body, "version")
}

func TestLivenessCheck(t *testing.T) {
	h := NewHealthHandler(nil)
	code, body := serveHealth(t, h, "/live", h.LivenessCheck)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])
}

func TestReadinessCheck(t *testing.T) {
	t.Run("without client", func(t *testing.T) {
		h := NewHealthHandler(nil)
		code, body := serveHealth(t, h, "/ready", h.ReadinessCheck)

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not_ready", body["status"])
	})

	t.Run("with client", func(t *testing.T) {
		client, err := mindgraph.NewClient(nil, nil, nil, nil, nil)
		require.NoError(t, err)
		defer client.Close()

		h := NewHealthHandler(client)
		code, body := serveHealth(t, h, "/ready", h.ReadinessCheck)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", body["status"])
		checks := body["checks"].(map[string]any)
		storage := checks["storage"].(map[string]any)
		assert.Equal(t, "healthy", storage["status"])
		assert.EqualValues(t, 0, storage["graphs"])
	})
}

func TestDetailedHealthCheck(t *testing.T) {
	client, err := mindgraph.NewClient(nil, nil, nil, nil, nil)
	require.NoError(t, err)
	defer client.Close()

	h := NewHealthHandler(client)
	code, body := serveHealth(t, h, "/health/detailed", h.DetailedHealthCheck)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "build_info")
	checks := body["checks"].(map[string]any)
	assert.Contains(t, checks, "system")
}

func TestGetSystemMetrics(t *testing.T) {
	h := NewHealthHandler(nil)
	m := h.getSystemMetrics()

	assert.NotEmpty(t, m.MemoryUsage)
	assert.Greater(t, m.Goroutines, 0)
}
