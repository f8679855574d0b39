package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/storage"
)

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := storage.New(&storage.Config{Path: t.TempDir() + "/test.db"}, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	handler := NewHealthHandler(db)
	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)

	t.Run("health reports ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ok", response.Status)
	})

	t.Run("ready reports a healthy database", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var response ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "ready", response.Status)
		assert.Equal(t, "healthy", response.Services["database"])
	})
}
