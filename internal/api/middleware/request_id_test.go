package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsyorkd/emr-controller/internal/logger"
)

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(handler gin.HandlerFunc) *gin.Engine {
		router := gin.New()
		router.Use(RequestID(logger.Default()))
		router.GET("/", handler)
		return router
	}

	t.Run("should generate an identifier when none is presented", func(t *testing.T) {
		var seen string
		router := newRouter(func(c *gin.Context) {
			seen = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("should keep a caller-presented identifier", func(t *testing.T) {
		router := newRouter(func(c *gin.Context) {
			assert.Equal(t, "upstream-42", GetRequestID(c))
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "upstream-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "upstream-42", w.Header().Get(RequestIDHeader))
	})

	t.Run("should seed a request-scoped logger", func(t *testing.T) {
		fallback := logger.Default()
		router := newRouter(func(c *gin.Context) {
			assert.NotSame(t, logger.Interface(fallback), RequestLogger(c, fallback))
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should fall back when the middleware has not run", func(t *testing.T) {
		fallback := logger.Default()
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		assert.Equal(t, "", GetRequestID(c))
		assert.Equal(t, logger.Interface(fallback), RequestLogger(c, fallback))
	})
}
