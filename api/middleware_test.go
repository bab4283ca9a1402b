package api

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		origins        []string
		method         string
		origin         string
		expectedStatus int
		expectedAllow  string
	}{
		{"preflight with wildcard", []string{"*"}, http.MethodOptions, "https://app.example.com", http.StatusNoContent, "*"},
		{"GET with wildcard", []string{"*"}, http.MethodGet, "https://app.example.com", http.StatusOK, "*"},
		{"allowed origin is echoed", []string{"https://app.example.com/"}, http.MethodGet, "https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"unknown origin gets no header", []string{"https://app.example.com"}, http.MethodGet, "https://evil.example.com", http.StatusOK, ""},
		{"no origins configured allows all", nil, http.MethodPost, "", http.StatusOK, "*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.origins))
			router.Any("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedAllow, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
		})
	}
}

func sizeLimitedRouter(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw)
	router.POST("/test", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, gin.H{"received": len(body)})
	})
	return router
}

func TestRequestSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		mw             gin.HandlerFunc
		bodySize       int
		expectedStatus int
	}{
		{"small request under default limit", RequestSizeLimit(), 100, http.StatusOK},
		{"request at default limit", RequestSizeLimit(), 1024 * 1024, http.StatusOK},
		{"request over default limit", RequestSizeLimit(), 2 * 1024 * 1024, http.StatusRequestEntityTooLarge},
		{"request under custom limit", RequestSizeLimitWithSize(512), 256, http.StatusOK},
		{"request over custom limit", RequestSizeLimitWithSize(512), 1024, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := sizeLimitedRouter(tt.mw)
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("a", tt.bodySize)))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func rateLimitedRouter(t *testing.T, scope string, rps, burst int) (*gin.Engine, *sync.Map) {
	t.Helper()
	rateLimiters := &sync.Map{}
	cleanupStop := make(chan struct{})
	t.Cleanup(func() { close(cleanupStop) })

	router := gin.New()
	router.Use(PerClientRateLimit(rateLimiters, cleanupStop, &sync.Once{}, scope, rps, burst))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router, rateLimiters
}

func hit(router *gin.Engine, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestPerClientRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name              string
		requestCount      int
		requestsPerSecond int
		burstSize         int
		expectSomeBlocked bool
	}{
		{"requests under rate limit", 3, 10, 5, false},
		{"burst requests", 6, 2, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := rateLimitedRouter(t, "default", tt.requestsPerSecond, tt.burstSize)

			blocked := 0
			for i := 0; i < tt.requestCount; i++ {
				if hit(router, "127.0.0.1:12345") == http.StatusTooManyRequests {
					blocked++
				}
			}

			if tt.expectSomeBlocked {
				assert.Greater(t, blocked, 0)
			} else {
				assert.Zero(t, blocked)
			}
		})
	}
}

func TestPerClientRateLimit_DifferentClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router, limiters := rateLimitedRouter(t, "webhook", 1, 1)

	assert.Equal(t, http.StatusOK, hit(router, "127.0.0.1:12345"))
	assert.Equal(t, http.StatusTooManyRequests, hit(router, "127.0.0.1:12345"))
	assert.Equal(t, http.StatusOK, hit(router, "192.168.1.1:54321"))

	_, ok := limiters.Load("webhook|127.0.0.1")
	assert.True(t, ok, "limiters are keyed by scope and client")
}

func TestEvictIdleLimiters(t *testing.T) {
	limiters := &sync.Map{}
	now := time.Now()
	limiters.Store("old", &clientLimiter{lastSeen: now.Add(-time.Hour)})
	limiters.Store("fresh", &clientLimiter{lastSeen: now.Add(-time.Minute)})

	evictIdleLimiters(limiters, now, 10*time.Minute)

	_, ok := limiters.Load("old")
	assert.False(t, ok)
	_, ok = limiters.Load("fresh")
	assert.True(t, ok)
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, status := range map[string]int{"/ok": http.StatusOK, "/boom": http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code)
	}
}
