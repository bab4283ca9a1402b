package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/killallgit/meeting-recorder/api"
	"github.com/killallgit/meeting-recorder/internal/database"
	"github.com/killallgit/meeting-recorder/internal/services/cache"
	"github.com/killallgit/meeting-recorder/internal/services/events"
	"github.com/killallgit/meeting-recorder/internal/services/idempotency"
	"github.com/killallgit/meeting-recorder/internal/services/jobs"
	"github.com/killallgit/meeting-recorder/internal/services/meetings"
	"github.com/killallgit/meeting-recorder/internal/services/recordings"
	"github.com/killallgit/meeting-recorder/internal/services/storage"
	"github.com/killallgit/meeting-recorder/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComponents(t *testing.T, cfg *config.Config) *components {
	t.Helper()
	db, err := database.Initialize(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:", EnableForeignKeys: true})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	c := &components{
		cfg:        cfg,
		db:         db,
		publisher:  events.Noop{},
		jobs:       jobs.NewService(jobs.NewRepository(db.DB), jobs.Defaults{}),
		meetings:   meetings.NewRepository(db.DB),
		recordings: recordings.NewRepository(db.DB),
	}
	c.closers = append(c.closers, db.Close)
	c.guard, c.leases = c.newGuard()
	c.store = storage.NewCachedStore(nil, c.newURLCache())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewURLCache(t *testing.T) {
	tests := []struct {
		backend string
		want    interface{}
	}{
		{"memory", &cache.MemoryCache{}},
		{"none", cache.Noop{}},
		{"", cache.Noop{}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			c := &components{cfg: &config.Config{URLCache: config.URLCacheConfig{Backend: tt.backend, MaxEntries: 5}}}
			assert.IsType(t, tt.want, c.newURLCache())
			assert.NoError(t, c.Close())
		})
	}
}

func TestNewGuard_DatabaseBackendPurgesLeases(t *testing.T) {
	c := testComponents(t, &config.Config{Idempotency: config.IdempotencyConfig{Backend: "db"}})
	assert.IsType(t, &idempotency.DBGuard{}, c.guard)
	assert.NotNil(t, c.leases)
}

func TestDependencies(t *testing.T) {
	t.Run("jwt secret is required", func(t *testing.T) {
		c := testComponents(t, &config.Config{})
		_, err := c.dependencies(context.Background())
		assert.Error(t, err)
	})

	t.Run("analysis disabled without llm key", func(t *testing.T) {
		c := testComponents(t, &config.Config{Auth: config.AuthConfig{JWTSecret: "s"}})
		deps, err := c.dependencies(context.Background())
		require.NoError(t, err)
		assert.Nil(t, deps.AnalysisService)
		assert.NotNil(t, deps.RecordingService)
		assert.NotNil(t, deps.WebhookRouter)
	})

	t.Run("analysis enabled with llm key", func(t *testing.T) {
		c := testComponents(t, &config.Config{
			Auth:    config.AuthConfig{JWTSecret: "s"},
			LLM:     config.LLMConfig{Provider: "openai", APIKey: "k", APIURL: "http://llm.invalid"},
			Prompts: []config.PromptConfig{{ID: "summary", Title: "Summary", Text: "Summarize."}},
		})
		deps, err := c.dependencies(context.Background())
		require.NoError(t, err)
		require.NotNil(t, deps.AnalysisService)
		assert.Len(t, deps.AnalysisService.ListPrompts(), 1)
	})
}

func TestWiredServer(t *testing.T) {
	cfg := &config.Config{
		Auth:         config.AuthConfig{JWTSecret: "s", DevAuthToken: "dev"},
		Security:     config.SecurityConfig{EnableCORS: true, CORSOrigins: []string{"*"}},
		RateLimiting: config.RateLimitConfig{Enabled: true, Endpoints: map[string]int{"default": 100, "webhook": 100}},
	}
	c := testComponents(t, cfg)
	deps, err := c.dependencies(context.Background())
	require.NoError(t, err)

	srv := api.NewServer(cfg, deps)
	require.NoError(t, srv.Initialize())
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"me without token", http.MethodGet, "/api/v1/me", "", http.StatusUnauthorized},
		{"me with dev token", http.MethodGet, "/api/v1/me", "dev", http.StatusOK},
		{"webhook without signature", http.MethodPost, "/webhooks/livekit", "", http.StatusUnauthorized},
		{"unknown meeting", http.MethodGet, "/api/v1/meetings/nope/recording", "dev", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			srv.Engine().ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}
