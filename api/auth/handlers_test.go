package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/killallgit/meeting-recorder/api/types"
	authService "github.com/killallgit/meeting-recorder/internal/services/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := authService.NewService("test-secret")
	require.NoError(t, err)
	svc.SetDevAuth("dev-token")

	handler := NewHandler(svc)
	router := gin.New()
	protected := router.Group("/", handler.AuthMiddleware())
	protected.GET("/me", handler.Me)
	protected.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, types.UserID(c))
	})
	return router, handler
}

func userToken(t *testing.T, secret, sub string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &authService.Claims{
		Sub:   sub,
		Email: sub + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHandler_Me(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &Handler{}

	t.Run("valid user claims", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/me", nil)
		c.Set(types.ContextClaims, &authService.Claims{Sub: "user-123", Email: "test@example.com"})

		handler.Me(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response authService.UserInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "user-123", response.ID)
		assert.Equal(t, "test@example.com", response.Email)
	})

	t.Run("missing claims", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/me", nil)

		handler.Me(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Unauthorized", response["error"])
	})
}

func TestAuthMiddleware(t *testing.T) {
	router, _ := setupTestRouter(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Token abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer abc", http.StatusUnauthorized, ""},
		{"expired token", "Bearer " + userToken(t, "test-secret", "u-1", -time.Minute), http.StatusUnauthorized, ""},
		{"foreign secret", "Bearer " + userToken(t, "other", "u-1", time.Hour), http.StatusUnauthorized, ""},
		{"valid token", "Bearer " + userToken(t, "test-secret", "u-1", time.Hour), http.StatusOK, "u-1"},
		{"dev token", "Bearer dev-token", http.StatusOK, authService.DevUserID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantUser, w.Body.String())
			}
		})
	}
}
