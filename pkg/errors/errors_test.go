package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_HTTPCodes(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"not found", NotFound("recording", "r1"), http.StatusNotFound},
		{"conflict", Conflict("already recording"), http.StatusConflict},
		{"validation", ValidationError("promptId", "unknown"), http.StatusBadRequest},
		{"missing field", MissingFieldError("audioTrackId"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("not a participant"), http.StatusForbidden},
		{"external", ExternalServiceError("egress", fmt.Errorf("boom")), http.StatusBadGateway},
		{"external timeout", ExternalServiceError("llm", fmt.Errorf("chat: %w", context.DeadlineExceeded)), http.StatusGatewayTimeout},
		{"rate limited", RateLimited("slow down"), http.StatusTooManyRequests},
		{"database", DatabaseError("insert", fmt.Errorf("locked")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.GetHTTPCode())
		})
	}
}

func TestAs_WrappedChain(t *testing.T) {
	inner := Forbidden("nope")
	wrapped := fmt.Errorf("running prompt: %w", inner)

	assert.True(t, Is(wrapped, ErrCodeForbidden))
	assert.Equal(t, ErrCodeForbidden, GetCode(wrapped))
	assert.Equal(t, http.StatusForbidden, GetHTTPCode(wrapped))

	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("plain")))
}

func TestRespond(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"app error", NotFound("meeting", "m1"), http.StatusNotFound, "meeting not found"},
		{"plain error", fmt.Errorf("db gone"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			Respond(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body["error"])
		})
	}
}
