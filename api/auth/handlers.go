package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/services/auth"
)

// Handler manages auth endpoints
type Handler struct {
	authService *auth.Service
}

// NewHandler creates a new auth handler
func NewHandler(authService *auth.Service) *Handler {
	return &Handler{
		authService: authService,
	}
}

// Me returns current user info from JWT
// @Summary Get current user
// @Description Get the user the bearer token authenticates
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} auth.UserInfo
// @Failure 401 {object} types.ErrorResponse
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	claims, exists := c.Get(types.ContextClaims)
	if !exists {
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Unauthorized", Code: "UNAUTHORIZED"})
		return
	}

	c.JSON(http.StatusOK, auth.GetUserInfo(claims.(*auth.Claims)))
}

// AuthMiddleware validates bearer user tokens and stores the user id in the context
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
				Error: "Authorization header required",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
				Error: "Invalid authorization header format",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		claims, err := h.authService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			slog.DebugContext(c.Request.Context(), "rejected user token", logging.ErrKey, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, types.ErrorResponse{
				Error: "Invalid or expired token",
				Code:  "UNAUTHORIZED",
			})
			return
		}

		c.Set(types.ContextClaims, claims)
		c.Set(types.ContextUserID, claims.Sub)
		c.Request = c.Request.WithContext(logging.AppendCtx(c.Request.Context(), slog.String("user_id", claims.Sub)))

		c.Next()
	}
}
