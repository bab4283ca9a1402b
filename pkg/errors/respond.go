package errors

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Respond writes err as a JSON error body. Errors without an AppError in their
// chain are logged and reported as a generic internal error.
func Respond(c *gin.Context, err error) {
	appErr, ok := As(err)
	if !ok {
		slog.ErrorContext(c.Request.Context(), "unhandled error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  ErrCodeInternal,
		})
		return
	}

	status := appErr.GetHTTPCode()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), appErr.Message, "error", appErr.Cause, "code", appErr.Code)
	}

	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Code,
	}
	if len(appErr.Details) > 0 && status < http.StatusInternalServerError {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}
