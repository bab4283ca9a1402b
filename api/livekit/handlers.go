package livekit

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/meeting-recorder/api/types"
	"github.com/killallgit/meeting-recorder/internal/logging"
	"github.com/killallgit/meeting-recorder/internal/services/webhook"
)

// MaxBodyBytes bounds a webhook body
const MaxBodyBytes = 1 << 20

// Receive verifies, decodes and dispatches one media server webhook
// @Summary      Receive media server webhook
// @Description  Signed webhook from the media server. Handler failures after verification are logged and still acknowledged.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Authorization header string true "Webhook signature token"
// @Success      200 {object} types.WebhookAck
// @Failure      400 {object} types.ErrorResponse "Invalid signature or payload"
// @Failure      401 {object} types.ErrorResponse "Missing authorization"
// @Router       /webhooks/livekit [post]
func Receive(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxBodyBytes+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "failed to read body", Code: "VALIDATION"})
			return
		}
		if len(body) > MaxBodyBytes {
			c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: "body too large", Code: "VALIDATION"})
			return
		}

		if err := deps.WebhookVerifier.Verify(body, c.GetHeader("Authorization")); err != nil {
			slog.WarnContext(c.Request.Context(), "rejected webhook", logging.ErrKey, err, "remote", c.ClientIP())
			if errors.Is(err, webhook.ErrMissingAuth) {
				c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "missing authorization", Code: "UNAUTHORIZED"})
				return
			}
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid webhook signature", Code: "VALIDATION"})
			return
		}

		event, err := webhook.Decode(body)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "malformed webhook", logging.ErrKey, err)
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid webhook payload", Code: "VALIDATION"})
			return
		}

		attrs := []slog.Attr{slog.String("event", event.Event), slog.String("room", event.RoomName())}
		if event.ID != "" {
			attrs = append(attrs, slog.String("webhook_id", event.ID))
		}
		if event.EgressInfo != nil && event.EgressInfo.EgressID != "" {
			attrs = append(attrs, slog.String("egress_id", event.EgressInfo.EgressID))
		}
		ctx := logging.AppendCtx(c.Request.Context(), attrs...)

		slog.DebugContext(ctx, "Webhook received")
		// Handler failures are already logged by the router; the sender only
		// learns about authentication and payload problems.
		_ = deps.WebhookRouter.Dispatch(ctx, event)

		c.JSON(http.StatusOK, types.WebhookAck{Received: true})
	}
}
