package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pixelmeter/capi-relay/internal/capi"
	"github.com/pixelmeter/capi-relay/internal/config"
	"github.com/pixelmeter/capi-relay/internal/models"
	"github.com/pixelmeter/capi-relay/internal/store"
)

// capiResponse is the POST /api/meta/capi body. Both dispatch success and an
// upstream-reported failure come back with status 200; only missing server
// configuration is a 500.
type capiResponse struct {
	OK               bool                   `json:"ok"`
	Data             map[string]interface{} `json:"data,omitempty"`
	SanitizedPayload *models.EventBatch     `json:"sanitizedPayload,omitempty"`
	Error            string                 `json:"error,omitempty"`
}

// overrideIP extracts a client IP from forwarding headers only. The raw
// socket address is deliberately not used: without a proxy in front it is
// either loopback or the playground host itself, and the body-supplied value
// should win in that case.
func overrideIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		// First hop is the original client.
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return strings.TrimSpace(c.GetHeader("X-Real-IP"))
}

// validateRequest applies the inbound schema rules and returns per-field
// detail for anything malformed.
func validateRequest(req models.EventRequest) map[string]string {
	fields := map[string]string{}

	if req.EventName == "" {
		fields["event_name"] = "required"
	} else if !models.IsStandardEventName(req.EventName) {
		fields["event_name"] = "unsupported event name"
	}

	if req.Mode == "" {
		fields["mode"] = "required"
	} else if !req.Mode.Valid() {
		fields["mode"] = `must be one of "broken", "fixed", "test"`
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// RegisterCapiRoutes registers the event-dispatch endpoints.
//
// POST /api/meta/capi
//   - Validates the request shape before any payload is built
//   - Performs exactly one upstream delivery attempt, no retries
//   - Echoes the outbound payload with the credential redacted
//
// GET /api/meta/capi
//   - Reports whether the upstream credentials are configured
func RegisterCapiRoutes(r gin.IRoutes, cfg config.Config, sender *capi.Sender, st *store.PostgresStore, log zerolog.Logger) {
	r.GET("/api/meta/capi", func(c *gin.Context) {
		msg := "CAPI relay ready"
		if !cfg.Configured() {
			msg = "set META_PIXEL_ID and META_CAPI_ACCESS_TOKEN to enable dispatch"
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":         true,
			"configured": cfg.Configured(),
			"message":    msg,
		})
	})

	r.POST("/api/meta/capi", func(c *gin.Context) {
		var req models.EventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid JSON payload"})
			return
		}

		if fields := validateRequest(req); fields != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"ok":     false,
				"error":  "validation failed",
				"fields": fields,
			})
			return
		}

		// Deduplication id precedence:
		// 1) Idempotency-Key header (recommended for retries)
		// 2) event_id in payload
		// 3) generated UUID inside the builder (cannot dedupe client retries)
		if idem := c.GetHeader("Idempotency-Key"); idem != "" {
			req.EventID = idem
		}

		ov := capi.Overrides{
			ClientIP:        overrideIP(c),
			ClientUserAgent: c.Request.UserAgent(),
		}

		res := sender.Send(c.Request.Context(), req, ov)

		if res.Kind == capi.KindConfiguration {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": res.Error})
			return
		}

		// Delivery log is best-effort: a write failure never changes the
		// dispatch outcome reported to the caller.
		if st != nil && res.SanitizedPayload != nil && len(res.SanitizedPayload.Data) == 1 {
			ev := res.SanitizedPayload.Data[0]
			if err := st.RecordDelivery(
				c.Request.Context(),
				ev.EventID,
				ev.EventName,
				string(req.Mode),
				res.OK,
				res.UpstreamStatus,
				res.Error,
			); err != nil {
				log.Warn().Err(err).Str("event_id", ev.EventID).Msg("delivery log write failed")
			}
		}

		c.JSON(http.StatusOK, capiResponse{
			OK:               res.OK,
			Data:             res.Data,
			SanitizedPayload: res.SanitizedPayload,
			Error:            res.Error,
		})
	})
}
