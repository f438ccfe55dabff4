package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pixelmeter/capi-relay/internal/auth"
	"github.com/pixelmeter/capi-relay/internal/capi"
	"github.com/pixelmeter/capi-relay/internal/config"
	"github.com/pixelmeter/capi-relay/internal/handlers"
	"github.com/pixelmeter/capi-relay/internal/store"
)

// NewRouter wires public probes and the CAPI endpoints.
// Public: /health, /ready
// API (optionally keyed): /api/meta/capi, /api/meta/deliveries
// st may be nil; the delivery log is then disabled and /ready skips the DB check.
func NewRouter(cfg config.Config, sender *capi.Sender, st *store.PostgresStore, log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the optional DB dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Auth group is a no-op unless CAPI_API_KEYS is set.
	apiGroup := r.Group("/")
	apiGroup.Use(auth.APIKeyMiddleware(cfg.APIKeys))

	handlers.RegisterCapiRoutes(apiGroup, cfg, sender, st, log)
	handlers.RegisterDeliveryRoutes(apiGroup, st)

	return r
}
