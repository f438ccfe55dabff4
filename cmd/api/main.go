package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pixelmeter/capi-relay/internal/capi"
	"github.com/pixelmeter/capi-relay/internal/config"
	"github.com/pixelmeter/capi-relay/internal/httpserver"
	"github.com/pixelmeter/capi-relay/internal/store"
)

// main boots the service: env → config → optional delivery log → HTTP server.
func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Local dev convenience; absence of a .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	if !cfg.Configured() {
		// Boot anyway so GET /api/meta/capi can report configured:false;
		// POST answers with a configuration error until credentials are set.
		log.Warn().Msg("META_PIXEL_ID / META_CAPI_ACCESS_TOKEN not set, dispatch disabled")
	}

	// Delivery log is opt-in via DB_URL.
	var db *store.PostgresStore
	if cfg.DBURL != "" {
		db, err = store.NewPostgresStore(cfg.DBURL)
		if err != nil {
			log.Fatal().Err(err).Msg("delivery log connect failed")
		}
		defer db.Close()

		// Ensure required tables/indexes exist so `docker compose up --build` is enough.
		if err := db.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("delivery log schema failed")
		}
	}

	sender := capi.NewSender(capi.Config{
		PixelID:       cfg.PixelID,
		AccessToken:   cfg.AccessToken,
		GraphVersion:  cfg.GraphVersion,
		GraphBaseURL:  cfg.GraphBaseURL,
		TestEventCode: cfg.TestEventCode,
	}, nil, log)

	router := httpserver.NewRouter(cfg, sender, db, log)

	log.Info().Str("port", cfg.Port).Msg("server started")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
