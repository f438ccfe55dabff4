package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelmeter/capi-relay/internal/capi"
	"github.com/pixelmeter/capi-relay/internal/config"
)

func newTestRouter(cfg config.Config) http.Handler {
	sender := capi.NewSender(capi.Config{
		PixelID:      cfg.PixelID,
		AccessToken:  cfg.AccessToken,
		GraphVersion: cfg.GraphVersion,
		GraphBaseURL: cfg.GraphBaseURL,
	}, nil, zerolog.Nop())
	return NewRouter(cfg, sender, nil, zerolog.Nop())
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAlwaysOpen(t *testing.T) {
	r := newTestRouter(config.Config{APIKeys: map[string]string{"key1": "tenant1"}})

	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
}

func TestReadyWithoutStore(t *testing.T) {
	r := newTestRouter(config.Config{})

	// No delivery log configured: nothing to ping, always ready.
	assert.Equal(t, http.StatusOK, get(r, "/ready", nil).Code)
}

func TestAPIOpenWhenNoKeysConfigured(t *testing.T) {
	r := newTestRouter(config.Config{})

	assert.Equal(t, http.StatusOK, get(r, "/api/meta/capi", nil).Code)
}

func TestAPIKeyRequiredWhenConfigured(t *testing.T) {
	r := newTestRouter(config.Config{APIKeys: map[string]string{"key1": "tenant1"}})

	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/meta/capi", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/meta/capi", map[string]string{"X-API-Key": "wrong"}).Code)

	w := get(r, "/api/meta/capi", map[string]string{"X-API-Key": "key1"})
	require.Equal(t, http.StatusOK, w.Code)
}
