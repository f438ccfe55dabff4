package config

import (
	"errors"
	"os"
	"strings"
)

// Config contains runtime configuration required by the service.
// It is built once in main and passed down explicitly; nothing below main
// reads environment variables.
type Config struct {
	PixelID       string // Meta destination (dataset/pixel) id
	AccessToken   string // CAPI credential, server-side only
	GraphVersion  string // e.g. "v21.0"
	GraphBaseURL  string // overridable so tests can point at a stub
	TestEventCode string // optional default test_event_code

	DBURL   string            // optional: enables the delivery log
	APIKeys map[string]string // optional: apiKey -> tenantID; empty = open API
	Port    string
}

const (
	defaultGraphVersion = "v21.0"
	defaultGraphBaseURL = "https://graph.facebook.com"
	defaultPort         = "8080"
)

// Configured reports whether the upstream credential pair is present.
// The service still boots without it so GET /api/meta/capi can say so.
func (c Config) Configured() bool {
	return c.PixelID != "" && c.AccessToken != ""
}

// Load reads values from environment variables.
// CAPI_API_KEYS format: "tenant1:key1,tenant2:key2" (same shape as an
// API_KEYS gateway mapping; leave unset for an open endpoint).
func Load() (Config, error) {
	cfg := Config{
		PixelID:       strings.TrimSpace(os.Getenv("META_PIXEL_ID")),
		AccessToken:   strings.TrimSpace(os.Getenv("META_CAPI_ACCESS_TOKEN")),
		GraphVersion:  strings.TrimSpace(os.Getenv("META_GRAPH_VERSION")),
		GraphBaseURL:  strings.TrimSpace(os.Getenv("META_GRAPH_BASE_URL")),
		TestEventCode: strings.TrimSpace(os.Getenv("META_TEST_EVENT_CODE")),
		DBURL:         strings.TrimSpace(os.Getenv("DB_URL")),
		Port:          strings.TrimSpace(os.Getenv("PORT")),
	}

	if cfg.GraphVersion == "" {
		cfg.GraphVersion = defaultGraphVersion
	}
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = defaultGraphBaseURL
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	apiKeys, err := parseAPIKeys(os.Getenv("CAPI_API_KEYS"))
	if err != nil {
		return Config{}, err
	}
	cfg.APIKeys = apiKeys

	return cfg, nil
}

// parseAPIKeys parses "tenant:key,tenant:key" into apiKey -> tenantID.
// An empty input yields an empty map, which disables auth entirely.
func parseAPIKeys(raw string) (map[string]string, error) {
	apiKeys := map[string]string{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return apiKeys, nil
	}

	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 {
			return nil, errors.New(`CAPI_API_KEYS must be "tenant:key,tenant:key"`)
		}
		tenant := strings.TrimSpace(parts[0])
		key := strings.TrimSpace(parts[1])
		if tenant == "" || key == "" {
			return nil, errors.New(`CAPI_API_KEYS must be "tenant:key,tenant:key"`)
		}
		apiKeys[key] = tenant
	}

	return apiKeys, nil
}
