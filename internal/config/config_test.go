package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"META_PIXEL_ID", "META_CAPI_ACCESS_TOKEN", "META_GRAPH_VERSION",
		"META_GRAPH_BASE_URL", "META_TEST_EVENT_CODE", "CAPI_API_KEYS",
		"DB_URL", "PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "v21.0", cfg.GraphVersion)
	assert.Equal(t, "https://graph.facebook.com", cfg.GraphBaseURL)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.APIKeys)
	assert.False(t, cfg.Configured(), "missing credentials must not fail boot, only disable dispatch")
}

func TestLoadConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("META_PIXEL_ID", " 123456789 ")
	t.Setenv("META_CAPI_ACCESS_TOKEN", "secret-token")
	t.Setenv("META_GRAPH_VERSION", "v19.0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.Configured())
	assert.Equal(t, "123456789", cfg.PixelID)
	assert.Equal(t, "v19.0", cfg.GraphVersion)
}

func TestLoadPartialCredentialsNotConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("META_PIXEL_ID", "123456789")

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.Configured())
}

func TestParseAPIKeys(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{"empty disables auth", "", map[string]string{}, false},
		{"single pair", "tenant1:key1", map[string]string{"key1": "tenant1"}, false},
		{"multiple pairs with spaces", " tenant1:key1 , tenant2:key2 ",
			map[string]string{"key1": "tenant1", "key2": "tenant2"}, false},
		{"missing colon", "tenant1key1", nil, true},
		{"empty tenant", ":key1", nil, true},
		{"empty key", "tenant1:", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAPIKeys(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
