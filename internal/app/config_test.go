package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	for _, key := range []string{
		"LABDESK_API_URL", "LABDESK_COOKIE_FILE", "LABDESK_HTTP_TIMEOUT", "LABDESK_PAGE_SIZE",
		"LABDESK_VERBOSE", "ENV", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
		"RATELIMIT_API_REQUESTS", "RATELIMIT_API_WINDOW_SEC", "RATELIMIT_API_BURST",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	require.Equal(t, "http://localhost:5000/api", cfg.APIURL)
	require.Equal(t, filepath.Join(configHome, "labdesk", "cookie"), cfg.CookieFile)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 10, cfg.PageSize)
	require.False(t, cfg.Verbose)
	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Empty(t, cfg.LogFile)
	require.Equal(t, 20, cfg.RateLimit.RequestsPerWindow)
	require.Equal(t, time.Second, cfg.RateLimit.Window)
	require.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("LABDESK_API_URL", "https://labs.example.edu/api")
	t.Setenv("LABDESK_COOKIE_FILE", "/tmp/labdesk-cookie")
	t.Setenv("LABDESK_HTTP_TIMEOUT", "3s")
	t.Setenv("LABDESK_PAGE_SIZE", "25")
	t.Setenv("LABDESK_VERBOSE", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("RATELIMIT_API_REQUESTS", "0")

	cfg := LoadConfig()

	require.Equal(t, "https://labs.example.edu/api", cfg.APIURL)
	require.Equal(t, "/tmp/labdesk-cookie", cfg.CookieFile)
	require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 25, cfg.PageSize)
	require.True(t, cfg.Verbose)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "json", cfg.LogFormat)
	require.False(t, cfg.RateLimit.Enabled())
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 5 * time.Second},
		{"250ms", 250 * time.Millisecond},
		{"30", 30 * time.Second},
		{"soon", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LABDESK_TEST_DURATION", tt.value)
			require.Equal(t, tt.want, getEnvDurationOrDefault("LABDESK_TEST_DURATION", 5*time.Second))
		})
	}
}
