package app

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/labdesk/pkg/httpx"
)

type Config struct {
	APIURL      string        // Backend API root (default: http://localhost:5000/api)
	CookieFile  string        // Where the session cookie persists between runs
	HTTPTimeout time.Duration // Per-request timeout (default: 10s)
	PageSize    int           // Rows per list screen (default: 10)
	Verbose     bool          // Show a busy marker while requests run
	Env         string        // Environment (dev, staging, prod) (default: dev)
	LogLevel    string        // Log level (debug, info, warn, error) (default: warn)
	LogFormat   string        // Log format (json, text) (default: text)
	LogFile     string        // Optional: log to this file instead of stderr
	RateLimit   httpx.RateLimitConfig
}

// LoadConfig reads the environment, after loading a .env file from the
// working directory if one exists.
func LoadConfig() Config {
	_ = godotenv.Load() // A missing .env is normal

	return Config{
		APIURL:      getEnvOrDefault("LABDESK_API_URL", "http://localhost:5000/api"),
		CookieFile:  getEnvOrDefault("LABDESK_COOKIE_FILE", defaultCookieFile()),
		HTTPTimeout: getEnvDurationOrDefault("LABDESK_HTTP_TIMEOUT", 10*time.Second),
		PageSize:    getEnvIntOrDefault("LABDESK_PAGE_SIZE", 10),
		Verbose:     getEnvBoolOrDefault("LABDESK_VERBOSE", false),
		Env:         getEnvOrDefault("ENV", "dev"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:   getEnvOrDefault("LOG_FORMAT", "text"),
		LogFile:     os.Getenv("LOG_FILE"),
		RateLimit: httpx.ParseRateLimitFromEnv("API", httpx.RateLimitConfig{
			RequestsPerWindow: 20,
			Window:            time.Second,
			Burst:             10,
		}),
	}
}

// defaultCookieFile is $XDG_CONFIG_HOME/labdesk/cookie, falling back to the
// working directory when no config directory is known.
func defaultCookieFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".labdesk-cookie"
	}
	return filepath.Join(dir, "labdesk", "cookie")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "30s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
