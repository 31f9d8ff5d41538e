package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all agent configuration.
type Config struct {
	APIBaseURL string
	LogLevel   string
	LogFormat  string

	// SessionFile is where the authenticated session is persisted between
	// runs (the agent's equivalent of browser localStorage).
	SessionFile string
	JournalPath string

	// IngestAddr is the localhost address the companion browser extension
	// posts camera frames and tab context to.
	IngestAddr string
	// AllowedOrigins controls CORS on the ingest endpoint. Empty slice
	// means all origins are permitted (dev default).
	AllowedOrigins []string

	FrameInterval  time.Duration
	ScreenInterval time.Duration
	PollInterval   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error, .env is optional

	return &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		SessionFile:    getEnv("SESSION_FILE", defaultStatePath("session.json")),
		JournalPath:    getEnv("JOURNAL_PATH", defaultStatePath("capture-journal.db")),
		IngestAddr:     getEnv("INGEST_ADDR", "127.0.0.1:8750"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		FrameInterval:  getEnvDuration("FRAME_INTERVAL_SECONDS", 2*time.Second),
		ScreenInterval: getEnvDuration("SCREEN_INTERVAL_SECONDS", 5*time.Second),
		PollInterval:   getEnvDuration("POLL_INTERVAL_SECONDS", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	n := getEnvInt(key, 0)
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

// defaultStatePath places agent state under the user config dir, falling
// back to the working directory when it cannot be resolved.
func defaultStatePath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return name
	}
	return filepath.Join(dir, "proctor-agent", name)
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
