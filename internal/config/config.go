package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	defaultPort           = 5000
	defaultGeminiModel    = "gemini-1.5-flash"
	defaultSearchDebounce = 300 * time.Millisecond
)

// Config holds all configuration for the application.
type Config struct {
	// Port is the HTTP server port.
	Port int

	// PublicURL is the externally reachable base URL. Blob URLs are built from it.
	PublicURL string

	// GeminiAPIKey authenticates calls to the Gemini API.
	GeminiAPIKey string

	// GeminiModel is the model every chat prompt is sent to.
	GeminiModel string

	// DatabaseURL is the Postgres connection string, used with -storage=postgres.
	DatabaseURL string

	// BlobPath is the SQLite file for uploaded images. Empty keeps them in memory.
	BlobPath string

	// SearchDebounce is how long live search waits after the last keystroke.
	SearchDebounce time.Duration
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	port := defaultPort
	if p := os.Getenv("PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
	}

	publicURL := os.Getenv("PUBLIC_URL")
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://localhost:%d", port)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultGeminiModel
	}

	debounce := defaultSearchDebounce
	if d := os.Getenv("SEARCH_DEBOUNCE"); d != "" {
		var err error
		debounce, err = time.ParseDuration(d)
		if err != nil {
			return nil, fmt.Errorf("invalid SEARCH_DEBOUNCE: %w", err)
		}
	}

	return &Config{
		Port:           port,
		PublicURL:      publicURL,
		GeminiAPIKey:   apiKey,
		GeminiModel:    model,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		BlobPath:       os.Getenv("BLOB_PATH"),
		SearchDebounce: debounce,
	}, nil
}
