package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range []string{"PORT", "PUBLIC_URL", "GEMINI_API_KEY", "GEMINI_MODEL", "DATABASE_URL", "BLOB_PATH", "SEARCH_DEBOUNCE"} {
		t.Setenv(k, env[k])
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"GEMINI_API_KEY": "key"})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "http://localhost:5000", cfg.PublicURL)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 300*time.Millisecond, cfg.SearchDebounce)
	assert.Empty(t, cfg.BlobPath)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":            "8080",
		"PUBLIC_URL":      "https://chirp.example.com",
		"GEMINI_API_KEY":  "key",
		"GEMINI_MODEL":    "gemini-2.0-flash",
		"DATABASE_URL":    "postgres://localhost/chirp",
		"BLOB_PATH":       "/tmp/blobs.db",
		"SEARCH_DEBOUNCE": "150ms",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "https://chirp.example.com", cfg.PublicURL)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, "postgres://localhost/chirp", cfg.DatabaseURL)
	assert.Equal(t, "/tmp/blobs.db", cfg.BlobPath)
	assert.Equal(t, 150*time.Millisecond, cfg.SearchDebounce)
}

func TestLoad_Errors(t *testing.T) {
	setEnv(t, map[string]string{})
	_, err := Load()
	assert.EqualError(t, err, "GEMINI_API_KEY is required")

	setEnv(t, map[string]string{"GEMINI_API_KEY": "key", "PORT": "abc"})
	_, err = Load()
	assert.ErrorContains(t, err, "invalid PORT")

	setEnv(t, map[string]string{"GEMINI_API_KEY": "key", "SEARCH_DEBOUNCE": "soon"})
	_, err = Load()
	assert.ErrorContains(t, err, "invalid SEARCH_DEBOUNCE")
}
