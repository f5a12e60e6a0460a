package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "./WORK", cfg.WorkDir)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.LLM.RequestsPerMinute)
	assert.Equal(t, 8, cfg.LLM.MaxAttempts)
	assert.Equal(t, 0.72, cfg.RAG.NegativeThreshold)
	assert.Equal(t, 0.15, cfg.RAG.NegativePenalty)
	assert.Equal(t, 0.70, cfg.Bible.FuzzyMatchThreshold)
	assert.False(t, cfg.Monitor.Enabled)
}

func TestLoadOverlaysEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "env-key-123")
	t.Setenv("WORK_DIR", "/tmp/lnmtl-work")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-key-123", cfg.LLM.APIKey)
	assert.Equal(t, "/tmp/lnmtl-work", cfg.WorkDir)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	cfg.LLM.Model = "gemini-3-pro"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro", loaded.LLM.Model)
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestValidateRequiresJWTSecretWhenAuthEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "k"
	cfg.Monitor.Enabled = true
	cfg.Security.EnableAuth = true
	cfg.Security.JWTSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt secret")
}

func TestValidateRequiresDashboardUsersWhenAuthEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "k"
	cfg.Monitor.Enabled = true
	cfg.Security.EnableAuth = true
	cfg.Security.JWTSecret = "0123456789abcdef"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dashboard user")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestEnvFallsBackToGeminiKey(t *testing.T) {
	os.Unsetenv("GOOGLE_API_KEY")
	t.Setenv("GEMINI_API_KEY", "gemini-fallback")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini-fallback", cfg.LLM.APIKey)
}
