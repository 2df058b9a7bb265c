package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"starlit-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	secretsDir = t.TempDir()
	t.Cleanup(func() { secretsDir = "/run/secrets" })

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 20, cfg.RateLimitPerMinute)
	assert.Equal(t, models.LengthMedium, cfg.LengthTier())
	assert.True(t, cfg.EnableSafetyChecks)
	assert.False(t, cfg.ForceDisableLexicalScreen)
	assert.False(t, cfg.StrictMode)
	assert.Equal(t, 500, cfg.MaxInputLength)
	assert.Equal(t, 10, cfg.HistoryWindow)
	assert.Equal(t, StoreMemory, cfg.ThreadStore)
	assert.Equal(t, AIClientGemini, cfg.AIClientType)
	assert.Equal(t, 60*time.Second, cfg.AITimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.GetAllowedOrigins())
}

func TestLoadConfig_EnvFileAndSecrets(t *testing.T) {
	dir := t.TempDir()
	secretsDir = dir
	t.Cleanup(func() { secretsDir = "/run/secrets" })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "gemini_api_key"), []byte("  key-from-file\n"), 0o600))
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("MAX_ITERATIONS=1\nSTRICT_MODE=true\nDEFAULT_LENGTH_TIER=long\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MAX_ITERATIONS")
		os.Unsetenv("STRICT_MODE")
		os.Unsetenv("DEFAULT_LENGTH_TIER")
	})
	t.Setenv("OPENAI_API_KEY", "key-from-env")

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxIterations)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, models.LengthLong, cfg.LengthTier())
	assert.Equal(t, "key-from-file", cfg.GeminiAPIKey)
	assert.Equal(t, "key-from-env", cfg.OpenAIAPIKey)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{MaxIterations: 3, DefaultLengthTier: "medium", AIClientType: "openai", ThreadStore: "redis"}
	}

	t.Run("valid", func(t *testing.T) {
		cfg := base()
		assert.NoError(t, cfg.Validate())
	})
	t.Run("zero iterations", func(t *testing.T) {
		cfg := base()
		cfg.MaxIterations = 0
		assert.Error(t, cfg.Validate())
	})
	t.Run("negative rate limit", func(t *testing.T) {
		cfg := base()
		cfg.RateLimitPerMinute = -1
		assert.Error(t, cfg.Validate())
	})
	t.Run("bad tier", func(t *testing.T) {
		cfg := base()
		cfg.DefaultLengthTier = "epic"
		assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidLengthTier)
	})
	t.Run("bad client", func(t *testing.T) {
		cfg := base()
		cfg.AIClientType = "mystery"
		assert.Error(t, cfg.Validate())
	})
	t.Run("bad store", func(t *testing.T) {
		cfg := base()
		cfg.ThreadStore = "mongo"
		assert.Error(t, cfg.Validate())
	})
}

func TestGetMaskedDSN(t *testing.T) {
	cfg := Config{DBUser: "story", DBPassword: "secret", DBHost: "db", DBPort: "5432", DBName: "starlit", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://story:secret@db:5432/starlit?sslmode=disable", cfg.GetDSN())
	assert.NotContains(t, cfg.GetMaskedDSN(), "secret")

	cfg.DatabaseURL = "postgres://u:p@h/db"
	assert.Equal(t, "postgres://u:p@h/db", cfg.GetDSN())
}
