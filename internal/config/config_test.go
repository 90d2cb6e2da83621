package config

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "none.yaml")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(missingPath(t))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 720*time.Hour, cfg.StoryTTL)
	assert.Equal(t, 100, cfg.MaxSessions)
	assert.Equal(t, "High Fantasy", cfg.Genre)
	assert.Equal(t, ProviderOllama, cfg.Text.Provider)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Text.OllamaURL)
	assert.Equal(t, "llama3.2:3b", cfg.Text.Model)
	assert.Equal(t, 2*time.Minute, cfg.Text.Timeout)
	assert.Equal(t, ProviderSDWebUI, cfg.Image.Provider)
	assert.Equal(t, "http://127.0.0.1:7860", cfg.Image.SDWebUIURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
genre: Noir
text:
  provider: openai
  model: from-file
image:
  provider: procedural
`), 0o600))

	t.Setenv("MODEL_NAME", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "Noir", cfg.Genre)
	assert.Equal(t, ProviderOpenAI, cfg.Text.Provider)
	assert.Equal(t, "from-env", cfg.Text.Model, "env beats file")
	assert.Equal(t, ProviderProcedural, cfg.Image.Provider)
	assert.Equal(t, "http://127.0.0.1:11434", cfg.Text.OllamaURL, "defaults fill gaps")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-model", "from-flag", "-text-timeout", "5s"}))
	assert.Equal(t, "from-flag", cfg.Text.Model, "flag beats env")
	assert.Equal(t, 5*time.Second, cfg.Text.Timeout)
	assert.Equal(t, "9000", cfg.Port, "unset flags keep loaded values")
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSettingsPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", SettingsPath())

	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, "settings.yaml", filepath.Base(SettingsPath()))
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.Text.Model = "qwen2.5:14b"
	cfg.Text.OllamaURL = "http://gpu-box:11434"
	cfg.Text.OpenAIAPIKey = "secret"
	cfg.Genre = "Western"
	require.NoError(t, SaveSettings(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:14b", loaded.Text.Model)
	assert.Equal(t, "http://gpu-box:11434", loaded.Text.OllamaURL)
	assert.Equal(t, "Western", loaded.Genre)
	assert.Equal(t, 2*time.Minute, loaded.Text.Timeout)
	assert.Empty(t, loaded.Text.OpenAIAPIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"demo needs no model", func(c *Config) { c.Text.Provider = ProviderDemo; c.Text.Model = "" }, false},
		{"unknown text provider", func(c *Config) { c.Text.Provider = "gemini" }, true},
		{"unknown image provider", func(c *Config) { c.Image.Provider = "dalle" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing model", func(c *Config) { c.Text.Model = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(missingPath(t))
			require.NoError(t, err)
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, (&Config{LogLevel: in}).Level(), in)
	}
}
