// Package config loads settings from, in rising precedence: built-in
// defaults, the settings file, environment variables and command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Text providers
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderDemo   = "demo"
)

// Image providers
const (
	ProviderSDWebUI    = "sdwebui"
	ProviderProcedural = "procedural"
)

// EnvConfigPath overrides the settings file location.
const EnvConfigPath = "HUSHPATH_CONFIG"

type Config struct {
	Environment string        `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	Port        string        `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel    string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFile     string        `yaml:"log_file" env:"LOG_FILE"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"` // empty keeps stories in memory
	StoryTTL    time.Duration `yaml:"story_ttl" env:"STORY_TTL" env-default:"720h"`
	MaxSessions int           `yaml:"max_sessions" env:"MAX_SESSIONS" env-default:"100"`
	Genre       string        `yaml:"genre" env:"GENRE" env-default:"High Fantasy"`
	Text        TextConfig    `yaml:"text"`
	Image       ImageConfig   `yaml:"image"`
}

type TextConfig struct {
	Provider      string        `yaml:"provider" env:"TEXT_PROVIDER" env-default:"ollama"`
	OllamaURL     string        `yaml:"ollama_url" env:"OLLAMA_URL" env-default:"http://127.0.0.1:11434"`
	Model         string        `yaml:"model" env:"MODEL_NAME" env-default:"llama3.2:3b"`
	OpenAIBaseURL string        `yaml:"openai_base_url" env:"OPENAI_BASE_URL" env-default:"http://127.0.0.1:1234/v1"`
	OpenAIAPIKey  string        `yaml:"-" env:"OPENAI_API_KEY"` // never written to disk
	Timeout       time.Duration `yaml:"timeout" env:"TEXT_TIMEOUT" env-default:"2m"`
}

type ImageConfig struct {
	Provider   string        `yaml:"provider" env:"IMAGE_PROVIDER" env-default:"sdwebui"`
	SDWebUIURL string        `yaml:"sdwebui_url" env:"SDWEBUI_URL" env-default:"http://127.0.0.1:7860"`
	Timeout    time.Duration `yaml:"timeout" env:"IMAGE_TIMEOUT" env-default:"90s"`
}

// SettingsPath returns the settings file location: $HUSHPATH_CONFIG, else
// hushpath/settings.yaml under the user config directory.
func SettingsPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.yaml"
	}
	return filepath.Join(dir, "hushpath", "settings.yaml")
}

// Load reads path, or SettingsPath when path is empty. A missing file is
// not an error; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = SettingsPath()
	}

	var cfg Config
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
	case errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to stat settings %s: %w", path, statErr)
	}
	return &cfg, nil
}

// BindFlags registers flags whose defaults are the loaded values, so that
// after fs.Parse any flag given on the command line wins.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, "port", c.Port, "HTTP listen port")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "write logs to this rotating file instead of stdout")
	fs.StringVar(&c.RedisURL, "redis", c.RedisURL, "Redis URL for story storage (empty keeps stories in memory)")
	fs.StringVar(&c.Genre, "genre", c.Genre, "default story genre")
	fs.StringVar(&c.Text.Provider, "text", c.Text.Provider, "text provider: ollama, openai or demo")
	fs.StringVar(&c.Text.OllamaURL, "ollama-url", c.Text.OllamaURL, "Ollama base URL")
	fs.StringVar(&c.Text.Model, "model", c.Text.Model, "text model name")
	fs.StringVar(&c.Text.OpenAIBaseURL, "openai-url", c.Text.OpenAIBaseURL, "OpenAI-compatible base URL")
	fs.DurationVar(&c.Text.Timeout, "text-timeout", c.Text.Timeout, "per-request text timeout")
	fs.StringVar(&c.Image.Provider, "image", c.Image.Provider, "image provider: sdwebui or procedural")
	fs.StringVar(&c.Image.SDWebUIURL, "sdwebui-url", c.Image.SDWebUIURL, "Stable Diffusion WebUI base URL")
	fs.DurationVar(&c.Image.Timeout, "image-timeout", c.Image.Timeout, "per-request image timeout")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains([]string{ProviderOllama, ProviderOpenAI, ProviderDemo}, c.Text.Provider) {
		return fmt.Errorf("unknown text provider %q", c.Text.Provider)
	}
	if !slices.Contains([]string{ProviderSDWebUI, ProviderProcedural}, c.Image.Provider) {
		return fmt.Errorf("unknown image provider %q", c.Image.Provider)
	}
	if _, ok := parseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.Text.Provider != ProviderDemo && c.Text.Model == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	l, _ := parseLogLevel(c.LogLevel)
	return l
}

// SaveSettings writes cfg to path so the next Load starts from it.
func SaveSettings(path string, cfg *Config) error {
	if path == "" {
		path = SettingsPath()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

func parseLogLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
