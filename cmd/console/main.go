package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/jwebster45206/hushpath/internal/config"
	"github.com/jwebster45206/hushpath/internal/logger"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	Appearance string
	Genre      string
}

func main() {
	_ = godotenv.Load()

	settings, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load settings: %v\n", err)
		os.Exit(1)
	}

	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:"+settings.Port),
		// A turn waits on the model and then on two images.
		Timeout: settings.Text.Timeout + 2*settings.Image.Timeout,
		Genre:   settings.Genre,
	}
	flag.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "Hushpath API base URL")
	flag.StringVar(&cfg.Appearance, "appearance", "", "how your character looks")
	flag.StringVar(&settings.LogFile, "log-file", settings.LogFile, "log file")
	flag.Parse()

	// The alt screen owns stdout, so logs always go to a file.
	if settings.LogFile == "" {
		settings.LogFile = filepath.Join(os.TempDir(), "hushpath-console.log")
	}
	log := logger.Setup(settings)

	api := newAPIClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.Timeout})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !api.testConnection(ctx) {
		fmt.Fprintf(os.Stderr, "Could not connect to API at %s. Please ensure the API is running.\nTry: go run ./cmd/api -text demo\n", cfg.APIBaseURL)
		os.Exit(1)
	}
	log.Info("Console started", "api", cfg.APIBaseURL)

	p := tea.NewProgram(NewConsoleUI(cfg, api, log),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
