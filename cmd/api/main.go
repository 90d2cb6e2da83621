package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/hushpath/internal/config"
	"github.com/jwebster45206/hushpath/internal/demo"
	"github.com/jwebster45206/hushpath/internal/engine"
	"github.com/jwebster45206/hushpath/internal/events"
	"github.com/jwebster45206/hushpath/internal/handlers"
	"github.com/jwebster45206/hushpath/internal/logger"
	"github.com/jwebster45206/hushpath/internal/services"
	"github.com/jwebster45206/hushpath/internal/storage"
)

func main() {
	// A missing .env is fine; the environment and settings file still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		log.Fatal(err)
	}
	cfg.BindFlags(flag.CommandLine)
	save := flag.Bool("save-settings", false, "write the effective settings to the settings file and exit")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	if *save {
		path := os.Getenv(config.EnvConfigPath)
		if err := config.SaveSettings(path, cfg); err != nil {
			log.Fatal(err)
		}
		fmt.Println("Settings saved")
		return
	}

	log := logger.Setup(cfg)

	log.Info("Starting Hushpath API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"text_provider", cfg.Text.Provider,
		"image_provider", cfg.Image.Provider,
		"model_name", cfg.Text.Model)

	backend, err := newTextBackend(cfg, log)
	if err != nil {
		log.Error("Failed to create text backend", "error", err)
		os.Exit(1)
	}
	text := services.NewTextGateway(backend, log)
	images := services.NewImageGateway(newImageBackend(cfg, log), log)

	store, err := newStore(cfg, log)
	if err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	// Initialize the model on startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := text.InitModel(ctx); err != nil {
		log.Error("Failed to initialize text model", "error", err, "model", cfg.Text.Model)
		os.Exit(1)
	}

	bus := newEventBus(store, log)
	manager := engine.NewManager(engine.Deps{
		Text:   text,
		Images: images,
		Store:  store,
		Logger: log,
		Events: events.NewBroadcaster(bus, log),
	}, cfg.MaxSessions)

	router := handlers.NewRouter(handlers.RouterConfig{
		Health:      handlers.NewHealthHandler(store, text, images, log),
		Game:        handlers.NewGameHandler(manager, cfg.Genre, log),
		Art:         handlers.NewArtHandler(images, text, log),
		Events:      handlers.NewEventsHandler(manager, bus, log),
		Logger:      log,
		TurnTimeout: cfg.Text.Timeout + cfg.Image.Timeout,
	})
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: a turn waits on the model and then on art.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	// Close storage connection
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

func newTextBackend(cfg *config.Config, log *slog.Logger) (services.LLMService, error) {
	switch cfg.Text.Provider {
	case config.ProviderOllama:
		log.Info("Using Ollama text provider", "url", cfg.Text.OllamaURL)
		return services.NewOllamaService(cfg.Text.OllamaURL, cfg.Text.Model, cfg.Text.Timeout, log)
	case config.ProviderOpenAI:
		log.Info("Using OpenAI-compatible text provider", "url", cfg.Text.OpenAIBaseURL)
		return services.NewOpenAIService(cfg.Text.OpenAIBaseURL, cfg.Text.OpenAIAPIKey, cfg.Text.Model, cfg.Text.Timeout, log), nil
	case config.ProviderDemo:
		log.Info("Using offline demo text provider")
		return demo.NewDemoService(log), nil
	default:
		return nil, fmt.Errorf("unknown text provider %q", cfg.Text.Provider)
	}
}

// newImageBackend returns nil for the procedural provider; the gateway then
// draws every image itself.
func newImageBackend(cfg *config.Config, log *slog.Logger) services.ImageBackend {
	if cfg.Image.Provider != config.ProviderSDWebUI {
		log.Info("Using procedural images only")
		return nil
	}
	log.Info("Using Stable Diffusion WebUI image provider", "url", cfg.Image.SDWebUIURL)
	return services.NewSDWebUIService(cfg.Image.SDWebUIURL, cfg.Image.Timeout, log)
}

func newStore(cfg *config.Config, log *slog.Logger) (storage.StoryStore, error) {
	if cfg.RedisURL == "" {
		log.Info("Keeping stories in memory")
		return storage.NewMemoryStore(log), nil
	}

	rs, err := storage.NewRedisStore(cfg.RedisURL, cfg.StoryTTL, log)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := rs.WaitForConnection(ctx, 10, 3*time.Second); err != nil {
		_ = rs.Close()
		return nil, err
	}
	log.Info("Storage connection established successfully")
	return rs, nil
}

// newEventBus shares the story store's Redis connection when there is one.
func newEventBus(store storage.StoryStore, log *slog.Logger) events.Bus {
	if rs, ok := store.(*storage.RedisStore); ok {
		return events.NewRedisBus(rs.Client(), log)
	}
	return events.NewMemoryBus()
}
