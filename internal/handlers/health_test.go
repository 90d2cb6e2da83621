package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/hushpath/internal/services"
	"github.com/jwebster45206/hushpath/internal/storage"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))

	tests := []struct {
		name           string
		setupStore     func() Pinger
		setupText      func() Pinger
		setupImages    func() Pinger
		expectedStatus int
		expectedHealth string
		expectedStore  string
		expectedText   string
		expectedImage  string
	}{
		{
			name:           "all healthy",
			setupStore:     func() Pinger { return storage.NewMemoryStore(logger) },
			setupText:      func() Pinger { return services.NewMockLLMAPI() },
			setupImages:    func() Pinger { return services.NewMockImageBackend() },
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedStore:  "healthy",
			expectedText:   "healthy",
			expectedImage:  "healthy",
		},
		{
			name: "unhealthy store",
			setupStore: func() Pinger {
				s := storage.NewMemoryStore(logger)
				s.SetPingError(errors.New("connection failed"))
				return s
			},
			setupText:      func() Pinger { return services.NewMockLLMAPI() },
			setupImages:    func() Pinger { return nil },
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedStore:  "unhealthy",
			expectedText:   "healthy",
			expectedImage:  "procedural",
		},
		{
			name:       "unhealthy text backend",
			setupStore: func() Pinger { return storage.NewMemoryStore(logger) },
			setupText: func() Pinger {
				m := services.NewMockLLMAPI()
				m.SetPingError(errors.New("ollama connection failed"))
				return m
			},
			setupImages:    func() Pinger { return services.NewMockImageBackend() },
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedStore:  "healthy",
			expectedText:   "unhealthy",
			expectedImage:  "healthy",
		},
		{
			name:       "image backend down does not degrade",
			setupStore: func() Pinger { return storage.NewMemoryStore(logger) },
			setupText:  func() Pinger { return services.NewMockLLMAPI() },
			setupImages: func() Pinger {
				m := services.NewMockImageBackend()
				m.PingFunc = func(ctx context.Context) error { return errors.New("down") }
				return m
			},
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedStore:  "healthy",
			expectedText:   "healthy",
			expectedImage:  "procedural fallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupStore(), tt.setupText(), tt.setupImages(), logger)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var response HealthResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

			assert.Equal(t, tt.expectedHealth, response.Status)
			assert.Equal(t, "hushpath", response.Service)
			assert.Equal(t, tt.expectedStore, response.Components["store"])
			assert.Equal(t, tt.expectedText, response.Components["text"])
			assert.Equal(t, tt.expectedImage, response.Components["image"])
			assert.Less(t, time.Since(response.Timestamp), time.Second)
		})
	}
}
