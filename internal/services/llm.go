package services

import (
	"context"
	"errors"

	"github.com/jwebster45206/hushpath/pkg/chat"
)

// Backend names used in logs, metrics and configuration
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendBridge = "bridge"
	BackendDemo   = "demo"
	BackendMock   = "mock"
)

// ErrEmptyReply is returned when a backend answers with no content.
var ErrEmptyReply = errors.New("model returned an empty reply")

// LLMService defines the interface for interacting with a text model
type LLMService interface {
	// InitModel makes sure the configured model can serve requests
	InitModel(ctx context.Context) error

	// Chat sends the full conversation and returns the raw reply, which is
	// expected to hold a JSON object
	Chat(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// Generate runs a single completion prompt and returns the raw text
	Generate(ctx context.Context, prompt string) (string, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	// Name identifies the backend
	Name() string
}

// Sampling parameters shared by every text backend. Chat replies drive
// game state, so they are asked for as JSON; completions are free text.
const (
	ChatTemperature     = 0.8
	ChatTopP            = 0.9
	ChatRepeatPenalty   = 1.1
	ChatContextTokens   = 4096
	GenerateTemperature = 0.7
	GenerateContextSize = 2048
)

func chatOptions() map[string]any {
	return map[string]any{
		"temperature":    ChatTemperature,
		"top_p":          ChatTopP,
		"repeat_penalty": ChatRepeatPenalty,
		"num_ctx":        ChatContextTokens,
	}
}

func generateOptions() map[string]any {
	return map[string]any{
		"temperature": GenerateTemperature,
		"num_ctx":     GenerateContextSize,
	}
}
