package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/jwebster45206/hushpath/internal/retry"
	"github.com/jwebster45206/hushpath/pkg/chat"
)

// jsonFormat asks Ollama to constrain output to a JSON object.
var jsonFormat = json.RawMessage(`"json"`)

// readinessPolicy is used while waiting for a freshly started Ollama.
var readinessPolicy = retry.Policy{Attempts: 5, Initial: 2 * time.Second}

// OllamaService implements the LLMService interface for Ollama API
type OllamaService struct {
	client    *api.Client
	baseURL   string
	modelName string
	logger    *slog.Logger
}

var _ LLMService = (*OllamaService)(nil)

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL, modelName string, timeout time.Duration, logger *slog.Logger) (*OllamaService, error) {
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	httpClient := &http.Client{Timeout: timeout}

	return &OllamaService{
		client:    api.NewClient(parsed, httpClient),
		baseURL:   baseURL,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (s *OllamaService) Name() string { return BackendOllama }

// newChatRequest builds the non-streaming JSON chat request. The bridge
// sends the same shape.
func newChatRequest(model string, messages []chat.ChatMessage) *api.ChatRequest {
	stream := false
	msgs := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
	}
	return &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
		Format:   jsonFormat,
		Options:  chatOptions(),
	}
}

func newGenerateRequest(model, prompt string) *api.GenerateRequest {
	stream := false
	return &api.GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: generateOptions(),
	}
}

// Chat generates a chat response using the Ollama API (non-streaming)
func (s *OllamaService) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	req := newChatRequest(s.modelName, messages)

	s.logger.Debug("Making Ollama chat request",
		"url", s.baseURL+"/api/chat",
		"model", s.modelName,
		"message_count", len(messages))

	var content strings.Builder
	err := s.client.Chat(ctx, req, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		return nil
	})
	if err != nil {
		s.logger.Warn("Ollama chat request failed", "error", err, "model", s.modelName)
		return "", classifyOllamaError("chat", err)
	}
	if strings.TrimSpace(content.String()) == "" {
		return "", ErrEmptyReply
	}
	return content.String(), nil
}

// Generate runs a plain completion using the Ollama API (non-streaming)
func (s *OllamaService) Generate(ctx context.Context, prompt string) (string, error) {
	req := newGenerateRequest(s.modelName, prompt)

	s.logger.Debug("Making Ollama generate request",
		"url", s.baseURL+"/api/generate",
		"model", s.modelName,
		"prompt_length", len(prompt))

	var content strings.Builder
	err := s.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		content.WriteString(r.Response)
		return nil
	})
	if err != nil {
		s.logger.Warn("Ollama generate request failed", "error", err, "model", s.modelName)
		return "", classifyOllamaError("generate", err)
	}
	if strings.TrimSpace(content.String()) == "" {
		return "", ErrEmptyReply
	}
	return content.String(), nil
}

// classifyOllamaError wraps err and marks client errors other than rate
// limiting as permanent; a missing model will not appear on retry.
func classifyOllamaError(op string, err error) error {
	wrapped := fmt.Errorf("ollama %s failed: %w", op, err)
	var statusErr api.StatusError
	if errors.As(err, &statusErr) &&
		statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 &&
		statusErr.StatusCode != http.StatusTooManyRequests {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

func (s *OllamaService) Ping(ctx context.Context) error {
	if err := s.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}

// InitModel waits for Ollama to answer and pulls the model if it is missing
func (s *OllamaService) InitModel(ctx context.Context) error {
	s.logger.Info("Initializing LLM model", "model", s.modelName)

	notify := func(err error, attempt int, wait time.Duration) {
		s.logger.Debug("Ollama not ready yet", "error", err, "attempt", attempt, "retry_in", wait)
	}
	_, err := retry.Do(ctx, readinessPolicy, notify, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	ready, err := s.isModelReady(ctx)
	if err != nil {
		return fmt.Errorf("failed to check model readiness: %w", err)
	}
	if ready {
		s.logger.Info("Model already available", "model", s.modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", s.modelName)
	lastStatus := ""
	err = s.client.Pull(ctx, &api.PullRequest{Model: s.modelName}, func(p api.ProgressResponse) error {
		if p.Status != lastStatus {
			s.logger.Info("Pulling model", "model", s.modelName, "status", p.Status)
			lastStatus = p.Status
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}
	s.logger.Info("Model pulled successfully", "model", s.modelName)
	return nil
}

// isModelReady checks if the configured model is available locally. Ollama
// reports untagged names with ":latest".
func (s *OllamaService) isModelReady(ctx context.Context) (bool, error) {
	list, err := s.client.List(ctx)
	if err != nil {
		return false, err
	}
	want := s.modelName
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, m := range list.Models {
		if m.Name == s.modelName || m.Name == want || m.Model == s.modelName || m.Model == want {
			return true, nil
		}
	}
	return false, nil
}
