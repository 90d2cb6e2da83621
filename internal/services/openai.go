package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jwebster45206/hushpath/internal/retry"
	"github.com/jwebster45206/hushpath/pkg/chat"
)

// OpenAIService implements LLMService for OpenAI-compatible servers such as
// llama.cpp, LM Studio or vLLM running on the player's machine.
type OpenAIService struct {
	client    *openai.Client
	baseURL   string
	modelName string
	logger    *slog.Logger
}

var _ LLMService = (*OpenAIService)(nil)

// NewOpenAIService creates a client for baseURL, which must include the
// "/v1" suffix. Local servers usually accept any API key.
func NewOpenAIService(baseURL, apiKey, modelName string, timeout time.Duration, logger *slog.Logger) *OpenAIService {
	if apiKey == "" {
		apiKey = "local"
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIService{
		client:    openai.NewClientWithConfig(cfg),
		baseURL:   cfg.BaseURL,
		modelName: modelName,
		logger:    logger,
	}
}

func (c *OpenAIService) Name() string { return BackendOpenAI }

func (c *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", retry.Permanent(errors.New("no messages provided"))
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	c.logger.Debug("Making OpenAI-compatible chat request",
		"url", c.baseURL+"/chat/completions",
		"model", c.modelName,
		"message_count", len(messages))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.modelName,
		Messages:    msgs,
		Temperature: ChatTemperature,
		TopP:        ChatTopP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Warn("OpenAI-compatible chat request failed", "error", err, "model", c.modelName)
		return "", classifyOpenAIError("chat", err)
	}
	return firstChoice(resp)
}

func (c *OpenAIService) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: GenerateTemperature,
	})
	if err != nil {
		c.logger.Warn("OpenAI-compatible generate request failed", "error", err, "model", c.modelName)
		return "", classifyOpenAIError("generate", err)
	}
	return firstChoice(resp)
}

func firstChoice(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}
	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", retry.Permanent(fmt.Errorf("model refused to respond: %s", msg.Refusal))
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyReply
	}
	return msg.Content, nil
}

func classifyOpenAIError(op string, err error) error {
	wrapped := fmt.Errorf("openai %s failed: %w", op, err)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) &&
		apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 &&
		apiErr.HTTPStatusCode != http.StatusTooManyRequests {
		return retry.Permanent(wrapped)
	}
	return wrapped
}

// ListModels retrieves the model ids served by the endpoint
func (c *OpenAIService) ListModels(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.ID)
	}
	return names, nil
}

func (c *OpenAIService) Ping(ctx context.Context) error {
	_, err := c.ListModels(ctx)
	return err
}

// InitModel checks that the server lists the model. Some servers serve a
// single model under any name, so a missing entry is only logged.
func (c *OpenAIService) InitModel(ctx context.Context) error {
	names, err := c.ListModels(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(names, c.modelName) {
		c.logger.Warn("Model not listed by server", "model", c.modelName, "available", names)
		return nil
	}
	c.logger.Info("Model available", "model", c.modelName)
	return nil
}
