package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/jwebster45206/hushpath/internal/retry"
	"github.com/jwebster45206/hushpath/pkg/chat"
)

// ChatBridgeFunc answers an Ollama chat request in-process.
type ChatBridgeFunc func(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)

// GenerateBridgeFunc answers an Ollama generate request in-process.
type GenerateBridgeFunc func(ctx context.Context, req *api.GenerateRequest) (*api.GenerateResponse, error)

var errBridgeUnavailable = errors.New("bridge function not provided")

// BridgeService sends the same request shapes as OllamaService through
// host-provided functions instead of the network. Hosts embedding the
// engine use it when they already own a model runtime.
type BridgeService struct {
	modelName string
	chat      ChatBridgeFunc
	generate  GenerateBridgeFunc
	logger    *slog.Logger
}

var _ LLMService = (*BridgeService)(nil)

func NewBridgeService(modelName string, chatFn ChatBridgeFunc, generateFn GenerateBridgeFunc, logger *slog.Logger) *BridgeService {
	return &BridgeService{
		modelName: modelName,
		chat:      chatFn,
		generate:  generateFn,
		logger:    logger,
	}
}

func (b *BridgeService) Name() string { return BackendBridge }

func (b *BridgeService) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	if b.chat == nil {
		return "", retry.Permanent(errBridgeUnavailable)
	}
	resp, err := b.chat(ctx, newChatRequest(b.modelName, messages))
	if err != nil {
		return "", fmt.Errorf("bridge chat failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return "", ErrEmptyReply
	}
	return resp.Message.Content, nil
}

func (b *BridgeService) Generate(ctx context.Context, prompt string) (string, error) {
	if b.generate == nil {
		return "", retry.Permanent(errBridgeUnavailable)
	}
	resp, err := b.generate(ctx, newGenerateRequest(b.modelName, prompt))
	if err != nil {
		return "", fmt.Errorf("bridge generate failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Response) == "" {
		return "", ErrEmptyReply
	}
	return resp.Response, nil
}

func (b *BridgeService) Ping(ctx context.Context) error {
	if b.chat == nil {
		return errBridgeUnavailable
	}
	return nil
}

func (b *BridgeService) InitModel(ctx context.Context) error {
	b.logger.Info("Using in-process model bridge", "model", b.modelName)
	return nil
}
