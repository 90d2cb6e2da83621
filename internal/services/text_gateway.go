package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jwebster45206/hushpath/internal/metrics"
	"github.com/jwebster45206/hushpath/internal/retry"
	"github.com/jwebster45206/hushpath/pkg/chat"
)

// ErrNoTextBackend is returned when neither a bridge nor a backend is set.
var ErrNoTextBackend = errors.New("no text backend configured")

// TextGateway wraps a text backend with the retry policy. A bridge, when
// set, is preferred over the network backend. Failures after the last
// attempt propagate; the gateway never substitutes content.
type TextGateway struct {
	backend LLMService
	bridge  LLMService
	policy  retry.Policy
	logger  *slog.Logger
}

var _ LLMService = (*TextGateway)(nil)

func NewTextGateway(backend LLMService, logger *slog.Logger) *TextGateway {
	return &TextGateway{
		backend: backend,
		policy:  retry.TextPolicy,
		logger:  logger,
	}
}

// WithBridge prefers bridge for every call.
func (g *TextGateway) WithBridge(bridge LLMService) *TextGateway {
	g.bridge = bridge
	return g
}

// WithPolicy overrides the retry policy.
func (g *TextGateway) WithPolicy(p retry.Policy) *TextGateway {
	g.policy = p
	return g
}

func (g *TextGateway) target() LLMService {
	if g.bridge != nil {
		return g.bridge
	}
	return g.backend
}

func (g *TextGateway) Name() string {
	if t := g.target(); t != nil {
		return t.Name()
	}
	return "none"
}

func (g *TextGateway) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	return g.call(ctx, "chat", func(ctx context.Context, t LLMService) (string, error) {
		return t.Chat(ctx, messages)
	})
}

func (g *TextGateway) Generate(ctx context.Context, prompt string) (string, error) {
	return g.call(ctx, "generate", func(ctx context.Context, t LLMService) (string, error) {
		return t.Generate(ctx, prompt)
	})
}

func (g *TextGateway) call(ctx context.Context, op string, fn func(context.Context, LLMService) (string, error)) (string, error) {
	t := g.target()
	if t == nil {
		return "", ErrNoTextBackend
	}
	backend := t.Name()
	start := time.Now()

	notify := func(err error, attempt int, wait time.Duration) {
		metrics.GatewayRetries.WithLabelValues(metrics.GatewayText).Inc()
		g.logger.Warn("Text backend call failed, retrying",
			"backend", backend,
			"op", op,
			"attempt", attempt,
			"retry_in", wait,
			"error", err)
	}
	out, err := retry.Do(ctx, g.policy, notify, func(ctx context.Context) (string, error) {
		return fn(ctx, t)
	})
	metrics.GatewayDuration.WithLabelValues(metrics.GatewayText).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GatewayRequests.WithLabelValues(metrics.GatewayText, backend, metrics.StatusError).Inc()
		g.logger.Error("Text backend call failed", "backend", backend, "op", op, "error", err)
		return "", err
	}
	metrics.GatewayRequests.WithLabelValues(metrics.GatewayText, backend, metrics.StatusSuccess).Inc()
	return out, nil
}

func (g *TextGateway) Ping(ctx context.Context) error {
	t := g.target()
	if t == nil {
		return ErrNoTextBackend
	}
	return t.Ping(ctx)
}

func (g *TextGateway) InitModel(ctx context.Context) error {
	t := g.target()
	if t == nil {
		return ErrNoTextBackend
	}
	return t.InitModel(ctx)
}
