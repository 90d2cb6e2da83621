package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/hushpath/internal/retry"
	"github.com/jwebster45206/hushpath/pkg/chat"
)

func TestTextGateway_RetriesOnce(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantErr   bool
		wantCalls int
	}{
		{name: "first attempt succeeds", failures: 0, wantCalls: 1},
		{name: "retry succeeds", failures: 1, wantCalls: 2},
		{name: "both attempts fail", failures: 2, wantErr: true, wantCalls: 2},
		{name: "never more than two attempts", failures: 5, wantErr: true, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := NewMockLLMAPI()
			calls := 0
			backend.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", errors.New("connection refused")
				}
				return "{}", nil
			}

			gw := NewTextGateway(backend, testLogger()).WithPolicy(fastPolicy(retry.TextPolicy.Attempts))
			out, err := gw.Chat(context.Background(), []chat.ChatMessage{chat.UserMessage("look")})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "{}", out)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestTextGateway_PermanentErrorNotRetried(t *testing.T) {
	backend := NewMockLLMAPI()
	calls := 0
	backend.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", retry.Permanent(errors.New("model not found"))
	}

	gw := NewTextGateway(backend, testLogger()).WithPolicy(fastPolicy(2))
	_, err := gw.Generate(context.Background(), "draw")
	assert.EqualError(t, err, "model not found")
	assert.Equal(t, 1, calls)
}

func TestTextGateway_PrefersBridge(t *testing.T) {
	backend := NewMockLLMAPI()
	var got *api.ChatRequest
	bridge := NewBridgeService("llama3.2:3b", func(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
		got = req
		return &api.ChatResponse{Message: api.Message{Role: "assistant", Content: `{"ok":true}`}}, nil
	}, nil, testLogger())

	gw := NewTextGateway(backend, testLogger()).WithBridge(bridge).WithPolicy(fastPolicy(2))
	assert.Equal(t, BackendBridge, gw.Name())

	out, err := gw.Chat(context.Background(), []chat.ChatMessage{chat.SystemMessage("sys"), chat.UserMessage("go")})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	chatCalls, _ := backend.GetCalls()
	assert.Empty(t, chatCalls, "network backend must not be used")

	require.NotNil(t, got)
	assert.Equal(t, "llama3.2:3b", got.Model)
	assert.Len(t, got.Messages, 2)
	require.NotNil(t, got.Stream)
	assert.False(t, *got.Stream)
	assert.JSONEq(t, `"json"`, string(got.Format))
	assert.Equal(t, ChatTemperature, got.Options["temperature"])
	assert.Equal(t, ChatContextTokens, got.Options["num_ctx"])

	// Generate is not provided by this bridge and fails without retries.
	_, err = gw.Generate(context.Background(), "draw")
	assert.Error(t, err)
}

func TestTextGateway_NoBackend(t *testing.T) {
	gw := NewTextGateway(nil, testLogger())
	_, err := gw.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTextBackend)
	assert.ErrorIs(t, gw.Ping(context.Background()), ErrNoTextBackend)
}
