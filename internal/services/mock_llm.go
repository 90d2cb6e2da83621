package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/hushpath/pkg/chat"
)

// MockReply is a minimal valid engine reply returned by MockLLMAPI.Chat
// when no ChatFunc is set.
const MockReply = `{"narrative":"Mock response","visualDescription":"","playerState":{"name":"Mock","class":"Tester","hp":10,"maxHp":10,"location":"Nowhere","turn":1},"suggestedActions":["Wait"],"requiresChoice":false,"gameOver":false}`

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc func(ctx context.Context) error
	ChatFunc      func(ctx context.Context, messages []chat.ChatMessage) (string, error)
	GenerateFunc  func(ctx context.Context, prompt string) (string, error)
	PingFunc      func(ctx context.Context) error

	// Track calls for testing
	InitModelCalls int
	ChatCalls      []ChatCall
	GenerateCalls  []string
	PingCalls      int

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
}

var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		ChatCalls:     make([]ChatCall, 0),
		GenerateCalls: make([]string, 0),
	}
}

func (m *MockLLMAPI) Name() string { return BackendMock }

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context) error {
	m.mu.Lock()
	m.InitModelCalls++
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Chat mocks a chat request
func (m *MockLLMAPI) Chat(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	m.mu.Lock()
	copied := make([]chat.ChatMessage, len(messages))
	copy(copied, messages)
	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: copied})
	fn := m.ChatFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, messages)
	}
	return MockReply, nil
}

// Generate mocks a completion request
func (m *MockLLMAPI) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, prompt)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return "/\\\n\\/", nil
}

// Ping mocks a health check
func (m *MockLLMAPI) Ping(ctx context.Context) error {
	m.mu.Lock()
	m.PingCalls++
	fn := m.PingFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = 0
	m.ChatCalls = make([]ChatCall, 0)
	m.GenerateCalls = make([]string, 0)
	m.PingCalls = 0
}

// SetChatResponse makes Chat return reply
func (m *MockLLMAPI) SetChatResponse(reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return reply, nil
	}
}

// SetChatError makes Chat fail with err
func (m *MockLLMAPI) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "", err
	}
}

// SetGenerateError makes Generate fail with err
func (m *MockLLMAPI) SetGenerateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", err
	}
}

// SetPingError makes Ping fail with err
func (m *MockLLMAPI) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingFunc = func(ctx context.Context) error {
		return err
	}
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockLLMAPI) GetCalls() ([]ChatCall, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chatCalls := make([]ChatCall, len(m.ChatCalls))
	copy(chatCalls, m.ChatCalls)

	generateCalls := make([]string, len(m.GenerateCalls))
	copy(generateCalls, m.GenerateCalls)

	return chatCalls, generateCalls
}
