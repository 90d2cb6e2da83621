package chat

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Engine
	ChatRoleSystem = "system"    // Engine instructions
)

// ChatMessage represents a single chat message in the conversation.
// It mirrors the message shape of Ollama's chat API.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleSystem, Content: content}
}

func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleUser, Content: content}
}

func AgentMessage(content string) ChatMessage {
	return ChatMessage{Role: ChatRoleAgent, Content: content}
}

// History is an append-only conversation log. It is not safe for
// concurrent use; the owning session serializes access.
type History struct {
	messages []ChatMessage
}

// NewHistory starts a conversation with a system instruction.
func NewHistory(system string) *History {
	return &History{messages: []ChatMessage{SystemMessage(system)}}
}

// With returns a copy of the history followed by extra, leaving h unchanged.
// Callers use it to send a pending turn before deciding to commit it.
func (h *History) With(extra ...ChatMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(h.messages)+len(extra))
	out = append(out, h.messages...)
	return append(out, extra...)
}

// Append commits messages to the log.
func (h *History) Append(msgs ...ChatMessage) {
	h.messages = append(h.messages, msgs...)
}

// Messages returns a copy of the log.
func (h *History) Messages() []ChatMessage {
	return h.With()
}

func (h *History) Len() int {
	return len(h.messages)
}

// Reset drops every message, including the system instruction.
func (h *History) Reset() {
	h.messages = nil
}
