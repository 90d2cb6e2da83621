package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	h := NewHistory("be the engine")
	assert.Equal(t, 1, h.Len())

	pending := h.With(UserMessage("look around"))
	assert.Len(t, pending, 2)
	assert.Equal(t, 1, h.Len(), "With must not commit")

	h.Append(UserMessage("look around"), AgentMessage(`{"narrative":"fog"}`))
	assert.Equal(t, []ChatMessage{
		{Role: ChatRoleSystem, Content: "be the engine"},
		{Role: ChatRoleUser, Content: "look around"},
		{Role: ChatRoleAgent, Content: `{"narrative":"fog"}`},
	}, h.Messages())

	msgs := h.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "be the engine", h.Messages()[0].Content, "Messages returns a copy")

	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Messages())
}

func TestHistory_WithDoesNotAlias(t *testing.T) {
	h := NewHistory("sys")
	a := h.With(UserMessage("a"))
	b := h.With(UserMessage("b"))
	assert.Equal(t, "a", a[1].Content)
	assert.Equal(t, "b", b[1].Content)
}
