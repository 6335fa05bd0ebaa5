package umledit

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Conversation is the running transcript sent with each assistant request.
// The system instruction is not part of it; the Assistant prepends its own.
type Conversation struct {
	mu       sync.Mutex
	messages []Message
}

// NewConversation creates a conversation seeded with messages.
func NewConversation(messages ...Message) *Conversation {
	c := &Conversation{}
	c.messages = append(c.messages, messages...)
	return c
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.messages)
}

// Reset clears the transcript.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = nil
}

// appendExchange records a completed prompt/reply pair.
func (c *Conversation) appendExchange(prompt, reply string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages,
		Message{Role: RoleUser, Content: prompt},
		Message{Role: RoleAssistant, Content: reply},
	)
}

// MarshalJSON encodes the transcript as an array of messages.
func (c *Conversation) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Messages())
}

// UnmarshalJSON replaces the transcript. Only user and assistant roles are
// accepted.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("decoding conversation: %w", err)
	}
	for i, m := range messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("decoding conversation: message %d has role %q", i, m.Role)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = messages
	return nil
}
