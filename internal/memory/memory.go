// Package memory implements Conversation Memory (component E): an
// append-only transcript of the messages exchanged with the model, with a
// bounded-window accessor for building the next prompt.
package memory

import (
	"sync"

	"github.com/tuannvm/llm-tool-engine/internal/llm"
)

// Memory is an append-only, thread-safe transcript.
type Memory struct {
	mu       sync.RWMutex
	messages []llm.Message
}

// New creates an empty Memory.
func New() *Memory {
	return &Memory{}
}

// Append adds one message to the transcript. It never removes or mutates
// prior entries.
func (m *Memory) Append(msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// All returns every message recorded so far, oldest first.
func (m *Memory) All() []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]llm.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Recent returns the last k messages, oldest first within that window. If
// fewer than k messages exist, it returns all of them.
func (m *Memory) Recent(k int) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || k >= len(m.messages) {
		out := make([]llm.Message, len(m.messages))
		copy(out, m.messages)
		return out
	}
	start := len(m.messages) - k
	out := make([]llm.Message, k)
	copy(out, m.messages[start:])
	return out
}

// Len returns the number of messages recorded.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}
