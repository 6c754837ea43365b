// Package types provides the core types shared by the groupchat packages.
// This package has ZERO dependencies on other groupchat packages to avoid circular imports.
package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TerminateSentinel marks a group chat termination request. It travels inside
// message text and is detected by substring containment.
const TerminateSentinel = "[GROUPCHAT_TERMINATE]"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall represents a function invocation requested by a reply.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message is one turn's output. Values are never mutated once published to a
// conversation history; the With* helpers return modified copies.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	From       string     `json:"from,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Structured any        `json:"structured,omitempty"`
	Timestamp  time.Time  `json:"timestamp,omitempty"`
}

// NewMessage creates a new message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a new assistant message sent by from.
func NewAssistantMessage(content, from string) Message {
	return NewMessage(RoleAssistant, content).WithFrom(from)
}

// IsTerminate reports whether the content carries the termination sentinel.
func (m Message) IsTerminate() bool {
	return strings.Contains(m.Content, TerminateSentinel)
}

// WithFrom returns a copy of the message attributed to from.
func (m Message) WithFrom(from string) Message {
	m.From = from
	return m
}

// WithContent returns a copy of the message with new content.
func (m Message) WithContent(content string) Message {
	m.Content = content
	return m
}

// WithToolCalls returns a copy of the message carrying calls.
func (m Message) WithToolCalls(calls []ToolCall) Message {
	m.ToolCalls = append([]ToolCall(nil), calls...)
	return m
}

// WithStructured returns a copy of the message carrying a structured payload.
func (m Message) WithStructured(payload any) Message {
	m.Structured = payload
	return m
}

// CloneMessages returns a shallow copy of msgs so that callers can't append
// into a shared backing array.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
