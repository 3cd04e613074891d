// Package protocoltypes defines the provider-neutral chat protocol spoken
// between the responder and the completion-engine providers.
package protocoltypes

import "context"

// Message is one turn in a conversation. Role is one of "system", "user",
// "assistant", or "tool"; tool turns carry the ToolCallID they answer.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolDefinition describes a callable tool. Parameters is a JSON-schema
// object with "type", "properties", and optionally "required".
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Response is a provider-neutral completion result.
type Response struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"` // "stop" | "tool_calls" | "length"
	Usage        UsageInfo  `json:"usage"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatOptions carries per-request tuning shared by all providers.
type ChatOptions struct {
	Model     string
	MaxTokens int
}

// Engine is the completion-engine interface the responder depends on.
type Engine interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ChatOptions) (*Response, error)
}
