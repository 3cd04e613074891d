// Package responder turns an inbound user message into a reply by
// driving the completion engine through a bounded tool loop.
//
// Respond never returns an error. Degraded paths (no provider
// configured, provider failure, empty completions) all collapse to a
// usable reply string so the caller can always deliver something.
package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/logger"
	"github.com/tinyland-inc/hookclaw/pkg/providers/protocoltypes"
	"github.com/tinyland-inc/hookclaw/pkg/tools"
)

const (
	// NotConfiguredReply is returned when no completion provider has
	// credentials.
	NotConfiguredReply = "This assistant is not configured yet. An administrator needs to set a provider API key."

	// fallbackReply is the last resort when the model produced neither
	// text nor usable tool output.
	fallbackReply = "I've handled your request, but I have nothing further to report."

	errorReply = "Sorry, something went wrong while handling that. Please try again."

	defaultMaxToolIterations = 8
	defaultMaxTokens         = 1024
)

// Options tunes a Responder. Zero values pick sensible defaults.
type Options struct {
	Model             string
	MaxTokens         int
	MaxToolIterations int
}

type Responder struct {
	engine        protocoltypes.Engine
	registry      *tools.Registry
	model         string
	maxTokens     int
	maxIterations int
	now           func() time.Time
}

// New builds a Responder. A nil engine is valid and yields the
// not-configured reply for every message.
func New(engine protocoltypes.Engine, registry *tools.Registry, opts Options) *Responder {
	if registry == nil {
		registry = tools.NewRegistry()
	}
	r := &Responder{
		engine:        engine,
		registry:      registry,
		model:         opts.Model,
		maxTokens:     opts.MaxTokens,
		maxIterations: opts.MaxToolIterations,
		now:           time.Now,
	}
	if r.maxTokens <= 0 {
		r.maxTokens = defaultMaxTokens
	}
	if r.maxIterations <= 0 {
		r.maxIterations = defaultMaxToolIterations
	}
	return r
}

// SetClock overrides the clock used in the system prompt. Intended for
// tests.
func (r *Responder) SetClock(now func() time.Time) { r.now = now }

// Respond runs the conversation for a single user message and returns
// the reply text.
func (r *Responder) Respond(ctx context.Context, userMessage string, inv tools.Invocation) string {
	if r.engine == nil {
		return NotConfiguredReply
	}

	messages := []protocoltypes.Message{
		{Role: "system", Content: r.systemPrompt()},
		{Role: "user", Content: userMessage},
	}
	defs := r.registry.Definitions()
	opts := protocoltypes.ChatOptions{Model: r.model, MaxTokens: r.maxTokens}

	var toolRenders []string

	for i := 0; i < r.maxIterations; i++ {
		resp, err := r.engine.Chat(ctx, messages, defs, opts)
		if err != nil {
			logger.ErrorCF("responder", "Completion failed", map[string]any{
				"error": err.Error(),
				"turn":  i,
			})
			return errorReply
		}

		if len(resp.ToolCalls) == 0 {
			return extractReply(resp.Content, toolRenders)
		}

		messages = append(messages, protocoltypes.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, tc := range resp.ToolCalls {
			result := r.registry.Execute(ctx, inv, tc.Name, tc.Arguments)
			render := result.Render()
			logger.DebugCF("responder", "Tool executed", map[string]any{
				"tool":   tc.Name,
				"error":  result.IsError,
				"result": logger.Truncate(render, 120),
			})
			if !result.IsError {
				toolRenders = append(toolRenders, render)
			}
			messages = append(messages, protocoltypes.Message{
				Role:       "tool",
				Content:    render,
				ToolCallID: tc.ID,
			})
		}
	}

	logger.WarnCF("responder", "Tool iteration limit reached", map[string]any{
		"max_iterations": r.maxIterations,
	})
	return extractReply("", toolRenders)
}

// extractReply picks the reply in priority order: the model's own text,
// then the accumulated tool results, then the fixed fallback.
func extractReply(content string, toolRenders []string) string {
	if text := strings.TrimSpace(content); text != "" {
		return text
	}
	if len(toolRenders) > 0 {
		return strings.Join(toolRenders, "\n")
	}
	return fallbackReply
}

func (r *Responder) systemPrompt() string {
	return fmt.Sprintf(`You are a helpful assistant reachable through chat messages.
Today's date is %s.

You can look up the current time, save and read the user's reminders,
and schedule recurring tasks. Use the available tools when the request
calls for them, then answer in one or two short sentences. When a
reminder was not saved because similar ones exist, tell the user which
ones and ask whether they still want it saved.`,
		r.now().Format("Monday, January 2, 2006"))
}
