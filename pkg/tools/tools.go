// Package tools implements the capabilities the responder can invoke
// during a conversation: time lookup, reminder capture and recall, and
// task scheduling.
//
// Every tool receives an explicit Invocation carrying its dependencies
// (ledger, scheduler, caller identity, clock). Tools never reach for
// process-global state.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/ledger"
	"github.com/tinyland-inc/hookclaw/pkg/providers/protocoltypes"
	"github.com/tinyland-inc/hookclaw/pkg/scheduler"
)

// ResultKind tags the shape of a tool result.
type ResultKind string

const (
	KindText       ResultKind = "text"
	KindStructured ResultKind = "structured"
)

// Result is the single result variant every tool returns. Text results
// carry prose for the model; structured results carry a JSON-encodable
// payload that is rendered on demand.
type Result struct {
	Kind       ResultKind
	Text       string
	Structured map[string]any
	IsError    bool
}

func TextResult(text string) Result {
	return Result{Kind: KindText, Text: text}
}

func StructuredResult(payload map[string]any) Result {
	return Result{Kind: KindStructured, Structured: payload}
}

func ErrorResult(format string, args ...any) Result {
	return Result{Kind: KindText, Text: fmt.Sprintf(format, args...), IsError: true}
}

// Render flattens the result into the string handed back to the model.
func (r Result) Render() string {
	if r.Kind == KindStructured {
		b, err := json.Marshal(r.Structured)
		if err != nil {
			return fmt.Sprintf("%v", r.Structured)
		}
		return string(b)
	}
	return r.Text
}

// Invocation carries everything a tool may need for a single call.
type Invocation struct {
	Ledger    *ledger.Store
	Scheduler *scheduler.Service
	Identity  string // stable caller identity, e.g. the Slack user ID
	ChannelID string
	Now       func() time.Time
}

func (inv Invocation) now() time.Time {
	if inv.Now != nil {
		return inv.Now()
	}
	return time.Now()
}

// Tool is one capability exposed to the model.
type Tool interface {
	Definition() protocoltypes.ToolDefinition
	Execute(ctx context.Context, inv Invocation, args map[string]any) Result
}

// Registry holds the tools available to a responder.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns tool definitions in registration order.
func (r *Registry) Definitions() []protocoltypes.ToolDefinition {
	defs := make([]protocoltypes.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute dispatches a call by name. Unknown names come back as error
// results so the model can recover instead of the request failing.
func (r *Registry) Execute(ctx context.Context, inv Invocation, name string, args map[string]any) Result {
	t, ok := r.tools[name]
	if !ok {
		return ErrorResult("unknown tool: %s", name)
	}
	return t.Execute(ctx, inv, args)
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// CurrentTimeTool reports the current time, optionally in a requested
// IANA timezone.
type CurrentTimeTool struct{}

func (t *CurrentTimeTool) Definition() protocoltypes.ToolDefinition {
	return protocoltypes.ToolDefinition{
		Name:        "current_time",
		Description: "Get the current date and time. Optionally pass an IANA timezone name such as Asia/Tokyo.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name. Defaults to UTC.",
				},
			},
		},
	}
}

func (t *CurrentTimeTool) Execute(ctx context.Context, inv Invocation, args map[string]any) Result {
	tz := stringArg(args, "timezone")
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return ErrorResult("unknown timezone %q", tz)
		}
		loc = l
	}
	now := inv.now().In(loc)
	return StructuredResult(map[string]any{
		"time":     now.Format(time.RFC3339),
		"timezone": loc.String(),
		"weekday":  now.Weekday().String(),
	})
}

// CaptureReminderTool appends a reminder to the caller's ledger. When
// similar lines already exist it reports them instead of saving.
type CaptureReminderTool struct{}

func (t *CaptureReminderTool) Definition() protocoltypes.ToolDefinition {
	return protocoltypes.ToolDefinition{
		Name:        "capture_reminder",
		Description: "Save a reminder for the user. Reports existing similar reminders instead of saving a near-duplicate.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "The reminder text to save.",
				},
			},
			"required": []string{"text"},
		},
	}
}

func (t *CaptureReminderTool) Execute(ctx context.Context, inv Invocation, args map[string]any) Result {
	text := stringArg(args, "text")
	if text == "" {
		return ErrorResult("capture_reminder requires a non-empty text argument")
	}
	if inv.Ledger == nil {
		return ErrorResult("reminder storage is not available")
	}

	outcome, err := inv.Ledger.Append(ctx, inv.Identity, text)
	if err != nil {
		return ErrorResult("saving reminder: %v", err)
	}
	if !outcome.Saved {
		return StructuredResult(map[string]any{
			"saved":   false,
			"similar": outcome.Similar,
		})
	}
	return StructuredResult(map[string]any{"saved": true})
}

// ReadRemindersTool returns the caller's reminders, optionally filtered
// by a case-insensitive substring.
type ReadRemindersTool struct{}

func (t *ReadRemindersTool) Definition() protocoltypes.ToolDefinition {
	return protocoltypes.ToolDefinition{
		Name:        "read_reminders",
		Description: "Read the user's saved reminders. Optionally filter by a substring.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filter": map[string]any{
					"type":        "string",
					"description": "Case-insensitive substring filter. Empty returns everything.",
				},
			},
		},
	}
}

func (t *ReadRemindersTool) Execute(ctx context.Context, inv Invocation, args map[string]any) Result {
	if inv.Ledger == nil {
		return ErrorResult("reminder storage is not available")
	}
	lines, err := inv.Ledger.Read(ctx, inv.Identity, stringArg(args, "filter"))
	if err != nil {
		return ErrorResult("reading reminders: %v", err)
	}
	if len(lines) == 0 {
		return TextResult("No reminders found.")
	}
	return StructuredResult(map[string]any{
		"count":     len(lines),
		"reminders": lines,
	})
}

// ScheduleTaskTool creates, lists, and cancels cron-scheduled prompts
// that fire back into the originating channel.
type ScheduleTaskTool struct{}

func (t *ScheduleTaskTool) Definition() protocoltypes.ToolDefinition {
	return protocoltypes.ToolDefinition{
		Name:        "schedule_task",
		Description: "Schedule a recurring task. Actions: create (schedule + prompt), list, cancel (job_id).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type": "string",
					"enum": []string{"create", "list", "cancel"},
				},
				"schedule": map[string]any{
					"type":        "string",
					"description": "Cron expression, e.g. \"0 9 * * 1-5\" for weekday mornings.",
				},
				"prompt": map[string]any{
					"type":        "string",
					"description": "What to do when the task fires.",
				},
				"job_id": map[string]any{
					"type":        "string",
					"description": "Job to cancel.",
				},
			},
			"required": []string{"action"},
		},
	}
}

func (t *ScheduleTaskTool) Execute(ctx context.Context, inv Invocation, args map[string]any) Result {
	if inv.Scheduler == nil {
		return ErrorResult("task scheduling is not available")
	}

	switch action := stringArg(args, "action"); action {
	case "create":
		schedule := stringArg(args, "schedule")
		prompt := stringArg(args, "prompt")
		if schedule == "" || prompt == "" {
			return ErrorResult("create requires schedule and prompt arguments")
		}
		job, err := inv.Scheduler.Add(schedule, prompt, inv.ChannelID, inv.Identity)
		if err != nil {
			return ErrorResult("scheduling task: %v", err)
		}
		return StructuredResult(map[string]any{
			"job_id":   job.ID,
			"schedule": job.Schedule,
			"next_run": job.NextRun.Format(time.RFC3339),
		})

	case "list":
		jobs := inv.Scheduler.List(inv.Identity)
		out := make([]map[string]any, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, map[string]any{
				"job_id":   j.ID,
				"schedule": j.Schedule,
				"prompt":   j.Prompt,
				"next_run": j.NextRun.Format(time.RFC3339),
			})
		}
		sort.Slice(out, func(i, k int) bool {
			return out[i]["next_run"].(string) < out[k]["next_run"].(string)
		})
		return StructuredResult(map[string]any{"jobs": out})

	case "cancel":
		id := stringArg(args, "job_id")
		if id == "" {
			return ErrorResult("cancel requires a job_id argument")
		}
		if err := inv.Scheduler.Remove(id, inv.Identity); err != nil {
			return ErrorResult("canceling task: %v", err)
		}
		return StructuredResult(map[string]any{"canceled": id})

	default:
		return ErrorResult("unknown action %q", action)
	}
}

// DefaultRegistry returns the standard tool set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CurrentTimeTool{})
	r.Register(&CaptureReminderTool{})
	r.Register(&ReadRemindersTool{})
	r.Register(&ScheduleTaskTool{})
	return r
}
