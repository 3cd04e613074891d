package tools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/ledger"
	"github.com/tinyland-inc/hookclaw/pkg/scheduler"
	"github.com/tinyland-inc/hookclaw/pkg/store"
)

func testInvocation(t *testing.T) Invocation {
	t.Helper()
	return Invocation{
		Ledger:    ledger.NewStore(store.NewMemory().AsBlob(), "reminders"),
		Scheduler: scheduler.NewService(filepath.Join(t.TempDir(), "jobs.json")),
		Identity:  "U123",
		ChannelID: "C456",
		Now: func() time.Time {
			return time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
		},
	}
}

func structured(t *testing.T, r Result) map[string]any {
	t.Helper()
	if r.Kind != KindStructured {
		t.Fatalf("result kind = %q, want structured (text: %q)", r.Kind, r.Text)
	}
	return r.Structured
}

func TestResult_RenderText(t *testing.T) {
	r := TextResult("hello")
	if got := r.Render(); got != "hello" {
		t.Errorf("Render() = %q, want hello", got)
	}
}

func TestResult_RenderStructuredIsJSON(t *testing.T) {
	r := StructuredResult(map[string]any{"saved": true})
	var decoded map[string]any
	if err := json.Unmarshal([]byte(r.Render()), &decoded); err != nil {
		t.Fatalf("Render() is not valid JSON: %v", err)
	}
	if decoded["saved"] != true {
		t.Errorf("decoded = %v, want saved:true", decoded)
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := DefaultRegistry()
	res := r.Execute(context.Background(), testInvocation(t), "launch_rockets", nil)
	if !res.IsError {
		t.Fatal("Execute() of unknown tool did not return an error result")
	}
	if !strings.Contains(res.Text, "launch_rockets") {
		t.Errorf("error text %q does not name the tool", res.Text)
	}
}

func TestRegistry_DefinitionsOrdered(t *testing.T) {
	defs := DefaultRegistry().Definitions()
	want := []string{"current_time", "capture_reminder", "read_reminders", "schedule_task"}
	if len(defs) != len(want) {
		t.Fatalf("len(Definitions()) = %d, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("Definitions()[%d].Name = %q, want %q", i, defs[i].Name, name)
		}
	}
}

func TestCurrentTime_DefaultUTC(t *testing.T) {
	res := (&CurrentTimeTool{}).Execute(context.Background(), testInvocation(t), nil)
	payload := structured(t, res)
	if payload["timezone"] != "UTC" {
		t.Errorf("timezone = %v, want UTC", payload["timezone"])
	}
	if payload["time"] != "2026-03-01T08:30:00Z" {
		t.Errorf("time = %v", payload["time"])
	}
}

func TestCurrentTime_Timezone(t *testing.T) {
	inv := testInvocation(t)
	res := (&CurrentTimeTool{}).Execute(context.Background(), inv, map[string]any{"timezone": "Asia/Tokyo"})
	payload := structured(t, res)
	if payload["timezone"] != "Asia/Tokyo" {
		t.Errorf("timezone = %v, want Asia/Tokyo", payload["timezone"])
	}
	// 08:30 UTC is 17:30 in Tokyo.
	if payload["time"] != "2026-03-01T17:30:00+09:00" {
		t.Errorf("time = %v", payload["time"])
	}
}

func TestCurrentTime_BadTimezone(t *testing.T) {
	res := (&CurrentTimeTool{}).Execute(context.Background(), testInvocation(t), map[string]any{"timezone": "Mars/Olympus"})
	if !res.IsError {
		t.Fatal("expected error result for unknown timezone")
	}
}

func TestCaptureReminder_SaveAndDuplicate(t *testing.T) {
	inv := testInvocation(t)
	tool := &CaptureReminderTool{}
	ctx := context.Background()

	res := tool.Execute(ctx, inv, map[string]any{"text": "call dentist tomorrow morning"})
	if payload := structured(t, res); payload["saved"] != true {
		t.Fatalf("first capture payload = %v, want saved:true", payload)
	}

	res = tool.Execute(ctx, inv, map[string]any{"text": "call the dentist tomorrow"})
	payload := structured(t, res)
	if payload["saved"] != false {
		t.Fatalf("near-duplicate payload = %v, want saved:false", payload)
	}
	similar, ok := payload["similar"].([]string)
	if !ok || len(similar) != 1 {
		t.Fatalf("similar = %v, want one entry", payload["similar"])
	}
	if !strings.Contains(similar[0], "call dentist tomorrow morning") {
		t.Errorf("similar[0] = %q", similar[0])
	}
}

func TestCaptureReminder_EmptyText(t *testing.T) {
	res := (&CaptureReminderTool{}).Execute(context.Background(), testInvocation(t), nil)
	if !res.IsError {
		t.Fatal("expected error result for missing text")
	}
}

func TestReadReminders_EmptyAndFiltered(t *testing.T) {
	inv := testInvocation(t)
	ctx := context.Background()

	res := (&ReadRemindersTool{}).Execute(ctx, inv, nil)
	if res.Kind != KindText || res.Text != "No reminders found." {
		t.Fatalf("empty read = %+v", res)
	}

	(&CaptureReminderTool{}).Execute(ctx, inv, map[string]any{"text": "water the plants"})
	(&CaptureReminderTool{}).Execute(ctx, inv, map[string]any{"text": "renew passport before June"})

	res = (&ReadRemindersTool{}).Execute(ctx, inv, map[string]any{"filter": "passport"})
	payload := structured(t, res)
	if payload["count"] != 1 {
		t.Errorf("count = %v, want 1", payload["count"])
	}
}

func TestScheduleTask_CreateListCancel(t *testing.T) {
	inv := testInvocation(t)
	tool := &ScheduleTaskTool{}
	ctx := context.Background()

	res := tool.Execute(ctx, inv, map[string]any{
		"action":   "create",
		"schedule": "0 9 * * *",
		"prompt":   "post the standup summary",
	})
	created := structured(t, res)
	jobID, _ := created["job_id"].(string)
	if jobID == "" {
		t.Fatalf("create payload = %v, missing job_id", created)
	}

	res = tool.Execute(ctx, inv, map[string]any{"action": "list"})
	jobs, _ := structured(t, res)["jobs"].([]map[string]any)
	if len(jobs) != 1 {
		t.Fatalf("list returned %d jobs, want 1", len(jobs))
	}
	if jobs[0]["prompt"] != "post the standup summary" {
		t.Errorf("listed prompt = %v", jobs[0]["prompt"])
	}

	res = tool.Execute(ctx, inv, map[string]any{"action": "cancel", "job_id": jobID})
	if structured(t, res)["canceled"] != jobID {
		t.Errorf("cancel payload = %v", res.Structured)
	}

	res = tool.Execute(ctx, inv, map[string]any{"action": "cancel", "job_id": jobID})
	if !res.IsError {
		t.Error("canceling a canceled job did not return an error result")
	}
}

func TestScheduleTask_BadAction(t *testing.T) {
	res := (&ScheduleTaskTool{}).Execute(context.Background(), testInvocation(t), map[string]any{"action": "explode"})
	if !res.IsError {
		t.Fatal("expected error result for unknown action")
	}
}
