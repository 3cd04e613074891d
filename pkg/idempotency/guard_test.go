package idempotency

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/store"
)

func TestGuard_FirstSightProcesses(t *testing.T) {
	g := NewGuard(store.NewMemory())
	ctx := context.Background()
	key := Key("Ev123", "message", "U1", time.Now())

	if !g.ShouldProcess(ctx, key) {
		t.Fatal("ShouldProcess() = false on first sight")
	}
	g.MarkProcessed(ctx, key)
	if g.ShouldProcess(ctx, key) {
		t.Fatal("ShouldProcess() = true after MarkProcessed")
	}
}

func TestGuard_MarkExpires(t *testing.T) {
	mem := store.NewMemory()
	now := time.Unix(1_700_000_000, 0)
	mem.SetClock(func() time.Time { return now })

	g := NewGuard(mem)
	ctx := context.Background()
	key := Key("Ev123", "message", "U1", now)

	g.MarkProcessed(ctx, key)
	now = now.Add(MarkTTL + time.Second)
	if !g.ShouldProcess(ctx, key) {
		t.Error("ShouldProcess() = false after the mark's TTL elapsed")
	}
}

func TestKey_StableForProviderEventID(t *testing.T) {
	a := Key("Ev123", "message", "U1", time.Unix(1, 0))
	b := Key("Ev123", "app_mention", "U2", time.Unix(999, 0))
	if a != b {
		t.Errorf("keys differ for the same event id: %q vs %q", a, b)
	}
	if a != "slack-event:Ev123" {
		t.Errorf("Key() = %q, want %q", a, "slack-event:Ev123")
	}
}

// Synthesized keys embed the receipt time, so two deliveries of the same
// id-less event get different keys and both process. That is the documented
// limitation, not a regression to fix here.
func TestKey_SynthesizedKeyIsTimeDependent(t *testing.T) {
	a := Key("", "message", "U1", time.UnixMilli(1000))
	b := Key("", "message", "U1", time.UnixMilli(1001))
	if a == b {
		t.Error("synthesized keys collided across different receipt times")
	}
	if !strings.HasPrefix(a, "slack-event:message-U1-") {
		t.Errorf("Key() = %q, want message-U1 synthesized form", a)
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("kv down")
}

func (failingKV) SetTTL(context.Context, string, string, time.Duration) error {
	return errors.New("kv down")
}

func TestGuard_StoreErrorFailsOpen(t *testing.T) {
	g := NewGuard(failingKV{})
	if !g.ShouldProcess(context.Background(), "slack-event:Ev1") {
		t.Error("ShouldProcess() = false on store error, want fail-open true")
	}
	// MarkProcessed on a failing store must not panic.
	g.MarkProcessed(context.Background(), "slack-event:Ev1")
}
