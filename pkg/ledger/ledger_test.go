package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/store"
)

func newTestStore() *Store {
	s := NewStore(store.NewMemory().AsBlob(), "hookclaw")
	s.SetClock(func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	})
	return s
}

func TestAppend_EmptyLedgerAlwaysSaves(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	out, err := s.Append(ctx, "U1", "remind me to call Bob")
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if !out.Saved {
		t.Fatalf("Append() on empty ledger not saved: %+v", out)
	}

	lines, err := s.Read(ctx, "U1", "")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(lines) != 1 || lines[0] != "[2026-09-01] remind me to call Bob" {
		t.Errorf("ledger = %v, want one dated line", lines)
	}
}

func TestAppend_ExactDuplicateBlocked(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Append(ctx, "U1", "remind me to call Bob"); err != nil {
		t.Fatal(err)
	}
	out, err := s.Append(ctx, "U1", "remind me to call Bob")
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if out.Saved {
		t.Fatal("second identical append was saved, want SimilarFound")
	}
	if len(out.Similar) != 1 || !strings.Contains(out.Similar[0], "call Bob") {
		t.Errorf("Similar = %v, want the first entry", out.Similar)
	}

	lines, _ := s.Read(ctx, "U1", "")
	if len(lines) != 1 {
		t.Errorf("ledger has %d lines after blocked append, want 1", len(lines))
	}
}

func TestAppend_SimilarityBoundary(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		candidate string
		wantSaved bool
	}{
		{"one shared significant token saves", "dentist tomorrow", true},
		{"two shared significant tokens blocked", "dentist appointment friday", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			if _, err := s.Append(ctx, "U1", "book dentist appointment for May"); err != nil {
				t.Fatal(err)
			}
			out, err := s.Append(ctx, "U1", tt.candidate)
			if err != nil {
				t.Fatalf("Append() error: %v", err)
			}
			if out.Saved != tt.wantSaved {
				t.Errorf("Append(%q) saved = %v, want %v (similar: %v)",
					tt.candidate, out.Saved, tt.wantSaved, out.Similar)
			}
		})
	}
}

// With at most one significant token the heuristic cannot reach the
// 2-match threshold, so short texts always save. Documented limitation.
func TestAppend_ShortTextsDegradeToAlwaysSave(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Append(ctx, "U1", "buy milk"); err != nil {
		t.Fatal(err)
	}
	out, err := s.Append(ctx, "U1", "buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Saved {
		t.Error("duplicate short text was blocked; heuristic should not reach threshold with one significant token")
	}
}

func TestAppend_CaseInsensitiveMatching(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Append(ctx, "U1", "Call DENTIST about appointment"); err != nil {
		t.Fatal(err)
	}
	out, err := s.Append(ctx, "U1", "call dentist appointment")
	if err != nil {
		t.Fatal(err)
	}
	if out.Saved {
		t.Error("case difference defeated the similarity check")
	}
}

func TestRead_Filter(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for _, text := range []string{"water the plants", "renew passport online", "fix bike brakes"} {
		if _, err := s.Append(ctx, "U1", text); err != nil {
			t.Fatal(err)
		}
	}

	lines, err := s.Read(ctx, "U1", "PASSPORT")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(lines) != 1 || !strings.Contains(lines[0], "renew passport") {
		t.Errorf("filtered Read() = %v, want the passport line", lines)
	}
}

func TestLedgers_AreIsolatedPerIdentity(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	if _, err := s.Append(ctx, "U1", "remind me to call Bob"); err != nil {
		t.Fatal(err)
	}
	out, err := s.Append(ctx, "U2", "remind me to call Bob")
	if err != nil {
		t.Fatal(err)
	}
	if !out.Saved {
		t.Error("another identity's ledger blocked this append")
	}
}

func TestSignificantTokens(t *testing.T) {
	// "the"/"at" are too short, "buy"/"new"/"car"/"9am" are exactly 3 chars
	// and excluded as well.
	got := significantTokens("Buy the NEW car at 9am")
	if len(got) != 0 {
		t.Errorf("significantTokens() = %v, want none (all tokens <= 3 chars)", got)
	}

	got = significantTokens("Schedule DENTIST visit")
	if len(got) != 3 || got[0] != "schedule" || got[1] != "dentist" || got[2] != "visit" {
		t.Errorf("significantTokens() = %v, want [schedule dentist visit]", got)
	}
}
