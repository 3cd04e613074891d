// Package idempotency suppresses reprocessing of at-least-once webhook
// deliveries. A short-lived mark is written on first sight of an event id;
// later deliveries of the same id find the mark and are skipped.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/logger"
	"github.com/tinyland-inc/hookclaw/pkg/store"
)

// MarkTTL bounds how long an event id is remembered. Slack retries span
// minutes, not days, so 24h is comfortably past the retry horizon.
const MarkTTL = 24 * time.Hour

const keyPrefix = "slack-event:"

// Guard gates event processing on a KV store of expiring marks.
//
// The check-then-mark sequence is not atomic: two near-simultaneous
// deliveries of the same event can both pass ShouldProcess. The downstream
// effect (a duplicate reply) is not safety-critical, so no lock is taken.
type Guard struct {
	kv  store.KV
	ttl time.Duration
}

func NewGuard(kv store.KV) *Guard {
	return &Guard{kv: kv, ttl: MarkTTL}
}

// Key derives the idempotency key for an event. Events that carry a provider
// event id get a stable key; everything else falls back to a synthesized key
// including the receipt time in milliseconds. The synthesized key differs on
// every delivery, so duplicate suppression is best-effort only for that
// category (known gap, kept as-is).
func Key(eventID, eventType, userID string, receivedAt time.Time) string {
	if eventID != "" {
		return keyPrefix + eventID
	}
	return keyPrefix + fmt.Sprintf("%s-%s-%d", eventType, userID, receivedAt.UnixMilli())
}

// ShouldProcess reports whether the event behind key has not been seen yet.
// Store errors fail open: a broken mark store should degrade to duplicate
// replies, not to dropped messages.
func (g *Guard) ShouldProcess(ctx context.Context, key string) bool {
	_, exists, err := g.kv.Get(ctx, key)
	if err != nil {
		logger.WarnCF("idempotency", "Mark lookup failed, processing anyway", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		return true
	}
	return !exists
}

// MarkProcessed records the event key. Call immediately after ShouldProcess
// returns true, before any further work, to keep the duplicate race window
// as narrow as possible.
func (g *Guard) MarkProcessed(ctx context.Context, key string) {
	if err := g.kv.SetTTL(ctx, key, "1", g.ttl); err != nil {
		logger.WarnCF("idempotency", "Mark write failed", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}
