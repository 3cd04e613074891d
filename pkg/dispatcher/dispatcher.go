// Package dispatcher is the webhook boundary: it authenticates inbound
// events, deduplicates them, extracts the user's message, acknowledges
// the caller, and hands response generation to a background task.
package dispatcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/background"
	"github.com/tinyland-inc/hookclaw/pkg/idempotency"
	"github.com/tinyland-inc/hookclaw/pkg/ledger"
	"github.com/tinyland-inc/hookclaw/pkg/logger"
	"github.com/tinyland-inc/hookclaw/pkg/metrics"
	"github.com/tinyland-inc/hookclaw/pkg/scheduler"
	"github.com/tinyland-inc/hookclaw/pkg/signature"
	"github.com/tinyland-inc/hookclaw/pkg/tools"
)

const (
	headerTimestamp = "x-request-timestamp"
	headerSignature = "x-request-signature"

	ackBody = "OK"

	// deliveryApology is the best-effort message sent when the real
	// reply could not be delivered.
	deliveryApology = "Sorry, I couldn't deliver a reply just now. Please try again."
)

// mentionPrefix matches the leading at-mention token on app_mention
// events, e.g. "<@U0BOT123> what time is it".
var mentionPrefix = regexp.MustCompile(`^<@[A-Z0-9]+>\s*`)

// Sender delivers a reply to a channel.
type Sender interface {
	Send(ctx context.Context, channelID, text, threadTS string) error
}

// Responder produces the reply text for an extracted user message.
type Responder interface {
	Respond(ctx context.Context, userMessage string, inv tools.Invocation) string
}

// Deps wires a Dispatcher. Verifier and HasBotToken stand in for the
// two required credentials: either missing turns every request into a
// 500 at the boundary.
type Deps struct {
	Verifier    *signature.Verifier
	HasBotToken bool
	Guard       *idempotency.Guard
	Responder   Responder
	Sender      Sender
	Tasks       background.Runner
	Ledger      *ledger.Store
	Scheduler   *scheduler.Service
	AllowFrom   []string
	Now         func() time.Time
}

type Dispatcher struct {
	deps      Deps
	allowFrom map[string]struct{}
}

func New(deps Deps) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Tasks == nil {
		deps.Tasks = background.NewTaskGroup()
	}
	d := &Dispatcher{deps: deps}
	if len(deps.AllowFrom) > 0 {
		d.allowFrom = make(map[string]struct{}, len(deps.AllowFrom))
		for _, u := range deps.AllowFrom {
			d.allowFrom[u] = struct{}{}
		}
	}
	return d
}

type envelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	EventID   string     `json:"event_id"`
	Event     innerEvent `json:"event"`
}

type innerEvent struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	BotID       string `json:"bot_id"`
	User        string `json:"user"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	TS          string `json:"ts"`
	ThreadTS    string `json:"thread_ts"`
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		d.reject(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if d.deps.Verifier == nil || !d.deps.HasBotToken {
		logger.ErrorCF("dispatcher", "Rejecting request: credentials not configured", nil)
		d.reject(w, http.StatusInternalServerError, "server not configured")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		d.reject(w, http.StatusBadRequest, "unreadable body")
		return
	}

	ts := r.Header.Get(headerTimestamp)
	sig := r.Header.Get(headerSignature)
	if ts == "" || sig == "" {
		d.reject(w, http.StatusBadRequest, "missing signature headers")
		return
	}
	if !d.deps.Verifier.Verify(ts, body, sig) {
		logger.WarnCF("dispatcher", "Signature verification failed", map[string]any{
			"timestamp": ts,
		})
		d.reject(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		d.reject(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if env.Type == "url_verification" {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, env.Challenge)
		return
	}

	d.handleEvent(w, env)
}

func (d *Dispatcher) handleEvent(w http.ResponseWriter, env envelope) {
	ev := env.Event

	if ev.BotID != "" || ev.Subtype == "bot_message" {
		d.ack(w, "ignored")
		return
	}
	if d.allowFrom != nil {
		if _, ok := d.allowFrom[ev.User]; !ok {
			logger.InfoCF("dispatcher", "Sender not in allow list", map[string]any{
				"user": ev.User,
			})
			d.ack(w, "ignored")
			return
		}
	}

	now := d.deps.Now()
	key := idempotency.Key(env.EventID, ev.Type, ev.User, now)
	ctx := context.Background()
	if d.deps.Guard != nil && !d.deps.Guard.ShouldProcess(ctx, key) {
		logger.InfoCF("dispatcher", "Duplicate event skipped", map[string]any{
			"event_id": env.EventID,
		})
		d.ack(w, "duplicate")
		return
	}

	text, channel, thread, usable := extract(ev)
	if !usable || text == "" || channel == "" || ev.User == "" {
		d.ack(w, "ignored")
		return
	}

	if d.deps.Guard != nil {
		d.deps.Guard.MarkProcessed(ctx, key)
	}
	d.ack(w, "accepted")

	logger.InfoCF("dispatcher", "Event accepted", map[string]any{
		"event_id": env.EventID,
		"user":     ev.User,
		"channel":  channel,
		"text":     logger.Truncate(text, 80),
	})

	user := ev.User
	d.deps.Tasks.Go("respond:"+env.EventID, func(taskCtx context.Context) {
		d.respondAndDeliver(taskCtx, user, text, channel, thread)
	})
}

// respondAndDeliver runs after the webhook has been acknowledged. All
// failures terminate here: the caller already got its 200.
func (d *Dispatcher) respondAndDeliver(ctx context.Context, user, text, channel, thread string) {
	inv := tools.Invocation{
		Ledger:    d.deps.Ledger,
		Scheduler: d.deps.Scheduler,
		Identity:  user,
		ChannelID: channel,
		Now:       d.deps.Now,
	}
	reply := d.deps.Responder.Respond(ctx, text, inv)

	if err := d.deps.Sender.Send(ctx, channel, reply, thread); err != nil {
		logger.ErrorCF("dispatcher", "Reply delivery failed", map[string]any{
			"channel": channel,
			"error":   err.Error(),
		})
		if err := d.deps.Sender.Send(ctx, channel, deliveryApology, thread); err != nil {
			logger.ErrorCF("dispatcher", "Apology delivery failed", map[string]any{
				"channel": channel,
				"error":   err.Error(),
			})
		}
	}
}

// extract pulls (text, channel, thread) out of the event by subtype.
// Direct messages pass through as-is; mentions lose their leading
// mention token and thread onto the triggering message.
func extract(ev innerEvent) (text, channel, thread string, usable bool) {
	switch {
	case ev.Type == "message" && ev.ChannelType == "im":
		return strings.TrimSpace(ev.Text), ev.Channel, ev.ThreadTS, true
	case ev.Type == "app_mention":
		text = strings.TrimSpace(mentionPrefix.ReplaceAllString(ev.Text, ""))
		thread = ev.ThreadTS
		if thread == "" {
			thread = ev.TS
		}
		return text, ev.Channel, thread, true
	default:
		return "", "", "", false
	}
}

func (d *Dispatcher) ack(w http.ResponseWriter, outcome string) {
	metrics.EventsTotal.WithLabelValues(outcome).Inc()
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, ackBody)
}

func (d *Dispatcher) reject(w http.ResponseWriter, code int, msg string) {
	metrics.EventsTotal.WithLabelValues("rejected").Inc()
	http.Error(w, msg, code)
}
