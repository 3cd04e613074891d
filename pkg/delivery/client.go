// Package delivery sends reply messages back to Slack with bounded,
// rate-limit-aware retries. A send either fully succeeds or fails with a
// DeliveryError after exhausting its attempts; there is no partial success.
package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/tinyland-inc/hookclaw/pkg/logger"
	"github.com/tinyland-inc/hookclaw/pkg/metrics"
	"github.com/tinyland-inc/hookclaw/pkg/retry"
)

// DeliveryError reports an exhausted send, carrying the last observed error.
type DeliveryError struct {
	Channel  string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed after %d attempts: %v", e.Channel, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Client posts messages through the Slack Web API.
type Client struct {
	api    *slack.Client
	apiURL string
	policy retry.Policy
	sleep  retry.SleepFunc
}

// Option configures a Client.
type Option func(*Client)

// WithMaxAttempts overrides the default attempt bound.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.policy.MaxAttempts = n }
}

// WithSleep injects the wait function used between attempts. Intended for
// tests.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithAPIURL points the client at an alternate Slack API endpoint.
// Intended for tests against httptest servers.
func WithAPIURL(url string) Option {
	return func(c *Client) { c.apiURL = url }
}

func NewClient(botToken string, opts ...Option) *Client {
	c := &Client{
		policy: retry.DefaultPolicy(),
		sleep:  retry.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	slackOpts := []slack.Option{}
	if c.apiURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(c.apiURL))
	}
	c.api = slack.New(botToken, slackOpts...)
	return c
}

// Send posts text to channelID, threading under threadTS when non-empty.
// Rate-limit responses wait out the provider's Retry-After hint; other
// failures back off exponentially. Each wait consumes an attempt.
func (c *Client) Send(ctx context.Context, channelID, text, threadTS string) error {
	attempts := 0

	err := retry.Do(ctx, c.policy, c.sleep, func(ctx context.Context) error {
		attempts++

		msgOpts := []slack.MsgOption{slack.MsgOptionText(text, false)}
		if threadTS != "" {
			msgOpts = append(msgOpts, slack.MsgOptionTS(threadTS))
		}

		_, _, err := c.api.PostMessageContext(ctx, channelID, msgOpts...)
		if err == nil {
			return nil
		}

		var rle *slack.RateLimitedError
		if errors.As(err, &rle) {
			metrics.DeliveryRetries.Inc()
			logger.WarnCF("delivery", "Rate limited", map[string]any{
				"channel":     channelID,
				"retry_after": rle.RetryAfter.String(),
				"attempt":     attempts,
			})
			return &retry.RateLimitError{RetryAfter: rle.RetryAfter}
		}

		metrics.DeliveryRetries.Inc()
		logger.WarnCF("delivery", "Send attempt failed", map[string]any{
			"channel": channelID,
			"attempt": attempts,
			"error":   err.Error(),
		})
		return err
	})
	if err != nil {
		metrics.DeliveryFailures.Inc()
		return &DeliveryError{Channel: channelID, Attempts: attempts, Err: err}
	}

	metrics.Deliveries.Inc()
	logger.InfoCF("delivery", "Message delivered", map[string]any{
		"channel":  channelID,
		"attempts": attempts,
		"text":     logger.Truncate(text, 80),
	})
	return nil
}
