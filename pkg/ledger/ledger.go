// Package ledger keeps per-identity append-only reminder ledgers.
//
// A ledger is a line-delimited text blob; every append rewrites the whole
// blob because the backing store has no append primitive. Before writing,
// a heuristic similarity check flags near-duplicate entries and asks the
// caller to re-submit with more distinguishing detail.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tinyland-inc/hookclaw/pkg/logger"
	"github.com/tinyland-inc/hookclaw/pkg/store"
)

// similarThreshold is the number of significant tokens a candidate must
// share with an existing line to be flagged similar.
const similarThreshold = 2

// significantTokenLen is the minimum length (exclusive) for a token to
// count toward similarity. Short words are noise.
const significantTokenLen = 3

// Outcome is the result of an append attempt.
type Outcome struct {
	Saved bool
	// Similar holds the existing lines that blocked the append. Empty when
	// Saved is true.
	Similar []string
}

// Store reads and appends per-identity ledgers on a blob backend.
type Store struct {
	blob      store.Blob
	namespace string
	now       func() time.Time
}

func NewStore(blob store.Blob, namespace string) *Store {
	return &Store{blob: blob, namespace: namespace, now: time.Now}
}

// SetClock overrides the date stamp clock. Intended for tests.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) key(identity string) string {
	return s.namespace + "/" + identity + "/reminders"
}

// Append adds rawText as a new dated line unless the existing ledger
// already holds similar entries. Concurrent appends to the same identity
// are last-write-wins on the whole blob; that race is documented and not
// locked against.
func (s *Store) Append(ctx context.Context, identity, rawText string) (Outcome, error) {
	content, err := s.blob.Get(ctx, s.key(identity))
	if err != nil {
		return Outcome{}, fmt.Errorf("reading ledger for %s: %w", identity, err)
	}

	existing := splitLines(content)
	similar := similarLines(existing, rawText)
	if len(similar) > 0 {
		logger.InfoCF("ledger", "Similar entries found, not saving", map[string]any{
			"identity": identity,
			"matches":  len(similar),
			"text":     logger.Truncate(rawText, 80),
		})
		return Outcome{Similar: similar}, nil
	}

	entry := fmt.Sprintf("[%s] %s\n", s.now().Format("2006-01-02"), rawText)
	if err := s.blob.Put(ctx, s.key(identity), content+entry); err != nil {
		return Outcome{}, fmt.Errorf("writing ledger for %s: %w", identity, err)
	}

	logger.InfoCF("ledger", "Entry saved", map[string]any{
		"identity": identity,
		"text":     logger.Truncate(rawText, 80),
	})
	return Outcome{Saved: true}, nil
}

// Read returns the ledger lines for identity, optionally filtered by a
// case-insensitive substring match.
func (s *Store) Read(ctx context.Context, identity, filter string) ([]string, error) {
	content, err := s.blob.Get(ctx, s.key(identity))
	if err != nil {
		return nil, fmt.Errorf("reading ledger for %s: %w", identity, err)
	}

	lines := splitLines(content)
	if filter == "" {
		return lines, nil
	}

	needle := strings.ToLower(filter)
	var out []string
	for _, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			out = append(out, line)
		}
	}
	return out, nil
}

func splitLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// significantTokens lower-cases text and keeps whitespace-delimited words
// longer than significantTokenLen characters.
func significantTokens(text string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if len(tok) > significantTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// similarLines returns the existing lines sharing at least similarThreshold
// significant tokens (as substrings) with the candidate text. A candidate
// with fewer than two significant tokens can never be flagged; that is a
// known limitation of the heuristic, not a bug.
func similarLines(existing []string, text string) []string {
	tokens := significantTokens(text)
	if len(tokens) == 0 {
		return nil
	}

	var similar []string
	for _, line := range existing {
		lower := strings.ToLower(line)
		matches := 0
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				matches++
			}
		}
		if matches >= similarThreshold {
			similar = append(similar, line)
		}
	}
	return similar
}
