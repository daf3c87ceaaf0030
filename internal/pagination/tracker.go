// Package pagination decides whether a cursor-driven page loop may fetch again.
package pagination

import "sync"

// Decision is the outcome of a continuation check.
type Decision string

// Stop reasons, checked in this order.
const (
	Continue      Decision = "continue"
	StopSatisfied Decision = "satisfied"
	StopNoCursor  Decision = "no_cursor"
	StopRepeated  Decision = "repeated_cursor"
	StopMaxPages  Decision = "max_pages"
)

// Tracker remembers every cursor seen during one extraction. It must not be
// shared between extractions.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// ShouldContinue reports whether another page should be fetched.
func (t *Tracker) ShouldContinue(have, target int, cursor string, pageIndex, maxPages int) bool {
	return t.Check(have, target, cursor, pageIndex, maxPages) == Continue
}

// Check is ShouldContinue with the reason attached. A Continue decision
// records cursor as seen.
func (t *Tracker) Check(have, target int, cursor string, pageIndex, maxPages int) Decision {
	if have >= target {
		return StopSatisfied
	}
	if cursor == "" {
		return StopNoCursor
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[cursor]; ok {
		return StopRepeated
	}
	if pageIndex >= maxPages {
		return StopMaxPages
	}
	t.seen[cursor] = struct{}{}
	return Continue
}

// Seen returns how many distinct cursors have been accepted.
func (t *Tracker) Seen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
