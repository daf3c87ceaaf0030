package cascade

import "github.com/JakeFAU/realtime-review-crawler/internal/review"

// merger accumulates canonical reviews in first-seen order keyed by
// identity signature. A later duplicate with more populated fields replaces
// the earlier one without moving it.
type merger struct {
	order []review.Review
	index map[string]int
}

// maxPrealloc bounds the capacity hint; the limit is caller supplied.
const maxPrealloc = 256

func newMerger(capacity int) *merger {
	capacity = max(0, min(capacity, maxPrealloc))
	return &merger{
		order: make([]review.Review, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

// add reports whether r introduced a new identity.
func (m *merger) add(r review.Review) bool {
	if !r.Valid() {
		return false
	}
	sig := r.IdentitySignature()
	if pos, ok := m.index[sig]; ok {
		if r.Completeness() > m.order[pos].Completeness() {
			m.order[pos] = r
		}
		return false
	}
	m.index[sig] = len(m.order)
	m.order = append(m.order, r)
	return true
}

func (m *merger) len() int { return len(m.order) }

// take returns at most limit reviews in first-seen order.
func (m *merger) take(limit int) []review.Review {
	if limit > 0 && len(m.order) > limit {
		return m.order[:limit]
	}
	return m.order
}
