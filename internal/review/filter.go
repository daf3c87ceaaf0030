package review

import (
	"regexp"
	"strings"
)

// RejectReason explains why a raw review was excluded.
type RejectReason string

// Reject reasons; RejectNone means the review is kept.
const (
	RejectNone     RejectReason = ""
	RejectRating   RejectReason = "rating"
	RejectEmpty    RejectReason = "empty"
	RejectLinkSpam RejectReason = "link_spam"
)

var linkSpamPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+)`)

// Filter holds the per-entry data-quality rules.
type Filter struct {
	MinRating float64
	MaxRating *float64
}

// FilterFor builds the filter implied by a request.
func FilterFor(r ExtractionRequest) Filter {
	return Filter{MinRating: r.MinRating, MaxRating: r.MaxRating}
}

// Bounded reports whether any rating bound is active.
func (f Filter) Bounded() bool {
	return f.MinRating > 0 || f.MaxRating != nil
}

// Evaluate returns the first rule the review violates.
// With an active bound a missing rating is treated as out of range.
func (f Filter) Evaluate(r RawReview) RejectReason {
	if f.Bounded() {
		if r.Rating == nil {
			return RejectRating
		}
		if *r.Rating < f.MinRating {
			return RejectRating
		}
		if f.MaxRating != nil && *r.Rating > *f.MaxRating {
			return RejectRating
		}
	}
	if strings.TrimSpace(r.Body) == "" && strings.TrimSpace(r.Title) == "" {
		return RejectEmpty
	}
	if linkSpamPattern.MatchString(r.Body) {
		return RejectLinkSpam
	}
	return RejectNone
}

// Apply keeps the reviews that pass, up to keep entries (keep <= 0 means no cap),
// and records every decision on result.
func (f Filter) Apply(raws []RawReview, keep int, result *ChannelResult) []RawReview {
	kept := make([]RawReview, 0, len(raws))
	for _, raw := range raws {
		if keep > 0 && len(kept) >= keep {
			break
		}
		result.SeenTotal++
		switch f.Evaluate(raw) {
		case RejectRating:
			result.SkippedRating++
		case RejectLinkSpam:
			result.SkippedLinkSpam++
		case RejectEmpty:
		default:
			kept = append(kept, raw)
		}
	}
	return kept
}
