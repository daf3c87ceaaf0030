// Package review defines the types and capabilities shared by every acquisition channel.
package review

import (
	"fmt"
	"strings"
	"time"
)

// Sort selects the marketplace ordering used by the backend.
type Sort int

// Sort values understood by the review RPC.
const (
	SortMostRelevant Sort = 1
	SortNewest       Sort = 2
	SortRating       Sort = 3
)

// DefaultSort is used when the caller does not pick one.
const DefaultSort = SortNewest

// ParseSort maps a human name (most_relevant, newest, rating) to a Sort.
func ParseSort(name string) (Sort, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "newest":
		return SortNewest, nil
	case "most_relevant", "relevant", "most-relevant":
		return SortMostRelevant, nil
	case "rating":
		return SortRating, nil
	default:
		return 0, fmt.Errorf("unknown sort %q", name)
	}
}

func (s Sort) String() string {
	switch s {
	case SortMostRelevant:
		return "most_relevant"
	case SortNewest:
		return "newest"
	case SortRating:
		return "rating"
	default:
		return fmt.Sprintf("sort(%d)", int(s))
	}
}

// ChannelTag identifies which channel produced an outcome.
type ChannelTag string

// Channel tags reported on ExtractionOutcome.
const (
	ChannelPrimary   ChannelTag = "primary"
	ChannelSecondary ChannelTag = "secondary"
	ChannelTertiary  ChannelTag = "tertiary"
	ChannelMixed     ChannelTag = "mixed"
)

// RawReview is a channel-level record before normalization.
// Author holds the raw display name and must never leave the engine.
type RawReview struct {
	NodeID       string
	Author       string
	Rating       *float64
	Title        string
	Body         string
	PostedAt     string
	HelpfulCount *int
	AppVersion   *string
}

// Review is the normalized record handed to callers.
type Review struct {
	AuthorToken   string         `json:"author_token"`
	Rating        *float64       `json:"rating"`
	Title         string         `json:"title"`
	Body          string         `json:"body"`
	PostedAt      string         `json:"posted_at"`
	HelpfulCount  *int           `json:"helpful_count,omitempty"`
	AppVersion    *string        `json:"app_version,omitempty"`
	Analysis      map[string]any `json:"analysis,omitempty"`
	AnalysisError string         `json:"analysis_error,omitempty"`
}

// IdentitySignature is the cross-channel deduplication key.
func (r Review) IdentitySignature() string {
	return strings.Join([]string{r.AuthorToken, r.PostedAt, r.Title, r.Body}, "\x1f")
}

// Valid reports whether the review carries any text at all.
func (r Review) Valid() bool {
	return r.Title != "" || r.Body != ""
}

// Completeness counts the populated fields; used to break ties between duplicates.
func (r Review) Completeness() int {
	n := 0
	if r.AuthorToken != "" && r.AuthorToken != AnonymousToken {
		n++
	}
	if r.Rating != nil {
		n++
	}
	if r.Title != "" {
		n++
	}
	if r.Body != "" {
		n++
	}
	if r.PostedAt != "" {
		n++
	}
	if r.HelpfulCount != nil {
		n++
	}
	if r.AppVersion != nil && *r.AppVersion != "" {
		n++
	}
	return n
}

// AnonymousToken is the author token used when no display name is available.
const AnonymousToken = "anon"

// ExtractionRequest describes one top-level acquisition.
type ExtractionRequest struct {
	AppID          string        `json:"app_id"`
	Country        string        `json:"country"`
	Language       string        `json:"language"`
	Limit          int           `json:"limit"`
	Sort           Sort          `json:"sort"`
	MinRating      float64       `json:"min_rating"`
	MaxRating      *float64      `json:"max_rating,omitempty"`
	MaxPages       int           `json:"max_pages"`
	InterPageDelay time.Duration `json:"inter_page_delay"`
}

// ChannelResult is what a single channel hands back to the cascade.
type ChannelResult struct {
	Reviews         []RawReview
	PagesFetched    int
	SeenTotal       int
	SkippedRating   int
	SkippedLinkSpam int
}

// ExtractionOutcome is the immutable result of one acquisition.
type ExtractionOutcome struct {
	RequestID       string     `json:"request_id"`
	AppID           string     `json:"app_id"`
	Reviews         []Review   `json:"reviews"`
	PagesFetched    int        `json:"pages_fetched"`
	SeenTotal       int        `json:"seen_total"`
	SkippedRating   int        `json:"skipped_rating"`
	SkippedLinkSpam int        `json:"skipped_link_spam"`
	ChannelUsed     ChannelTag `json:"channel_used"`
}
