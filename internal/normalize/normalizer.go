// Package normalize turns channel records into caller-facing reviews.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/redact"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

const (
	authorTokenPrefix = "anon_"
	authorDigestLen   = 8

	titleSearchSpan = 160
	titleCutoff     = 120
	maxRating       = 5.0
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// Normalizer anonymizes, cleans, redacts and enriches reviews. Redactor and
// enricher are optional; a nil collaborator skips its step.
type Normalizer struct {
	hasher   review.Hasher
	redactor review.Redactor
	enricher review.Enricher
	logger   *zap.Logger
}

// New builds a Normalizer.
func New(hasher review.Hasher, redactor review.Redactor, enricher review.Enricher, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{hasher: hasher, redactor: redactor, enricher: enricher, logger: logger}
}

// Normalize runs the full pipeline on one raw record.
func (n *Normalizer) Normalize(raw review.RawReview, languageHint string) review.Review {
	return n.Finalize(n.Canonical(raw, languageHint), languageHint)
}

// Canonical produces the anonymized, cleaned and redacted form used for
// identity and merging, so the signature matches the emitted text. Title and
// body are redacted independently. Enrichment is left to Finalize.
func (n *Normalizer) Canonical(raw review.RawReview, languageHint string) review.Review {
	title := review.CleanText(raw.Title)
	body := review.CleanText(raw.Body)
	if title == "" {
		title, body = SplitTitleBody(body)
	}
	if n.redactor != nil {
		title = n.redactor.Redact(title, languageHint)
		body = n.redactor.Redact(body, languageHint)
	}

	out := review.Review{
		AuthorToken:  n.AnonymizeAuthor(raw.Author),
		Rating:       validRating(raw.Rating),
		Title:        title,
		Body:         body,
		PostedAt:     strings.TrimSpace(raw.PostedAt),
		HelpfulCount: raw.HelpfulCount,
	}
	if raw.AppVersion != nil {
		if v := strings.TrimSpace(*raw.AppVersion); v != "" {
			out.AppVersion = &v
		}
	}
	return out
}

// Finalize attaches enrichment to a canonical review, computed on its text
// with redaction tokens stripped. Enrichment failures land in AnalysisError.
func (n *Normalizer) Finalize(r review.Review, languageHint string) review.Review {
	if n.enricher == nil {
		return r
	}
	body, title := redact.Strip(r.Body), redact.Strip(r.Title)
	if body == "" && title == "" {
		r.Analysis = map[string]any{}
		return r
	}
	analysis, err := n.enrich(body, title, r.Rating, languageHint)
	if err != nil {
		n.logger.Debug("enrichment failed", zap.Error(err))
		r.Analysis = nil
		r.AnalysisError = err.Error()
		return r
	}
	r.Analysis = analysis
	return r
}

func (n *Normalizer) enrich(body, title string, rating *float64, languageHint string) (analysis map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			analysis = nil
			err = fmt.Errorf("enricher panic: %v", p)
		}
	}()
	return n.enricher.Enrich(body, title, rating, languageHint)
}

// AnonymizeAuthor maps a display name to a stable, irreversible token.
func (n *Normalizer) AnonymizeAuthor(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" || n.hasher == nil {
		return review.AnonymousToken
	}
	digest, err := n.hasher.Hash([]byte(normalized))
	if err != nil || len(digest) < authorDigestLen {
		n.logger.Warn("author hash failed", zap.Error(err))
		return review.AnonymousToken
	}
	return authorTokenPrefix + digest[:authorDigestLen]
}

// SplitTitleBody derives a title from text when none was scraped. The first
// sentence becomes the title if it ends within titleSearchSpan runes; long
// text without a boundary is cut at titleCutoff runes; anything else stays body.
func SplitTitleBody(text string) (string, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ""
	}
	if loc := sentenceBoundary.FindStringIndex(text); loc != nil {
		head := strings.TrimSpace(text[:loc[0]+1])
		rest := strings.TrimSpace(text[loc[1]:])
		if rest != "" && utf8.RuneCountInString(head) <= titleSearchSpan {
			return head, rest
		}
	}
	if utf8.RuneCountInString(text) > titleSearchSpan {
		runes := []rune(text)
		return strings.TrimSpace(string(runes[:titleCutoff])), strings.TrimSpace(string(runes[titleCutoff:]))
	}
	return "", text
}

func validRating(r *float64) *float64 {
	if r == nil || *r < 0 || *r > maxRating {
		return nil
	}
	v := *r
	return &v
}
