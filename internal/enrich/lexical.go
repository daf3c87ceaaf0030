// Package enrich attaches lightweight lexical analysis to reviews.
package enrich

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sentiment labels.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"

	labelThreshold = 0.25
)

var aspectKeywords = []struct {
	aspect   string
	keywords []string
}{
	{"performance", []string{"slow", "lag", "laggy", "delay", "freez", "loading", "sluggish", "responsive", "speed"}},
	{"stability", []string{"crash", "bug", "error", "hang", "force close", "frozen", "unstable", "glitch"}},
	{"pricing", []string{"price", "paywall", "subscription", "expensive", "overcharged", "refund", "billing"}},
	{"ads", []string{"ads", "advert", "commercial", "pop-up", "popup", "sponsored"}},
	{"ux", []string{"ui", "ux", "design", "interface", "navigation", "layout", "button", "screen"}},
	{"support", []string{"support", "help", "customer service", "contact", "reply", "response"}},
	{"content", []string{"content", "feature", "option", "tool", "template", "library"}},
	{"login", []string{"login", "log in", "sign in", "sign-in", "password", "account"}},
}

var (
	bugPatterns     = compileAll(`\bcrash`, `\bbug`, `\berror`, `\bissue`, `\bglitch`, `\bfail`)
	featurePatterns = compileAll(`\bplease add\b`, `\bi wish\b`, `\bit would be (?:great|nice)\b`, `\bcan you add\b`, `\bfeature request\b`)
	uxPatterns      = compileAll(`\bui\b`, `\bux\b`, `\bdesign\b`, `\binterface\b`, `\bnavigation\b`, `\blayout\b`)
	paymentPatterns = compileAll(`\bbilling\b`, `\bpurchase\b`, `\bsubscription\b`, `\bcharged\b`, `\brefund\b`)
	praisePatterns  = compileAll(`\blove\b`, `\bgreat\b`, `\bawesome\b`, `\bamazing\b`, `\bexcellent\b`, `\bthank you\b`)
	negativeWords   = compileAll(`\bhate\b`, `\bterrible\b`, `\bawful\b`, `\bworst\b`, `\buseless\b`, `\bbroken\b`, `\bscam\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Lexical is a keyword-driven review.Enricher. It holds no mutable state.
type Lexical struct{}

// New returns the lexical enricher.
func New() *Lexical {
	return &Lexical{}
}

// Enrich implements review.Enricher.
func (Lexical) Enrich(body, title string, rating *float64, languageHint string) (map[string]any, error) {
	text := strings.TrimSpace(strings.Join(strings.Fields(title+" "+body), " "))
	folded := fold(text)

	score := sentimentScore(folded, rating)
	label := scoreToLabel(score)

	aspects := make(map[string]any)
	for _, group := range aspectKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(folded, kw) {
				aspects[group.aspect] = map[string]any{
					"label":  label,
					"score":  score,
					"source": "heuristic",
				}
				break
			}
		}
	}

	reviewType := classify(folded, label, rating)
	return map[string]any{
		"language":         languageFromHint(languageHint),
		"sentiment_label":  label,
		"sentiment_score":  score,
		"aspect_sentiment": aspects,
		"review_type":      reviewType,
		"needs_reply":      needsReply(reviewType, label, score, rating),
	}, nil
}

// fold lowercases and strips combining marks.
func fold(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	return strings.ToLower(folded)
}

// sentimentScore maps the star rating onto [-1, 1] and nudges it by praise or
// complaint words; without a rating the words alone decide.
func sentimentScore(folded string, rating *float64) float64 {
	lexical := 0.0
	if matchAny(folded, praisePatterns) {
		lexical += 0.5
	}
	if matchAny(folded, negativeWords) {
		lexical -= 0.5
	}
	if rating == nil {
		return clamp(lexical)
	}
	return clamp((*rating-3)/2 + lexical/2)
}

func scoreToLabel(score float64) string {
	switch {
	case score >= labelThreshold:
		return LabelPositive
	case score <= -labelThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func classify(folded, label string, rating *float64) string {
	switch {
	case matchAny(folded, bugPatterns):
		return "bug_report"
	case matchAny(folded, featurePatterns):
		return "feature_request"
	case matchAny(folded, uxPatterns):
		return "ux_feedback"
	case matchAny(folded, paymentPatterns):
		return "payment_issue"
	case matchAny(folded, praisePatterns) && label == LabelPositive:
		return "praise"
	case rating != nil && *rating >= 4 && label == LabelPositive:
		return "praise"
	default:
		return "general_feedback"
	}
}

func needsReply(reviewType, label string, score float64, rating *float64) bool {
	switch reviewType {
	case "bug_report", "feature_request", "payment_issue":
		return true
	}
	if rating != nil && *rating <= 2 {
		return true
	}
	return label == LabelNegative || score <= -labelThreshold
}

func languageFromHint(hint string) string {
	hint = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(hint), "_", "-"))
	if hint == "" {
		return ""
	}
	return strings.SplitN(hint, "-", 2)[0]
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
