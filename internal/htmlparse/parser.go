// Package htmlparse extracts reviews from rendered listing markup.
//
// Every stage is an ordered chain of selectors ending in a text heuristic, so
// markup drift degrades the yield instead of failing the parse. Stages that
// fall through every selector are counted in reviews_selector_misses_total.
package htmlparse

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/JakeFAU/realtime-review-crawler/internal/metrics"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// Miss stages reported to metrics.
const (
	StageContainer = "container"
	StageHeuristic = "heuristic"
	StageUsername  = "username"
	StageRating    = "rating"
	StageDate      = "date"
	StageBody      = "body"
)

// Parser turns markup into raw reviews. The selector tables are read-only, so
// a Parser may be shared across goroutines.
type Parser struct {
	logger *zap.Logger
}

// New builds a Parser.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse returns up to limit reviews (limit <= 0 means no cap). It never fails;
// unusable markup yields nil.
func (p *Parser) Parse(markup string, limit int) []review.RawReview {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		p.logger.Warn("markup not parseable", zap.Error(err))
		return nil
	}

	seenIDs := make(map[string]struct{})
	seenNodes := make(map[*html.Node]struct{})
	var out []review.RawReview
	for _, raw := range p.locate(doc) {
		if limit > 0 && len(out) >= limit {
			break
		}
		node := normalizeNode(raw)
		id := reviewID(node)
		if id != "" {
			if _, dup := seenIDs[id]; dup {
				continue
			}
			seenIDs[id] = struct{}{}
		} else {
			key := node.Get(0)
			if _, dup := seenNodes[key]; dup {
				continue
			}
			seenNodes[key] = struct{}{}
		}

		rec, ok := p.extract(node)
		if !ok {
			continue
		}
		rec.NodeID = id
		out = append(out, rec)
	}
	return out
}

func (p *Parser) locate(doc *goquery.Document) []*goquery.Selection {
	for _, selector := range containerSelectors {
		found := uniqueNodes(doc.Find(selector))
		if len(found) > 0 {
			p.logger.Debug("review containers located", zap.String("selector", selector), zap.Int("count", len(found)))
			return found
		}
	}
	metrics.ObserveSelectorMiss(StageContainer)

	if found := heuristicCandidates(doc); len(found) > 0 {
		p.logger.Debug("review containers located by structure", zap.Int("count", len(found)))
		return found
	}
	metrics.ObserveSelectorMiss(StageHeuristic)

	found := uniqueNodes(doc.Find(lastResortSelector))
	if len(found) == 0 {
		p.logger.Debug("no review containers found")
	}
	return found
}

func uniqueNodes(sel *goquery.Selection) []*goquery.Selection {
	seen := make(map[string]struct{})
	var out []*goquery.Selection
	sel.Each(func(_ int, s *goquery.Selection) {
		key, ok := s.Attr(reviewIDAttr)
		if !ok {
			out = append(out, s)
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	})
	return out
}

// heuristicCandidates finds divs that hold a star-labeled element (or a known
// username element) next to a date element. Only the innermost matches are
// kept so wrappers around several reviews do not become reviews themselves.
func heuristicCandidates(doc *goquery.Document) []*goquery.Selection {
	var matches []*goquery.Selection
	doc.Find("div").Each(func(_ int, div *goquery.Selection) {
		hasRating := div.Find(heuristicRatingSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			label, _ := s.Attr("aria-label")
			return starLabelFilter.MatchString(label)
		}).Length() > 0
		hasUsername := div.Find(heuristicUsernameSelector).Length() > 0
		hasDate := div.Find(heuristicDateSelector).Length() > 0
		if (hasRating || hasUsername) && hasDate {
			matches = append(matches, div)
		}
	})

	var out []*goquery.Selection
	for _, candidate := range matches {
		if containsAny(candidate.Get(0), matches) {
			continue
		}
		out = append(out, candidate)
		if len(out) >= heuristicCandidateCap {
			break
		}
	}
	return out
}

func containsAny(outer *html.Node, candidates []*goquery.Selection) bool {
	for _, c := range candidates {
		inner := c.Get(0)
		if inner == outer {
			continue
		}
		for n := inner.Parent; n != nil; n = n.Parent {
			if n == outer {
				return true
			}
		}
	}
	return false
}

// normalizeNode walks from a matched fragment to its review container.
func normalizeNode(node *goquery.Selection) *goquery.Selection {
	if goquery.NodeName(node) == "header" {
		if parent := node.Parent().Closest(containerShape); parent.Length() > 0 {
			return parent
		}
		return node
	}
	if _, ok := node.Attr(reviewIDAttr); ok {
		return node
	}
	if node.HasClass("RHo1pe") {
		return node
	}
	for _, shape := range []string{"[" + reviewIDAttr + "]", "div.RHo1pe", "div.EGFGHd"} {
		if parent := node.Parent().Closest(shape); parent.Length() > 0 {
			return parent
		}
	}
	return node
}

func reviewID(node *goquery.Selection) string {
	if id, ok := node.Attr(reviewIDAttr); ok {
		return id
	}
	if id, ok := node.Find("[" + reviewIDAttr + "]").First().Attr(reviewIDAttr); ok {
		return id
	}
	return ""
}

func (p *Parser) extract(node *goquery.Selection) (review.RawReview, bool) {
	text := flatText(node)

	rec := review.RawReview{
		Author:       extractUsername(node, text),
		Rating:       extractRating(node),
		PostedAt:     extractDate(node, text),
		HelpfulCount: extractHelpfulCount(text),
		AppVersion:   extractVersion(text),
		Body:         extractBody(node, text),
	}
	if rec.Author == "" {
		metrics.ObserveSelectorMiss(StageUsername)
	}
	if rec.Rating == nil {
		metrics.ObserveSelectorMiss(StageRating)
	}
	if rec.PostedAt == "" {
		metrics.ObserveSelectorMiss(StageDate)
	}
	if rec.Body == "" {
		metrics.ObserveSelectorMiss(StageBody)
		return rec, false
	}
	return rec, true
}

func extractUsername(node *goquery.Selection, text string) string {
	if name := firstText(node, usernameSelectors); name != "" {
		return name
	}
	if m := usernameBeforeMenu.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	var name string
	node.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		candidate := flatText(span)
		n := utf8.RuneCountInString(candidate)
		if n >= minUsernameLen && n <= maxUsernameLen && !hasDigit.MatchString(candidate) {
			name = candidate
			return false
		}
		return true
	})
	return name
}

func extractRating(node *goquery.Selection) *float64 {
	for _, selector := range ratingSelectors {
		el := node.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		label, _ := el.Attr("aria-label")
		m := ratingNumber.FindStringSubmatch(label)
		if m == nil {
			return nil
		}
		value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
		if err != nil {
			return nil
		}
		return &value
	}
	return nil
}

func extractDate(node *goquery.Selection, text string) string {
	if date := firstText(node, dateSelectors); date != "" {
		return date
	}
	return monthDate.FindString(text)
}

func extractHelpfulCount(text string) *int {
	m := helpfulCount.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	digits = strings.NewReplacer(",", "", ".", "").Replace(digits)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

func extractVersion(text string) *string {
	m := versionLabel.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	version := strings.TrimRight(m[1], ".")
	if version == "" {
		return nil
	}
	return &version
}

func extractBody(node *goquery.Selection, text string) string {
	if goquery.NodeName(node) == "header" {
		if parent := node.Parent().Closest("div.EGFGHd"); parent.Length() > 0 {
			if body := review.CleanText(firstText(parent, bodySelectors)); body != "" {
				return body
			}
		}
	}
	if body := review.CleanText(firstText(node, bodySelectors)); body != "" {
		return body
	}

	var generic string
	node.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		candidate := flatText(div)
		if utf8.RuneCountInString(candidate) > minGenericBodyLen && !containsNoise(candidate) {
			generic = review.CleanText(candidate)
			return generic == ""
		}
		return true
	})
	if generic != "" {
		return generic
	}

	if label, ok := node.Attr("aria-label"); ok {
		if body := review.CleanText(label); body != "" {
			return body
		}
	}
	return stripLeadingMetadata(text)
}

func containsNoise(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range bodyNoiseWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// stripLeadingMetadata drops the author/date header and the helpful/version
// trailer from a container's flattened text.
func stripLeadingMetadata(text string) string {
	cleaned := review.CleanText(text)
	if cleaned == "" {
		return ""
	}
	if loc := monthDate.FindStringIndex(cleaned); loc != nil {
		cleaned = cleaned[loc[1]:]
	}
	cleaned = helpfulTrailer.ReplaceAllString(cleaned, "")
	cleaned = versionTrailer.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
