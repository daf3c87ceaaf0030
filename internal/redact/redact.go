// Package redact masks personal data in review text.
package redact

import (
	"regexp"
	"strings"
)

// Token replaces every masked span.
const Token = "[REDACTED]"

var (
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern      = regexp.MustCompile(`(?:(?:\+?\d{1,3}[-.\s]*)?(?:\(?\d{3}\)?[-.\s]*)\d{3}[-.\s]*\d{4})`)
	creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
	tokenRun          = regexp.MustCompile(`\s*` + regexp.QuoteMeta(Token) + `\s*`)
	spaceRun          = regexp.MustCompile(`\s+`)
)

// Regex masks emails, phone numbers and card numbers. The zero value is ready
// to use and safe for concurrent callers.
type Regex struct{}

// New returns the regex redactor.
func New() *Regex {
	return &Regex{}
}

// Redact implements review.Redactor. The language hint is accepted for
// interface parity; the patterns are language-neutral.
func (Regex) Redact(text, _ string) string {
	if text == "" {
		return text
	}
	masked := emailPattern.ReplaceAllString(text, Token)
	masked = phonePattern.ReplaceAllString(masked, Token)
	return creditCardPattern.ReplaceAllString(masked, Token)
}

// Strip removes redaction tokens so downstream analysis sees natural text.
func Strip(text string) string {
	if !strings.Contains(text, Token) {
		return text
	}
	stripped := tokenRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRun.ReplaceAllString(stripped, " "))
}
