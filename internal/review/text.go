package review

import (
	"regexp"
	"strings"
)

// uiArtifacts are control labels that leak into scraped review text.
var uiArtifacts = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFlag inappropriate\b`),
	regexp.MustCompile(`(?i)\bShow review history\b`),
	regexp.MustCompile(`(?i)\bReport inappropriate\b`),
	regexp.MustCompile(`(?i)\bFull Review\b`),
	regexp.MustCompile(`(?i)\bRead more\b`),
	regexp.MustCompile(`(?i)\bmore_vert\b`),
	regexp.MustCompile(`(?i)\bDid you find this helpful\?`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText removes UI artifacts and collapses whitespace.
func CleanText(value string) string {
	text := value
	for _, pattern := range uiArtifacts {
		text = pattern.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
