package htmlparse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// flatText joins the trimmed text nodes under sel with single spaces.
// goquery's Text() concatenates without separators, which glues adjacent
// labels together ("Jane DoeMarch 3").
func flatText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// firstText returns the text of the first selector whose first match is non-empty.
func firstText(node *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		if t := flatText(node.Find(selector).First()); t != "" {
			return t
		}
	}
	return ""
}
