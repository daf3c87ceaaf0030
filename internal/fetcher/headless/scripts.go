package headless

import (
	"encoding/json"
	"strings"
)

// Selectors for the review dialog. The first match wins.
const (
	modalRootSelector   = `[aria-modal="true"], .fysCi, .VfPpkd-wzTsW, [role="dialog"], .bN96Pf, .Q8A9H`
	modalScrollSelector = `[aria-modal="true"] .fysCi, .fysCi, [aria-modal="true"] .VfPpkd-wzTsW, [role="dialog"] [jsname], [role="dialog"]`
	reviewCountSelector = `[data-review-id], div.RHo1pe, .RHo1pe`
)

const modalPresentScript = `(() => !!document.querySelector(` + "`" + modalRootSelector + "`" + `))()`

const countReviewsScript = `(() => document.querySelectorAll(` + "`" + reviewCountSelector + "`" + `).length)()`

// openModalScript clicks the control that opens the full review list. It
// tries localized "see all reviews" labels, then known control selectors, then
// any "see" button inside the ratings section.
const openModalScript = `(() => {
  const keywords = ['review', 'yorum', 'bewertung', 'reseña', 'avis', 'recensione', 'recensão'];
  const qualifiers = ['see all', 'view all', 'all reviews', 'tüm', 'alle', 'todas', 'tous', 'tutte', 'todos', 'ratings', 'reviews', 'evaluations'];
  const clickable = Array.from(document.querySelectorAll('button, a, [role="button"]'));
  for (const el of clickable) {
    const label = ((el.innerText || '') + ' ' + (el.getAttribute('aria-label') || '')).toLowerCase();
    if (keywords.some(k => label.includes(k)) && qualifiers.some(q => label.includes(q))) {
      el.click();
      return true;
    }
  }
  const selectors = ['button[aria-label*="reviews"]', 'button[aria-label*="ratings"]', 'a[href*="showReviews"]', 'div[data-g-id="ratings"] button', '.XQDved', '.VfPpkd-LgbsSe'];
  for (const sel of selectors) {
    const el = document.querySelector(sel);
    if (el) {
      el.click();
      return true;
    }
  }
  const section = document.querySelector('div[data-g-id="ratings"], section[aria-label*="atings"]');
  if (section) {
    for (const el of section.querySelectorAll('button, [role="button"]')) {
      if ((el.innerText || '').toLowerCase().includes('see')) {
        el.click();
        return true;
      }
    }
  }
  return false;
})()`

// expandTerms are the "show the whole review" labels in the storefront
// languages. Each must be a full phrase: single words such as "more" also
// appear in overflow menu labels.
var expandTerms = []string{
	"full review",
	"read more",
	"show more",
	"tam yorum",
	"tüm yorumu göster",
	"mehr rezension",
	"reseña completa",
	"leggi recensione",
	"ler resenha completa",
}

// expandScript opens truncated review bodies and reports how many it clicked.
// Popup triggers are skipped.
var expandScript = strings.Replace(`(() => {
  const terms = TERMS;
  let clicked = 0;
  for (const el of document.querySelectorAll('button, [role="button"]')) {
    if (el.hasAttribute('aria-haspopup')) continue;
    const label = ((el.innerText || '') + ' ' + (el.getAttribute('aria-label') || '')).toLowerCase().trim();
    if (label && terms.some(t => label.includes(t))) {
      try { el.click(); clicked++; } catch (e) {}
    }
  }
  return clicked;
})()`, "TERMS", jsTerms(expandTerms), 1)

func jsTerms(terms []string) string {
	raw, err := json.Marshal(terms)
	if err != nil {
		panic(err)
	}
	return string(raw)
}
