package headless

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

func TestNewChromedpLimiterValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChromedp(Config{MaxParallel: -1}); err == nil {
		t.Fatal("expected error for negative max parallel")
	}
	browser, err := NewChromedp(Config{MaxParallel: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer browser.Close()
	if cap(browser.limiter) != 2 {
		t.Fatalf("expected limiter capacity 2, got %d", cap(browser.limiter))
	}
}

func TestBrowserNavTimeoutDefault(t *testing.T) {
	t.Parallel()

	browser := &Browser{}
	if got := browser.navTimeout(); got != 45*time.Second {
		t.Fatalf("expected default nav timeout, got %v", got)
	}
	browser.cfg.NavigationTimeout = time.Second
	if got := browser.navTimeout(); got != time.Second {
		t.Fatalf("expected override to be used, got %v", got)
	}
}

func TestBrowserAcquireHonorsContext(t *testing.T) {
	t.Parallel()

	browser := &Browser{limiter: make(chan struct{}, 1)}
	if err := browser.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := browser.acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	browser.release()
	if err := browser.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	browser.release()
	browser.release()
}

func TestResponseMetaCapturesDocumentOnly(t *testing.T) {
	t.Parallel()

	meta := &responseMeta{}
	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		Response: &network.Response{Status: 500, URL: "https://play.google.com/app.js"},
	})
	if status, _ := meta.snapshot(); status != 0 {
		t.Fatalf("script response should be ignored, got %d", status)
	}

	meta.captureEvent(&network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 404, URL: "https://play.google.com/store/apps/details?id=x"},
	})
	status, url := meta.snapshot()
	if status != 404 || !strings.Contains(url, "id=x") {
		t.Fatalf("unexpected snapshot: status=%d url=%s", status, url)
	}
}

func TestScrollScriptQuotesSelector(t *testing.T) {
	t.Parallel()

	script := scrollScript(`div[aria-label="x"]`)
	if !strings.Contains(script, `document.querySelector("div[aria-label=\"x\"]")`) {
		t.Fatalf("selector not JSON-quoted: %s", script)
	}
}

func TestExpandTermsSkipMenuLabels(t *testing.T) {
	t.Parallel()

	menuLabels := []string{"more options", "more_vert", "more actions", "mehr optionen", "weitere optionen", "daha fazla seçenek", "más opciones", "leggi di più"}
	for _, label := range menuLabels {
		for _, term := range expandTerms {
			if strings.Contains(label, term) {
				t.Fatalf("expand term %q matches menu label %q", term, label)
			}
		}
	}
	for _, label := range []string{"full review", "tam yorumu göster", "read more about this"} {
		matched := false
		for _, term := range expandTerms {
			matched = matched || strings.Contains(label, term)
		}
		if !matched {
			t.Fatalf("expected %q to match an expand term", label)
		}
	}
	if !strings.Contains(expandScript, `"full review"`) || strings.Contains(expandScript, "TERMS") {
		t.Fatalf("terms not embedded: %s", expandScript)
	}
	if !strings.Contains(expandScript, "aria-haspopup") {
		t.Fatal("expand script must skip popup triggers")
	}
}

func TestNoopSessionFactory(t *testing.T) {
	t.Parallel()

	session, err := NewNoop().NewSession(context.Background())
	if !errors.Is(err, review.ErrRendererDisabled) || session != nil {
		t.Fatalf("expected disabled renderer, got session=%v err=%v", session, err)
	}
}
