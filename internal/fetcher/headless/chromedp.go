// Package headless drives a headless browser for the review modal channel.
package headless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// ErrNavigationStatus is returned when the listing document answers with an error status.
var ErrNavigationStatus = errors.New("navigation returned error status")

// Config controls the browser pool.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// Browser implements review.SessionFactory on top of one Chrome allocator.
// MaxParallel bounds how many sessions may be open at once.
type Browser struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates a session factory backed by chromedp.
func NewChromedp(cfg Config) (*Browser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1280, 2000),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context and shuts Chrome down.
func (b *Browser) Close() {
	b.allocCancel()
}

// NewSession opens a fresh tab. The caller must Close it.
func (b *Browser) NewSession(ctx context.Context) (review.RenderSession, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}

	taskCtx, taskCancel := chromedp.NewContext(b.allocator)
	meta := &responseMeta{}
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	// The first Run creates the tab and must not use a context that expires.
	stop := context.AfterFunc(ctx, taskCancel)
	err := chromedp.Run(taskCtx)
	stop()
	if err != nil {
		taskCancel()
		b.release()
		return nil, fmt.Errorf("start browser tab: %w", err)
	}

	return &chromeSession{
		browser: b,
		ctx:     taskCtx,
		cancel:  taskCancel,
		meta:    meta,
	}, nil
}

func (b *Browser) acquire(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	select {
	case b.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait canceled: %w", ctx.Err())
	}
}

func (b *Browser) release() {
	if b.limiter == nil {
		return
	}
	select {
	case <-b.limiter:
	default:
	}
}

func (b *Browser) navTimeout() time.Duration {
	if b.cfg.NavigationTimeout > 0 {
		return b.cfg.NavigationTimeout
	}
	return 45 * time.Second
}

type chromeSession struct {
	browser   *Browser
	ctx       context.Context
	cancel    context.CancelFunc
	meta      *responseMeta
	closeOnce sync.Once
}

// run executes actions on the tab, bounded by the navigation timeout and by
// the caller's context.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.browser.navTimeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("headless canceled: %w", ctx.Err())
		}
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func (s *chromeSession) Open(ctx context.Context, url string) error {
	err := s.run(ctx,
		s.networkSetupAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return err
	}
	if status, _ := s.meta.snapshot(); status >= http.StatusBadRequest {
		return fmt.Errorf("%w: %d", ErrNavigationStatus, status)
	}
	return nil
}

func (s *chromeSession) RunScript(ctx context.Context, script string, out any) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

func (s *chromeSession) Scroll(ctx context.Context, containerSelector string) (bool, error) {
	var moved bool
	if err := s.run(ctx, chromedp.Evaluate(scrollScript(containerSelector), &moved)); err != nil {
		return false, err
	}
	return moved, nil
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.browser.release()
	})
}

func (s *chromeSession) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if s.browser.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(s.browser.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// scrollScript scrolls the first element matching selector (or the document)
// to its bottom and reports whether the offset changed.
func scrollScript(selector string) string {
	quoted, _ := json.Marshal(selector) //nolint:errchkjson // string input
	return fmt.Sprintf(`(() => {
  const el = document.querySelector(%s) || document.scrollingElement || document.body;
  const before = el.scrollTop;
  el.scrollTop = el.scrollHeight;
  if (el === document.scrollingElement) { window.scrollTo(0, document.body.scrollHeight); }
  return el.scrollTop !== before;
})()`, quoted)
}

// responseMeta records the status of the main document response.
type responseMeta struct {
	mu     sync.RWMutex
	status int
	url    string
}

func (m *responseMeta) capture(event *network.EventResponseReceived) {
	if event.Type != network.ResourceTypeDocument || event.Response == nil {
		return
	}
	m.mu.Lock()
	m.status = int(event.Response.Status)
	m.url = event.Response.URL
	m.mu.Unlock()
}

func (m *responseMeta) snapshot() (int, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status, m.url
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}
