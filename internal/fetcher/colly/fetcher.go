// Package collyfetcher fetches the server-rendered listing page with gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/realtime-review-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	Throttle      *ratelimit.Limiter
}

// StaticSource implements review.MarkupSource with a plain GET of the listing.
type StaticSource struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// fetchResult is filled in by the collector callbacks.
type fetchResult struct {
	status int
	body   []byte
	err    error
}

// New builds a StaticSource. The base collector is configured once; each
// fetch works on a clone so concurrent calls never share callbacks.
func New(cfg Config) *StaticSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &StaticSource{cfg: cfg, baseCollector: c}
}

// FetchMarkup implements review.MarkupSource. The limit is ignored: the
// static page carries whatever the server chose to render.
func (s *StaticSource) FetchMarkup(ctx context.Context, appURL string, _ int) (string, error) {
	if err := s.cfg.Throttle.Wait(ctx, appURL); err != nil {
		return "", fmt.Errorf("static throttle: %w", err)
	}
	collector := s.baseCollector.Clone()
	var result fetchResult
	configureCollectorHooks(collector, acceptLanguage(appURL), &result)

	if err := runCollector(ctx, collector, appURL, &result); err != nil {
		return "", err
	}
	markup := string(result.body)
	if strings.TrimSpace(markup) == "" {
		return "", review.ErrNoMarkup
	}
	return markup, nil
}

func configureCollectorHooks(hooks collectorHooks, language string, result *fetchResult) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
		if language != "" {
			r.Headers.Set("Accept-Language", language)
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

func runCollector(ctx context.Context, collector *colly.Collector, target string, result *fetchResult) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if result.err != nil {
			return fmt.Errorf("colly response failed (status %d): %w", result.status, result.err)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

// acceptLanguage derives the header from the listing's hl parameter.
func acceptLanguage(appURL string) string {
	parsed, err := url.Parse(appURL)
	if err != nil {
		return ""
	}
	hl := strings.TrimSpace(parsed.Query().Get("hl"))
	if hl == "" {
		return ""
	}
	return strings.ReplaceAll(hl, "_", "-") + ",en;q=0.8"
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
