// Package rpc implements the primary review channel over the batchexecute RPC.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/realtime-review-crawler/internal/metrics"
	"github.com/JakeFAU/realtime-review-crawler/internal/pagination"
	"github.com/JakeFAU/realtime-review-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/realtime-review-crawler/internal/protocol"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultEndpoint       = "https://play.google.com/_/PlayStoreUi/data/batchexecute"
	DefaultBuildLabel     = "boq_playuiserver_20231101.08_p0"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultMaxPages       = 50
	DefaultInterPageDelay = 500 * time.Millisecond
	DefaultTimeout        = 30 * time.Second

	sourcePath      = "/store/apps/details"
	formContentType = "application/x-www-form-urlencoded;charset=UTF-8"
	origin          = "https://play.google.com"
	reqIDStride     = 100000
)

// ErrUnexpectedStatus is returned when the endpoint answers with anything but 200.
var ErrUnexpectedStatus = errors.New("rpc unexpected status")

// Config controls the RPC channel.
type Config struct {
	Endpoint       string
	UserAgent      string
	BuildLabel     string
	PageSize       int
	MaxPages       int
	InterPageDelay time.Duration
	Timeout        time.Duration
	// Throttle is shared with other channels hitting the same host; nil disables it.
	Throttle *ratelimit.Limiter
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.BuildLabel == "" {
		c.BuildLabel = DefaultBuildLabel
	}
	if c.PageSize <= 0 || c.PageSize > protocol.MaxPageSize {
		c.PageSize = protocol.MaxPageSize
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.InterPageDelay < 0 {
		c.InterPageDelay = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Channel pages through the RPC endpoint. It is safe for concurrent use; all
// per-extraction state lives inside Attempt.
type Channel struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
	decode        func(string) ([]review.RawReview, string)
}

// New builds the primary channel.
func New(cfg Config, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Channel{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
		decode:        protocol.Decode,
	}
}

// Name implements review.Channel.
func (c *Channel) Name() review.ChannelTag { return review.ChannelPrimary }

// Attempt fetches pages until the cursor policy stops it. Transport errors and
// non-200 answers abort the loop; whatever was kept so far is returned.
func (c *Channel) Attempt(ctx context.Context, req review.ExtractionRequest) (review.ChannelResult, error) {
	var result review.ChannelResult
	if req.Limit < 1 {
		return result, fmt.Errorf("%w: limit %d", review.ErrInvalidRequest, req.Limit)
	}

	maxPages := c.cfg.MaxPages
	if req.MaxPages > 0 {
		maxPages = req.MaxPages
	}
	delay := c.cfg.InterPageDelay
	if req.InterPageDelay > 0 {
		delay = req.InterPageDelay
	}
	limiter := newLimiter(delay)
	filter := review.FilterFor(req)
	tracker := pagination.NewTracker()
	reqSeed := rand.IntN(9000) + 1000 //nolint:gosec // request id, not a secret
	logger := c.logger.With(zap.String("app_id", req.AppID), zap.String("channel", string(review.ChannelPrimary)))

	cursor := ""
	for {
		if err := limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("rpc pacing: %w", err)
		}
		remaining := req.Limit - len(result.Reviews)
		pageSize := min(remaining, c.cfg.PageSize)

		body := protocol.Encode(req.AppID, req.Sort, pageSize, cursor)
		endpoint := c.endpointURL(req, reqSeed+result.PagesFetched*reqIDStride)
		if err := c.cfg.Throttle.Wait(ctx, endpoint); err != nil {
			return result, fmt.Errorf("rpc throttle: %w", err)
		}
		text, status, err := c.post(ctx, endpoint, body)
		if status != 0 {
			metrics.ObserveRPCStatus(status)
		}
		if err != nil {
			logger.Warn("rpc page failed", zap.Int("page", result.PagesFetched+1), zap.Int("status", status), zap.Error(err))
			return result, err
		}
		result.PagesFetched++

		raws, next := c.decode(text)
		if len(raws) == 0 {
			metrics.ObserveRPCPage("decode_empty")
			logger.Debug("rpc page empty", zap.Int("page", result.PagesFetched))
			return result, nil
		}
		kept := filter.Apply(raws, remaining, &result)
		result.Reviews = append(result.Reviews, kept...)
		logger.Debug("rpc page decoded",
			zap.Int("page", result.PagesFetched),
			zap.Int("entries", len(raws)),
			zap.Int("kept", len(kept)),
		)

		decision := tracker.Check(len(result.Reviews), req.Limit, next, result.PagesFetched, maxPages)
		if decision != pagination.Continue {
			logger.Debug("rpc pagination stopped", zap.String("reason", string(decision)), zap.Int("pages", result.PagesFetched))
			return result, nil
		}
		cursor = next
	}
}

func (c *Channel) endpointURL(req review.ExtractionRequest, reqID int) string {
	params := url.Values{}
	params.Set("rpcids", protocol.RPCID)
	params.Set("source-path", sourcePath)
	params.Set("f.sid", "-1")
	params.Set("bl", c.cfg.BuildLabel)
	params.Set("hl", req.Language)
	params.Set("gl", strings.ToLower(req.Country))
	params.Set("_reqid", strconv.Itoa(reqID))
	params.Set("rt", "c")
	return c.cfg.Endpoint + "?" + params.Encode()
}

func (c *Channel) post(ctx context.Context, endpoint, body string) (string, int, error) {
	collector := c.baseCollector.Clone()

	var (
		text     string
		status   int
		fetchErr error
	)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Content-Type", formContentType)
		r.Headers.Set("X-Same-Domain", "1")
		r.Headers.Set("Origin", origin)
		r.Headers.Set("Referer", origin+"/")
	})
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		text = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.PostRaw(endpoint, []byte(body))
	}()

	select {
	case <-ctx.Done():
		return "", 0, fmt.Errorf("rpc post canceled: %w", ctx.Err())
	case err := <-done:
		if status != 0 && status != http.StatusOK {
			return "", status, fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
		}
		if fetchErr != nil {
			return "", status, fmt.Errorf("rpc response failed: %w", fetchErr)
		}
		if err != nil {
			return "", status, fmt.Errorf("rpc post failed: %w", err)
		}
		if status != http.StatusOK {
			return "", status, fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
		}
		return text, status, nil
	}
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
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
