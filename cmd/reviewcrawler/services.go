package main

import (
	"context"
	"fmt"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/cascade"
	"github.com/JakeFAU/realtime-review-crawler/internal/channel/markup"
	"github.com/JakeFAU/realtime-review-crawler/internal/channel/rpc"
	"github.com/JakeFAU/realtime-review-crawler/internal/config"
	"github.com/JakeFAU/realtime-review-crawler/internal/enrich"
	collyfetcher "github.com/JakeFAU/realtime-review-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/realtime-review-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/realtime-review-crawler/internal/hash/sha256"
	"github.com/JakeFAU/realtime-review-crawler/internal/htmlparse"
	"github.com/JakeFAU/realtime-review-crawler/internal/id/uuid"
	"github.com/JakeFAU/realtime-review-crawler/internal/normalize"
	"github.com/JakeFAU/realtime-review-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/realtime-review-crawler/internal/redact"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
	"github.com/JakeFAU/realtime-review-crawler/internal/telemetry"
)

const serviceName = "reviewcrawler"

// services holds the long-lived pieces every subcommand shares.
type services struct {
	cfg      config.Config
	logger   *zap.Logger
	acquirer review.Acquirer
	ids      review.IDGenerator
	jobIDs   review.IDGenerator
	closers  []func()
}

// Close releases the browser, flushes spans and syncs the logger.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	_ = s.logger.Sync()
}

// newServices is the services factory; tests swap it for a fake.
var newServices = buildServices

func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (*services, error) {
	svc := &services{cfg: cfg, logger: logger, ids: uuid.New(), jobIDs: uuid.WithPrefix("job_")}

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: serviceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	svc.closers = append(svc.closers, func() { shutdownTracer(tp, logger) })

	userAgent := cfg.HTTP.UserAgent
	if userAgent == "" {
		userAgent = rpc.DefaultUserAgent
	}
	throttle := ratelimit.New(ratelimit.Config{RPS: cfg.HTTP.HostRPS, Burst: cfg.HTTP.HostBurst})
	parser := htmlparse.New(logger.Named("htmlparse"))

	channels := []review.Channel{
		rpc.New(rpc.Config{
			Endpoint:       cfg.RPC.Endpoint,
			UserAgent:      userAgent,
			BuildLabel:     cfg.RPC.BuildLabel,
			PageSize:       cfg.RPC.PageSize,
			MaxPages:       cfg.RPC.MaxPages,
			InterPageDelay: cfg.InterPageDelay(),
			Timeout:        cfg.Timeout(),
			Throttle:       throttle,
		}, logger.Named("rpc")),
	}

	var sessions review.SessionFactory = headlessfetcher.NewNoop()
	if cfg.Headless.Enabled {
		browser, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         userAgent,
			NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			logger.Warn("headless browser init failed, secondary channel disabled", zap.Error(err))
		} else {
			sessions = browser
			svc.closers = append(svc.closers, browser.Close)
		}
	}
	modal := headlessfetcher.NewModalSource(sessions, headlessfetcher.ModalConfig{
		MaxScrolls:  cfg.Headless.MaxScrolls,
		SettleDelay: time.Duration(cfg.Headless.SettleDelayMs) * time.Millisecond,
	}, logger.Named("modal"))
	channels = append(channels, markup.New(review.ChannelSecondary, modal, parser, logger.Named("secondary")))

	if cfg.Static.Enabled {
		static := collyfetcher.New(collyfetcher.Config{
			UserAgent:     userAgent,
			RespectRobots: cfg.Static.RespectRobots,
			Timeout:       cfg.Timeout(),
			Throttle:      throttle,
		})
		channels = append(channels, markup.New(review.ChannelTertiary, static, parser, logger.Named("tertiary")))
	}

	normalizer := normalize.New(sha256.New([]byte(cfg.Privacy.AuthorKey)), redact.New(), enrich.New(), logger.Named("normalize"))
	svc.acquirer = cascade.New(channels, normalizer, svc.ids, logger.Named("cascade"))
	return svc, nil
}

func shutdownTracer(tp *sdktrace.TracerProvider, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}
}
