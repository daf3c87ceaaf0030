// Package cascade runs the acquisition channels in order until a request is satisfied.
package cascade

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/metrics"
	"github.com/JakeFAU/realtime-review-crawler/internal/normalize"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
	"github.com/JakeFAU/realtime-review-crawler/internal/telemetry"
)

// Controller implements review.Acquirer. Channels run sequentially; the first
// one is the primary and is always attempted.
type Controller struct {
	channels   []review.Channel
	normalizer *normalize.Normalizer
	ids        review.IDGenerator
	tracer     trace.Tracer
	logger     *zap.Logger
}

// New wires the cascade. Channels are attempted in the given order.
func New(channels []review.Channel, normalizer *normalize.Normalizer, ids review.IDGenerator, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		channels:   channels,
		normalizer: normalizer,
		ids:        ids,
		tracer:     telemetry.Tracer(),
		logger:     logger,
	}
}

// Acquire validates req and runs the cascade. Only an invalid request returns
// an error; channel failures are logged, counted and absorbed.
//
// ChannelUsed starts as primary. A later channel that adds new reviews tags
// the outcome mixed when earlier channels already contributed, otherwise with
// its own tag. An empty outcome is always tagged primary.
func (c *Controller) Acquire(ctx context.Context, req review.ExtractionRequest) (review.ExtractionOutcome, error) {
	req, droppedMax, err := req.Normalize()
	if err != nil {
		return review.ExtractionOutcome{}, err
	}

	requestID := c.newRequestID()
	logger := c.logger.With(zap.String("request_id", requestID), zap.String("app_id", req.AppID))
	if droppedMax {
		logger.Warn("max_rating below min_rating, ignoring upper bound", zap.Float64("min_rating", req.MinRating))
	}

	ctx, span := c.tracer.Start(ctx, "cascade.Acquire", trace.WithAttributes(
		attribute.String("app_id", req.AppID),
		attribute.Int("limit", req.Limit),
		attribute.String("request_id", requestID),
	))
	defer span.End()
	start := time.Now()

	out := review.ExtractionOutcome{
		RequestID:   requestID,
		AppID:       req.AppID,
		ChannelUsed: review.ChannelPrimary,
	}
	merged := newMerger(req.Limit)

	for i, ch := range c.channels {
		if i > 0 && merged.len() >= req.Limit {
			break
		}
		if ctx.Err() != nil {
			logger.Warn("cascade canceled", zap.Error(ctx.Err()))
			break
		}

		res := c.attempt(ctx, logger, ch, req)
		out.PagesFetched += res.PagesFetched
		out.SeenTotal += res.SeenTotal
		out.SkippedRating += res.SkippedRating
		out.SkippedLinkSpam += res.SkippedLinkSpam

		before := merged.len()
		added := 0
		for _, raw := range res.Reviews {
			if merged.add(c.normalizer.Canonical(raw, req.Language)) {
				added++
			}
		}
		if i > 0 && added > 0 {
			if before > 0 {
				out.ChannelUsed = review.ChannelMixed
			} else {
				out.ChannelUsed = ch.Name()
			}
		}
	}

	kept := merged.take(req.Limit)
	if len(kept) == 0 {
		out.ChannelUsed = review.ChannelPrimary
		out.SkippedRating = 0
		out.SkippedLinkSpam = 0
	}
	out.Reviews = make([]review.Review, 0, len(kept))
	for _, r := range kept {
		out.Reviews = append(out.Reviews, c.normalizer.Finalize(r, req.Language))
	}

	elapsed := time.Since(start)
	metrics.ObserveAcquisition(string(out.ChannelUsed), elapsed)
	span.SetAttributes(
		attribute.String("channel_used", string(out.ChannelUsed)),
		attribute.Int("reviews", len(out.Reviews)),
	)
	logger.Info("acquisition complete",
		zap.String("channel_used", string(out.ChannelUsed)),
		zap.Int("reviews", len(out.Reviews)),
		zap.Int("pages_fetched", out.PagesFetched),
		zap.Int("skipped_rating", out.SkippedRating),
		zap.Int("skipped_link_spam", out.SkippedLinkSpam),
		zap.Duration("elapsed", elapsed),
	)
	return out, nil
}

func (c *Controller) attempt(ctx context.Context, logger *zap.Logger, ch review.Channel, req review.ExtractionRequest) review.ChannelResult {
	tag := string(ch.Name())
	ctx, span := c.tracer.Start(ctx, "channel."+tag)
	defer span.End()

	res, err := ch.Attempt(ctx, req)
	metrics.ObserveSkipped("rating", res.SkippedRating)
	metrics.ObserveSkipped("link_spam", res.SkippedLinkSpam)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		level := logger.Warn
		if errors.Is(err, review.ErrRendererDisabled) {
			level = logger.Debug
		}
		level("channel aborted",
			zap.String("channel", tag),
			zap.Int("kept", len(res.Reviews)),
			zap.Error(err),
		)
	case len(res.Reviews) == 0:
		outcome = metrics.OutcomeEmpty
	}
	metrics.ObserveChannelAttempt(tag, outcome, len(res.Reviews))
	span.SetAttributes(attribute.Int("kept", len(res.Reviews)), attribute.Int("pages", res.PagesFetched))

	logger.Info("channel finished",
		zap.String("channel", tag),
		zap.Int("kept", len(res.Reviews)),
		zap.Int("pages", res.PagesFetched),
		zap.Int("seen", res.SeenTotal),
	)
	return res
}

func (c *Controller) newRequestID() string {
	if c.ids == nil {
		return ""
	}
	id, err := c.ids.NewID()
	if err != nil {
		c.logger.Warn("request id generation failed", zap.Error(err))
		return ""
	}
	return id
}
