// Package markup adapts a rendered-markup source into a review channel.
package markup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/htmlparse"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// Channel fetches listing markup once, parses it and applies the request
// filters. The secondary and tertiary channels are both instances of it.
type Channel struct {
	tag     review.ChannelTag
	source  review.MarkupSource
	parser  *htmlparse.Parser
	baseURL string
	logger  *zap.Logger
}

// Option customizes a Channel.
type Option func(*Channel)

// WithListingBase overrides the listing page base URL.
func WithListingBase(base string) Option {
	return func(c *Channel) {
		c.baseURL = base
	}
}

// New builds a markup channel reporting under tag.
func New(tag review.ChannelTag, source review.MarkupSource, parser *htmlparse.Parser, logger *zap.Logger, opts ...Option) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if parser == nil {
		parser = htmlparse.New(logger)
	}
	c := &Channel{
		tag:     tag,
		source:  source,
		parser:  parser,
		baseURL: review.ListingBaseURL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements review.Channel.
func (c *Channel) Name() review.ChannelTag { return c.tag }

// Attempt implements review.Channel. A source failure yields an empty result
// and the wrapped error.
func (c *Channel) Attempt(ctx context.Context, req review.ExtractionRequest) (review.ChannelResult, error) {
	var result review.ChannelResult
	if req.Limit < 1 {
		return result, fmt.Errorf("%w: limit %d", review.ErrInvalidRequest, req.Limit)
	}

	appURL := review.ListingURL(c.baseURL, req)
	markup, err := c.source.FetchMarkup(ctx, appURL, req.Limit)
	if err != nil {
		return result, fmt.Errorf("%s fetch: %w", c.tag, err)
	}
	result.PagesFetched = 1

	parsed := c.parser.Parse(markup, 0)
	result.Reviews = review.FilterFor(req).Apply(parsed, req.Limit, &result)
	c.logger.Debug("markup parsed",
		zap.String("channel", string(c.tag)),
		zap.String("app_id", req.AppID),
		zap.Int("parsed", len(parsed)),
		zap.Int("kept", len(result.Reviews)),
	)
	return result, nil
}
