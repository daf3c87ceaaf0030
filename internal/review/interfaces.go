package review

import "context"

// Channel is one extraction strategy. Attempt always returns the reviews it
// collected, even alongside a non-nil error.
type Channel interface {
	Name() ChannelTag
	Attempt(ctx context.Context, req ExtractionRequest) (ChannelResult, error)
}

// MarkupSource produces rendered listing markup for the HTML channels.
type MarkupSource interface {
	FetchMarkup(ctx context.Context, appURL string, limit int) (string, error)
}

// RenderSession is a single headless browser tab.
type RenderSession interface {
	Open(ctx context.Context, url string) error
	RunScript(ctx context.Context, script string, out any) error
	Scroll(ctx context.Context, containerSelector string) (bool, error)
	HTML(ctx context.Context) (string, error)
	Close()
}

// SessionFactory opens browser sessions.
type SessionFactory interface {
	NewSession(ctx context.Context) (RenderSession, error)
}

// Enricher attaches downstream analysis to a review.
type Enricher interface {
	Enrich(body, title string, rating *float64, languageHint string) (map[string]any, error)
}

// Redactor masks PII; it must be idempotent and safe on empty input.
type Redactor interface {
	Redact(text, languageHint string) string
}

// Hasher computes digests for anonymization.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// IDGenerator produces request ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Acquirer runs a full acquisition for one request.
type Acquirer interface {
	Acquire(ctx context.Context, req ExtractionRequest) (ExtractionOutcome, error)
}
