package headless

import (
	"context"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// Noop implements review.SessionFactory for deployments without Chrome.
type Noop struct{}

// NewNoop creates a new Noop factory.
func NewNoop() *Noop {
	return &Noop{}
}

// NewSession always fails with review.ErrRendererDisabled.
func (Noop) NewSession(context.Context) (review.RenderSession, error) {
	return nil, review.ErrRendererDisabled
}
