package headless

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// ErrModalNotFound is returned when the review dialog never appears.
var ErrModalNotFound = errors.New("review modal not found")

const (
	// DefaultMaxScrolls caps the scroll budget for one fetch.
	DefaultMaxScrolls = 120
	// DefaultSettleDelay is the pause after each scroll or click.
	DefaultSettleDelay = 1200 * time.Millisecond

	minScrolls      = 10
	maxStalls       = 3
	defaultPolls    = 10
	showAllReviews  = "showAllReviews"
	scrollsPerBatch = 4
	scrollHeadroom  = 8
)

// ModalConfig tunes the scroll loop.
type ModalConfig struct {
	MaxScrolls  int
	SettleDelay time.Duration
	ModalPolls  int
}

func (c ModalConfig) withDefaults() ModalConfig {
	if c.MaxScrolls <= 0 {
		c.MaxScrolls = DefaultMaxScrolls
	}
	if c.SettleDelay < 0 {
		c.SettleDelay = 0
	}
	if c.ModalPolls <= 0 {
		c.ModalPolls = defaultPolls
	}
	return c
}

// ModalSource implements review.MarkupSource by opening the "all reviews"
// dialog in a browser tab and scrolling it until enough reviews are loaded.
type ModalSource struct {
	sessions review.SessionFactory
	cfg      ModalConfig
	logger   *zap.Logger
}

// NewModalSource wires a modal source to a session factory.
func NewModalSource(sessions review.SessionFactory, cfg ModalConfig, logger *zap.Logger) *ModalSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModalSource{sessions: sessions, cfg: cfg.withDefaults(), logger: logger}
}

// FetchMarkup implements review.MarkupSource.
func (m *ModalSource) FetchMarkup(ctx context.Context, appURL string, limit int) (string, error) {
	session, err := m.sessions.NewSession(ctx)
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	target := ShowAllReviewsURL(appURL)
	if err := session.Open(ctx, target); err != nil {
		return "", fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := m.ensureModal(ctx, session); err != nil {
		return "", err
	}

	budget := ScrollBudget(limit, m.cfg.MaxScrolls)
	scrolls, loaded, err := m.scroll(ctx, session, limit, budget)
	if err != nil {
		return "", err
	}

	var expanded int
	if err := session.RunScript(ctx, expandScript, &expanded); err != nil {
		m.logger.Debug("expand reviews failed", zap.Error(err))
	} else if expanded > 0 {
		if err := sleep(ctx, m.cfg.SettleDelay); err != nil {
			return "", err
		}
	}

	markup, err := session.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read markup: %w", err)
	}
	if strings.TrimSpace(markup) == "" {
		return "", review.ErrNoMarkup
	}
	m.logger.Debug("modal markup ready",
		zap.String("url", target),
		zap.Int("scrolls", scrolls),
		zap.Int("budget", budget),
		zap.Int("loaded", loaded),
		zap.Int("expanded", expanded),
	)
	return markup, nil
}

func (m *ModalSource) ensureModal(ctx context.Context, s review.RenderSession) error {
	present, err := modalPresent(ctx, s)
	if err != nil {
		return err
	}
	if present {
		return nil
	}

	var clicked bool
	if err := s.RunScript(ctx, openModalScript, &clicked); err != nil {
		return fmt.Errorf("open modal: %w", err)
	}
	if !clicked {
		m.logger.Debug("no review control found")
	}
	for i := 0; i < m.cfg.ModalPolls; i++ {
		if err := sleep(ctx, m.cfg.SettleDelay); err != nil {
			return err
		}
		present, err := modalPresent(ctx, s)
		if err != nil {
			return err
		}
		if present {
			return nil
		}
	}
	return ErrModalNotFound
}

// scroll advances the dialog until limit reviews are loaded, the budget is
// spent, or the count stops growing for maxStalls rounds.
func (m *ModalSource) scroll(ctx context.Context, s review.RenderSession, limit, budget int) (int, int, error) {
	count, stalls, scrolls := 0, 0, 0
	for scrolls < budget {
		if _, err := s.Scroll(ctx, modalScrollSelector); err != nil {
			return scrolls, count, fmt.Errorf("scroll: %w", err)
		}
		scrolls++
		if err := sleep(ctx, m.cfg.SettleDelay); err != nil {
			return scrolls, count, err
		}

		var next int
		if err := s.RunScript(ctx, countReviewsScript, &next); err != nil {
			return scrolls, count, fmt.Errorf("count reviews: %w", err)
		}
		if next >= limit {
			return scrolls, next, nil
		}
		if next <= count {
			stalls++
			if stalls >= maxStalls {
				return scrolls, next, nil
			}
		} else {
			stalls = 0
		}
		count = next
	}
	return scrolls, count, nil
}

func modalPresent(ctx context.Context, s review.RenderSession) (bool, error) {
	var present bool
	if err := s.RunScript(ctx, modalPresentScript, &present); err != nil {
		return false, fmt.Errorf("probe modal: %w", err)
	}
	return present, nil
}

// ScrollBudget returns how many scrolls a fetch of limit reviews may spend.
func ScrollBudget(limit, maxScrolls int) int {
	budget := limit/scrollsPerBatch + scrollHeadroom
	if budget < minScrolls {
		budget = minScrolls
	}
	if maxScrolls > 0 && budget > maxScrolls {
		budget = maxScrolls
	}
	return budget
}

// ShowAllReviewsURL asks the listing page to open with the review list expanded.
func ShowAllReviewsURL(appURL string) string {
	parsed, err := url.Parse(appURL)
	if err != nil {
		return appURL
	}
	q := parsed.Query()
	q.Set(showAllReviews, "true")
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
