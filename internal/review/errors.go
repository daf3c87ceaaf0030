package review

import "errors"

var (
	// ErrRendererDisabled is returned by session factories when no browser is configured.
	ErrRendererDisabled = errors.New("headless renderer disabled")
	// ErrNoMarkup is returned when a markup source produced nothing usable.
	ErrNoMarkup = errors.New("no markup")
)
