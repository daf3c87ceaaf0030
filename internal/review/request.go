package review

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidRequest is returned when a request cannot be executed at all.
var ErrInvalidRequest = errors.New("invalid extraction request")

// ListingBaseURL is the marketplace listing page for an app.
const ListingBaseURL = "https://play.google.com/store/apps/details"

// MaxLimit is the largest review count a single request may ask for.
const MaxLimit = 10000

const (
	defaultCountry  = "us"
	defaultLanguage = "en"
	maxRatingValue  = 5.0
)

// Normalize validates the request and fills defaults. droppedMax is true when
// the max bound was below the min bound and has been removed.
func (r ExtractionRequest) Normalize() (ExtractionRequest, bool, error) {
	r.AppID = strings.TrimSpace(r.AppID)
	if r.AppID == "" {
		return r, false, fmt.Errorf("%w: app_id required", ErrInvalidRequest)
	}
	if r.Limit < 1 {
		return r, false, fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidRequest, r.Limit)
	}
	if r.Limit > MaxLimit {
		return r, false, fmt.Errorf("%w: limit must be <= %d, got %d", ErrInvalidRequest, MaxLimit, r.Limit)
	}
	r.Country = strings.ToLower(strings.TrimSpace(r.Country))
	if r.Country == "" {
		r.Country = defaultCountry
	}
	r.Language = strings.TrimSpace(r.Language)
	if r.Language == "" {
		r.Language = defaultLanguage
	}
	if r.Sort == 0 {
		r.Sort = DefaultSort
	}
	r.MinRating = clampRating(r.MinRating)

	dropped := false
	if r.MaxRating != nil {
		maxValue := clampRating(*r.MaxRating)
		if maxValue < r.MinRating {
			r.MaxRating = nil
			dropped = true
		} else {
			r.MaxRating = &maxValue
		}
	}
	if r.InterPageDelay < 0 {
		r.InterPageDelay = 0
	}
	return r, dropped, nil
}

func clampRating(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > maxRatingValue {
		return maxRatingValue
	}
	return v
}

// ListingURL builds the listing page URL with optional hl/gl parameters.
func ListingURL(base string, r ExtractionRequest) string {
	if base == "" {
		base = ListingBaseURL
	}
	params := url.Values{}
	params.Set("id", r.AppID)
	if r.Language != "" {
		params.Set("hl", r.Language)
	}
	if r.Country != "" {
		params.Set("gl", strings.ToLower(r.Country))
	}
	return base + "?" + params.Encode()
}
