// Package protocol encodes and decodes the review batchexecute RPC.
//
// The backend speaks a positional JSON dialect: requests carry a doubly
// nested, string-escaped array in a single form field, and responses are
// newline-delimited JSON chunks behind an anti-hijack prefix. Field meaning is
// carried only by array position, so every position used here has a named
// offset below. Positions beyond the ones we read are ignored.
package protocol

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// Wire constants for schema version "UsvDTd".
const (
	RPCID       = "UsvDTd"
	FormField   = "f.req"
	XSSIPrefix  = ")]}'"
	MaxPageSize = 200

	frameTag        = "wrb.fr"
	frameMinLen     = 3
	frameTagIdx     = 0
	frameRPCIdx     = 1
	framePayloadIdx = 2

	requestMode       = 2
	appKindMarker     = 7
	requestSuffixName = "generic"
)

// Payload offsets.
const (
	payloadEntriesIdx = 0
	payloadPagingIdx  = 1
	pagingCursorIdx   = 1
)

// Entry offsets as observed on the wire.
const (
	entryReviewIDIdx  = 0 // string id
	entryAuthorIdx    = 1 // [display name, avatar block...]
	entryRatingIdx    = 2 // number 1..5
	entryTitleIdx     = 3 // usually null
	entryBodyIdx      = 4 // review text
	entryTimestampIdx = 5 // [seconds, nanos]
	entryHelpfulIdx   = 6 // thumbs-up count
	entryVersionIdx   = 10
	entryMinLen       = 5
)

// Encode builds the form-encoded request body for one page.
func Encode(appID string, sort review.Sort, pageSize int, cursor string) string {
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	var token any
	if cursor != "" {
		token = cursor
	}
	inner := []any{
		nil,
		nil,
		[]any{requestMode, int(sort), []any{pageSize, nil, token}, nil, []any{}},
		[]any{appID, appKindMarker},
	}
	innerJSON, _ := json.Marshal(inner) //nolint:errchkjson // static shape of strings and ints
	outer := []any{[]any{[]any{RPCID, string(innerJSON), nil, requestSuffixName}}}
	outerJSON, _ := json.Marshal(outer) //nolint:errchkjson // static shape of strings and ints

	form := url.Values{}
	form.Set(FormField, string(outerJSON))
	return form.Encode()
}

// Decode extracts review entries and the next cursor from a response body.
// Any failure yields (nil, "").
func Decode(responseText string) ([]review.RawReview, string) {
	payload, ok := locatePayload(responseText)
	if !ok {
		return nil, ""
	}
	var root []any
	if err := json.Unmarshal([]byte(payload), &root); err != nil {
		return nil, ""
	}

	var entries []review.RawReview
	if block, ok := index(root, payloadEntriesIdx).([]any); ok {
		for _, item := range block {
			if raw, ok := decodeEntry(item); ok {
				entries = append(entries, raw)
			}
		}
	}

	cursor := ""
	if paging, ok := index(root, payloadPagingIdx).([]any); ok {
		if token, ok := index(paging, pagingCursorIdx).(string); ok {
			cursor = token
		}
	}
	return entries, cursor
}

func locatePayload(responseText string) (string, bool) {
	text := strings.TrimSpace(responseText)
	if !strings.HasPrefix(text, XSSIPrefix) {
		return "", false
	}
	text = strings.TrimPrefix(text, XSSIPrefix)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		var outer []any
		if err := json.Unmarshal([]byte(line), &outer); err != nil {
			continue
		}
		for _, chunk := range outer {
			frame, ok := chunk.([]any)
			if !ok || len(frame) < frameMinLen {
				continue
			}
			if frame[frameTagIdx] != frameTag || frame[frameRPCIdx] != RPCID {
				continue
			}
			if payload, ok := frame[framePayloadIdx].(string); ok {
				return payload, true
			}
		}
	}
	return "", false
}

func decodeEntry(item any) (review.RawReview, bool) {
	entry, ok := item.([]any)
	if !ok || len(entry) < entryMinLen {
		return review.RawReview{}, false
	}

	var raw review.RawReview
	if id, ok := index(entry, entryReviewIDIdx).(string); ok {
		raw.NodeID = id
	}
	if author, ok := index(entry, entryAuthorIdx).([]any); ok {
		if name, ok := index(author, 0).(string); ok {
			raw.Author = name
		}
	}
	if rating, ok := index(entry, entryRatingIdx).(float64); ok {
		raw.Rating = &rating
	}
	if title, ok := index(entry, entryTitleIdx).(string); ok {
		raw.Title = title
	}
	if body, ok := index(entry, entryBodyIdx).(string); ok {
		raw.Body = body
	}
	raw.PostedAt = formatTimestamp(index(entry, entryTimestampIdx))
	if helpful, ok := index(entry, entryHelpfulIdx).(float64); ok {
		count := int(helpful)
		raw.HelpfulCount = &count
	}
	switch v := index(entry, entryVersionIdx).(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			raw.AppVersion = &s
		}
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		raw.AppVersion = &s
	}
	return raw, true
}

func formatTimestamp(v any) string {
	pair, ok := v.([]any)
	if !ok || len(pair) == 0 {
		return ""
	}
	seconds, ok := pair[0].(float64)
	if !ok {
		return ""
	}
	nanos, _ := index(pair, 1).(float64)
	return time.Unix(int64(seconds), int64(nanos)).UTC().Format(time.RFC3339Nano)
}

func index(arr []any, i int) any {
	if i < 0 || i >= len(arr) {
		return nil
	}
	return arr[i]
}
