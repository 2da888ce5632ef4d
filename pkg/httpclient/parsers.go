package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseRetryAfterHeader reads the standard Retry-After response header
// (RFC 7231 §7.1.3), which an MCP server may send on a 429 or 503. The
// header is either a delta in seconds or an HTTP-date; both forms are
// accepted. An absent or unparseable header yields a zero RateLimitInfo,
// which falls back to the strategy's own backoff calculation.
func ParseRetryAfterHeader(headers http.Header) RateLimitInfo {
	raw := headers.Get("Retry-After")
	if raw == "" {
		return RateLimitInfo{}
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		return RateLimitInfo{RetryAfter: time.Duration(seconds) * time.Second}
	}

	if when, err := http.ParseTime(raw); err == nil {
		if delay := time.Until(when); delay > 0 {
			return RateLimitInfo{ResetTime: when.Unix()}
		}
	}

	return RateLimitInfo{}
}
