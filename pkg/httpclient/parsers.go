package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseRetryAfter reads a Retry-After header given in seconds or as an
// HTTP date.
func ParseRetryAfter(headers http.Header) time.Duration {
	v := headers.Get("Retry-After")
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// ParseAnthropicHeaders extracts rate limit info from Anthropic API headers.
func ParseAnthropicHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RetryAfter: ParseRetryAfter(headers)}

	for _, h := range []string{
		"anthropic-ratelimit-requests-reset",
		"anthropic-ratelimit-output-tokens-reset",
		"anthropic-ratelimit-input-tokens-reset",
	} {
		if v := headers.Get(h); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				info.ResetAt = t
				break
			}
		}
	}
	info.RequestsRemaining = atoi(headers.Get("anthropic-ratelimit-requests-remaining"))
	info.TokensRemaining = atoi(headers.Get("anthropic-ratelimit-output-tokens-remaining"))
	return info
}

// ParseOpenAIHeaders extracts rate limit info from OpenAI API headers.
func ParseOpenAIHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RetryAfter: ParseRetryAfter(headers)}

	// x-ratelimit-reset-* are durations like "6m0s" or "20ms".
	for _, h := range []string{"x-ratelimit-reset-requests", "x-ratelimit-reset-tokens"} {
		if v := headers.Get(h); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				info.ResetAt = time.Now().Add(d)
				break
			}
		}
	}
	info.RequestsRemaining = atoi(headers.Get("x-ratelimit-remaining-requests"))
	info.TokensRemaining = atoi(headers.Get("x-ratelimit-remaining-tokens"))
	return info
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
