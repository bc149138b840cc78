package llm

import (
	"math"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// defaultRateLimitWait is used when a 429 carries no usable hint.
const defaultRateLimitWait = 30 * time.Second

// CalculateBackoff returns the wait before retry number attempt (0-based):
// exponential growth from base, capped at max, with up to 25% jitter so
// concurrent runs do not retry in lockstep.
func CalculateBackoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = 60 * time.Second
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max || delay < 0 {
		delay = max
	}
	jitter := time.Duration(rand.Int64N(int64(delay)/4 + 1))
	return delay + jitter
}

var retryAfterBodyPattern = regexp.MustCompile(`(?i)try again in\s+([0-9.]+)\s*(ms|s|seconds?|m|minutes?)`)

// ParseRetryAfter extracts the wait a rate-limited response asks for, checking
// the Retry-After header first and then the error message body. Falls back to
// a conservative default when neither parses.
func ParseRetryAfter(header http.Header, body string) time.Duration {
	if header != nil {
		if raw := header.Get("Retry-After"); raw != "" {
			if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
			if at, err := http.ParseTime(raw); err == nil {
				if wait := time.Until(at); wait > 0 {
					return wait
				}
			}
		}
	}

	if m := retryAfterBodyPattern.FindStringSubmatch(body); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err == nil && value > 0 {
			switch m[2][0] {
			case 'm', 'M':
				if m[2] == "ms" {
					return time.Duration(value * float64(time.Millisecond))
				}
				return time.Duration(value * float64(time.Minute))
			default:
				return time.Duration(value * float64(time.Second))
			}
		}
	}

	return defaultRateLimitWait
}
