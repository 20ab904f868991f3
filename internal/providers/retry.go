package providers

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// RetryConfig controls the backoff schedule RetryDo applies around one
// provider HTTP call.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches the cooldown-driven retry posture described
// in §4.4: a handful of attempts with exponential backoff, capped so a
// flaky upstream doesn't stall a turn indefinitely.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// HTTPError wraps a non-2xx provider HTTP response with the bits the
// failure classifier in the resolver needs: status code and, for 429s,
// the server-advertised retry-after duration.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return "provider http error: status=" + strconv.Itoa(e.Status) + " body=" + e.Body
}

// ParseRetryAfter parses a Retry-After header value, which per RFC 7231
// is either an integer number of seconds or an HTTP-date. Unparseable or
// empty input yields zero (caller falls back to its own backoff).
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}

// isRetryableStatus reports whether an HTTP status warrants a retry:
// rate limiting and transient server errors, not client/auth errors.
func isRetryableStatus(status int) bool {
	if status == 429 {
		return true
	}
	return status >= 500
}

// RetryDo runs fn up to cfg.MaxAttempts times, backing off between
// attempts. A *HTTPError with a non-retryable status (4xx other than
// 429) is returned immediately without consuming further attempts. The
// context is checked before every attempt so cooperative cancellation
// (§5) interrupts a retry loop promptly.
func RetryDo[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var zero T
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !isRetryableStatus(httpErr.Status) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := delay
		var httpErr2 *HTTPError
		if errors.As(err, &httpErr2) && httpErr2.RetryAfter > 0 {
			wait = httpErr2.RetryAfter
		}
		if wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, lastErr
}
