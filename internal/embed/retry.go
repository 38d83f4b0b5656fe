package embed

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// MaxRetries is how many times a retryable backend failure is retried.
const MaxRetries = 3

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 15 * time.Second
)

// RetryableError is a transient backend failure: rate limiting or a 5xx.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration // Server-requested delay, 0 when absent
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("embedding backend status %d: %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err wraps a RetryableError.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns the wait before retry attempt n (0-indexed): exponential
// from backoffBase, capped, plus up to 50% jitter.
func Backoff(attempt int) time.Duration {
	d := backoffCap
	if attempt < 16 {
		d = min(backoffBase<<attempt, backoffCap)
	}
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

// retryDelay is the longer of the computed backoff and the server's request.
func retryDelay(err error, backoff time.Duration) time.Duration {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) && retryErr.RetryAfter > backoff {
		return retryErr.RetryAfter
	}
	return backoff
}

// parseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(t.Sub(now), 0)
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
