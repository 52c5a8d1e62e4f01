package embedding

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// backoff retries transient failures with exponential delays. A server's
// Retry-After hint replaces the computed delay, still capped at max.
type backoff struct {
	attempts int
	base     time.Duration
	max      time.Duration
	sleep    func(time.Duration) // nil uses a context-aware timer
}

func (b backoff) run(ctx context.Context, call func() ([]float64, error)) ([]float64, error) {
	attempts := max(b.attempts, 1)
	for attempt := 1; ; attempt++ {
		vector, err := call()
		if err == nil {
			return vector, nil
		}
		hint, transient := retryable(err)
		if !transient || attempt >= attempts || ctx.Err() != nil {
			return nil, err
		}
		if err := b.wait(ctx, b.delay(attempt, hint)); err != nil {
			return nil, err
		}
	}
}

// delay is base*2^(attempt-1) unless hint is set.
func (b backoff) delay(attempt int, hint time.Duration) time.Duration {
	d := hint
	if d <= 0 {
		if b.base <= 0 {
			return 0
		}
		d = b.base << min(attempt-1, 16)
	}
	if b.max > 0 && d > b.max {
		d = b.max
	}
	return d
}

func (b backoff) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if b.sleep != nil {
		b.sleep(d)
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

// retryable reports whether err is worth another attempt: 408, 429, 5xx and
// network timeouts. Context cancellation never is.
func retryable(err error) (time.Duration, bool) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var status *statusError
	if errors.As(err, &status) {
		switch {
		case status.code == http.StatusRequestTimeout,
			status.code == http.StatusTooManyRequests,
			status.code >= http.StatusInternalServerError:
			return status.retryAfter, true
		}
		return 0, false
	}
	var netErr net.Error
	return 0, errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Past or invalid
// values yield zero.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		return max(time.Until(when), 0)
	}
	return 0
}
