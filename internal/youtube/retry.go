package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

// StatusError is returned for non-2xx responses from plain HTTP fetches.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// retryable reports whether err is worth another attempt: rate limiting
// or a server-side failure.
func retryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Code == http.StatusTooManyRequests || serr.Code >= 500
	}
	return false
}

type caller struct {
	limiter    *rate.Limiter
	maxRetries int
	interval   time.Duration
}

func newCaller(rps float64, maxRetries int) caller {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return caller{
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: maxRetries,
		interval:   500 * time.Millisecond,
	}
}

// do waits for the limiter before every attempt and retries retryable
// failures with exponential backoff.
func (c caller) do(ctx context.Context, op func() error) error {
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.interval
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute

	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx))
}
