// Package retry implements exponential-backoff retries for the HTTP clients.
package retry

import (
	"context"
	"math"
	"time"
)

// Config holds the retry schedule.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns the schedule the vendor clients use.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// delay computes the backoff for the given zero-based attempt.
func (c Config) delay(attempt int) time.Duration {
	d := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Attempt is one try of the operation. It returns the response body, the
// HTTP status code (0 for transport errors), and an error.
type Attempt func(attempt int) (body []byte, statusCode int, err error)

// Retryable decides whether a failed attempt should be retried.
type Retryable func(err error, statusCode int, body []byte) bool

// Logger receives one line per retry. May be nil.
type Logger func(format string, args ...any)

// Do runs fn until it succeeds, the error is not retryable, retries are
// exhausted, or ctx is cancelled.
func Do(ctx context.Context, cfg Config, retryable Retryable, logf Logger, apiName string, fn Attempt) ([]byte, error) {
	var lastErr error
	var lastBody []byte
	var lastStatus int

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			d := cfg.delay(attempt - 1)
			if logf != nil {
				logf("%s: retry %d/%d after %v (status %d)", apiName, attempt, cfg.MaxRetries, d, lastStatus)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}

		body, status, err := fn(attempt)
		lastErr, lastBody, lastStatus = err, body, status

		retriable := retryable != nil && retryable(err, status, body)
		if err == nil && !retriable {
			return body, nil
		}
		if !retriable {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &ExhaustedError{APIName: apiName, Attempts: cfg.MaxRetries + 1, LastStatus: lastStatus, LastBody: lastBody}
}

// ExhaustedError reports that every attempt failed with a retryable status.
type ExhaustedError struct {
	APIName    string
	Attempts   int
	LastStatus int
	LastBody   []byte
}

func (e *ExhaustedError) Error() string {
	return "retry attempts exhausted for " + e.APIName
}
