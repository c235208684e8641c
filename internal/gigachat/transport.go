package gigachat

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const maxJitter = 500 * time.Millisecond

// TokenInvalidator drops a cached credential so the next request builds with
// a fresh one. Implemented by CredentialManager.
type TokenInvalidator interface {
	Invalidate()
}

// RequestBuilder materializes a fresh *http.Request for one attempt. It is
// invoked once per attempt so the body and the bearer token are rebuilt after
// a failure.
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Transport executes HTTP requests with bounded retries and exponential
// backoff with jitter. Each Do call gets its own retry budget; sleeping
// between attempts never blocks other in-flight calls.
//
// Failure classification:
//   - connection errors, timeouts, resets, 429 and 5xx → transient, retried
//   - 401/403 → transient, and the cached credential is invalidated first
//   - anything else → fatal, propagated immediately
type Transport struct {
	client      *http.Client
	maxRetries  int
	baseDelay   time.Duration
	timeout     time.Duration
	invalidator TokenInvalidator

	// sleep and jitter are swapped in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// NewTransport creates a transport with the given retry budget, base backoff
// delay, and per-attempt timeout.
func NewTransport(maxRetries int, baseDelay, timeout time.Duration) *Transport {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Transport{
		client:     &http.Client{},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		timeout:    timeout,
		sleep:      sleepCtx,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

// SetInvalidator wires the credential manager whose token is dropped on
// 401/403 responses.
func (t *Transport) SetInvalidator(inv TokenInvalidator) { t.invalidator = inv }

// Do executes the request with retries. It returns the first successful or
// non-retryable response; responses are returned as-is, status handling is
// the caller's concern. The int result is the number of attempts made.
//
// After maxRetries consecutive transient failures the last response is
// returned if one exists (retryable status), otherwise a *TransportError
// wrapping the last network fault.
func (t *Transport) Do(ctx context.Context, build RequestBuilder) (*http.Response, int, error) {
	var lastErr error

	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		req, err := build(ctx)
		if err != nil {
			// Request construction failures (including credential refresh
			// failures) are fatal for this call.
			return nil, attempt, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
		resp, err := t.client.Do(req.WithContext(attemptCtx))

		if err != nil {
			cancel()
			if ctx.Err() != nil {
				// Caller cancelled; not a transient fault.
				return nil, attempt, ctx.Err()
			}
			lastErr = err
			if attempt == t.maxRetries {
				break
			}
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", t.maxRetries).
				Msg("network error, retrying")
			if serr := t.backoff(ctx, attempt); serr != nil {
				return nil, attempt, serr
			}
			continue
		}

		// The attempt context must outlive the response body read, so hand
		// cancellation to the caller via the body wrapper.
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}

		if resp.StatusCode < 300 {
			return resp, attempt, nil
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, attempt, nil
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			if t.invalidator != nil {
				t.invalidator.Invalidate()
			}
		}

		if attempt == t.maxRetries {
			return resp, attempt, nil
		}

		log.Warn().
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Int("max_retries", t.maxRetries).
			Msg("retryable status, retrying")
		drain(resp)
		if serr := t.backoff(ctx, attempt); serr != nil {
			return nil, attempt, serr
		}
	}

	return nil, t.maxRetries, &TransportError{Attempts: t.maxRetries, Err: lastErr}
}

// backoff sleeps base·2^(attempt−1) plus up to 500ms of jitter, honoring
// context cancellation.
func (t *Transport) backoff(ctx context.Context, attempt int) error {
	delay := t.baseDelay*time.Duration(1<<(attempt-1)) + t.jitter()
	return t.sleep(ctx, delay)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden,
		http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// cancelBody releases the per-attempt context when the caller closes the
// response body.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// IsTransient reports whether err is a retries-exhausted transport fault, as
// opposed to a fatal local error.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
