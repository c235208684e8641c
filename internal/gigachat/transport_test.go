package gigachat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestTransport returns a transport with deterministic backoff: zero
// jitter and a sleep hook that records delays instead of sleeping.
func newTestTransport(maxRetries int, base time.Duration) (*Transport, *[]time.Duration) {
	var delays []time.Duration
	tr := NewTransport(maxRetries, base, 5*time.Second)
	tr.jitter = func() time.Duration { return 0 }
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return tr, &delays
}

func getBuilder(url string) RequestBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr, delays := newTestTransport(5, 100*time.Millisecond)
	resp, attempts, err := tr.Do(context.Background(), getBuilder(srv.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	// Backoff for attempt k must be at least base·2^(k−1).
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("recorded %d delays, want %d", len(*delays), len(want))
	}
	for i, d := range *delays {
		if d < want[i] {
			t.Errorf("delay[%d] = %v, want >= %v", i, d, want[i])
		}
	}
}

func TestDo_ExhaustsRetriesOnNetworkFailure(t *testing.T) {
	// A server that is already closed produces connection-refused errors.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr, _ := newTestTransport(3, time.Millisecond)
	_, attempts, err := tr.Do(context.Background(), getBuilder(url))
	if err == nil {
		t.Fatal("Do() expected error, got nil")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	te, ok := err.(*TransportError)
	if !ok {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if te.Attempts != 3 {
		t.Errorf("TransportError.Attempts = %d, want 3", te.Attempts)
	}
	if te.Err == nil {
		t.Error("TransportError must carry the last underlying cause")
	}
}

func TestDo_NonRetryableStatusReturnsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr, delays := newTestTransport(5, time.Millisecond)
	resp, attempts, err := tr.Do(context.Background(), getBuilder(srv.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1 (400 is fatal)", got)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(*delays) != 0 {
		t.Errorf("recorded %d backoff sleeps, want 0", len(*delays))
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

type fakeInvalidator struct{ calls int32 }

func (f *fakeInvalidator) Invalidate() { atomic.AddInt32(&f.calls, 1) }

func TestDo_AuthStatusInvalidatesCredential(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(3, time.Millisecond)
	inv := &fakeInvalidator{}
	tr.SetInvalidator(inv)

	resp, _, err := tr.Do(context.Background(), getBuilder(srv.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 after retry", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&inv.calls); got != 1 {
		t.Errorf("Invalidate() calls = %d, want 1", got)
	}
}

func TestDo_ExhaustedRetryableStatusReturnsLastResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tr, _ := newTestTransport(2, time.Millisecond)
	resp, attempts, err := tr.Do(context.Background(), getBuilder(srv.URL))
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	defer resp.Body.Close()

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 (caller turns this into GatewayError)", resp.StatusCode)
	}
}

func TestDo_CancellationAbortsBetweenAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	tr := NewTransport(5, time.Millisecond, time.Second)
	tr.jitter = func() time.Duration { return 0 }
	tr.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, _, err := tr.Do(ctx, getBuilder(srv.URL))
	if err != context.Canceled {
		t.Errorf("Do() error = %v, want context.Canceled", err)
	}
}
